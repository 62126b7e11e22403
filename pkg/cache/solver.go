package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"waterflow/internal/engine"
	"waterflow/internal/waternet"
)

// SolveCache специализированный кэш для результатов расчёта потока
type SolveCache struct {
	cache      Cache
	defaultTTL time.Duration
}

// CachedSolveResult кэшированный результат
type CachedSolveResult struct {
	Value      float64          `json:"value"`
	Algorithm  string           `json:"algorithm"`
	Iterations int              `json:"iterations"`
	Reason     string           `json:"reason"`
	DurationMs float64          `json:"duration_ms"`
	FlowEdges  []*FlowEdgeCache `json:"flow_edges,omitempty"`
	ComputedAt time.Time        `json:"computed_at"`
}

// FlowEdgeCache кэшированное ребро с потоком
type FlowEdgeCache struct {
	From string  `json:"from"`
	To   string  `json:"to"`
	Flow float64 `json:"flow"`
}

// NewSolveCache создаёт кэш для результатов расчёта
func NewSolveCache(cache Cache, defaultTTL time.Duration) *SolveCache {
	if defaultTTL <= 0 {
		defaultTTL = 10 * time.Minute
	}
	return &SolveCache{
		cache:      cache,
		defaultTTL: defaultTTL,
	}
}

// Get получает кэшированный результат для сети, алгоритма и опций запуска
func (sc *SolveCache) Get(ctx context.Context, network *waternet.Network, algorithm waternet.Variant, opts *engine.Options) (*CachedSolveResult, bool, error) {
	key := sc.key(network, algorithm, opts)

	data, err := sc.cache.Get(ctx, key)
	if err != nil {
		if err == ErrKeyNotFound {
			return nil, false, nil
		}
		return nil, false, err
	}

	var result CachedSolveResult
	if err := json.Unmarshal(data, &result); err != nil {
		// Повреждённый кэш — удаляем, ошибку удаления игнорируем намеренно
		_ = sc.cache.Delete(ctx, key) //nolint:errcheck // best effort cleanup
		return nil, false, nil
	}

	return &result, true, nil
}

// key строит ключ кэша. Опции входят в ключ: усечённый бюджетом запуск
// не должен подменять полноценный для той же сети.
func (sc *SolveCache) key(network *waternet.Network, algorithm waternet.Variant, opts *engine.Options) string {
	return BuildSolveKeyWithOptions(NetworkHash(network), string(algorithm), SolveOptionsHash(opts))
}

// Set сохраняет результат в кэш
func (sc *SolveCache) Set(ctx context.Context, network *waternet.Network, algorithm waternet.Variant, opts *engine.Options, result *CachedSolveResult, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = sc.defaultTTL
	}

	key := sc.key(network, algorithm, opts)

	result.ComputedAt = time.Now()

	data, err := json.Marshal(result)
	if err != nil {
		return err
	}

	return sc.cache.Set(ctx, key, data, ttl)
}

// SetFromResult сохраняет результат из FlowResult. Незавершённые
// запуски (исчерпанный бюджет, таймаут) не кэшируются: их результат —
// частичный поток, пригодный только для породившего его запроса.
func (sc *SolveCache) SetFromResult(ctx context.Context, network *waternet.Network, result *waternet.FlowResult, opts *engine.Options, ttl time.Duration) error {
	if result == nil || result.Reason != waternet.Converged {
		return nil
	}

	cached := &CachedSolveResult{
		Value:      result.Value,
		Algorithm:  string(result.Algorithm),
		Iterations: result.Iterations,
		Reason:     string(result.Reason),
		DurationMs: float64(result.Duration) / float64(time.Millisecond),
	}

	// Кэшируем только рёбра с ненулевым потоком, в порядке объявления
	for _, edge := range network.Edges() {
		flow := result.Flow(edge.Key())
		if flow <= 0 {
			continue
		}
		cached.FlowEdges = append(cached.FlowEdges, &FlowEdgeCache{
			From: edge.From,
			To:   edge.To,
			Flow: flow,
		})
	}

	return sc.Set(ctx, network, result.Algorithm, opts, cached, ttl)
}

// Invalidate удаляет кэш для сети
func (sc *SolveCache) Invalidate(ctx context.Context, network *waternet.Network) error {
	networkHash := NetworkHash(network)
	pattern := fmt.Sprintf("solve:*:%s", networkHash)
	_, err := sc.cache.DeleteByPattern(ctx, pattern)
	return err
}

// InvalidateAll удаляет весь кэш результатов
func (sc *SolveCache) InvalidateAll(ctx context.Context) (int64, error) {
	return sc.cache.DeleteByPattern(ctx, "solve:*")
}

// ToFlowResult конвертирует кэшированный результат в FlowResult
func (r *CachedSolveResult) ToFlowResult() *waternet.FlowResult {
	result := &waternet.FlowResult{
		Value:      r.Value,
		EdgeFlows:  make(map[waternet.EdgeKey]float64, len(r.FlowEdges)),
		Algorithm:  waternet.Variant(r.Algorithm),
		Iterations: r.Iterations,
		Reason:     waternet.TerminationReason(r.Reason),
		Duration:   time.Duration(r.DurationMs * float64(time.Millisecond)),
	}

	for _, e := range r.FlowEdges {
		result.EdgeFlows[waternet.EdgeKey{From: e.From, To: e.To}] = e.Flow
	}

	return result
}
