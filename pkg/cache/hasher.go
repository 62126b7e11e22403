package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"

	"waterflow/internal/engine"
	"waterflow/internal/waternet"
)

// NetworkHash вычисляет хеш сети для использования как ключ кэша
func NetworkHash(network *waternet.Network) string {
	if network == nil {
		return ""
	}

	data := networkToCanonical(network)
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:16])
}

// networkToCanonical создаёт детерминированное представление сети
func networkToCanonical(network *waternet.Network) []byte {
	// Сортируем узлы по ID
	nodes := append([]waternet.Node(nil), network.Nodes()...)
	sort.Slice(nodes, func(i, j int) bool {
		return nodes[i].ID < nodes[j].ID
	})

	// Сортируем рёбра по паре (from, to)
	edges := append([]waternet.Edge(nil), network.Edges()...)
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].From != edges[j].From {
			return edges[i].From < edges[j].From
		}
		return edges[i].To < edges[j].To
	})

	// Строим каноническую строку
	var result []byte

	// Source и Sink
	result = append(result, []byte(fmt.Sprintf("s:%s,t:%s;", network.SourceID(), network.SinkID()))...)

	// Узлы
	for _, node := range nodes {
		result = append(result, []byte(fmt.Sprintf("n:%s:%d;", node.ID, int(node.Role)))...)
	}

	// Рёбра
	for _, e := range edges {
		result = append(result, []byte(fmt.Sprintf("e:%s:%s:%.6f;", e.From, e.To, e.Capacity))...)
	}

	return result
}

// BuildSolveKey строит ключ кэша для результата решения
func BuildSolveKey(networkHash, algorithm string) string {
	return fmt.Sprintf("solve:%s:%s", algorithm, networkHash)
}

// BuildSolveKeyWithOptions строит ключ с учётом опций. Хеш сети всегда
// последний сегмент: инвалидация по сети ищет шаблоном "solve:*:<хеш>".
func BuildSolveKeyWithOptions(networkHash, algorithm, optionsHash string) string {
	if optionsHash == "" {
		return BuildSolveKey(networkHash, algorithm)
	}
	return fmt.Sprintf("solve:%s:%s:%s", algorithm, optionsHash, networkHash)
}

// SolveOptionsHash хеширует опции запуска, влияющие на результат:
// бюджет итераций, допуск и таймаут. Опции по умолчанию дают пустую
// строку, чтобы ключ для них совпадал с коротким BuildSolveKey.
// Трассировка на поток не влияет и в хеш не входит.
func SolveOptionsHash(opts *engine.Options) string {
	if opts == nil {
		return ""
	}

	epsilon := opts.Epsilon
	if epsilon <= 0 {
		epsilon = waternet.Epsilon
	}
	maxIterations := opts.MaxIterations
	if maxIterations <= 0 {
		maxIterations = engine.DefaultMaxIterations
	}

	if epsilon == waternet.Epsilon && maxIterations == engine.DefaultMaxIterations && opts.Timeout == 0 {
		return ""
	}

	return ShortHash(fmt.Appendf(nil, "%g:%d:%d", epsilon, maxIterations, opts.Timeout))
}

// QuickHash быстрый хеш для произвольных данных
func QuickHash(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// ShortHash короткий хеш (16 символов)
func ShortHash(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:8])
}
