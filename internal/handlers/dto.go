package handlers

import (
	"time"

	"waterflow/internal/engine"
	"waterflow/internal/sweep"
	"waterflow/internal/waternet"
)

// ==================== Запросы ====================

// NodeDTO узел сети
type NodeDTO struct {
	ID   string `json:"id" binding:"required"`
	Role string `json:"role"` // source, sink, junction
}

// EdgeDTO труба сети
type EdgeDTO struct {
	From     string  `json:"from" binding:"required"`
	To       string  `json:"to" binding:"required"`
	Capacity float64 `json:"capacity"`
}

// NetworkDTO описание сети на границе API
type NetworkDTO struct {
	Nodes    []NodeDTO `json:"nodes" binding:"required"`
	Edges    []EdgeDTO `json:"edges" binding:"required"`
	SourceID string    `json:"source_id" binding:"required"`
	SinkID   string    `json:"sink_id" binding:"required"`
}

// ScenarioDTO описание сценария: утечка по умолчанию, переопределения
// по трубам и множество отказавших труб
type ScenarioDTO struct {
	DefaultLeakage float64            `json:"default_leakage"`
	Leakage        map[string]float64 `json:"leakage,omitempty"` // ключ "from->to"
	Failed         []EdgeKeyDTO       `json:"failed,omitempty"`
}

// EdgeKeyDTO идентификатор трубы
type EdgeKeyDTO struct {
	From string `json:"from" binding:"required"`
	To   string `json:"to" binding:"required"`
}

// OptionsDTO настройки запуска
type OptionsDTO struct {
	MaxIterations int     `json:"max_iterations"`
	Tolerance     float64 `json:"tolerance"`
	TimeoutMs     int     `json:"timeout_ms"`
	Trace         bool    `json:"trace"`
}

// SolveRequest запрос на расчёт потока
type SolveRequest struct {
	Network   NetworkDTO   `json:"network" binding:"required"`
	Scenario  *ScenarioDTO `json:"scenario,omitempty"`
	Algorithm string       `json:"algorithm"`
	Options   *OptionsDTO  `json:"options,omitempty"`

	// Save включает сохранение запуска в историю
	Save bool     `json:"save"`
	Name string   `json:"name,omitempty"`
	Tags []string `json:"tags,omitempty"`
}

// SweepRequest запрос на сценарный прогон
type SweepRequest struct {
	Network   NetworkDTO  `json:"network" binding:"required"`
	Algorithm string      `json:"algorithm"`
	Options   *OptionsDTO `json:"options,omitempty"`

	// Параметры развёртки утечки
	Step       float64 `json:"step,omitempty"`
	MaxLeakage float64 `json:"max_leakage,omitempty"`
}

// ReportRequest запрос на генерацию отчёта
type ReportRequest struct {
	Network        NetworkDTO   `json:"network" binding:"required"`
	Scenario       *ScenarioDTO `json:"scenario,omitempty"`
	Algorithm      string       `json:"algorithm"`
	Format         string       `json:"format"` // json, csv, excel, pdf
	Title          string       `json:"title,omitempty"`
	IncludeSweeps  bool         `json:"include_sweeps"`
	IncludeRawData bool         `json:"include_raw_data"`
}

// ==================== Ответы ====================

// FlowEdgeDTO поток по одной трубе
type FlowEdgeDTO struct {
	From     string  `json:"from"`
	To       string  `json:"to"`
	Flow     float64 `json:"flow"`
	Capacity float64 `json:"capacity"`
}

// SolveResponse результат расчёта
type SolveResponse struct {
	Value      float64       `json:"value"`
	Algorithm  string        `json:"algorithm"`
	Reason     string        `json:"reason"`
	Iterations int           `json:"iterations"`
	DurationMs float64       `json:"duration_ms"`
	Edges      []FlowEdgeDTO `json:"edges"`

	Trace []engine.Event `json:"trace,omitempty"`
	RunID string         `json:"run_id,omitempty"`
}

// MinCutResponse минимальный разрез
type MinCutResponse struct {
	Result     SolveResponse `json:"result"`
	Capacity   float64       `json:"capacity"`
	Edges      []EdgeKeyDTO  `json:"edges"`
	SourceSide []string      `json:"source_side"`
	SinkSide   []string      `json:"sink_side"`
}

// ScenarioResponse возмущённая сеть после применения сценария
type ScenarioResponse struct {
	Network NetworkDTO `json:"network"`
}

// FlowPathDTO один путь источник-сток
type FlowPathDTO struct {
	Nodes []string `json:"nodes"`
	Flow  float64  `json:"flow"`
}

// FlowPathsResponse разложение потока на пути
type FlowPathsResponse struct {
	Result SolveResponse `json:"result"`
	Paths  []FlowPathDTO `json:"paths"`
}

// HealthResponse состояние сервиса
type HealthResponse struct {
	Status    string          `json:"status"`
	Version   string          `json:"version"`
	UptimeSec float64         `json:"uptime_sec"`
	Checks    map[string]bool `json:"checks,omitempty"`
}

// ErrorResponse тело ошибки
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// ==================== Конвертация ====================

// ToNetwork собирает доменную сеть из DTO. Ошибки валидации
// возвращаются как есть: им уже назначены коды и HTTP статусы.
func (d *NetworkDTO) ToNetwork() (*waternet.Network, error) {
	nodes := make([]waternet.Node, 0, len(d.Nodes))
	for _, n := range d.Nodes {
		nodes = append(nodes, waternet.Node{
			ID:   n.ID,
			Role: waternet.ParseRole(n.Role),
		})
	}
	edges := make([]waternet.Edge, 0, len(d.Edges))
	for _, e := range d.Edges {
		edges = append(edges, waternet.Edge{
			From:     e.From,
			To:       e.To,
			Capacity: e.Capacity,
		})
	}
	return waternet.NewNetwork(nodes, edges, d.SourceID, d.SinkID)
}

// ToScenario собирает доменный сценарий из DTO
func (d *ScenarioDTO) ToScenario() *waternet.Scenario {
	if d == nil {
		return nil
	}
	s := &waternet.Scenario{DefaultLeakage: d.DefaultLeakage}
	if len(d.Leakage) > 0 {
		s.Leakage = make(map[waternet.EdgeKey]float64, len(d.Leakage))
		for key, frac := range d.Leakage {
			s.Leakage[parseEdgeKey(key)] = frac
		}
	}
	for _, k := range d.Failed {
		s.Failed = append(s.Failed, waternet.EdgeKey{From: k.From, To: k.To})
	}
	return s
}

// parseEdgeKey разбирает ключ вида "from->to". Строка без разделителя
// трактуется как from с пустым to и отбрасывается валидацией сценария.
func parseEdgeKey(s string) waternet.EdgeKey {
	for i := 0; i+1 < len(s); i++ {
		if s[i] == '-' && s[i+1] == '>' {
			return waternet.EdgeKey{From: s[:i], To: s[i+2:]}
		}
	}
	return waternet.EdgeKey{From: s}
}

func fromNetwork(n *waternet.Network) NetworkDTO {
	dto := NetworkDTO{
		SourceID: n.SourceID(),
		SinkID:   n.SinkID(),
		Nodes:    make([]NodeDTO, 0, n.NodeCount()),
		Edges:    make([]EdgeDTO, 0, n.EdgeCount()),
	}
	for _, node := range n.Nodes() {
		dto.Nodes = append(dto.Nodes, NodeDTO{ID: node.ID, Role: node.Role.String()})
	}
	for _, edge := range n.Edges() {
		dto.Edges = append(dto.Edges, EdgeDTO{From: edge.From, To: edge.To, Capacity: edge.Capacity})
	}
	return dto
}

func fromResult(network *waternet.Network, result *waternet.FlowResult) SolveResponse {
	resp := SolveResponse{
		Value:      result.Value,
		Algorithm:  string(result.Algorithm),
		Reason:     string(result.Reason),
		Iterations: result.Iterations,
		DurationMs: float64(result.Duration) / float64(time.Millisecond),
		Edges:      make([]FlowEdgeDTO, 0, network.EdgeCount()),
	}
	for _, edge := range network.Edges() {
		resp.Edges = append(resp.Edges, FlowEdgeDTO{
			From:     edge.From,
			To:       edge.To,
			Flow:     result.Flow(edge.Key()),
			Capacity: edge.Capacity,
		})
	}
	return resp
}

func fromMinCut(cut *waternet.MinCut) MinCutResponse {
	resp := MinCutResponse{
		Capacity:   cut.Capacity,
		Edges:      make([]EdgeKeyDTO, 0, len(cut.Edges)),
		SourceSide: cut.SourceSide,
		SinkSide:   cut.SinkSide,
	}
	for _, k := range cut.Edges {
		resp.Edges = append(resp.Edges, EdgeKeyDTO{From: k.From, To: k.To})
	}
	return resp
}

func fromPaths(paths []engine.FlowPath) []FlowPathDTO {
	out := make([]FlowPathDTO, 0, len(paths))
	for _, p := range paths {
		out = append(out, FlowPathDTO{Nodes: p.Nodes, Flow: p.Flow})
	}
	return out
}

func (o *OptionsDTO) toEngineOptions(traceLimit int) (*engine.Options, *engine.MemoryRecorder) {
	opts := engine.DefaultOptions()
	if o == nil {
		return opts, nil
	}
	if o.MaxIterations > 0 {
		opts.WithMaxIterations(o.MaxIterations)
	}
	if o.Tolerance > 0 {
		opts.WithEpsilon(o.Tolerance)
	}
	if o.TimeoutMs > 0 {
		opts.WithTimeout(time.Duration(o.TimeoutMs) * time.Millisecond)
	}
	var rec *engine.MemoryRecorder
	if o.Trace {
		rec = &engine.MemoryRecorder{Limit: traceLimit}
		opts.WithTrace(rec)
	}
	return opts, rec
}

func (r *SweepRequest) toSweepConfig(base sweep.Config) sweep.Config {
	cfg := base
	if r.Step > 0 {
		cfg.Step = r.Step
	}
	if r.MaxLeakage > 0 {
		cfg.MaxLeakage = r.MaxLeakage
	}
	return cfg
}
