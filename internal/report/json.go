package report

import (
	"context"
	"encoding/json"
	"time"

	"waterflow/internal/sweep"
	"waterflow/internal/waternet"
)

// JSONGenerator генератор JSON отчётов
type JSONGenerator struct {
	BaseGenerator
}

// NewJSONGenerator создаёт новый генератор
func NewJSONGenerator() *JSONGenerator {
	return &JSONGenerator{}
}

// Format возвращает формат генератора
func (g *JSONGenerator) Format() Format {
	return FormatJSON
}

// JSONReport структура JSON отчёта
type JSONReport struct {
	Metadata JSONMetadata    `json:"metadata"`
	Network  *JSONNetwork    `json:"network,omitempty"`
	Result   *JSONFlowResult `json:"result,omitempty"`
	MinCut   *JSONMinCut     `json:"minCut,omitempty"`
	Stats    *JSONStats      `json:"statistics,omitempty"`
	Leakage  *JSONLeakage    `json:"leakageSweep,omitempty"`
	Failure  *JSONFailure    `json:"failureAnalysis,omitempty"`
}

type JSONMetadata struct {
	Title       string `json:"title"`
	Author      string `json:"author"`
	Description string `json:"description,omitempty"`
	GeneratedAt string `json:"generatedAt"`
	Version     string `json:"version"`
}

type JSONNetwork struct {
	NodeCount int    `json:"nodeCount"`
	EdgeCount int    `json:"edgeCount"`
	SourceID  string `json:"sourceId"`
	SinkID    string `json:"sinkId"`
}

type JSONFlowResult struct {
	Value      float64         `json:"value"`
	Algorithm  string          `json:"algorithm"`
	Reason     string          `json:"reason"`
	Iterations int             `json:"iterations"`
	DurationMs float64         `json:"durationMs"`
	Edges      []*JSONFlowEdge `json:"edges,omitempty"`
}

type JSONFlowEdge struct {
	From        string  `json:"from"`
	To          string  `json:"to"`
	Flow        float64 `json:"flow"`
	Capacity    float64 `json:"capacity"`
	Utilization float64 `json:"utilization"`
}

type JSONMinCut struct {
	Capacity   float64  `json:"capacity"`
	Edges      []string `json:"edges"`
	SourceSide []string `json:"sourceSide"`
	SinkSide   []string `json:"sinkSide"`
}

type JSONStats struct {
	FlowValue       float64 `json:"flowValue"`
	ActiveEdges     int     `json:"activeEdges"`
	SaturatedEdges  int     `json:"saturatedEdges"`
	MeanUtilization float64 `json:"meanUtilization"`
}

type JSONLeakage struct {
	Algorithm       string               `json:"algorithm"`
	BaseValue       float64              `json:"baseValue"`
	CollapseLeakage float64              `json:"collapseLeakage"`
	Points          []sweep.LeakagePoint `json:"points"`
}

type JSONFailure struct {
	BaseValue              float64  `json:"baseValue"`
	SinglePointsOfFailure  []string `json:"singlePointsOfFailure"`
	MostCritical           string   `json:"mostCritical,omitempty"`
	WorstReduction         float64  `json:"worstReduction"`
	ConnectivityRobustness float64  `json:"connectivityRobustness"`
	FlowRobustness         float64  `json:"flowRobustness"`
	OverallScore           float64  `json:"overallScore"`
}

// Generate генерирует JSON отчёт
func (g *JSONGenerator) Generate(ctx context.Context, data *ReportData) ([]byte, error) {
	rep := &JSONReport{
		Metadata: JSONMetadata{
			Title:       g.GetTitle(data),
			Author:      g.GetAuthor(data),
			Description: g.GetDescription(data),
			GeneratedAt: g.FormatTimestamp(time.Now()),
			Version:     "1.0",
		},
	}

	if data.Network != nil {
		rep.Network = &JSONNetwork{
			NodeCount: data.Network.NodeCount(),
			EdgeCount: data.Network.EdgeCount(),
			SourceID:  data.Network.SourceID(),
			SinkID:    data.Network.SinkID(),
		}
	}

	if data.Result != nil {
		rep.Result = &JSONFlowResult{
			Value:      data.Result.Value,
			Algorithm:  string(data.Result.Algorithm),
			Reason:     string(data.Result.Reason),
			Iterations: data.Result.Iterations,
			DurationMs: float64(data.Result.Duration) / float64(time.Millisecond),
		}
		if g.ShouldIncludeRawData(data) {
			for _, row := range edgeRows(data) {
				rep.Result.Edges = append(rep.Result.Edges, &JSONFlowEdge{
					From:        row.From,
					To:          row.To,
					Flow:        row.Flow,
					Capacity:    row.Capacity,
					Utilization: row.Utilization,
				})
			}
		}
	}

	if data.Cut != nil {
		rep.MinCut = &JSONMinCut{
			Capacity:   data.Cut.Capacity,
			Edges:      edgeKeyStrings(data.Cut.Edges),
			SourceSide: data.Cut.SourceSide,
			SinkSide:   data.Cut.SinkSide,
		}
	}

	if data.Stats != nil {
		rep.Stats = &JSONStats{
			FlowValue:       data.Stats.FlowValue,
			ActiveEdges:     data.Stats.ActiveEdges,
			SaturatedEdges:  data.Stats.SaturatedEdges,
			MeanUtilization: data.Stats.MeanUtilization,
		}
	}

	if data.Leakage != nil {
		rep.Leakage = &JSONLeakage{
			Algorithm:       string(data.Leakage.Algorithm),
			BaseValue:       data.Leakage.BaseValue,
			CollapseLeakage: data.Leakage.CollapseLeakage,
			Points:          data.Leakage.Points,
		}
	}

	if data.Failure != nil {
		rep.Failure = &JSONFailure{
			BaseValue:              data.Failure.BaseValue,
			SinglePointsOfFailure:  edgeKeyStrings(data.Failure.SinglePointsOfFailure),
			WorstReduction:         data.Failure.WorstReduction,
			ConnectivityRobustness: data.Failure.ConnectivityRobustness,
			FlowRobustness:         data.Failure.FlowRobustness,
			OverallScore:           data.Failure.OverallScore,
		}
		if data.Failure.MostCritical != nil {
			rep.Failure.MostCritical = data.Failure.MostCritical.String()
		}
	}

	return json.MarshalIndent(rep, "", "  ")
}

func edgeKeyStrings(keys []waternet.EdgeKey) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = k.String()
	}
	return out
}
