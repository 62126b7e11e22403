package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Стандартные ключи атрибутов
const (
	// Сеть
	AttrNetworkNodes  = "network.nodes"
	AttrNetworkEdges  = "network.edges"
	AttrNetworkSource = "network.source_id"
	AttrNetworkSink   = "network.sink_id"

	// Алгоритм
	AttrAlgorithm  = "algorithm.name"
	AttrIterations = "algorithm.iterations"
	AttrMaxFlow    = "algorithm.max_flow"
	AttrReason     = "algorithm.termination_reason"

	// Сценарий
	AttrScenarioLeakage = "scenario.default_leakage"
	AttrScenarioFailed  = "scenario.failed_edges"

	// Минимальный разрез
	AttrCutEdges    = "mincut.edges"
	AttrCutCapacity = "mincut.capacity"
)

// NetworkAttributes возвращает атрибуты сети
func NetworkAttributes(nodes, edges int, sourceID, sinkID string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(AttrNetworkNodes, nodes),
		attribute.Int(AttrNetworkEdges, edges),
		attribute.String(AttrNetworkSource, sourceID),
		attribute.String(AttrNetworkSink, sinkID),
	}
}

// SolveAttributes возвращает атрибуты прогона алгоритма
func SolveAttributes(name string, iterations int, maxFlow float64, reason string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrAlgorithm, name),
		attribute.Int(AttrIterations, iterations),
		attribute.Float64(AttrMaxFlow, maxFlow),
		attribute.String(AttrReason, reason),
	}
}

// ScenarioAttributes возвращает атрибуты сценария
func ScenarioAttributes(defaultLeakage float64, failedEdges int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Float64(AttrScenarioLeakage, defaultLeakage),
		attribute.Int(AttrScenarioFailed, failedEdges),
	}
}

// MinCutAttributes возвращает атрибуты минимального разреза
func MinCutAttributes(cutEdges int, capacity float64) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(AttrCutEdges, cutEdges),
		attribute.Float64(AttrCutCapacity, capacity),
	}
}
