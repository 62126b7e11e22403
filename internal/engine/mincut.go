package engine

import (
	"waterflow/internal/graph"
	"waterflow/internal/waternet"
	"waterflow/pkg/apperror"
)

// =============================================================================
// Min-Cut Extraction
// =============================================================================

// ExtractMinCut derives a minimum cut from a computed flow.
//
// The residual state is rebuilt from the result's per-edge flows, then a
// single reachability search from the source over strictly positive
// residual arcs yields the S side of the partition. The crossing edges
// are the saturated pipes, reported in network insertion order.
//
// For a converged result the cut capacity equals the flow value (max-flow
// min-cut duality). For a budget-exceeded result the partition is still
// well-formed but the capacity may exceed the flow value, so duality is
// not guaranteed.
//
// Degenerate case: when the sink is unreachable even at full capacity the
// maximum flow is zero and the cut consists of the source's out-edges with
// positive capacity (capacity sum above zero, duality waived).
func ExtractMinCut(network *waternet.Network, result *waternet.FlowResult) (*waternet.MinCut, error) {
	if network == nil {
		return nil, apperror.ErrNilNetwork
	}
	if result == nil {
		return nil, apperror.ErrNilResult
	}

	r := graph.NewResidual(network)
	r.ApplyFlows(result.EdgeFlows)

	reachable := graph.ResidualReachable(r, r.Source())
	if reachable[r.Sink()] && result.Converged() {
		// A max flow leaves no residual path to the sink
		return nil, apperror.New(apperror.CodeAlgorithmError,
			"sink residually reachable from source on a converged flow")
	}

	cut := &waternet.MinCut{}
	for idx, node := range network.Nodes() {
		if reachable[idx] {
			cut.SourceSide = append(cut.SourceSide, node.ID)
		} else {
			cut.SinkSide = append(cut.SinkSide, node.ID)
		}
	}

	// Disconnected case: if the sink is unreachable even at full capacity
	// the max flow is zero and the cut is the full set of source out-edges
	// with positive capacity. Documented behavior, not an error.
	if result.Value <= waternet.Epsilon && !sinkConnected(network) {
		for _, edge := range network.SourceOutEdges() {
			if edge.Capacity > waternet.Epsilon {
				cut.Edges = append(cut.Edges, edge.Key())
				cut.Capacity += edge.Capacity
			}
		}
		return cut, nil
	}

	for _, edge := range network.Edges() {
		from, _ := network.NodeIndex(edge.From)
		to, _ := network.NodeIndex(edge.To)
		if reachable[from] && !reachable[to] && edge.Capacity > waternet.Epsilon {
			cut.Edges = append(cut.Edges, edge.Key())
			cut.Capacity += edge.Capacity
		}
	}

	return cut, nil
}

// sinkConnected reports whether any full-capacity path reaches the sink.
func sinkConnected(network *waternet.Network) bool {
	r := graph.NewResidual(network)
	reachable := graph.ResidualReachable(r, r.Source())
	return reachable[r.Sink()]
}
