package engine

import (
	"waterflow/internal/waternet"
	"waterflow/pkg/apperror"
)

// =============================================================================
// Flow-Path Decomposition
// =============================================================================

// FlowPath is one source-to-sink route with the amount it carries.
type FlowPath struct {
	Nodes []string `json:"nodes"`
	Flow  float64  `json:"flow"`
}

// DecomposePaths splits a flow into source-to-sink paths.
//
// The per-edge flows are copied into a working map and peeled off path by
// path: follow positive-flow edges from the source (first by insertion
// order), subtract the bottleneck, repeat until no flow leaves the source.
// Flow trapped in cycles, if any, is not part of any source-to-sink path
// and is ignored.
//
// Paths come out in deterministic order and their flows sum to the
// result's value.
func DecomposePaths(network *waternet.Network, result *waternet.FlowResult) ([]FlowPath, error) {
	if network == nil {
		return nil, apperror.ErrNilNetwork
	}
	if result == nil {
		return nil, apperror.ErrNilResult
	}

	remaining := make([]float64, network.EdgeCount())
	for i, edge := range network.Edges() {
		remaining[i] = result.Flow(edge.Key())
	}

	sourceIdx, _ := network.NodeIndex(network.SourceID())
	sinkIdx, _ := network.NodeIndex(network.SinkID())

	var paths []FlowPath
	for {
		path, flow := peelPath(network, remaining, sourceIdx, sinkIdx)
		if flow <= waternet.Epsilon {
			break
		}
		paths = append(paths, FlowPath{Nodes: path, Flow: flow})
	}

	return paths, nil
}

// peelPath walks positive-flow edges from source to sink, subtracting the
// bottleneck along the way. A visited set steps over flow cycles.
func peelPath(network *waternet.Network, remaining []float64, source, sink int) ([]string, float64) {
	visited := make([]bool, network.NodeCount())
	visited[source] = true

	nodePath := []int{source}
	edgePath := []int{}
	bottleneck := waternet.Infinity

	u := source
	for u != sink {
		next := -1
		for _, edgeIdx := range network.OutEdges(u) {
			if remaining[edgeIdx] <= waternet.Epsilon {
				continue
			}
			to, _ := network.NodeIndex(network.Edges()[edgeIdx].To)
			if visited[to] {
				continue
			}
			next = edgeIdx
			break
		}
		if next < 0 {
			// Dead end: no sink-bound flow from here
			if len(edgePath) == 0 {
				return nil, 0
			}
			// Back off the last step; the dead end stays visited so it
			// is never re-entered on this peel
			edgePath = edgePath[:len(edgePath)-1]
			nodePath = nodePath[:len(nodePath)-1]
			u = nodePath[len(nodePath)-1]
			bottleneck = waternet.Infinity
			for _, e := range edgePath {
				if remaining[e] < bottleneck {
					bottleneck = remaining[e]
				}
			}
			continue
		}

		if remaining[next] < bottleneck {
			bottleneck = remaining[next]
		}
		to, _ := network.NodeIndex(network.Edges()[next].To)
		visited[to] = true
		nodePath = append(nodePath, to)
		edgePath = append(edgePath, next)
		u = to
	}

	if bottleneck == waternet.Infinity || bottleneck <= waternet.Epsilon {
		return nil, 0
	}

	for _, e := range edgePath {
		remaining[e] -= bottleneck
	}

	ids := make([]string, len(nodePath))
	for i, idx := range nodePath {
		ids[i] = network.NodeByIndex(idx).ID
	}
	return ids, bottleneck
}
