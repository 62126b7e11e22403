package engine

import (
	"context"

	"waterflow/internal/graph"
	"waterflow/internal/waternet"
)

// =============================================================================
// Blocking Flow Algorithm (Dinic)
// =============================================================================
//
// Dinic's algorithm improves on plain augmenting paths by grouping them
// into phases: BFS builds a level graph, then DFS finds a blocking flow
// that saturates at least one pipe on every shortest path.
//
// Time Complexity: O(V^2 * E) general case, O(E * sqrt(V)) for unit capacities
// Space Complexity: O(V + E)
//
// Algorithm Phases:
//  1. BFS from source to build level graph (assigns levels to nodes)
//  2. Find blocking flow using iterative DFS with current-arc advance
//  3. Repeat until sink is unreachable from source
//
// One iteration is one phase. The level graph grows strictly deeper each
// phase, bounding the phase count by the node count.
// =============================================================================

type blockingFlow struct{}

func (blockingFlow) Variant() waternet.Variant { return waternet.BlockingFlow }

func (blockingFlow) Run(ctx context.Context, r *graph.Residual, opts *Options) (*Outcome, error) {
	source, sink := r.Source(), r.Sink()
	trace := newTracer(opts.Trace, waternet.BlockingFlow)

	maxFlow := 0.0
	iterations := 0

	for iterations < opts.MaxIterations {
		// Phases are coarse enough to check the context on every one
		if canceled(ctx) {
			return &Outcome{Flow: maxFlow, Iterations: iterations, Reason: waternet.BudgetExceeded}, nil
		}

		// Phase 1: build level graph
		level := graph.BFSLevel(r, source)
		if level[sink] < 0 {
			return &Outcome{Flow: maxFlow, Iterations: iterations, Reason: waternet.Converged}, nil
		}

		// Phase 2: saturate the level graph
		phaseFlow := findBlockingFlow(r, source, sink, level, opts.Epsilon, trace, iterations+1)
		if phaseFlow <= opts.Epsilon {
			return &Outcome{Flow: maxFlow, Iterations: iterations, Reason: waternet.Converged}, nil
		}

		maxFlow += phaseFlow
		iterations++

		if trace != nil {
			trace.record(Event{
				Kind:      EventPhase,
				Iteration: iterations,
				Amount:    phaseFlow,
			})
		}
	}

	return &Outcome{Flow: maxFlow, Iterations: iterations, Reason: waternet.BudgetExceeded}, nil
}

// findBlockingFlow finds a blocking flow in the level graph.
// A blocking flow saturates at least one arc on every path from source to sink.
//
// Uses iterative DFS with current-arc advance: arcs rejected once in a phase
// are never retried within it.
func findBlockingFlow(r *graph.Residual, source, sink int, level []int, epsilon float64, trace *tracer, phase int) float64 {
	totalFlow := 0.0

	// Current arc: next arc to try for each node within this phase
	currentArc := make([]int, r.NodeCount())

	for {
		path, pathFlow := dfsBlockingPath(r, source, sink, level, currentArc, epsilon)
		if pathFlow <= epsilon {
			break
		}
		totalFlow += pathFlow

		if trace != nil {
			trace.record(Event{
				Kind:      EventAugment,
				Iteration: phase,
				Nodes:     pathNodeIDs(r, path, sink),
				Amount:    pathFlow,
			})
		}
	}

	return totalFlow
}

// dfsBlockingPath finds one augmenting path in the level graph using
// iterative DFS, pushes its bottleneck and returns the path and amount.
//
// The iterative implementation avoids stack overflow on deep networks.
func dfsBlockingPath(r *graph.Residual, source, sink int, level []int, currentArc []int, epsilon float64) ([]graph.ArcStep, float64) {
	stack := make([]int, 0, 64)
	path := make([]graph.ArcStep, 0, 64)
	minCap := make([]float64, 0, 64)

	stack = append(stack, source)
	minCap = append(minCap, graph.Infinity)

	for len(stack) > 0 {
		u := stack[len(stack)-1]

		// Found path to sink: push the bottleneck along it
		if u == sink {
			bottleneck := minCap[len(minCap)-1]
			graph.AugmentPath(r, path, bottleneck)
			result := make([]graph.ArcStep, len(path))
			copy(result, path)
			return result, bottleneck
		}

		arcs := r.Arcs(u)
		advanced := false
		for i := currentArc[u]; i < len(arcs); i++ {
			arc := &arcs[i]
			v := arc.To

			// Only arcs that descend exactly one level and carry capacity
			if level[v] != level[u]+1 || arc.Capacity <= epsilon {
				continue
			}

			currentArc[u] = i

			newMinCap := minCap[len(minCap)-1]
			if arc.Capacity < newMinCap {
				newMinCap = arc.Capacity
			}

			path = append(path, graph.ArcStep{Node: u, Arc: i})
			minCap = append(minCap, newMinCap)
			stack = append(stack, v)

			advanced = true
			break
		}

		if !advanced {
			// Dead end: exhaust the node's arcs and drop it from the level graph
			currentArc[u] = len(arcs)
			level[u] = -1

			stack = stack[:len(stack)-1]
			if len(path) > 0 {
				path = path[:len(path)-1]
			}
			minCap = minCap[:len(minCap)-1]
		}
	}

	return nil, 0
}
