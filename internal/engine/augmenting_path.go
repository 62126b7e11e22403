package engine

import (
	"context"

	"waterflow/internal/graph"
	"waterflow/internal/waternet"
)

// =============================================================================
// Augmenting Path Algorithm (Edmonds-Karp)
// =============================================================================
//
// The augmenting-path algorithm is an implementation of the Ford-Fulkerson
// method using BFS to find augmenting paths. By always choosing the shortest
// augmenting path (in terms of number of pipes), it guarantees polynomial
// time complexity.
//
// Time Complexity: O(V * E^2)
// Space Complexity: O(V + E)
//
// One iteration is one augmentation: find the shortest residual path,
// push its bottleneck, repeat until no path remains or the budget runs out.
// =============================================================================

type augmentingPath struct{}

func (augmentingPath) Variant() waternet.Variant { return waternet.AugmentingPath }

func (augmentingPath) Run(ctx context.Context, r *graph.Residual, opts *Options) (*Outcome, error) {
	source, sink := r.Source(), r.Sink()
	trace := newTracer(opts.Trace, waternet.AugmentingPath)

	maxFlow := 0.0
	iterations := 0

	const checkInterval = 100

	for iterations < opts.MaxIterations {
		// Periodic context check
		if iterations%checkInterval == 0 && canceled(ctx) {
			return &Outcome{Flow: maxFlow, Iterations: iterations, Reason: waternet.BudgetExceeded}, nil
		}

		// Find shortest augmenting path using BFS
		bfsResult := graph.BFSParent(r, source, sink)
		if !bfsResult.Found {
			return &Outcome{Flow: maxFlow, Iterations: iterations, Reason: waternet.Converged}, nil
		}

		path := graph.ReconstructPath(bfsResult, source, sink)
		if len(path) == 0 {
			return &Outcome{Flow: maxFlow, Iterations: iterations, Reason: waternet.Converged}, nil
		}

		// Find bottleneck capacity and push it along the path
		pathFlow := graph.FindMinCapacityOnPath(r, path)
		if pathFlow <= opts.Epsilon {
			return &Outcome{Flow: maxFlow, Iterations: iterations, Reason: waternet.Converged}, nil
		}
		graph.AugmentPath(r, path, pathFlow)

		maxFlow += pathFlow
		iterations++

		if trace != nil {
			trace.record(Event{
				Kind:      EventAugment,
				Iteration: iterations,
				Nodes:     pathNodeIDs(r, path, sink),
				Amount:    pathFlow,
			})
		}
	}

	return &Outcome{Flow: maxFlow, Iterations: iterations, Reason: waternet.BudgetExceeded}, nil
}

// pathNodeIDs converts an arc path to the node id sequence it visits.
func pathNodeIDs(r *graph.Residual, path []graph.ArcStep, sink int) []string {
	network := r.Network()
	ids := make([]string, 0, len(path)+1)
	for _, step := range path {
		ids = append(ids, network.NodeByIndex(step.Node).ID)
	}
	ids = append(ids, network.NodeByIndex(sink).ID)
	return ids
}
