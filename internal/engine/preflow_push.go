package engine

import (
	"context"

	"waterflow/internal/graph"
	"waterflow/internal/waternet"
)

// =============================================================================
// Preflow-Push Algorithm (Push-Relabel, FIFO variant)
// =============================================================================
//
// Preflow-push maintains a preflow (conservation temporarily relaxed) and
// height labels, pushing excess downhill and relabeling nodes when stuck.
// This implementation uses:
//   - Index-based per-node state in a flat arena
//   - FIFO active-node queue
//   - Gap heuristic with height counting
//   - Adaptive global relabeling via reverse BFS from the sink
//
// Time Complexity: O(V^3)
// Space Complexity: O(V + E)
//
// One iteration is one discharge of an active node. If the budget runs out
// while interior nodes still hold excess, the leftover excess is drained
// back to the source along flow-carrying arcs so the returned assignment
// is a valid (suboptimal) flow.
// =============================================================================

type preflowPush struct{}

func (preflowPush) Variant() waternet.Variant { return waternet.PreflowPush }

// prNode holds per-node state in a cache-friendly layout.
type prNode struct {
	height     int
	excess     float64
	currentArc int
}

// prState is the working state of a single preflow-push run.
type prState struct {
	r       *graph.Residual
	epsilon float64
	trace   *tracer

	n       int
	source  int
	sink    int
	nodes   []prNode

	// heightCount[h] is the number of nodes at height h, for the gap heuristic.
	heightCount []int
	maxHeight   int

	// Adaptive global relabeling
	relabelCount        int
	globalRelabelPeriod int

	iterations int
}

func newPRState(r *graph.Residual, epsilon float64, trace *tracer) *prState {
	n := r.NodeCount()
	maxHeight := 2*n - 1
	return &prState{
		r:                   r,
		epsilon:             epsilon,
		trace:               trace,
		n:                   n,
		source:              r.Source(),
		sink:                r.Sink(),
		nodes:               make([]prNode, n),
		heightCount:         make([]int, maxHeight+2),
		maxHeight:           maxHeight,
		globalRelabelPeriod: n,
	}
}

// initialize sets up the initial preflow: source height = n, all outgoing
// source arcs saturated, then a global relabel for accurate heights.
func (s *prState) initialize() {
	s.nodes[s.source].height = s.n
	for i := range s.nodes {
		h := s.nodes[i].height
		if h <= s.maxHeight {
			s.heightCount[h]++
		}
	}

	arcs := s.r.Arcs(s.source)
	for i := range arcs {
		arc := &arcs[i]
		if arc.IsReverse || arc.Capacity <= s.epsilon {
			continue
		}
		flow := arc.Capacity
		s.r.Push(s.source, i, flow)
		s.nodes[arc.To].excess += flow
		s.nodes[s.source].excess -= flow
	}

	s.globalRelabel()
}

// globalRelabel recomputes exact height labels via reverse BFS from the sink.
func (s *prState) globalRelabel() {
	heights := graph.BFSReverse(s.r, s.sink)

	for i := range s.heightCount {
		s.heightCount[i] = 0
	}
	for i, h := range heights {
		if h < 0 {
			h = s.maxHeight + 1
		}
		if i == s.source {
			h = s.n
		}
		s.nodes[i].height = h
		s.nodes[i].currentArc = 0
		if h <= s.maxHeight {
			s.heightCount[h]++
		}
	}

	s.relabelCount = 0
}

// push moves excess from u along its i-th arc.
func (s *prState) push(u, i int) float64 {
	arc := s.r.Arc(u, i)
	if arc.Capacity <= s.epsilon {
		return 0
	}
	v := arc.To
	if s.nodes[u].height != s.nodes[v].height+1 {
		return 0
	}

	delta := s.nodes[u].excess
	if arc.Capacity < delta {
		delta = arc.Capacity
	}
	if delta <= s.epsilon {
		return 0
	}

	s.r.Push(u, i, delta)
	s.nodes[u].excess -= delta
	s.nodes[v].excess += delta

	if s.trace != nil {
		network := s.r.Network()
		s.trace.record(Event{
			Kind:      EventPush,
			Iteration: s.iterations,
			Nodes:     []string{network.NodeByIndex(u).ID, network.NodeByIndex(v).ID},
			Amount:    delta,
		})
	}

	return delta
}

// relabel raises the height of node u above its lowest pushable neighbor.
// Returns the new height, or -1 when the node can no longer reach the sink.
func (s *prState) relabel(u int) int {
	oldHeight := s.nodes[u].height
	if oldHeight > s.maxHeight {
		return -1
	}

	arcs := s.r.Arcs(u)
	minHeight := s.maxHeight + 1
	for i := range arcs {
		if arcs[i].Capacity > s.epsilon {
			if h := s.nodes[arcs[i].To].height; h < minHeight {
				minHeight = h
			}
		}
	}

	if minHeight >= s.maxHeight {
		s.heightCount[oldHeight]--
		s.nodes[u].height = s.maxHeight + 1
		return -1
	}
	newHeight := minHeight + 1

	// Gap heuristic: a vanished height level strands everything above it
	s.heightCount[oldHeight]--
	if s.heightCount[oldHeight] == 0 && oldHeight < s.n && oldHeight > 0 {
		s.applyGapHeuristic(oldHeight)
	}

	s.heightCount[newHeight]++
	s.nodes[u].height = newHeight
	s.nodes[u].currentArc = 0
	s.relabelCount++

	if s.trace != nil {
		s.trace.record(Event{
			Kind:      EventRelabel,
			Iteration: s.iterations,
			Nodes:     []string{s.r.Network().NodeByIndex(u).ID},
			Height:    newHeight,
		})
	}

	return newHeight
}

// applyGapHeuristic raises all nodes above the gap out of reach of the sink.
func (s *prState) applyGapHeuristic(gapHeight int) {
	for i := 0; i < s.n; i++ {
		h := s.nodes[i].height
		if h > gapHeight && h <= s.maxHeight && i != s.source {
			s.heightCount[h]--
			s.nodes[i].height = s.maxHeight + 1
		}
	}
}

// discharge processes node u until its excess is gone or it is deactivated.
// Returns true if the node is still active afterwards.
func (s *prState) discharge(u int, activate func(int)) bool {
	arcs := s.r.Arcs(u)

	for s.nodes[u].excess > s.epsilon && s.nodes[u].height <= s.maxHeight {
		arc := s.nodes[u].currentArc
		if arc >= len(arcs) {
			if s.relabel(u) < 0 {
				return false
			}
			if s.relabelCount >= s.globalRelabelPeriod {
				s.globalRelabel()
			}
			continue
		}

		v := arcs[arc].To
		if arcs[arc].Capacity > s.epsilon && s.nodes[u].height == s.nodes[v].height+1 {
			pushed := s.push(u, arc)
			if pushed > s.epsilon && v != s.source && v != s.sink {
				activate(v)
			}
		} else {
			s.nodes[u].currentArc++
		}
	}

	return s.nodes[u].excess > s.epsilon && s.nodes[u].height <= s.maxHeight
}

// drainExcess cancels leftover interior excess back to the source along
// flow-carrying arcs. After draining, the arc flows form a feasible flow
// whose value equals the excess accumulated at the sink.
//
// Flow on a pipe (v, u) shows up as residual capacity on its reverse arc
// stored at u, so walking reverse arcs with capacity leads backward along
// the preflow toward the source.
func (s *prState) drainExcess() {
	for u := 0; u < s.n; u++ {
		if u == s.source || u == s.sink {
			continue
		}
		for s.nodes[u].excess > s.epsilon {
			path := s.backwardFlowPath(u)
			if len(path) == 0 {
				break
			}
			delta := s.nodes[u].excess
			for _, step := range path {
				if c := s.r.Arc(step.Node, step.Arc).Capacity; c < delta {
					delta = c
				}
			}
			if delta <= s.epsilon {
				break
			}
			for _, step := range path {
				s.r.Push(step.Node, step.Arc, delta)
			}
			s.nodes[u].excess -= delta
			s.nodes[s.source].excess += delta
		}
	}
}

// backwardFlowPath finds a path from u to the source over reverse arcs with
// positive capacity, using iterative DFS with a visited set to step over
// flow cycles.
func (s *prState) backwardFlowPath(u int) []graph.ArcStep {
	visited := make([]bool, s.n)
	visited[u] = true

	type frame struct {
		node int
		arc  int
	}
	stack := []frame{{node: u}}
	var path []graph.ArcStep

	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.node == s.source {
			out := make([]graph.ArcStep, len(path))
			copy(out, path)
			return out
		}

		arcs := s.r.Arcs(top.node)
		advanced := false
		for i := top.arc; i < len(arcs); i++ {
			if !arcs[i].IsReverse || arcs[i].Capacity <= s.epsilon || visited[arcs[i].To] {
				continue
			}
			top.arc = i + 1
			visited[arcs[i].To] = true
			path = append(path, graph.ArcStep{Node: top.node, Arc: i})
			stack = append(stack, frame{node: arcs[i].To})
			advanced = true
			break
		}
		if !advanced {
			stack = stack[:len(stack)-1]
			if len(path) > 0 {
				path = path[:len(path)-1]
			}
		}
	}

	return nil
}

func (preflowPush) Run(ctx context.Context, r *graph.Residual, opts *Options) (*Outcome, error) {
	trace := newTracer(opts.Trace, waternet.PreflowPush)
	s := newPRState(r, opts.Epsilon, trace)
	s.initialize()

	// FIFO active queue
	queue := graph.NewQueue(s.n)
	inQueue := make([]bool, s.n)
	for i := 0; i < s.n; i++ {
		if i != s.source && i != s.sink && s.nodes[i].excess > s.epsilon {
			queue.Push(i)
			inQueue[i] = true
		}
	}
	activate := func(v int) {
		if !inQueue[v] && s.nodes[v].excess > s.epsilon {
			queue.Push(v)
			inQueue[v] = true
		}
	}

	const checkInterval = 100

	for !queue.Empty() {
		if s.iterations >= opts.MaxIterations {
			s.drainExcess()
			return &Outcome{
				Flow:       s.nodes[s.sink].excess,
				Iterations: s.iterations,
				Reason:     waternet.BudgetExceeded,
			}, nil
		}
		if s.iterations%checkInterval == 0 && canceled(ctx) {
			s.drainExcess()
			return &Outcome{
				Flow:       s.nodes[s.sink].excess,
				Iterations: s.iterations,
				Reason:     waternet.BudgetExceeded,
			}, nil
		}

		u := queue.Pop()
		inQueue[u] = false

		stillActive := s.discharge(u, activate)
		if stillActive && !inQueue[u] {
			queue.Push(u)
			inQueue[u] = true
		}

		s.iterations++
	}

	// Nodes stranded above the sink keep their excess until it is drained
	// back to the source; converged runs may still need this when parts of
	// the network cannot reach the sink.
	s.drainExcess()

	return &Outcome{
		Flow:       s.nodes[s.sink].excess,
		Iterations: s.iterations,
		Reason:     waternet.Converged,
	}, nil
}
