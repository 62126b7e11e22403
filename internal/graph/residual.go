// Package graph provides data structures and utilities for network flow algorithms.
package graph

import (
	"waterflow/internal/waternet"
)

// =============================================================================
// Constants
// =============================================================================

// Epsilon is the tolerance for floating-point comparisons.
// Values smaller than Epsilon are considered zero.
// This is crucial for numerical stability in flow algorithms.
const Epsilon = waternet.Epsilon

// Infinity represents an unreachable distance or unlimited capacity.
// Used as the initial distance in shortest path algorithms.
const Infinity = waternet.Infinity

// =============================================================================
// Residual Arc
// =============================================================================

// Arc is a directed arc in the residual graph.
//
// Each network pipe (u, v) with capacity c is represented by two arcs:
//   - Forward arc (u, v) with residual capacity c
//   - Reverse arc (v, u) with residual capacity 0
//
// When flow f is pushed along (u, v):
//   - Forward arc capacity becomes c - f
//   - Reverse arc capacity becomes f
//
// This allows the algorithm to "undo" flow decisions.
type Arc struct {
	// To is the index of the head node.
	To int

	// Capacity is the current residual capacity.
	// For forward arcs: original capacity minus flow.
	// For reverse arcs: equals the flow on the paired forward arc.
	Capacity float64

	// Rev is the position of the paired arc inside the head node's arc list.
	Rev int

	// EdgeIdx is the index of the originating network edge.
	// Set to -1 on reverse arcs.
	EdgeIdx int

	// IsReverse marks arcs created for flow cancellation. Reverse arcs
	// must not be counted when computing flow statistics.
	IsReverse bool
}

// HasCapacity returns true if the arc has positive residual capacity.
// Uses Epsilon for floating-point comparison.
func (a *Arc) HasCapacity() bool {
	return a.Capacity > Epsilon
}

// =============================================================================
// Residual Graph
// =============================================================================

// Residual is the core data structure for flow computations.
//
// Nodes are addressed by their dense index in the underlying network, so
// all per-node state lives in plain slices. Arcs within a node's list keep
// the network's edge insertion order, which makes every traversal
// deterministic without sorting.
//
// Residual is NOT safe for concurrent mutation. Concurrent scenario runs
// must each build (or Clone) their own instance.
type Residual struct {
	network *waternet.Network

	// arcs[u] lists the outgoing arcs of node u in insertion order,
	// forward and reverse arcs interleaved as pipes were declared.
	arcs [][]Arc

	// edgeArc locates the forward arc of each network edge:
	// edgeArc[i] = (tail node, position in arcs[tail]).
	edgeArc []arcRef

	source int
	sink   int
}

type arcRef struct {
	node int
	pos  int
}

// NewResidual builds a residual graph from a network.
//
// Arcs are created pipe by pipe in edge insertion order, a forward arc at
// the tail and a zero-capacity reverse arc at the head, cross-linked via
// the Rev field. The network itself is never mutated.
func NewResidual(network *waternet.Network) *Residual {
	n := network.NodeCount()
	r := &Residual{
		network: network,
		arcs:    make([][]Arc, n),
		edgeArc: make([]arcRef, network.EdgeCount()),
	}

	srcIdx, _ := network.NodeIndex(network.SourceID())
	sinkIdx, _ := network.NodeIndex(network.SinkID())
	r.source = srcIdx
	r.sink = sinkIdx

	// Pre-size arc lists so appends never reallocate and Rev indices
	// stay valid while building.
	degree := make([]int, n)
	for _, edge := range network.Edges() {
		from, _ := network.NodeIndex(edge.From)
		to, _ := network.NodeIndex(edge.To)
		degree[from]++
		degree[to]++
	}
	for u := 0; u < n; u++ {
		r.arcs[u] = make([]Arc, 0, degree[u])
	}

	for i, edge := range network.Edges() {
		from, _ := network.NodeIndex(edge.From)
		to, _ := network.NodeIndex(edge.To)

		fwdPos := len(r.arcs[from])
		revPos := len(r.arcs[to])

		r.arcs[from] = append(r.arcs[from], Arc{
			To:       to,
			Capacity: edge.Capacity,
			Rev:      revPos,
			EdgeIdx:  i,
		})
		r.arcs[to] = append(r.arcs[to], Arc{
			To:        from,
			Capacity:  0,
			Rev:       fwdPos,
			EdgeIdx:   -1,
			IsReverse: true,
		})
		r.edgeArc[i] = arcRef{node: from, pos: fwdPos}
	}

	return r
}

// Network returns the network this graph was built from.
func (r *Residual) Network() *waternet.Network { return r.network }

// NodeCount returns the number of nodes.
func (r *Residual) NodeCount() int { return len(r.arcs) }

// Source returns the dense index of the source node.
func (r *Residual) Source() int { return r.source }

// Sink returns the dense index of the sink node.
func (r *Residual) Sink() int { return r.sink }

// Arcs returns the outgoing arcs of node u in deterministic order.
// The returned slice shares storage with the graph: mutating an element
// mutates the graph. Use Push for flow updates.
func (r *Residual) Arcs(u int) []Arc { return r.arcs[u] }

// Arc returns a pointer to the i-th outgoing arc of node u.
func (r *Residual) Arc(u, i int) *Arc { return &r.arcs[u][i] }

// =============================================================================
// Flow Updates
// =============================================================================

// Push moves amount units of flow along the i-th arc of node u.
// The arc's residual capacity decreases and the paired arc's increases,
// keeping the residual invariant intact. Negative amounts cancel flow.
func (r *Residual) Push(u, i int, amount float64) {
	arc := &r.arcs[u][i]
	arc.Capacity -= amount
	r.arcs[arc.To][arc.Rev].Capacity += amount
}

// Flow returns the flow currently assigned to network edge i.
// It equals the residual capacity of the edge's reverse arc.
func (r *Residual) Flow(i int) float64 {
	ref := r.edgeArc[i]
	fwd := r.arcs[ref.node][ref.pos]
	return r.arcs[fwd.To][fwd.Rev].Capacity
}

// Flows collects per-edge flows keyed by edge pair.
// Residual dust below Epsilon is clamped to zero.
func (r *Residual) Flows() map[waternet.EdgeKey]float64 {
	flows := make(map[waternet.EdgeKey]float64, len(r.edgeArc))
	for i, edge := range r.network.Edges() {
		f := r.Flow(i)
		if f < Epsilon {
			f = 0
		}
		flows[edge.Key()] = f
	}
	return flows
}

// SourceOutflow returns the net flow leaving the source.
func (r *Residual) SourceOutflow() float64 {
	var total float64
	for i, edge := range r.network.Edges() {
		if edge.From == r.network.SourceID() {
			total += r.Flow(i)
		}
		if edge.To == r.network.SourceID() {
			total -= r.Flow(i)
		}
	}
	return total
}

// ApplyFlows installs a per-edge flow assignment, replacing any current
// flow. Edges absent from the map carry zero flow. Flows are clamped to
// [0, capacity] so residual capacities never go negative.
func (r *Residual) ApplyFlows(flows map[waternet.EdgeKey]float64) {
	for i, edge := range r.network.Edges() {
		f := flows[edge.Key()]
		if f < 0 {
			f = 0
		}
		if f > edge.Capacity {
			f = edge.Capacity
		}
		ref := r.edgeArc[i]
		fwd := &r.arcs[ref.node][ref.pos]
		fwd.Capacity = edge.Capacity - f
		r.arcs[fwd.To][fwd.Rev].Capacity = f
	}
}

// Reset restores all arcs to their initial capacities, discarding flow.
func (r *Residual) Reset() {
	for i, edge := range r.network.Edges() {
		ref := r.edgeArc[i]
		fwd := &r.arcs[ref.node][ref.pos]
		fwd.Capacity = edge.Capacity
		r.arcs[fwd.To][fwd.Rev].Capacity = 0
	}
}

// Clone returns an independent copy sharing only the immutable network.
func (r *Residual) Clone() *Residual {
	cp := &Residual{
		network: r.network,
		arcs:    make([][]Arc, len(r.arcs)),
		edgeArc: r.edgeArc,
		source:  r.source,
		sink:    r.sink,
	}
	for u, list := range r.arcs {
		cp.arcs[u] = append([]Arc(nil), list...)
	}
	return cp
}
