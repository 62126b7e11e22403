// Package waternet defines the immutable data model of a water distribution
// network: junction nodes, directed pipe edges with capacities, and the
// scenario layer that derives perturbed networks from a base network.
//
// A Network is immutable once constructed. Every transformation (scenario
// application) produces a new Network, so concurrent solver runs can share a
// base network without synchronization.
package waternet

import (
	"fmt"
	"math"

	"waterflow/pkg/apperror"
)

// Математические константы, общие для всего движка.
const (
	Epsilon  = 1e-9
	Infinity = math.MaxFloat64
)

// FloatEquals сравнивает два float64 с учётом Epsilon.
func FloatEquals(a, b float64) bool {
	return math.Abs(a-b) < Epsilon
}

// IsPositive проверяет, положительно ли значение.
func IsPositive(v float64) bool {
	return v > Epsilon
}

// Role is the structural role of a node in the network.
type Role int

const (
	RoleJunction Role = iota
	RoleSource
	RoleSink
)

// String returns the string representation of the role.
func (r Role) String() string {
	switch r {
	case RoleSource:
		return "source"
	case RoleSink:
		return "sink"
	default:
		return "junction"
	}
}

// ParseRole maps a wire-format role name to a Role.
// Unknown names map to RoleJunction.
func ParseRole(s string) Role {
	switch s {
	case "source":
		return RoleSource
	case "sink":
		return RoleSink
	default:
		return RoleJunction
	}
}

// Node represents a junction, reservoir (source) or demand point (sink).
type Node struct {
	ID   string
	Role Role
}

// EdgeKey uniquely identifies a pipe by its ordered endpoint pair.
type EdgeKey struct {
	From string
	To   string
}

// String returns the "from->to" representation of the key.
func (k EdgeKey) String() string {
	return fmt.Sprintf("%s->%s", k.From, k.To)
}

// Edge is a directed pipe with a non-negative capacity.
//
// Index is the stable insertion index assigned at construction. All
// algorithms iterate edges in Index order, which makes every run on the same
// network deterministic.
type Edge struct {
	From     string
	To       string
	Capacity float64
	Index    int
}

// Key returns the edge's ordered-pair key.
func (e Edge) Key() EdgeKey {
	return EdgeKey{From: e.From, To: e.To}
}

// Network is an immutable directed capacitated graph with one designated
// source and one designated sink.
//
// Construction assigns a dense integer index to every node (insertion order
// of the node list) and keeps per-node out-edge lists in edge insertion
// order. Those indices are the basis for the per-run residual arena in
// internal/graph.
type Network struct {
	nodes     []Node
	nodeIndex map[string]int
	edges     []Edge
	edgeIndex map[EdgeKey]int
	outEdges  [][]int // node index -> edge indices in insertion order
	inEdges   [][]int
	sourceID  string
	sinkID    string
}

// NewNetwork validates and builds a Network.
//
// Validation failures are reported immediately with apperror codes from the
// INVALID_NETWORK family; invalid networks never reach algorithm code.
func NewNetwork(nodes []Node, edges []Edge, sourceID, sinkID string) (*Network, error) {
	if len(nodes) == 0 {
		return nil, apperror.New(apperror.CodeEmptyNetwork, "network has no nodes")
	}
	if sourceID == sinkID {
		return nil, apperror.ErrSourceEqualsSink
	}

	n := &Network{
		nodes:     make([]Node, 0, len(nodes)),
		nodeIndex: make(map[string]int, len(nodes)),
		edges:     make([]Edge, 0, len(edges)),
		edgeIndex: make(map[EdgeKey]int, len(edges)),
		sourceID:  sourceID,
		sinkID:    sinkID,
	}

	sourceSeen, sinkSeen := 0, 0
	for _, node := range nodes {
		if _, dup := n.nodeIndex[node.ID]; dup {
			return nil, apperror.NewWithField(apperror.CodeDuplicateNode,
				fmt.Sprintf("duplicate node %q", node.ID), node.ID)
		}
		switch node.Role {
		case RoleSource:
			sourceSeen++
			if node.ID != sourceID {
				return nil, apperror.NewWithField(apperror.CodeInvalidSource,
					fmt.Sprintf("node %q has source role but %q is the designated source", node.ID, sourceID), node.ID)
			}
		case RoleSink:
			sinkSeen++
			if node.ID != sinkID {
				return nil, apperror.NewWithField(apperror.CodeInvalidSink,
					fmt.Sprintf("node %q has sink role but %q is the designated sink", node.ID, sinkID), node.ID)
			}
		}
		n.nodeIndex[node.ID] = len(n.nodes)
		n.nodes = append(n.nodes, node)
	}

	if _, ok := n.nodeIndex[sourceID]; !ok || sourceSeen != 1 {
		return nil, apperror.NewWithField(apperror.CodeInvalidSource,
			fmt.Sprintf("network must have exactly one source node, designated %q", sourceID), sourceID)
	}
	if _, ok := n.nodeIndex[sinkID]; !ok || sinkSeen != 1 {
		return nil, apperror.NewWithField(apperror.CodeInvalidSink,
			fmt.Sprintf("network must have exactly one sink node, designated %q", sinkID), sinkID)
	}

	n.outEdges = make([][]int, len(n.nodes))
	n.inEdges = make([][]int, len(n.nodes))

	for _, edge := range edges {
		key := edge.Key()
		if edge.From == edge.To {
			return nil, apperror.NewWithField(apperror.CodeSelfLoop,
				fmt.Sprintf("self-loop at node %q", edge.From), key.String())
		}
		fromIdx, ok := n.nodeIndex[edge.From]
		if !ok {
			return nil, apperror.NewWithField(apperror.CodeDanglingEdge,
				fmt.Sprintf("edge %s references unknown node %q", key, edge.From), key.String())
		}
		toIdx, ok := n.nodeIndex[edge.To]
		if !ok {
			return nil, apperror.NewWithField(apperror.CodeDanglingEdge,
				fmt.Sprintf("edge %s references unknown node %q", key, edge.To), key.String())
		}
		if edge.Capacity < 0 {
			return nil, apperror.NewWithField(apperror.CodeNegativeCapacity,
				fmt.Sprintf("edge %s has negative capacity %g", key, edge.Capacity), key.String())
		}
		if _, dup := n.edgeIndex[key]; dup {
			return nil, apperror.NewWithField(apperror.CodeDuplicateEdge,
				fmt.Sprintf("duplicate edge %s", key), key.String())
		}

		idx := len(n.edges)
		n.edgeIndex[key] = idx
		n.edges = append(n.edges, Edge{From: edge.From, To: edge.To, Capacity: edge.Capacity, Index: idx})
		n.outEdges[fromIdx] = append(n.outEdges[fromIdx], idx)
		n.inEdges[toIdx] = append(n.inEdges[toIdx], idx)
	}

	return n, nil
}

// SourceID returns the designated source node id.
func (n *Network) SourceID() string { return n.sourceID }

// SinkID returns the designated sink node id.
func (n *Network) SinkID() string { return n.sinkID }

// NodeCount returns the number of nodes.
func (n *Network) NodeCount() int { return len(n.nodes) }

// EdgeCount returns the number of edges.
func (n *Network) EdgeCount() int { return len(n.edges) }

// Nodes returns the nodes in insertion order. The caller must not modify
// the returned slice.
func (n *Network) Nodes() []Node { return n.nodes }

// Edges returns the edges in insertion order. The caller must not modify
// the returned slice.
func (n *Network) Edges() []Edge { return n.edges }

// NodeIndex returns the dense index of a node id.
func (n *Network) NodeIndex(id string) (int, bool) {
	idx, ok := n.nodeIndex[id]
	return idx, ok
}

// NodeByIndex returns the node at a dense index.
func (n *Network) NodeByIndex(idx int) Node { return n.nodes[idx] }

// Edge returns the edge for an ordered pair, if present.
func (n *Network) Edge(key EdgeKey) (Edge, bool) {
	idx, ok := n.edgeIndex[key]
	if !ok {
		return Edge{}, false
	}
	return n.edges[idx], true
}

// HasEdge reports whether an edge exists for the ordered pair.
func (n *Network) HasEdge(key EdgeKey) bool {
	_, ok := n.edgeIndex[key]
	return ok
}

// OutEdges returns the indices of edges leaving the node with the given
// dense index, in edge insertion order.
func (n *Network) OutEdges(nodeIdx int) []int { return n.outEdges[nodeIdx] }

// InEdges returns the indices of edges entering the node with the given
// dense index, in edge insertion order.
func (n *Network) InEdges(nodeIdx int) []int { return n.inEdges[nodeIdx] }

// SourceOutEdges returns the source's outgoing edges in insertion order.
func (n *Network) SourceOutEdges() []Edge {
	srcIdx := n.nodeIndex[n.sourceID]
	result := make([]Edge, 0, len(n.outEdges[srcIdx]))
	for _, ei := range n.outEdges[srcIdx] {
		result = append(result, n.edges[ei])
	}
	return result
}

// withCapacities returns a copy of the network with edge capacities replaced
// positionally. Used by scenario application; topology, ids, indices and
// iteration order are preserved.
func (n *Network) withCapacities(capacities []float64) *Network {
	derived := &Network{
		nodes:     n.nodes,
		nodeIndex: n.nodeIndex,
		edges:     make([]Edge, len(n.edges)),
		edgeIndex: n.edgeIndex,
		outEdges:  n.outEdges,
		inEdges:   n.inEdges,
		sourceID:  n.sourceID,
		sinkID:    n.sinkID,
	}
	copy(derived.edges, n.edges)
	for i := range derived.edges {
		derived.edges[i].Capacity = capacities[i]
	}
	return derived
}
