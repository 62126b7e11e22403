package waternet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"waterflow/pkg/apperror"
)

func diamondNodes() []Node {
	return []Node{
		{ID: "S", Role: RoleSource},
		{ID: "A", Role: RoleJunction},
		{ID: "B", Role: RoleJunction},
		{ID: "T", Role: RoleSink},
	}
}

func diamondEdges() []Edge {
	return []Edge{
		{From: "S", To: "A", Capacity: 10},
		{From: "S", To: "B", Capacity: 10},
		{From: "A", To: "T", Capacity: 10},
		{From: "B", To: "T", Capacity: 10},
	}
}

func diamond(t *testing.T) *Network {
	t.Helper()
	n, err := NewNetwork(diamondNodes(), diamondEdges(), "S", "T")
	require.NoError(t, err)
	return n
}

// ============================================================
// CONSTRUCTION
// ============================================================

func TestNewNetwork(t *testing.T) {
	n := diamond(t)

	assert.Equal(t, 4, n.NodeCount())
	assert.Equal(t, 4, n.EdgeCount())
	assert.Equal(t, "S", n.SourceID())
	assert.Equal(t, "T", n.SinkID())

	idx, ok := n.NodeIndex("A")
	require.True(t, ok)
	assert.Equal(t, "A", n.NodeByIndex(idx).ID)

	edge, ok := n.Edge(EdgeKey{From: "S", To: "A"})
	require.True(t, ok)
	assert.Equal(t, 10.0, edge.Capacity)

	assert.True(t, n.HasEdge(EdgeKey{From: "A", To: "T"}))
	assert.False(t, n.HasEdge(EdgeKey{From: "T", To: "A"}))
}

func TestNewNetwork_InsertionOrderPreserved(t *testing.T) {
	n := diamond(t)

	var keys []string
	for _, e := range n.Edges() {
		keys = append(keys, e.Key().String())
	}
	assert.Equal(t, []string{"S->A", "S->B", "A->T", "B->T"}, keys)
}

func TestNewNetwork_ValidationErrors(t *testing.T) {
	tests := []struct {
		name   string
		nodes  []Node
		edges  []Edge
		source string
		sink   string
		code   apperror.ErrorCode
	}{
		{
			name:   "no nodes",
			nodes:  nil,
			edges:  nil,
			source: "S",
			sink:   "T",
			code:   apperror.CodeEmptyNetwork,
		},
		{
			name:   "source equals sink",
			nodes:  diamondNodes(),
			edges:  diamondEdges(),
			source: "S",
			sink:   "S",
			code:   apperror.CodeSourceEqualsSink,
		},
		{
			name: "duplicate node",
			nodes: append(diamondNodes(),
				Node{ID: "A", Role: RoleJunction}),
			edges:  diamondEdges(),
			source: "S",
			sink:   "T",
			code:   apperror.CodeDuplicateNode,
		},
		{
			name: "stray source role",
			nodes: []Node{
				{ID: "S", Role: RoleSource},
				{ID: "X", Role: RoleSource},
				{ID: "T", Role: RoleSink},
			},
			edges:  nil,
			source: "S",
			sink:   "T",
			code:   apperror.CodeInvalidSource,
		},
		{
			name: "missing sink node",
			nodes: []Node{
				{ID: "S", Role: RoleSource},
				{ID: "A", Role: RoleJunction},
			},
			edges:  nil,
			source: "S",
			sink:   "T",
			code:   apperror.CodeInvalidSink,
		},
		{
			name:  "self loop",
			nodes: diamondNodes(),
			edges: []Edge{
				{From: "A", To: "A", Capacity: 1},
			},
			source: "S",
			sink:   "T",
			code:   apperror.CodeSelfLoop,
		},
		{
			name:  "dangling edge",
			nodes: diamondNodes(),
			edges: []Edge{
				{From: "S", To: "X", Capacity: 1},
			},
			source: "S",
			sink:   "T",
			code:   apperror.CodeDanglingEdge,
		},
		{
			name:  "negative capacity",
			nodes: diamondNodes(),
			edges: []Edge{
				{From: "S", To: "A", Capacity: -1},
			},
			source: "S",
			sink:   "T",
			code:   apperror.CodeNegativeCapacity,
		},
		{
			name:  "duplicate edge",
			nodes: diamondNodes(),
			edges: append(diamondEdges(),
				Edge{From: "S", To: "A", Capacity: 3}),
			source: "S",
			sink:   "T",
			code:   apperror.CodeDuplicateEdge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewNetwork(tt.nodes, tt.edges, tt.source, tt.sink)
			require.Error(t, err)
			assert.True(t, apperror.Is(err, tt.code), "want %s, got %v", tt.code, err)
		})
	}
}

func TestNewNetwork_ZeroCapacityAllowed(t *testing.T) {
	_, err := NewNetwork(diamondNodes(),
		[]Edge{{From: "S", To: "A", Capacity: 0}}, "S", "T")
	assert.NoError(t, err)
}

// ============================================================
// ROLES AND VARIANTS
// ============================================================

func TestParseRole(t *testing.T) {
	assert.Equal(t, RoleSource, ParseRole("source"))
	assert.Equal(t, RoleSink, ParseRole("sink"))
	assert.Equal(t, RoleJunction, ParseRole("junction"))
	// Unknown role strings default to junction.
	assert.Equal(t, RoleJunction, ParseRole("reservoir"))
}

func TestParseVariant(t *testing.T) {
	for _, v := range Variants() {
		got, err := ParseVariant(string(v))
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}

	_, err := ParseVariant("simplex")
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.CodeInvalidAlgorithm))
}

// ============================================================
// RESULT VERIFICATION
// ============================================================

func TestFlowResult_Verify(t *testing.T) {
	n := diamond(t)

	good := &FlowResult{
		Value: 20,
		EdgeFlows: map[EdgeKey]float64{
			{From: "S", To: "A"}: 10,
			{From: "S", To: "B"}: 10,
			{From: "A", To: "T"}: 10,
			{From: "B", To: "T"}: 10,
		},
	}
	assert.NoError(t, good.Verify(n))
}

func TestFlowResult_Verify_Violations(t *testing.T) {
	n := diamond(t)

	tests := []struct {
		name   string
		result *FlowResult
		code   apperror.ErrorCode
	}{
		{
			name: "over capacity",
			result: &FlowResult{
				Value: 15,
				EdgeFlows: map[EdgeKey]float64{
					{From: "S", To: "A"}: 15,
					{From: "A", To: "T"}: 15,
				},
			},
			code: apperror.CodeFlowViolation,
		},
		{
			name: "negative flow",
			result: &FlowResult{
				Value: 0,
				EdgeFlows: map[EdgeKey]float64{
					{From: "S", To: "A"}: -3,
				},
			},
			code: apperror.CodeNegativeFlow,
		},
		{
			name: "conservation broken",
			result: &FlowResult{
				Value: 10,
				EdgeFlows: map[EdgeKey]float64{
					{From: "S", To: "A"}: 10,
					{From: "A", To: "T"}: 4,
				},
			},
			code: apperror.CodeConservationViolation,
		},
		{
			name: "value mismatch",
			result: &FlowResult{
				Value: 99,
				EdgeFlows: map[EdgeKey]float64{
					{From: "S", To: "A"}: 10,
					{From: "A", To: "T"}: 10,
				},
			},
			code: apperror.CodeFlowViolation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.result.Verify(n)
			require.Error(t, err)
			assert.True(t, apperror.Is(err, tt.code), "want %s, got %v", tt.code, err)
		})
	}
}

// ============================================================
// STATISTICS
// ============================================================

func TestComputeStatistics(t *testing.T) {
	n := diamond(t)
	result := &FlowResult{
		Value: 15,
		EdgeFlows: map[EdgeKey]float64{
			{From: "S", To: "A"}: 10,
			{From: "S", To: "B"}: 5,
			{From: "A", To: "T"}: 10,
			{From: "B", To: "T"}: 5,
		},
	}

	stats := ComputeStatistics(n, result)

	assert.Equal(t, 15.0, stats.FlowValue)
	assert.Equal(t, 4, stats.EdgeCount)
	assert.Equal(t, 4, stats.ActiveEdges)
	assert.Equal(t, 2, stats.SaturatedEdges)
	assert.InDelta(t, 0.75, stats.MeanUtilization, 1e-9)
	require.Len(t, stats.Utilization, 4)
	assert.True(t, stats.Utilization[0].Saturated)
	assert.InDelta(t, 0.5, stats.Utilization[1].Utilization, 1e-9)

	require.Len(t, stats.Bottlenecks, 2)
	for _, key := range stats.Bottlenecks {
		assert.InDelta(t, 10.0, result.Flow(key), 1e-9)
	}

	require.Len(t, stats.Balances, 4)
	assert.Equal(t, "A", stats.Balances[1].NodeID)
	assert.InDelta(t, 10.0, stats.Balances[1].Inflow, 1e-9)
	assert.InDelta(t, 10.0, stats.Balances[1].Outflow, 1e-9)
}
