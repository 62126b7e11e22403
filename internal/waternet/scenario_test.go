package waternet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"waterflow/pkg/apperror"
)

func TestApplyScenario_Nil(t *testing.T) {
	n := diamond(t)

	got, err := ApplyScenario(n, nil)
	require.NoError(t, err)
	assert.Same(t, n, got)
}

func TestApplyScenario_DefaultLeakage(t *testing.T) {
	n := diamond(t)

	perturbed, err := ApplyScenario(n, &Scenario{DefaultLeakage: 0.3})
	require.NoError(t, err)

	for _, e := range perturbed.Edges() {
		assert.InDelta(t, 7.0, e.Capacity, 1e-9)
	}
	// The base network is untouched.
	for _, e := range n.Edges() {
		assert.InDelta(t, 10.0, e.Capacity, 1e-9)
	}
}

func TestApplyScenario_OverridesAndFailures(t *testing.T) {
	n := diamond(t)

	perturbed, err := ApplyScenario(n, &Scenario{
		DefaultLeakage: 0.5,
		Leakage: map[EdgeKey]float64{
			{From: "S", To: "A"}: 0.1,
		},
		Failed: []EdgeKey{{From: "B", To: "T"}},
	})
	require.NoError(t, err)

	capOf := func(from, to string) float64 {
		e, ok := perturbed.Edge(EdgeKey{From: from, To: to})
		require.True(t, ok)
		return e.Capacity
	}

	assert.InDelta(t, 9.0, capOf("S", "A"), 1e-9) // override wins over default
	assert.InDelta(t, 5.0, capOf("S", "B"), 1e-9)
	assert.InDelta(t, 5.0, capOf("A", "T"), 1e-9)
	assert.InDelta(t, 0.0, capOf("B", "T"), 1e-9) // failed pipe stays in topology
	assert.Equal(t, n.EdgeCount(), perturbed.EdgeCount())
}

func TestApplyScenario_FailedOverridesLeakage(t *testing.T) {
	n := diamond(t)

	perturbed, err := ApplyScenario(n, &Scenario{
		Leakage: map[EdgeKey]float64{
			{From: "S", To: "A"}: 0.2,
		},
		Failed: []EdgeKey{{From: "S", To: "A"}},
	})
	require.NoError(t, err)

	e, _ := perturbed.Edge(EdgeKey{From: "S", To: "A"})
	assert.InDelta(t, 0.0, e.Capacity, 1e-9)
}

func TestScenario_Validate(t *testing.T) {
	n := diamond(t)

	tests := []struct {
		name     string
		scenario Scenario
		code     apperror.ErrorCode
	}{
		{
			name:     "default leakage too high",
			scenario: Scenario{DefaultLeakage: 1.0},
			code:     apperror.CodeInvalidLeakage,
		},
		{
			name:     "default leakage negative",
			scenario: Scenario{DefaultLeakage: -0.1},
			code:     apperror.CodeInvalidLeakage,
		},
		{
			name: "override out of range",
			scenario: Scenario{
				Leakage: map[EdgeKey]float64{{From: "S", To: "A"}: 1.5},
			},
			code: apperror.CodeInvalidLeakage,
		},
		{
			name: "override on unknown edge",
			scenario: Scenario{
				Leakage: map[EdgeKey]float64{{From: "X", To: "Y"}: 0.1},
			},
			code: apperror.CodeUnknownEdge,
		},
		{
			name: "failure on unknown edge",
			scenario: Scenario{
				Failed: []EdgeKey{{From: "T", To: "S"}},
			},
			code: apperror.CodeUnknownEdge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.scenario.Validate(n)
			require.Error(t, err)
			assert.True(t, apperror.Is(err, tt.code), "want %s, got %v", tt.code, err)

			_, err = ApplyScenario(n, &tt.scenario)
			assert.Error(t, err)
		})
	}
}
