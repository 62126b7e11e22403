package waternet

import (
	"fmt"

	"waterflow/pkg/apperror"
)

// Scenario describes a perturbation of a base network: proportional leakage
// derating per pipe and a set of failed pipes.
//
// A failed pipe keeps its place in the topology with capacity forced to zero
// so that downstream min-cut reporting can still reference it.
type Scenario struct {
	// DefaultLeakage is applied to every edge without an explicit override.
	// Must be in [0, 1).
	DefaultLeakage float64

	// Leakage holds per-edge overrides of the default leakage fraction.
	Leakage map[EdgeKey]float64

	// Failed lists pipes whose capacity is forced to zero.
	Failed []EdgeKey
}

// Validate checks the scenario against a base network.
func (s *Scenario) Validate(base *Network) error {
	if base == nil {
		return apperror.ErrNilNetwork
	}
	if s.DefaultLeakage < 0 || s.DefaultLeakage >= 1 {
		return apperror.New(apperror.CodeInvalidLeakage,
			fmt.Sprintf("default leakage %g outside [0, 1)", s.DefaultLeakage))
	}
	for key, leak := range s.Leakage {
		if !base.HasEdge(key) {
			return apperror.NewWithField(apperror.CodeUnknownEdge,
				fmt.Sprintf("leakage override references unknown edge %s", key), key.String())
		}
		if leak < 0 || leak >= 1 {
			return apperror.NewWithField(apperror.CodeInvalidLeakage,
				fmt.Sprintf("leakage %g for edge %s outside [0, 1)", leak, key), key.String())
		}
	}
	for _, key := range s.Failed {
		if !base.HasEdge(key) {
			return apperror.NewWithField(apperror.CodeUnknownEdge,
				fmt.Sprintf("failed set references unknown edge %s", key), key.String())
		}
	}
	return nil
}

// ApplyScenario derives a new network from base with capacities recomputed
// per the scenario: leaked edges get capacity * (1 - leakage), failed edges
// get zero. The base network is never mutated; topology, ids and edge
// insertion order are preserved so downstream runs stay deterministic.
func ApplyScenario(base *Network, scenario *Scenario) (*Network, error) {
	if scenario == nil {
		return base, nil
	}
	if err := scenario.Validate(base); err != nil {
		return nil, err
	}

	failed := make(map[EdgeKey]bool, len(scenario.Failed))
	for _, key := range scenario.Failed {
		failed[key] = true
	}

	capacities := make([]float64, base.EdgeCount())
	for i, edge := range base.Edges() {
		key := edge.Key()
		if failed[key] {
			capacities[i] = 0
			continue
		}
		leak := scenario.DefaultLeakage
		if override, ok := scenario.Leakage[key]; ok {
			leak = override
		}
		capacities[i] = edge.Capacity * (1 - leak)
	}

	return base.withCapacities(capacities), nil
}
