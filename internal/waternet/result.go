package waternet

import (
	"fmt"
	"time"

	"waterflow/pkg/apperror"
)

// Variant identifies a max-flow algorithm.
type Variant string

const (
	// AugmentingPath is Edmonds-Karp: BFS shortest augmenting paths.
	AugmentingPath Variant = "augmenting_path"
	// BlockingFlow is Dinic: level graph plus blocking flow phases.
	BlockingFlow Variant = "blocking_flow"
	// PreflowPush is push-relabel with FIFO discharge.
	PreflowPush Variant = "preflow_push"
)

// Variants lists all supported algorithms in catalogue order.
func Variants() []Variant {
	return []Variant{AugmentingPath, BlockingFlow, PreflowPush}
}

// ParseVariant converts a string to a Variant.
func ParseVariant(s string) (Variant, error) {
	switch Variant(s) {
	case AugmentingPath, BlockingFlow, PreflowPush:
		return Variant(s), nil
	default:
		return "", apperror.New(apperror.CodeInvalidAlgorithm,
			fmt.Sprintf("unknown algorithm %q", s))
	}
}

// TerminationReason explains why a run ended.
type TerminationReason string

const (
	// Converged means the algorithm reached a true maximum flow.
	Converged TerminationReason = "converged"
	// BudgetExceeded means the iteration budget ran out first; the result
	// carries a valid feasible (possibly non-maximum) flow.
	BudgetExceeded TerminationReason = "budget_exceeded"
)

// FlowResult is the outcome of a single max-flow computation.
type FlowResult struct {
	Value      float64             `json:"value"`
	EdgeFlows  map[EdgeKey]float64 `json:"-"`
	Algorithm  Variant             `json:"algorithm"`
	Iterations int                 `json:"iterations"`
	Reason     TerminationReason   `json:"reason"`
	Duration   time.Duration       `json:"duration"`
}

// Flow returns the flow assigned to the given edge, zero when absent.
func (r *FlowResult) Flow(key EdgeKey) float64 {
	return r.EdgeFlows[key]
}

// Converged reports whether the run reached a maximum flow.
func (r *FlowResult) Converged() bool {
	return r.Reason == Converged
}

// MinCut is a source/sink partition with its crossing edges.
type MinCut struct {
	// SourceSide holds node ids reachable from the source in the residual
	// graph, the source included.
	SourceSide []string `json:"source_side"`
	// SinkSide holds the remaining node ids, the sink included.
	SinkSide []string `json:"sink_side"`
	// Edges are the saturated edges crossing from SourceSide to SinkSide,
	// in network insertion order.
	Edges []EdgeKey `json:"edges"`
	// Capacity is the total capacity of the crossing edges.
	Capacity float64 `json:"capacity"`
}

// Verify checks a flow result against the network it was computed on:
// capacity bounds, non-negativity and conservation at every junction.
// Returns nil when all constraints hold within Epsilon.
func (r *FlowResult) Verify(network *Network) error {
	if network == nil {
		return apperror.ErrNilNetwork
	}
	if r == nil {
		return apperror.ErrNilResult
	}

	balance := make(map[string]float64, network.NodeCount())
	for _, edge := range network.Edges() {
		flow := r.EdgeFlows[edge.Key()]
		if flow < -Epsilon {
			return apperror.NewWithField(apperror.CodeNegativeFlow,
				fmt.Sprintf("negative flow %g on edge %s", flow, edge.Key()), edge.Key().String())
		}
		if flow > edge.Capacity+Epsilon {
			return apperror.NewWithField(apperror.CodeFlowViolation,
				fmt.Sprintf("flow %g exceeds capacity %g on edge %s", flow, edge.Capacity, edge.Key()),
				edge.Key().String())
		}
		balance[edge.From] -= flow
		balance[edge.To] += flow
	}

	for _, node := range network.Nodes() {
		if node.Role != RoleJunction {
			continue
		}
		if diff := balance[node.ID]; diff > Epsilon || diff < -Epsilon {
			return apperror.NewWithField(apperror.CodeConservationViolation,
				fmt.Sprintf("node %s gains %g flow", node.ID, diff), node.ID)
		}
	}

	outflow := -balance[network.SourceID()]
	if diff := outflow - r.Value; diff > Epsilon || diff < -Epsilon {
		return apperror.New(apperror.CodeFlowViolation,
			fmt.Sprintf("reported value %g does not match source outflow %g", r.Value, outflow))
	}
	return nil
}
