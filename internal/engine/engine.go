// Package engine provides implementations of maximum-flow algorithms for
// water distribution networks: augmenting path (Edmonds-Karp), blocking
// flow (Dinic) and preflow-push (push-relabel), plus min-cut extraction
// and flow-path decomposition on top of their results.
//
// # Thread Safety
//
// Individual algorithm runs are NOT thread-safe. Each run owns its residual
// graph; concurrent runs must each build their own via Run, which does so
// internally. Networks and scenarios are immutable and shared freely.
//
// # Determinism
//
// All algorithms produce deterministic results for the same input network.
// This is achieved by walking arcs in edge insertion order everywhere.
//
// # Budgets
//
// Every run carries an iteration budget. Exhausting it is not an error:
// the run stops with termination reason BudgetExceeded and a feasible
// (possibly non-maximum) flow satisfying conservation. Only invalid input
// and numeric instability produce errors.
package engine

import (
	"context"
	"fmt"
	"time"

	"waterflow/internal/graph"
	"waterflow/internal/waternet"
	"waterflow/pkg/apperror"
)

// =============================================================================
// Options
// =============================================================================

// DefaultMaxIterations bounds a run when the caller sets no explicit budget.
const DefaultMaxIterations = 1_000_000

// Options configures a flow computation.
//
// Zero values are safe to use; DefaultOptions() will be applied. Options
// can be chained using the builder pattern:
//
//	opts := engine.DefaultOptions().
//	    WithMaxIterations(500).
//	    WithTrace(recorder)
type Options struct {
	// Epsilon is the tolerance for floating-point comparisons.
	// Values smaller than Epsilon are considered zero.
	// Default: waternet.Epsilon (1e-9)
	Epsilon float64

	// MaxIterations limits the number of algorithm iterations: augmenting
	// paths for Edmonds-Karp, phases for Dinic, discharges for preflow-push.
	// Zero or negative applies DefaultMaxIterations.
	MaxIterations int

	// Timeout bounds the wall-clock duration of a run.
	// Zero means no timeout (relies on the caller's context).
	Timeout time.Duration

	// Trace receives algorithm events. nil or NopRecorder disables tracing.
	// Tracing never changes the computed flow.
	Trace Recorder
}

// DefaultOptions returns options with sensible defaults for most use cases.
func DefaultOptions() *Options {
	return &Options{
		Epsilon:       waternet.Epsilon,
		MaxIterations: DefaultMaxIterations,
	}
}

// WithEpsilon sets the comparison tolerance and returns the options for chaining.
func (o *Options) WithEpsilon(eps float64) *Options {
	o.Epsilon = eps
	return o
}

// WithMaxIterations sets the iteration budget and returns the options for chaining.
func (o *Options) WithMaxIterations(max int) *Options {
	o.MaxIterations = max
	return o
}

// WithTimeout sets the timeout and returns the options for chaining.
func (o *Options) WithTimeout(timeout time.Duration) *Options {
	o.Timeout = timeout
	return o
}

// WithTrace attaches a trace recorder and returns the options for chaining.
func (o *Options) WithTrace(rec Recorder) *Options {
	o.Trace = rec
	return o
}

// normalized returns a copy with defaults applied to zero fields.
func (o *Options) normalized() Options {
	out := Options{}
	if o != nil {
		out = *o
	}
	if out.Epsilon <= 0 {
		out.Epsilon = waternet.Epsilon
	}
	if out.MaxIterations <= 0 {
		out.MaxIterations = DefaultMaxIterations
	}
	return out
}

// =============================================================================
// Algorithm Interface
// =============================================================================

// Outcome is the raw result of an algorithm run over a residual graph.
// The flow itself lives in the residual graph's arcs.
type Outcome struct {
	// Flow is the total flow value pushed from source to sink.
	Flow float64

	// Iterations is the number of algorithm iterations performed.
	Iterations int

	// Reason reports whether the run converged or hit its budget.
	Reason waternet.TerminationReason
}

// Algorithm computes a maximum flow over a residual graph.
//
// Run mutates the residual graph in place. On a nil error the graph holds
// a feasible flow even when the outcome reason is BudgetExceeded.
type Algorithm interface {
	Variant() waternet.Variant
	Run(ctx context.Context, r *graph.Residual, opts *Options) (*Outcome, error)
}

// New returns the algorithm implementation for a variant.
func New(variant waternet.Variant) (Algorithm, error) {
	switch variant {
	case waternet.AugmentingPath:
		return &augmentingPath{}, nil
	case waternet.BlockingFlow:
		return &blockingFlow{}, nil
	case waternet.PreflowPush:
		return &preflowPush{}, nil
	default:
		return nil, apperror.New(apperror.CodeInvalidAlgorithm,
			fmt.Sprintf("unknown algorithm %q", variant))
	}
}

// =============================================================================
// Catalogue
// =============================================================================

// AlgorithmInfo describes an available algorithm for API consumers.
type AlgorithmInfo struct {
	Variant     waternet.Variant `json:"variant"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Complexity  string           `json:"complexity"`
	BestFor     string           `json:"best_for"`
}

// Catalogue lists all available algorithms in a stable order.
func Catalogue() []AlgorithmInfo {
	return []AlgorithmInfo{
		{
			Variant:     waternet.AugmentingPath,
			Name:        "Augmenting Path (Edmonds-Karp)",
			Description: "BFS shortest augmenting paths, one augmentation per iteration",
			Complexity:  "O(V * E^2)",
			BestFor:     "small and medium networks, step-by-step tracing",
		},
		{
			Variant:     waternet.BlockingFlow,
			Name:        "Blocking Flow (Dinic)",
			Description: "level graph phases with blocking flow and current-arc advance",
			Complexity:  "O(V^2 * E)",
			BestFor:     "general networks, best default",
		},
		{
			Variant:     waternet.PreflowPush,
			Name:        "Preflow-Push (Push-Relabel)",
			Description: "height labels with FIFO discharge, gap heuristic and global relabeling",
			Complexity:  "O(V^3)",
			BestFor:     "dense networks",
		},
	}
}

// Recommend picks an algorithm for a network based on its density.
func Recommend(network *waternet.Network) waternet.Variant {
	v := network.NodeCount()
	e := network.EdgeCount()
	// Dense graphs favor preflow-push, everything else Dinic.
	if v > 1 && e > v*(v-1)/4 {
		return waternet.PreflowPush
	}
	return waternet.BlockingFlow
}

// =============================================================================
// Entry Point
// =============================================================================

// Run computes a flow on the network with the chosen algorithm.
//
// The network is never mutated: each run builds its own residual graph.
// Budget exhaustion and context cancellation are reported through
// FlowResult.Reason as BudgetExceeded, with a conservation-respecting
// partial flow; errors are reserved for invalid input and numeric failure.
func Run(ctx context.Context, network *waternet.Network, variant waternet.Variant, opts *Options) (*waternet.FlowResult, error) {
	start := time.Now()

	if network == nil {
		return nil, apperror.ErrNilNetwork
	}
	algo, err := New(variant)
	if err != nil {
		return nil, err
	}

	normalized := opts.normalized()
	if normalized.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, normalized.Timeout)
		defer cancel()
	}

	r := graph.NewResidual(network)
	outcome, err := algo.Run(ctx, r, &normalized)
	if err != nil {
		return nil, err
	}

	if err := checkResidual(r, normalized.Epsilon); err != nil {
		return nil, err
	}

	return &waternet.FlowResult{
		Value:      outcome.Flow,
		EdgeFlows:  r.Flows(),
		Algorithm:  variant,
		Iterations: outcome.Iterations,
		Reason:     outcome.Reason,
		Duration:   time.Since(start),
	}, nil
}

// checkResidual guards against numeric drift: residual capacities must
// never go negative beyond tolerance and per-edge flow must stay within
// the original capacity.
func checkResidual(r *graph.Residual, epsilon float64) error {
	for u := 0; u < r.NodeCount(); u++ {
		for i := range r.Arcs(u) {
			if c := r.Arc(u, i).Capacity; c < -epsilon {
				return apperror.NewCritical(apperror.CodeNumericInstability,
					fmt.Sprintf("residual capacity %g below zero", c))
			}
		}
	}
	for i, edge := range r.Network().Edges() {
		if f := r.Flow(i); f > edge.Capacity+epsilon {
			return apperror.NewCritical(apperror.CodeNumericInstability,
				fmt.Sprintf("flow %g exceeds capacity %g on edge %s", f, edge.Capacity, edge.Key()))
		}
	}
	return nil
}

// canceled is a non-blocking context check used at iteration boundaries.
func canceled(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}
