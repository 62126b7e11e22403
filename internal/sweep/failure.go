package sweep

import (
	"context"

	"golang.org/x/sync/errgroup"

	"waterflow/internal/engine"
	"waterflow/internal/waternet"
	"waterflow/pkg/apperror"
)

// EdgeImpact is the outcome of failing one pipe.
type EdgeImpact struct {
	Edge      waternet.EdgeKey `json:"edge"`
	Value     float64          `json:"value"`
	Reduction float64          `json:"reduction"`
	// ReductionFraction is Reduction relative to the base flow, in [0,1].
	ReductionFraction float64 `json:"reduction_fraction"`
	// SinglePointOfFailure marks pipes whose loss alone stops all delivery.
	SinglePointOfFailure bool `json:"single_point_of_failure"`
}

// FailureReport aggregates an N-1 analysis: every pipe failed in turn.
type FailureReport struct {
	Algorithm waternet.Variant `json:"algorithm"`
	BaseValue float64          `json:"base_value"`
	Impacts   []EdgeImpact     `json:"impacts"` // edge insertion order

	SinglePointsOfFailure []waternet.EdgeKey `json:"single_points_of_failure"`
	MostCritical          *waternet.EdgeKey  `json:"most_critical,omitempty"`
	WorstReduction        float64            `json:"worst_reduction"`

	// ConnectivityRobustness is the fraction of single-failure scenarios
	// that still deliver flow.
	ConnectivityRobustness float64 `json:"connectivity_robustness"`
	// FlowRobustness is 1 minus the worst relative flow reduction.
	FlowRobustness float64 `json:"flow_robustness"`
	// RedundancyLevel is the edge-to-node ratio of the network.
	RedundancyLevel float64 `json:"redundancy_level"`
	OverallScore    float64 `json:"overall_score"`
}

// Failures runs the N-1 analysis: solves the base network, then re-solves it
// once per pipe with that pipe failed.
func Failures(ctx context.Context, network *waternet.Network, variant waternet.Variant, cfg Config, opts *engine.Options) (*FailureReport, error) {
	cfg = cfg.normalized()

	base, err := solvePoint(ctx, network, variant, cfg, opts)
	if err != nil {
		return nil, err
	}

	edges := network.Edges()
	impacts := make([]EdgeImpact, len(edges))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Concurrency)

	for i, edge := range edges {
		g.Go(func() error {
			key := edge.Key()
			scenario := &waternet.Scenario{Failed: []waternet.EdgeKey{key}}
			derived, err := waternet.ApplyScenario(network, scenario)
			if err != nil {
				return err
			}

			result, err := solvePoint(gctx, derived, variant, cfg, opts)
			if err != nil {
				return apperror.Wrap(err, apperror.CodeAlgorithmError,
					"failure analysis scenario failed").WithField(key.String())
			}

			impacts[i] = EdgeImpact{
				Edge:                 key,
				Value:                result.Value,
				Reduction:            base.Value - result.Value,
				SinglePointOfFailure: base.Value > waternet.Epsilon && result.Value <= waternet.Epsilon,
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &FailureReport{
		Algorithm: variant,
		BaseValue: base.Value,
		Impacts:   impacts,
	}

	survived := 0
	for i := range report.Impacts {
		impact := &report.Impacts[i]
		if report.BaseValue > waternet.Epsilon {
			impact.ReductionFraction = impact.Reduction / report.BaseValue
		}
		if impact.SinglePointOfFailure {
			report.SinglePointsOfFailure = append(report.SinglePointsOfFailure, impact.Edge)
		} else {
			survived++
		}
		if impact.Reduction > report.WorstReduction {
			report.WorstReduction = impact.Reduction
			key := impact.Edge
			report.MostCritical = &key
		}
	}

	if len(report.Impacts) > 0 {
		report.ConnectivityRobustness = float64(survived) / float64(len(report.Impacts))
	}
	report.FlowRobustness = 1.0
	if report.BaseValue > waternet.Epsilon {
		report.FlowRobustness = 1.0 - report.WorstReduction/report.BaseValue
	}
	if network.NodeCount() > 0 {
		report.RedundancyLevel = float64(network.EdgeCount()) / float64(network.NodeCount())
	}
	report.OverallScore = (report.ConnectivityRobustness + report.FlowRobustness) / 2

	return report, nil
}
