// Package sweep runs families of related max-flow computations over a base
// network: uniform leakage sweeps and N-1 pipe failure analysis. Each run owns
// its own residual state, so points are computed concurrently.
package sweep

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"waterflow/internal/engine"
	"waterflow/internal/waternet"
	"waterflow/pkg/apperror"
)

// Config bounds a sweep.
type Config struct {
	Concurrency int           // max concurrent solver runs
	Step        float64       // leakage increment between points
	MaxLeakage  float64       // last leakage level to test, < 1
	RunTimeout  time.Duration // per-point budget, 0 means no deadline
}

// DefaultConfig returns the sweep defaults.
func DefaultConfig() Config {
	return Config{
		Concurrency: 4,
		Step:        0.05,
		MaxLeakage:  0.95,
	}
}

func (c Config) normalized() Config {
	if c.Concurrency <= 0 {
		c.Concurrency = 4
	}
	if c.Step <= 0 {
		c.Step = 0.05
	}
	if c.MaxLeakage <= 0 || c.MaxLeakage >= 1 {
		c.MaxLeakage = 0.95
	}
	return c
}

// LeakagePoint is one solved leakage level.
type LeakagePoint struct {
	Leakage  float64                    `json:"leakage"`
	Value    float64                    `json:"value"`
	Retained float64                    `json:"retained"` // fraction of the base flow still delivered
	Reason   waternet.TerminationReason `json:"reason"`
}

// LeakageReport aggregates a uniform leakage sweep.
type LeakageReport struct {
	Algorithm waternet.Variant `json:"algorithm"`
	BaseValue float64          `json:"base_value"`
	Points    []LeakagePoint   `json:"points"`

	// CollapseLeakage is the smallest tested leakage at which delivery drops
	// to zero; negative when the network delivers flow at every tested level.
	CollapseLeakage float64 `json:"collapse_leakage"`
}

// Leakage sweeps uniform leakage from 0 to cfg.MaxLeakage in cfg.Step
// increments and solves every derived network with the given variant.
func Leakage(ctx context.Context, network *waternet.Network, variant waternet.Variant, cfg Config, opts *engine.Options) (*LeakageReport, error) {
	cfg = cfg.normalized()

	levels := make([]float64, 0, int(cfg.MaxLeakage/cfg.Step)+1)
	for l := 0.0; l <= cfg.MaxLeakage+waternet.Epsilon; l += cfg.Step {
		levels = append(levels, l)
	}

	points := make([]LeakagePoint, len(levels))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Concurrency)

	for i, level := range levels {
		g.Go(func() error {
			scenario := &waternet.Scenario{DefaultLeakage: level}
			derived, err := waternet.ApplyScenario(network, scenario)
			if err != nil {
				return err
			}

			result, err := solvePoint(gctx, derived, variant, cfg, opts)
			if err != nil {
				return apperror.Wrap(err, apperror.CodeAlgorithmError,
					"leakage sweep point failed").WithDetails("leakage", level)
			}

			points[i] = LeakagePoint{
				Leakage: level,
				Value:   result.Value,
				Reason:  result.Reason,
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &LeakageReport{
		Algorithm:       variant,
		BaseValue:       points[0].Value,
		Points:          points,
		CollapseLeakage: -1,
	}
	for i := range report.Points {
		if report.BaseValue > waternet.Epsilon {
			report.Points[i].Retained = report.Points[i].Value / report.BaseValue
		}
		if report.CollapseLeakage < 0 && report.Points[i].Value <= waternet.Epsilon {
			report.CollapseLeakage = report.Points[i].Leakage
		}
	}

	return report, nil
}

// solvePoint runs one solve with a private copy of the options, so concurrent
// points never share mutable option state.
func solvePoint(ctx context.Context, network *waternet.Network, variant waternet.Variant, cfg Config, opts *engine.Options) (*waternet.FlowResult, error) {
	run := engine.Options{}
	if opts != nil {
		run = *opts
	}
	if cfg.RunTimeout > 0 {
		run.Timeout = cfg.RunTimeout
	}
	return engine.Run(ctx, network, variant, &run)
}
