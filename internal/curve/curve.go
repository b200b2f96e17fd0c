// Package curve drives the specification-curve loop: one cross-fitted
// treatment-effect estimate and one sensitivity statistic per growing
// control set, in ranked order.
package curve

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/causalkit/oster/internal/dataset"
	"github.com/causalkit/oster/internal/delta"
	"github.com/causalkit/oster/internal/dml"
	"github.com/causalkit/oster/internal/logging"
)

// Step is one fully fitted specification: the first Index ranked controls,
// the treatment-effect estimate they produce, and its sensitivity statistic.
type Step struct {
	Index           int             `json:"index"` // 1-based prefix length
	Controls        []string        `json:"controls"`
	Estimate        *dml.Estimate   `json:"estimate"`
	Delta           *delta.Estimate `json:"delta"`
	DegenerateFolds []int           `json:"degenerate_folds,omitempty"`
}

// Curve is the ordered result of a run: one step per prefix length. A
// cancelled or failed run yields the prefix of completed steps.
type Curve struct {
	Steps []Step `json:"steps"`
}

// RunConfig configures one curve run. The DML config's Controls field is
// ignored; every step derives its own control set from Ranked.
type RunConfig struct {
	// Ranked lists covariates by descending importance. Step i uses the
	// first i names; sets only ever grow, never shrink or reorder.
	Ranked   []string
	MaxSteps int // 0 means the full ranked list

	// Seed drives the fold assignment, generated once per run and shared
	// by every step.
	Seed int64

	// Parallel bounds concurrent steps; 0 or 1 means sequential. Steps
	// grow more expensive as controls accumulate, so sequential is the
	// default.
	Parallel int

	// RunID tags trace records; empty is fine.
	RunID string

	DML   dml.Config
	Delta delta.Params
}

// Runner executes curve runs. Both loggers are optional.
type Runner struct {
	Logger *slog.Logger
	Trace  *logging.TraceLogger
}

// Run fits every specification step and returns the completed curve.
// Configuration errors abort before any fitting. Cancellation mid-sequence
// returns the prefix of completed steps together with the context error;
// model-fit failures likewise surface with the prefix, wrapped with their
// step index.
func (r *Runner) Run(ctx context.Context, d *dataset.Dataset, cfg RunConfig) (*Curve, error) {
	steps := len(cfg.Ranked)
	if cfg.MaxSteps > 0 && cfg.MaxSteps < steps {
		steps = cfg.MaxSteps
	}
	if steps == 0 {
		return nil, &dml.ConfigError{Field: "Ranked", Reason: "no ranked controls"}
	}

	// Fail fast on everything checkable before fitting: the widest
	// control set covers every narrower one, and the delta parameters
	// must at least be coherent against an empty fit.
	widest := cfg.DML
	widest.Controls = cfg.Ranked[:steps]
	if err := widest.Validate(d); err != nil {
		return nil, err
	}
	if err := cfg.Delta.Validate(0); err != nil {
		return nil, err
	}

	folds, err := dml.NewFoldAssignment(d.Len(), cfg.DML.Folds, cfg.Seed)
	if err != nil {
		return nil, err
	}

	if r.Logger != nil {
		r.Logger.Debug("curve run starting",
			"run_id", cfg.RunID, "steps", steps, "folds", folds.K(), "rows", d.Len())
	}

	if cfg.Parallel > 1 {
		return r.runParallel(ctx, d, folds, cfg, steps)
	}

	curve := &Curve{}
	for i := 1; i <= steps; i++ {
		if err := ctx.Err(); err != nil {
			return curve, err
		}
		step, err := r.runStep(ctx, d, folds, cfg, i)
		if err != nil {
			if ctx.Err() != nil {
				return curve, ctx.Err()
			}
			return curve, fmt.Errorf("step %d: %w", i, err)
		}
		curve.Steps = append(curve.Steps, *step)
	}
	return curve, nil
}

// runParallel fits steps on a bounded pool. The curve stays ordered; on
// failure or cancellation the longest completed prefix is returned.
func (r *Runner) runParallel(ctx context.Context, d *dataset.Dataset, folds *dml.FoldAssignment, cfg RunConfig, steps int) (*Curve, error) {
	results := make([]*Step, steps)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Parallel)
	for i := 1; i <= steps; i++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			step, err := r.runStep(gctx, d, folds, cfg, i)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				return fmt.Errorf("step %d: %w", i, err)
			}
			results[i-1] = step
			return nil
		})
	}
	err := g.Wait()

	curve := &Curve{}
	for _, s := range results {
		if s == nil {
			break
		}
		curve.Steps = append(curve.Steps, *s)
	}
	return curve, err
}

// runStep refits everything from scratch on the step's control set: a fresh
// cross-fit, a fresh effect estimate, and the statistic from that same
// step's fit. Nothing is cached across steps; the feature space changes
// every time.
func (r *Runner) runStep(ctx context.Context, d *dataset.Dataset, folds *dml.FoldAssignment, cfg RunConfig, i int) (*Step, error) {
	stepCfg := cfg.DML
	stepCfg.Controls = cfg.Ranked[:i]

	est := dml.NewEstimator(stepCfg)
	preds, err := est.CrossFit(ctx, d, folds)
	if err != nil {
		return nil, err
	}
	fit, err := est.FromPredictions(d, preds)
	if err != nil {
		return nil, err
	}

	calc := delta.NewCalculator(stepCfg.Outcome, stepCfg.Treatment, cfg.Delta, stepCfg.OutcomeModel)
	dl, err := calc.Compute(d, fit)
	if err != nil {
		return nil, err
	}

	if r.Logger != nil {
		r.Logger.Debug("step fitted",
			"step", i, "controls", len(stepCfg.Controls),
			"ate", fit.ATE, "se", fit.SE, "r2", fit.R2,
			"delta", dl.Delta, "undefined", dl.Undefined,
			"degenerate_folds", len(fit.DegenerateFolds))
	}
	r.Trace.Step(cfg.RunID, i, stepCfg.Controls, fit.ATE, fit.SE, fit.R2, dl.Delta, dl.Undefined)

	return &Step{
		Index:           i,
		Controls:        append([]string(nil), cfg.Ranked[:i]...),
		Estimate:        fit,
		Delta:           dl,
		DegenerateFolds: fit.DegenerateFolds,
	}, nil
}
