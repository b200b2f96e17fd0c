package simulation

import (
	"context"
	"testing"

	"github.com/causalkit/oster/internal/curve"
	"github.com/causalkit/oster/internal/delta"
	"github.com/causalkit/oster/internal/dml"
	"github.com/causalkit/oster/internal/rank"
	"github.com/causalkit/oster/internal/synth"
)

// Runner executes scenarios against the real estimation pipeline.
type Runner struct {
	t *testing.T
}

// NewRunner creates a scenario runner.
func NewRunner(t *testing.T) *Runner {
	t.Helper()
	return &Runner{t: t}
}

// Run executes the scenario and returns the collected results. Any pipeline
// error fails the test immediately.
func (r *Runner) Run(scenario Scenario) Result {
	r.t.Helper()
	ctx := context.Background()

	// Phase 1: Draw the dataset with known ground truth.
	d, truth, err := synth.Generate(scenario.Synth)
	if err != nil {
		r.t.Fatalf("Run(%s): generate: %v", scenario.Name, err)
	}

	// Phase 2: Rank covariates by outcome importance.
	covariates := d.Covariates(scenario.Synth.Outcome, scenario.Synth.Treatment)
	ranking, err := rank.OLSRanker{}.Rank(d, covariates, scenario.Synth.Outcome, scenario.Synth.Treatment)
	if err != nil {
		r.t.Fatalf("Run(%s): rank: %v", scenario.Name, err)
	}

	// Phase 3: Walk the specification curve over the ranked prefixes.
	dmlCfg := dml.DefaultConfig()
	dmlCfg.Outcome = scenario.Synth.Outcome
	dmlCfg.Treatment = scenario.Synth.Treatment
	if scenario.Folds > 0 {
		dmlCfg.Folds = scenario.Folds
	}
	if scenario.OutcomeModel != nil {
		dmlCfg.OutcomeModel = scenario.OutcomeModel
	}
	if scenario.TreatmentModel != nil {
		dmlCfg.TreatmentModel = scenario.TreatmentModel
	}

	params := delta.DefaultParams()
	params.BetaHyp = scenario.BetaHyp
	if scenario.RMax != 0 {
		params.RMax = scenario.RMax
	}

	runner := &curve.Runner{}
	c, err := runner.Run(ctx, d, curve.RunConfig{
		Ranked:   ranking.ByOutcome,
		MaxSteps: scenario.MaxSteps,
		Seed:     scenario.Seed,
		RunID:    scenario.Name,
		DML:      dmlCfg,
		Delta:    params,
	})
	if err != nil {
		r.t.Fatalf("Run(%s): curve: %v", scenario.Name, err)
	}

	return Result{Data: d, Truth: truth, Ranked: ranking.ByOutcome, Curve: c}
}
