package simulation

import (
	"github.com/causalkit/oster/internal/curve"
	"github.com/causalkit/oster/internal/dataset"
	"github.com/causalkit/oster/internal/model"
	"github.com/causalkit/oster/internal/synth"
)

// Scenario defines a complete estimation experiment: a data-generating
// process plus the analysis settings to run against it.
type Scenario struct {
	Name string

	// Synth configures the synthetic dataset. Zero value is not usable;
	// start from synth.DefaultConfig and override.
	Synth synth.Config

	// Folds and Seed configure cross-fitting. Zero Folds means the
	// package default; Seed drives the fold assignment.
	Folds int
	Seed  int64

	// MaxSteps caps the curve length; 0 runs every ranked covariate.
	MaxSteps int

	// BetaHyp and RMax parameterize the sensitivity statistic. RMax 0
	// means the default ceiling of 1.
	BetaHyp float64
	RMax    float64

	// OutcomeModel and TreatmentModel replace the default linear and
	// logistic learners when non-nil.
	OutcomeModel   model.RegressorTemplate
	TreatmentModel model.ClassifierTemplate
}

// Result captures everything a scenario produced: the drawn dataset with
// its ground truth, the ranking the curve walked, and the fitted curve.
type Result struct {
	Data   *dataset.Dataset
	Truth  *synth.Truth
	Ranked []string
	Curve  *curve.Curve
}

// Steps returns the number of fitted specification steps.
func (r Result) Steps() int {
	if r.Curve == nil {
		return 0
	}
	return len(r.Curve.Steps)
}

// step looks up a 1-based step index.
func (r Result) step(index int) (curve.Step, bool) {
	if r.Curve == nil || index < 1 || index > len(r.Curve.Steps) {
		return curve.Step{}, false
	}
	return r.Curve.Steps[index-1], true
}
