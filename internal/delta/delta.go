// Package delta computes the coefficient-stability statistic for a fitted
// treatment-effect specification: how strong selection on unobservables
// would have to be, relative to selection on the observed controls, to move
// the estimated effect to a hypothetical value. It compares three nested
// specifications (outcome on treatment alone, the cross-fitted estimate
// with observed controls, and a hypothetical fit with full controls) and
// evaluates a closed form over their coefficients, R-squareds, and sample
// moments.
package delta

import (
	"fmt"
	"math"

	"github.com/causalkit/oster/internal/constants"
	"github.com/causalkit/oster/internal/dataset"
	"github.com/causalkit/oster/internal/dml"
	"github.com/causalkit/oster/internal/model"
	"github.com/causalkit/oster/internal/vecmath"
)

// Params configures the statistic. BetaHyp is the hypothetical coefficient
// under full controls (0 tests "effect fully explained away"). RMax is the
// R-squared the hypothetical full-control outcome model would reach. DenomTol
// is the magnitude below which the denominator counts as vanished.
type Params struct {
	BetaHyp  float64
	RMax     float64
	DenomTol float64
}

// DefaultParams returns the conventional choices: test against zero effect
// with a perfectly explainable outcome.
func DefaultParams() Params {
	return Params{
		BetaHyp:  constants.DefaultBetaHyp,
		RMax:     constants.DefaultRMax,
		DenomTol: constants.DefaultDenomTol,
	}
}

// Validate checks the parameters against r2Med, the R-squared of the fitted
// intermediate specification. It runs before any fitting.
func (p Params) Validate(r2Med float64) error {
	if p.RMax > 1 {
		return &dml.ConfigError{Field: "RMax", Reason: fmt.Sprintf("must not exceed 1, got %g", p.RMax)}
	}
	if p.RMax < r2Med {
		return &dml.ConfigError{Field: "RMax", Reason: fmt.Sprintf("%g is below the fitted R-squared %g", p.RMax, r2Med)}
	}
	if p.DenomTol <= 0 {
		return &dml.ConfigError{Field: "DenomTol", Reason: fmt.Sprintf("must be positive, got %g", p.DenomTol)}
	}
	return nil
}

// Moments collects everything the closed form consumes: the short and
// intermediate specifications plus the sample moments of outcome, treatment,
// and treatment residual.
type Moments struct {
	BetaShort float64
	BetaMed   float64
	R2Short   float64
	R2Med     float64
	SigmaY2   float64
	SigmaX2   float64
	TauX      float64
}

// Estimate is the computed statistic with every intermediate retained. When
// Undefined is set the denominator fell below DenomTol and Delta is
// meaningless; no Inf or NaN is ever produced.
type Estimate struct {
	Delta     float64 `json:"delta"`
	Undefined bool    `json:"undefined,omitempty"`

	BetaShort float64 `json:"beta_short"`
	BetaMed   float64 `json:"beta_med"`
	BetaHyp   float64 `json:"beta_hyp"`
	R2Short   float64 `json:"r2_short"`
	R2Med     float64 `json:"r2_med"`
	RMax      float64 `json:"r_max"`

	SigmaY2 float64 `json:"sigma_y2"`
	SigmaX2 float64 `json:"sigma_x2"`
	TauX    float64 `json:"tau_x"`

	Num float64 `json:"num"`
	Den float64 `json:"den"`
}

// FromMoments evaluates the closed form. The sign convention is fixed:
// nu = BetaMed - BetaHyp and shift = BetaShort - BetaMed keep this
// orientation in every term, so flipping the sign of all three coefficients
// negates numerator and denominator together and leaves Delta unchanged.
func FromMoments(m Moments, params Params) (*Estimate, error) {
	if err := params.Validate(m.R2Med); err != nil {
		return nil, err
	}

	nu := m.BetaMed - params.BetaHyp
	shift := m.BetaShort - m.BetaMed

	a := m.TauX * shift * m.SigmaX2
	b := m.TauX * (m.SigmaX2 - m.TauX)

	num := nu*(m.R2Med-m.R2Short)*m.SigmaY2*m.TauX +
		nu*m.SigmaX2*m.TauX*shift*shift +
		2*nu*nu*a +
		nu*nu*nu*b

	den := (params.RMax-m.R2Med)*m.SigmaY2*shift*m.SigmaX2 +
		nu*(params.RMax-m.R2Med)*m.SigmaY2*(m.SigmaX2-m.TauX) +
		nu*nu*a +
		nu*nu*nu*b

	est := &Estimate{
		BetaShort: m.BetaShort,
		BetaMed:   m.BetaMed,
		BetaHyp:   params.BetaHyp,
		R2Short:   m.R2Short,
		R2Med:     m.R2Med,
		RMax:      params.RMax,
		SigmaY2:   m.SigmaY2,
		SigmaX2:   m.SigmaX2,
		TauX:      m.TauX,
		Num:       num,
		Den:       den,
	}
	if math.Abs(den) < params.DenomTol {
		est.Undefined = true
		return est, nil
	}
	est.Delta = num / den
	return est, nil
}

// Calculator assembles the moments for one specification step and evaluates
// the statistic. The short specification is fitted here; the intermediate
// one arrives as the step's cross-fitted estimate, whose TauX already
// carries the treatment-residual variance from the same residualization.
type Calculator struct {
	outcome    string
	treatment  string
	params     Params
	shortModel model.RegressorTemplate
}

// NewCalculator returns a calculator for the given column roles. shortModel
// is the outcome-model template reused for the treatment-only fit.
func NewCalculator(outcome, treatment string, params Params, shortModel model.RegressorTemplate) *Calculator {
	return &Calculator{outcome: outcome, treatment: treatment, params: params, shortModel: shortModel}
}

// Compute evaluates the statistic for one fitted step. Parameter validation
// runs first, so an invalid RMax never triggers a short fit.
func (c *Calculator) Compute(d *dataset.Dataset, est *dml.Estimate) (*Estimate, error) {
	if est == nil {
		return nil, fmt.Errorf("delta: nil intermediate estimate")
	}
	if err := c.params.Validate(est.R2); err != nil {
		return nil, err
	}

	y, err := d.Column(c.outcome)
	if err != nil {
		return nil, fmt.Errorf("delta: %w", err)
	}
	w, err := d.Column(c.treatment)
	if err != nil {
		return nil, fmt.Errorf("delta: %w", err)
	}

	betaShort, r2Short, err := c.shortFit(w, y)
	if err != nil {
		return nil, err
	}

	return FromMoments(Moments{
		BetaShort: betaShort,
		BetaMed:   est.ATE,
		R2Short:   r2Short,
		R2Med:     est.R2,
		SigmaY2:   vecmath.Variance(y),
		SigmaX2:   vecmath.Variance(w),
		TauX:      est.TauX,
	}, c.params)
}

// shortFit regresses the outcome on the treatment alone over the full
// sample, using a fresh instance of the outcome template. The coefficient is
// recovered as cov(yhat, w)/var(w) and the R-squared as the squared
// correlation of outcome and prediction; for a linear template both match
// the textbook single-regressor fit exactly.
func (c *Calculator) shortFit(w, y []float64) (betaShort, r2Short float64, err error) {
	varW := vecmath.Variance(w)
	if varW == 0 {
		return 0, 0, fmt.Errorf("delta: treatment %q has zero variance", c.treatment)
	}

	x := make([][]float64, len(w))
	for i, v := range w {
		x[i] = []float64{v}
	}
	reg := c.shortModel.NewRegressor()
	if err := reg.Fit(x, y); err != nil {
		return 0, 0, fmt.Errorf("delta: fit short specification: %w", err)
	}
	yhat, err := reg.Predict(x)
	if err != nil {
		return 0, 0, fmt.Errorf("delta: predict short specification: %w", err)
	}

	return vecmath.Covariance(yhat, w) / varW, vecmath.SquaredCorrelation(y, yhat), nil
}
