package dml

import (
	"context"
	"fmt"
	"math"

	"github.com/causalkit/oster/internal/dataset"
	"github.com/causalkit/oster/internal/vecmath"
)

// Estimate is the partial-linear treatment effect for one control set. TauX
// (the variance of the treatment residual) and the degenerate-fold
// annotations are carried along for the sensitivity statistic and for run
// records.
type Estimate struct {
	ATE             float64 `json:"ate"`
	SE              float64 `json:"se"`
	R2              float64 `json:"r2"`
	TauX            float64 `json:"tau_x"`
	DegenerateFolds []int   `json:"degenerate_folds,omitempty"`
}

// Estimator computes cross-fitted partial-linear treatment effects under a
// fixed configuration. It holds no state across calls: the same dataset,
// fold assignment, and model seeds always produce the same Estimate.
type Estimator struct {
	cfg Config
}

// NewEstimator returns an estimator for cfg. Validation runs against the
// dataset when fitting starts.
func NewEstimator(cfg Config) *Estimator {
	return &Estimator{cfg: cfg}
}

// CrossFit produces out-of-fold nuisance predictions under the estimator's
// configuration.
func (e *Estimator) CrossFit(ctx context.Context, d *dataset.Dataset, folds *FoldAssignment) (*NuisancePredictions, error) {
	return CrossFit(ctx, d, folds, e.cfg)
}

// Fit cross-fits the nuisance models and solves the residual-on-residual
// moment for the treatment effect.
func (e *Estimator) Fit(ctx context.Context, d *dataset.Dataset, folds *FoldAssignment) (*Estimate, error) {
	preds, err := e.CrossFit(ctx, d, folds)
	if err != nil {
		return nil, err
	}
	return e.FromPredictions(d, preds)
}

// FromPredictions computes the estimate from existing out-of-fold
// predictions. Callers that also need the predictions afterwards (the
// sensitivity calculator does) cross-fit once and reuse them here.
func (e *Estimator) FromPredictions(d *dataset.Dataset, preds *NuisancePredictions) (*Estimate, error) {
	n := d.Len()
	if preds == nil || len(preds.Outcome) != n || len(preds.Propensity) != n {
		return nil, fmt.Errorf("estimate: predictions not aligned with %d dataset rows", n)
	}

	y, err := d.Column(e.cfg.Outcome)
	if err != nil {
		return nil, fmt.Errorf("estimate: %w", err)
	}
	w, err := d.Column(e.cfg.Treatment)
	if err != nil {
		return nil, fmt.Errorf("estimate: %w", err)
	}

	yres := make([]float64, n)
	wres := make([]float64, n)
	var sumWW, sumWY float64
	for i := 0; i < n; i++ {
		yres[i] = y[i] - preds.Outcome[i]
		wres[i] = w[i] - preds.Propensity[i]
		sumWW += wres[i] * wres[i]
		sumWY += wres[i] * yres[i]
	}
	if sumWW == 0 {
		return nil, fmt.Errorf("estimate: treatment residuals are identically zero")
	}
	ate := sumWY / sumWW

	// Neyman-orthogonal moment variance: psi sums to zero at the estimate,
	// so mean(psi^2) is its variance.
	var sumPsi2 float64
	for i := 0; i < n; i++ {
		psi := wres[i] * (yres[i] - ate*wres[i])
		sumPsi2 += psi * psi
	}
	meanWW := sumWW / float64(n)
	varPsi := sumPsi2 / float64(n)
	se := math.Sqrt(varPsi/float64(n)) / meanWW

	return &Estimate{
		ATE:             ate,
		SE:              se,
		R2:              vecmath.SquaredCorrelation(y, preds.Outcome),
		TauX:            vecmath.Variance(wres),
		DegenerateFolds: append([]int(nil), preds.DegenerateFolds...),
	}, nil
}
