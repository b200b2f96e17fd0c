package dml

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/causalkit/oster/internal/dataset"
)

// NuisancePredictions holds row-aligned out-of-fold predictions: every row's
// value comes from models that never saw that row. Propensities are clipped
// to the trimming bounds except on degenerate folds, which carry their
// training partition's raw empirical treatment rate.
type NuisancePredictions struct {
	Outcome         []float64
	Propensity      []float64
	DegenerateFolds []int
}

// CrossFit fits fresh outcome and treatment models once per fold, each on the
// rows outside the fold, and predicts the held-out rows. Fold fits run on a
// bounded worker pool; results merge by row index, so parallelism never
// changes row alignment.
//
// A fold whose training partition contains a single treatment class cannot
// support a classifier fit. Such folds fall back to the partition's empirical
// treatment rate as a constant propensity, skip clipping, and are recorded in
// DegenerateFolds.
func CrossFit(ctx context.Context, d *dataset.Dataset, folds *FoldAssignment, cfg Config) (*NuisancePredictions, error) {
	if err := cfg.Validate(d); err != nil {
		return nil, err
	}
	if folds == nil {
		return nil, &ConfigError{Field: "Folds", Reason: "fold assignment required"}
	}
	if folds.Len() != d.Len() {
		return nil, &ConfigError{Field: "Folds", Reason: fmt.Sprintf("assignment covers %d rows, dataset has %d", folds.Len(), d.Len())}
	}

	x, err := d.Matrix(cfg.Controls)
	if err != nil {
		return nil, fmt.Errorf("crossfit: %w", err)
	}
	y, err := d.Column(cfg.Outcome)
	if err != nil {
		return nil, fmt.Errorf("crossfit: %w", err)
	}
	w, err := d.Column(cfg.Treatment)
	if err != nil {
		return nil, fmt.Errorf("crossfit: %w", err)
	}

	preds := &NuisancePredictions{
		Outcome:    make([]float64, d.Len()),
		Propensity: make([]float64, d.Len()),
	}
	degenerate := make([]bool, folds.K())

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.workers())
	for k := 0; k < folds.K(); k++ {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			train := folds.Training(k)
			held := folds.HeldOut(k)
			tx := gatherRows(x, train)
			hx := gatherRows(x, held)

			out := cfg.OutcomeModel.NewRegressor()
			if err := out.Fit(tx, gather(y, train)); err != nil {
				return fmt.Errorf("fold %d: fit outcome model: %w", k, err)
			}
			yhat, err := out.Predict(hx)
			if err != nil {
				return fmt.Errorf("fold %d: predict outcome: %w", k, err)
			}
			for j, row := range held {
				preds.Outcome[row] = yhat[j]
			}

			tw := gather(w, train)
			if rate, single := singleClassRate(tw); single {
				for _, row := range held {
					preds.Propensity[row] = rate
				}
				degenerate[k] = true
				return nil
			}

			clf := cfg.TreatmentModel.NewClassifier()
			if err := clf.Fit(tx, tw); err != nil {
				return fmt.Errorf("fold %d: fit treatment model: %w", k, err)
			}
			probs, err := clf.PredictProba(hx)
			if err != nil {
				return fmt.Errorf("fold %d: predict propensity: %w", k, err)
			}
			for j, row := range held {
				preds.Propensity[row] = clip(probs[j], cfg.TrimLower, cfg.TrimUpper)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for k, deg := range degenerate {
		if deg {
			preds.DegenerateFolds = append(preds.DegenerateFolds, k)
		}
	}
	return preds, nil
}

// singleClassRate reports whether the binary treatment vector holds fewer
// than two distinct values, returning its empirical rate for the fallback.
func singleClassRate(w []float64) (float64, bool) {
	sum := 0.0
	for _, v := range w {
		sum += v
	}
	rate := sum / float64(len(w))
	return rate, rate == 0 || rate == 1
}

func gather(v []float64, rows []int) []float64 {
	out := make([]float64, len(rows))
	for i, r := range rows {
		out[i] = v[r]
	}
	return out
}

func gatherRows(m [][]float64, rows []int) [][]float64 {
	out := make([][]float64, len(rows))
	for i, r := range rows {
		out[i] = m[r]
	}
	return out
}

func clip(p, lo, hi float64) float64 {
	if p < lo {
		return lo
	}
	if p > hi {
		return hi
	}
	return p
}
