package dml

import (
	"context"
	"errors"
	"math"
	"testing"

	"go.uber.org/goleak"

	"github.com/causalkit/oster/internal/dataset"
	"github.com/causalkit/oster/internal/model"
	"github.com/causalkit/oster/internal/vecmath"
)

// meanTemplate predicts the mean of its training targets, which makes
// out-of-fold behavior directly observable.
type meanTemplate struct{}

func (meanTemplate) NewRegressor() model.Regressor { return &meanModel{} }

type meanModel struct{ mean float64 }

func (m *meanModel) Fit(x [][]float64, y []float64) error {
	m.mean = vecmath.Mean(y)
	return nil
}

func (m *meanModel) Predict(x [][]float64) ([]float64, error) {
	out := make([]float64, len(x))
	for i := range out {
		out[i] = m.mean
	}
	return out, nil
}

// fixedProbTemplate always predicts the same propensity.
type fixedProbTemplate struct{ p float64 }

func (t fixedProbTemplate) NewClassifier() model.ProbabilisticClassifier {
	return &fixedProbModel{p: t.p}
}

type fixedProbModel struct{ p float64 }

func (m *fixedProbModel) Fit(x [][]float64, y []float64) error { return nil }

func (m *fixedProbModel) PredictProba(x [][]float64) ([]float64, error) {
	out := make([]float64, len(x))
	for i := range out {
		out[i] = m.p
	}
	return out, nil
}

// failingTemplate fails every fit with a sentinel error.
var errFitBoom = errors.New("boom")

type failingTemplate struct{}

func (failingTemplate) NewRegressor() model.Regressor { return failingModel{} }

type failingModel struct{}

func (failingModel) Fit(x [][]float64, y []float64) error     { return errFitBoom }
func (failingModel) Predict(x [][]float64) ([]float64, error) { return nil, errFitBoom }

func TestCrossFitOutOfFold(t *testing.T) {
	defer goleak.VerifyNone(t)

	// Outcome equals the fold label scaled by 10: a mean model trained
	// outside fold k must predict the other fold's level, proving no row
	// ever sees its own fold's data.
	d, err := dataset.New(map[string][]float64{
		"y": {0, 0, 0, 10, 10, 10},
		"w": {0, 1, 0, 1, 0, 1},
		"x": {1, 2, 3, 4, 5, 6},
	}, []string{"y", "w", "x"})
	if err != nil {
		t.Fatalf("dataset.New() error = %v", err)
	}
	folds, err := FoldAssignmentFromLabels([]int{0, 0, 0, 1, 1, 1}, 2)
	if err != nil {
		t.Fatalf("FoldAssignmentFromLabels() error = %v", err)
	}

	cfg := validConfig()
	cfg.Controls = []string{"x"}
	cfg.OutcomeModel = meanTemplate{}
	cfg.TreatmentModel = fixedProbTemplate{p: 0.5}

	preds, err := CrossFit(context.Background(), d, folds, cfg)
	if err != nil {
		t.Fatalf("CrossFit() error = %v", err)
	}
	want := []float64{10, 10, 10, 0, 0, 0}
	for i, w := range want {
		if preds.Outcome[i] != w {
			t.Errorf("Outcome[%d] = %v, want %v (out-of-fold mean)", i, preds.Outcome[i], w)
		}
	}
	if len(preds.DegenerateFolds) != 0 {
		t.Errorf("DegenerateFolds = %v, want none", preds.DegenerateFolds)
	}
}

func TestCrossFitClipsPropensity(t *testing.T) {
	d := testData(t)
	folds, err := FoldAssignmentFromLabels([]int{0, 1, 0, 1, 0, 1, 0, 1}, 2)
	if err != nil {
		t.Fatalf("FoldAssignmentFromLabels() error = %v", err)
	}

	cfg := validConfig()
	cfg.TrimLower, cfg.TrimUpper = 0.1, 0.9
	cfg.OutcomeModel = meanTemplate{}
	cfg.TreatmentModel = fixedProbTemplate{p: 0.999}

	preds, err := CrossFit(context.Background(), d, folds, cfg)
	if err != nil {
		t.Fatalf("CrossFit() error = %v", err)
	}
	for i, p := range preds.Propensity {
		if p != 0.9 {
			t.Errorf("Propensity[%d] = %v, want clipped to 0.9", i, p)
		}
	}
}

func TestCrossFitDegenerateFold(t *testing.T) {
	// Fold 1 trains on rows whose treatment is identically zero: the
	// fallback is the raw empirical rate 0, unclipped, with the fold
	// flagged and no error.
	d, err := dataset.New(map[string][]float64{
		"y": {1, 2, 3, 4, 5, 6},
		"w": {0, 0, 0, 0, 1, 1},
		"x": {0.5, 1.5, 2.5, 3.5, 4.5, 5.5},
	}, []string{"y", "w", "x"})
	if err != nil {
		t.Fatalf("dataset.New() error = %v", err)
	}
	folds, err := FoldAssignmentFromLabels([]int{0, 0, 0, 1, 1, 1}, 2)
	if err != nil {
		t.Fatalf("FoldAssignmentFromLabels() error = %v", err)
	}

	cfg := validConfig()
	cfg.Controls = []string{"x"}

	preds, err := CrossFit(context.Background(), d, folds, cfg)
	if err != nil {
		t.Fatalf("CrossFit() error = %v", err)
	}
	if len(preds.DegenerateFolds) != 1 || preds.DegenerateFolds[0] != 1 {
		t.Fatalf("DegenerateFolds = %v, want [1]", preds.DegenerateFolds)
	}
	for _, row := range folds.HeldOut(1) {
		if preds.Propensity[row] != 0 {
			t.Errorf("Propensity[%d] = %v, want raw fallback 0", row, preds.Propensity[row])
		}
	}
	for _, row := range folds.HeldOut(0) {
		p := preds.Propensity[row]
		if p < cfg.TrimLower || p > cfg.TrimUpper {
			t.Errorf("Propensity[%d] = %v outside trim bounds", row, p)
		}
	}
}

func TestCrossFitRejectsInvalidConfig(t *testing.T) {
	d := testData(t)
	folds, err := NewFoldAssignment(d.Len(), 2, 1)
	if err != nil {
		t.Fatalf("NewFoldAssignment() error = %v", err)
	}

	cfg := validConfig()
	cfg.Outcome = "ghost"
	_, err = CrossFit(context.Background(), d, folds, cfg)
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("CrossFit() error = %v, want *ConfigError", err)
	}

	short, err := NewFoldAssignment(4, 2, 1)
	if err != nil {
		t.Fatalf("NewFoldAssignment() error = %v", err)
	}
	_, err = CrossFit(context.Background(), d, short, validConfig())
	if !errors.As(err, &cfgErr) {
		t.Fatalf("CrossFit() with misaligned folds error = %v, want *ConfigError", err)
	}
}

func TestCrossFitSurfacesModelError(t *testing.T) {
	defer goleak.VerifyNone(t)

	d := testData(t)
	folds, err := NewFoldAssignment(d.Len(), 2, 1)
	if err != nil {
		t.Fatalf("NewFoldAssignment() error = %v", err)
	}

	cfg := validConfig()
	cfg.OutcomeModel = failingTemplate{}

	_, err = CrossFit(context.Background(), d, folds, cfg)
	if !errors.Is(err, errFitBoom) {
		t.Fatalf("CrossFit() error = %v, want wrapped %v", err, errFitBoom)
	}
}

func TestCrossFitCancelled(t *testing.T) {
	defer goleak.VerifyNone(t)

	d := testData(t)
	folds, err := NewFoldAssignment(d.Len(), 2, 1)
	if err != nil {
		t.Fatalf("NewFoldAssignment() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = CrossFit(ctx, d, folds, validConfig())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("CrossFit() error = %v, want context.Canceled", err)
	}
}

func TestCrossFitCoversEveryRow(t *testing.T) {
	d := testData(t)
	folds, err := NewFoldAssignment(d.Len(), 4, 3)
	if err != nil {
		t.Fatalf("NewFoldAssignment() error = %v", err)
	}

	cfg := validConfig()
	cfg.Folds = 4
	preds, err := CrossFit(context.Background(), d, folds, cfg)
	if err != nil {
		t.Fatalf("CrossFit() error = %v", err)
	}
	if len(preds.Outcome) != d.Len() || len(preds.Propensity) != d.Len() {
		t.Fatalf("prediction lengths = %d, %d, want %d", len(preds.Outcome), len(preds.Propensity), d.Len())
	}
	for i := range preds.Outcome {
		if math.IsNaN(preds.Outcome[i]) || math.IsNaN(preds.Propensity[i]) {
			t.Errorf("row %d has NaN prediction", i)
		}
	}
}
