package delta

import (
	"errors"
	"math"
	"testing"

	"github.com/causalkit/oster/internal/dataset"
	"github.com/causalkit/oster/internal/dml"
	"github.com/causalkit/oster/internal/model"
)

// handMoments is a fully hand-computed case. With these inputs the
// numerator is 0.47952, the denominator 1.63152, and the statistic
// 0.479520/1.631520.
func handMoments() Moments {
	return Moments{
		BetaShort: 2.0,
		BetaMed:   1.2,
		R2Short:   0.3,
		R2Med:     0.6,
		SigmaY2:   4.0,
		SigmaX2:   1.5,
		TauX:      0.9,
	}
}

func TestFromMomentsHandComputed(t *testing.T) {
	params := Params{BetaHyp: 1.0, RMax: 0.9, DenomTol: 1e-9}
	est, err := FromMoments(handMoments(), params)
	if err != nil {
		t.Fatalf("FromMoments() error = %v", err)
	}
	if est.Undefined {
		t.Fatal("Undefined = true, want defined")
	}

	if math.Abs(est.Num-0.47952) > 1e-9 {
		t.Errorf("Num = %v, want 0.47952", est.Num)
	}
	if math.Abs(est.Den-1.63152) > 1e-9 {
		t.Errorf("Den = %v, want 1.63152", est.Den)
	}
	want := 0.47952 / 1.63152
	if math.Abs(est.Delta-want)/want > 1e-6 {
		t.Errorf("Delta = %v, want %v", est.Delta, want)
	}
}

func TestFromMomentsZeroWhenStable(t *testing.T) {
	// BetaMed equals BetaHyp: no movement left to explain, so the
	// statistic is exactly zero whatever the moments.
	m := handMoments()
	params := Params{BetaHyp: m.BetaMed, RMax: 0.9, DenomTol: 1e-9}
	est, err := FromMoments(m, params)
	if err != nil {
		t.Fatalf("FromMoments() error = %v", err)
	}
	if est.Undefined {
		t.Fatal("Undefined = true, want defined")
	}
	if est.Delta != 0 {
		t.Errorf("Delta = %v, want 0", est.Delta)
	}
}

func TestFromMomentsSignFlipInvariant(t *testing.T) {
	params := Params{BetaHyp: 1.0, RMax: 0.9, DenomTol: 1e-9}
	base, err := FromMoments(handMoments(), params)
	if err != nil {
		t.Fatalf("FromMoments() error = %v", err)
	}

	flipped := handMoments()
	flipped.BetaShort = -flipped.BetaShort
	flipped.BetaMed = -flipped.BetaMed
	flippedParams := params
	flippedParams.BetaHyp = -params.BetaHyp

	got, err := FromMoments(flipped, flippedParams)
	if err != nil {
		t.Fatalf("FromMoments() error = %v", err)
	}
	if got.Delta != base.Delta {
		t.Errorf("Delta after sign flip = %v, want %v", got.Delta, base.Delta)
	}
	if got.Num != -base.Num || got.Den != -base.Den {
		t.Errorf("Num, Den after flip = %v, %v, want %v, %v", got.Num, got.Den, -base.Num, -base.Den)
	}
}

func TestFromMomentsUndefinedNearRMax(t *testing.T) {
	// RMax barely above the fitted R-squared and almost no movement left:
	// every denominator term vanishes, so the result must be flagged
	// undefined rather than exploding.
	m := handMoments()
	m.BetaMed = 1.0 + 1e-6
	params := Params{BetaHyp: 1.0, RMax: m.R2Med + 1e-12, DenomTol: 1e-9}

	est, err := FromMoments(m, params)
	if err != nil {
		t.Fatalf("FromMoments() error = %v", err)
	}
	if !est.Undefined {
		t.Fatalf("Undefined = false with Den = %v, want true", est.Den)
	}
	if est.Delta != 0 {
		t.Errorf("Delta = %v, want 0 when undefined", est.Delta)
	}
	if math.IsNaN(est.Num) || math.IsInf(est.Num, 0) || math.IsNaN(est.Den) || math.IsInf(est.Den, 0) {
		t.Errorf("intermediates Num = %v, Den = %v, want finite", est.Num, est.Den)
	}
	if est.BetaMed != m.BetaMed || est.RMax != params.RMax {
		t.Error("undefined estimate did not retain its intermediates")
	}
}

func TestParamsValidate(t *testing.T) {
	tests := []struct {
		name      string
		params    Params
		r2Med     float64
		wantField string
	}{
		{name: "valid", params: Params{RMax: 0.9, DenomTol: 1e-9}, r2Med: 0.5},
		{name: "rmax below fitted", params: Params{RMax: 0.4, DenomTol: 1e-9}, r2Med: 0.5, wantField: "RMax"},
		{name: "rmax above one", params: Params{RMax: 1.1, DenomTol: 1e-9}, r2Med: 0.5, wantField: "RMax"},
		{name: "zero tolerance", params: Params{RMax: 0.9}, r2Med: 0.5, wantField: "DenomTol"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.params.Validate(tt.r2Med)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v, want nil", err)
				}
				return
			}
			var cfgErr *dml.ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("Validate() error = %v, want *dml.ConfigError", err)
			}
			if cfgErr.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", cfgErr.Field, tt.wantField)
			}
		})
	}
}

func TestCalculatorShortFit(t *testing.T) {
	// With a linear template the recovered short coefficient must equal
	// the textbook single-regressor slope cov(y, w)/var(w) = 8/3, and the
	// short R-squared the squared correlation 0.64/1.4.
	d, err := dataset.New(map[string][]float64{
		"y": {1, 3, 2, 5, 4, 7},
		"w": {0, 1, 0, 1, 0, 1},
	}, []string{"y", "w"})
	if err != nil {
		t.Fatalf("dataset.New() error = %v", err)
	}

	calc := NewCalculator("y", "w", DefaultParams(), model.LinearTemplate{})
	est, err := calc.Compute(d, &dml.Estimate{ATE: 2.0, R2: 0.5, TauX: 0.25})
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}

	if want := 8.0 / 3; math.Abs(est.BetaShort-want) > 1e-9 {
		t.Errorf("BetaShort = %v, want %v", est.BetaShort, want)
	}
	if want := 0.64 / 1.4; math.Abs(est.R2Short-want) > 1e-9 {
		t.Errorf("R2Short = %v, want %v", est.R2Short, want)
	}
	if est.BetaMed != 2.0 || est.TauX != 0.25 {
		t.Error("intermediate specification not carried into the estimate")
	}
}

func TestCalculatorValidatesBeforeFitting(t *testing.T) {
	d, err := dataset.New(map[string][]float64{
		"y": {1, 2, 3, 4},
		"w": {0, 1, 0, 1},
	}, []string{"y", "w"})
	if err != nil {
		t.Fatalf("dataset.New() error = %v", err)
	}

	// RMax below the fitted R-squared must fail before the short fit,
	// so the exploding template is never touched.
	params := Params{BetaHyp: 0, RMax: 0.3, DenomTol: 1e-9}
	calc := NewCalculator("y", "w", params, explodingTemplate{})
	_, err = calc.Compute(d, &dml.Estimate{ATE: 1.0, R2: 0.5, TauX: 0.2})

	var cfgErr *dml.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("Compute() error = %v, want *dml.ConfigError", err)
	}
	if cfgErr.Field != "RMax" {
		t.Errorf("Field = %q, want RMax", cfgErr.Field)
	}
}

// explodingTemplate fails the test if any model is ever constructed.
type explodingTemplate struct{}

func (explodingTemplate) NewRegressor() model.Regressor {
	panic("short fit ran before validation")
}
