package vecmath

import (
	"math"
	"testing"
)

func TestMean(t *testing.T) {
	tests := []struct {
		name string
		v    []float64
		want float64
	}{
		{name: "simple", v: []float64{1, 2, 3, 4}, want: 2.5},
		{name: "single value", v: []float64{7}, want: 7},
		{name: "empty", v: nil, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Mean(tt.v); got != tt.want {
				t.Errorf("Mean() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestVariance(t *testing.T) {
	tests := []struct {
		name string
		v    []float64
		want float64
	}{
		{name: "known variance", v: []float64{2, 4, 4, 4, 5, 5, 7, 9}, want: 32.0 / 7},
		{name: "constant", v: []float64{3, 3, 3}, want: 0},
		{name: "single value", v: []float64{3}, want: 0},
		{name: "empty", v: nil, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Variance(tt.v)
			if math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("Variance() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCovariance(t *testing.T) {
	tests := []struct {
		name string
		a, b []float64
		want float64
	}{
		{name: "perfect linear", a: []float64{1, 2, 3}, b: []float64{2, 4, 6}, want: 2},
		{name: "length mismatch", a: []float64{1, 2}, b: []float64{1}, want: 0},
		{name: "too short", a: []float64{1}, b: []float64{1}, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Covariance(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("Covariance() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCorrelation(t *testing.T) {
	tests := []struct {
		name string
		a, b []float64
		want float64
	}{
		{name: "perfect positive", a: []float64{1, 2, 3}, b: []float64{10, 20, 30}, want: 1},
		{name: "perfect negative", a: []float64{1, 2, 3}, b: []float64{3, 2, 1}, want: -1},
		{name: "constant side", a: []float64{1, 2, 3}, b: []float64{5, 5, 5}, want: 0},
		{name: "length mismatch", a: []float64{1, 2, 3}, b: []float64{1, 2}, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Correlation(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("Correlation() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSquaredCorrelation(t *testing.T) {
	a := []float64{1, 2, 3, 4}
	b := []float64{4, 3, 2, 1}
	if got := SquaredCorrelation(a, b); math.Abs(got-1) > 1e-12 {
		t.Errorf("SquaredCorrelation() = %v, want 1", got)
	}
}
