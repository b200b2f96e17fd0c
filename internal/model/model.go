// Package model defines the two narrow model capabilities the estimation
// pipeline consumes (real-valued regression and positive-class probability
// prediction) plus cloneable templates and the built-in linear, logistic
// and random-forest implementations.
//
// Templates are un-fit specifications: NewRegressor/NewClassifier return a
// fresh model on every call, so no fit ever sees another fit's weights.
package model

import "fmt"

// Regressor fits real-valued targets and predicts values for new rows.
type Regressor interface {
	Fit(x [][]float64, y []float64) error
	Predict(x [][]float64) ([]float64, error)
}

// ProbabilisticClassifier fits binary 0/1 targets and predicts the
// probability of the positive class. PredictProba always returns exactly one
// probability per row, regardless of how many classes were present in the
// training data; fitting on a single class yields a constant probability
// equal to that class (0 or 1).
type ProbabilisticClassifier interface {
	Fit(x [][]float64, y []float64) error
	PredictProba(x [][]float64) ([]float64, error)
}

// RegressorTemplate is an un-fit regressor specification (hyperparameters +
// kind). Implementations must return a fresh, un-fitted model on every call.
type RegressorTemplate interface {
	NewRegressor() Regressor
}

// ClassifierTemplate is an un-fit classifier specification.
type ClassifierTemplate interface {
	NewClassifier() ProbabilisticClassifier
}

// checkFit validates the shape of a training set: at least one row, equal
// x/y lengths, at least one feature, and rows of consistent width.
func checkFit(x [][]float64, y []float64) (p int, err error) {
	if len(x) == 0 {
		return 0, fmt.Errorf("model: empty training set")
	}
	if len(x) != len(y) {
		return 0, fmt.Errorf("model: %d feature rows for %d targets", len(x), len(y))
	}
	p = len(x[0])
	if p == 0 {
		return 0, fmt.Errorf("model: rows have no features")
	}
	for i, row := range x {
		if len(row) != p {
			return 0, fmt.Errorf("model: row %d has %d features, want %d", i, len(row), p)
		}
	}
	return p, nil
}

// checkPredict validates prediction rows against the fitted feature width.
func checkPredict(x [][]float64, p int) error {
	if p == 0 {
		return fmt.Errorf("model: predict before fit")
	}
	for i, row := range x {
		if len(row) != p {
			return fmt.Errorf("model: row %d has %d features, want %d", i, len(row), p)
		}
	}
	return nil
}

// checkBinary validates that every target is exactly 0 or 1.
func checkBinary(y []float64) error {
	for i, v := range y {
		if v != 0 && v != 1 {
			return fmt.Errorf("model: target %d = %g, want 0 or 1", i, v)
		}
	}
	return nil
}
