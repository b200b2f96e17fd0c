package model

import (
	"fmt"

	"github.com/causalkit/oster/internal/constants"
)

// LinearTemplate specifies an ordinary-least-squares regressor with an
// intercept, solved via the normal equations. When the plain solve is
// singular (collinear features), the solve is retried once with a ridge
// penalty on the diagonal.
type LinearTemplate struct {
	// Ridge is the L2 penalty used for the singular-system retry.
	// Zero means constants.DefaultRidge.
	Ridge float64
}

// NewRegressor returns a fresh, un-fitted OLS regressor.
func (t LinearTemplate) NewRegressor() Regressor {
	ridge := t.Ridge
	if ridge == 0 {
		ridge = constants.DefaultRidge
	}
	return &linearRegressor{ridge: ridge}
}

type linearRegressor struct {
	ridge float64
	p     int       // fitted feature width
	coef  []float64 // p feature weights followed by the intercept
}

func (m *linearRegressor) Fit(x [][]float64, y []float64) error {
	coef, err := FitLinear(x, y, m.ridge)
	if err != nil {
		return err
	}
	m.p = len(x[0])
	m.coef = coef
	return nil
}

// FitLinear solves an ordinary-least-squares fit with an intercept and
// returns the coefficients in feature order, intercept last. Ridge is
// applied to the feature diagonal only when the plain system is singular.
// Callers that need the raw coefficients (the importance ranker does) use
// this directly; everything else goes through LinearTemplate.
func FitLinear(x [][]float64, y []float64, ridge float64) ([]float64, error) {
	p, err := checkFit(x, y)
	if err != nil {
		return nil, err
	}
	if ridge == 0 {
		ridge = constants.DefaultRidge
	}

	xtx, xty := normalEquations(x, y, p)
	a, b := cloneSystem(xtx, xty)
	coef, ok := solveLinear(a, b)
	if !ok {
		// Collinear features: retry with ridge on every diagonal entry
		// except the intercept.
		a, b = cloneSystem(xtx, xty)
		for i := 0; i < p; i++ {
			a[i][i] += ridge
		}
		coef, ok = solveLinear(a, b)
		if !ok {
			return nil, fmt.Errorf("model: linear fit singular even with ridge %g", ridge)
		}
	}
	return coef, nil
}

func (m *linearRegressor) Predict(x [][]float64) ([]float64, error) {
	if err := checkPredict(x, m.p); err != nil {
		return nil, err
	}
	out := make([]float64, len(x))
	intercept := m.coef[m.p]
	for i, row := range x {
		v := intercept
		for j := 0; j < m.p; j++ {
			v += m.coef[j] * row[j]
		}
		out[i] = v
	}
	return out, nil
}
