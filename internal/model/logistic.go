package model

import (
	"fmt"
	"math"

	"github.com/causalkit/oster/internal/constants"
)

// LogisticTemplate specifies a logistic-regression classifier with an
// intercept, fitted by iteratively reweighted least squares (IRLS). A small
// ridge penalty keeps the weighted normal equations solvable under
// separation or collinearity.
type LogisticTemplate struct {
	// MaxIter caps IRLS iterations. Zero means constants.LogisticMaxIter.
	MaxIter int

	// Tol stops iteration once the largest coefficient change falls below
	// it. Zero means constants.LogisticTol.
	Tol float64

	// Ridge is the L2 penalty on the weighted normal equations.
	// Zero means constants.DefaultRidge.
	Ridge float64
}

// NewClassifier returns a fresh, un-fitted logistic classifier.
func (t LogisticTemplate) NewClassifier() ProbabilisticClassifier {
	maxIter := t.MaxIter
	if maxIter == 0 {
		maxIter = constants.LogisticMaxIter
	}
	tol := t.Tol
	if tol == 0 {
		tol = constants.LogisticTol
	}
	ridge := t.Ridge
	if ridge == 0 {
		ridge = constants.DefaultRidge
	}
	return &logisticClassifier{maxIter: maxIter, tol: tol, ridge: ridge}
}

type logisticClassifier struct {
	maxIter int
	tol     float64
	ridge   float64

	p    int
	coef []float64 // p feature weights followed by the intercept

	// constProb holds the prediction when the training data contained a
	// single class; constModel marks that state.
	constModel bool
	constProb  float64
}

func (m *logisticClassifier) Fit(x [][]float64, y []float64) error {
	p, err := checkFit(x, y)
	if err != nil {
		return err
	}
	if err := checkBinary(y); err != nil {
		return err
	}

	ones := 0
	for _, v := range y {
		if v == 1 {
			ones++
		}
	}
	if ones == 0 || ones == len(y) {
		// Single observed class: the only honest probability is constant.
		m.p = p
		m.constModel = true
		m.constProb = float64(ones) / float64(len(y))
		return nil
	}

	d := p + 1
	coef := make([]float64, d)
	eta := make([]float64, len(x))

	for iter := 0; iter < m.maxIter; iter++ {
		// Weighted normal equations XᵀSX and Xᵀ(y−p) at the current
		// coefficients, with the intercept as a trailing ones column.
		xtsx := make([][]float64, d)
		for i := range xtsx {
			xtsx[i] = make([]float64, d)
		}
		grad := make([]float64, d)

		for i, row := range x {
			e := coef[p]
			for j := 0; j < p; j++ {
				e += coef[j] * row[j]
			}
			eta[i] = e
			pr := sigmoid(e)
			w := pr * (1 - pr)
			if w < 1e-10 {
				w = 1e-10
			}
			r := y[i] - pr

			for a := 0; a < p; a++ {
				va := row[a]
				for b := a; b < p; b++ {
					xtsx[a][b] += w * va * row[b]
				}
				xtsx[a][p] += w * va
				grad[a] += va * r
			}
			xtsx[p][p] += w
			grad[p] += r
		}
		for a := 0; a < d; a++ {
			xtsx[a][a] += m.ridge
			for b := a + 1; b < d; b++ {
				xtsx[b][a] = xtsx[a][b]
			}
		}

		step, ok := solveLinear(xtsx, grad)
		if !ok {
			return fmt.Errorf("model: logistic IRLS singular at iteration %d", iter)
		}

		maxChange := 0.0
		for j := 0; j < d; j++ {
			coef[j] += step[j]
			if c := math.Abs(step[j]); c > maxChange {
				maxChange = c
			}
		}
		if maxChange < m.tol {
			break
		}
	}

	m.p = p
	m.coef = coef
	return nil
}

func (m *logisticClassifier) PredictProba(x [][]float64) ([]float64, error) {
	if err := checkPredict(x, m.p); err != nil {
		return nil, err
	}
	out := make([]float64, len(x))
	if m.constModel {
		for i := range out {
			out[i] = m.constProb
		}
		return out, nil
	}
	intercept := m.coef[m.p]
	for i, row := range x {
		e := intercept
		for j := 0; j < m.p; j++ {
			e += m.coef[j] * row[j]
		}
		out[i] = sigmoid(e)
	}
	return out, nil
}

func sigmoid(e float64) float64 {
	// Clamp the linear predictor so exp never overflows.
	if e > 35 {
		return 1 - 1e-15
	}
	if e < -35 {
		return 1e-15
	}
	return 1 / (1 + math.Exp(-e))
}
