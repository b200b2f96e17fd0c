package model

import "math"

// pivotTol is the smallest absolute pivot Gaussian elimination accepts
// before declaring the system singular.
const pivotTol = 1e-12

// solveLinear solves a·x = b in place by Gaussian elimination with partial
// pivoting. a is square and row-major; both a and b are clobbered. Returns
// false when a pivot falls below pivotTol (singular system).
func solveLinear(a [][]float64, b []float64) ([]float64, bool) {
	n := len(a)
	for col := 0; col < n; col++ {
		// Partial pivot: largest |value| in this column at or below the
		// diagonal.
		pivot := col
		max := math.Abs(a[col][col])
		for r := col + 1; r < n; r++ {
			if v := math.Abs(a[r][col]); v > max {
				max = v
				pivot = r
			}
		}
		if max < pivotTol {
			return nil, false
		}
		if pivot != col {
			a[col], a[pivot] = a[pivot], a[col]
			b[col], b[pivot] = b[pivot], b[col]
		}

		inv := 1.0 / a[col][col]
		for r := col + 1; r < n; r++ {
			f := a[r][col] * inv
			if f == 0 {
				continue
			}
			for c := col; c < n; c++ {
				a[r][c] -= f * a[col][c]
			}
			b[r] -= f * b[col]
		}
	}

	// Back substitution.
	x := make([]float64, n)
	for r := n - 1; r >= 0; r-- {
		sum := b[r]
		for c := r + 1; c < n; c++ {
			sum -= a[r][c] * x[c]
		}
		x[r] = sum / a[r][r]
	}
	return x, true
}

// normalEquations builds XᵀX and Xᵀy for a design matrix with an implicit
// trailing intercept column of ones.
func normalEquations(x [][]float64, y []float64, p int) (xtx [][]float64, xty []float64) {
	d := p + 1
	xtx = make([][]float64, d)
	for i := range xtx {
		xtx[i] = make([]float64, d)
	}
	xty = make([]float64, d)

	for i, row := range x {
		for a := 0; a < p; a++ {
			va := row[a]
			for b := a; b < p; b++ {
				xtx[a][b] += va * row[b]
			}
			xtx[a][p] += va
			xty[a] += va * y[i]
		}
		xtx[p][p]++
		xty[p] += y[i]
	}
	// Mirror the upper triangle.
	for a := 0; a < d; a++ {
		for b := a + 1; b < d; b++ {
			xtx[b][a] = xtx[a][b]
		}
	}
	return xtx, xty
}

// cloneSystem deep-copies a normal-equation system so a failed solve can be
// retried with regularization.
func cloneSystem(a [][]float64, b []float64) ([][]float64, []float64) {
	ca := make([][]float64, len(a))
	for i := range a {
		ca[i] = append([]float64(nil), a[i]...)
	}
	return ca, append([]float64(nil), b...)
}
