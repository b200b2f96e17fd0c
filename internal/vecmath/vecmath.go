// Package vecmath provides the sample-moment primitives the estimators are
// built on. All variances and covariances use the unbiased (n-1) convention.
package vecmath

import "math"

// Mean computes the arithmetic mean of v. Returns 0.0 for an empty slice.
func Mean(v []float64) float64 {
	if len(v) == 0 {
		return 0.0
	}
	sum := 0.0
	for _, x := range v {
		sum += x
	}
	return sum / float64(len(v))
}

// Variance computes the unbiased sample variance of v.
// Returns 0.0 when v has fewer than two values.
func Variance(v []float64) float64 {
	if len(v) < 2 {
		return 0.0
	}
	m := Mean(v)
	sum := 0.0
	for _, x := range v {
		d := x - m
		sum += d * d
	}
	return sum / float64(len(v)-1)
}

// StdDev computes the unbiased sample standard deviation of v.
func StdDev(v []float64) float64 {
	return math.Sqrt(Variance(v))
}

// Covariance computes the unbiased sample covariance of a and b.
// Returns 0.0 if the lengths differ or fewer than two pairs are given.
func Covariance(a, b []float64) float64 {
	if len(a) != len(b) || len(a) < 2 {
		return 0.0
	}
	ma, mb := Mean(a), Mean(b)
	sum := 0.0
	for i := range a {
		sum += (a[i] - ma) * (b[i] - mb)
	}
	return sum / float64(len(a)-1)
}

// Correlation computes the Pearson correlation between a and b.
// Returns 0.0 if the lengths differ, fewer than two pairs are given, or
// either side has zero variance.
func Correlation(a, b []float64) float64 {
	va, vb := Variance(a), Variance(b)
	if va == 0 || vb == 0 {
		return 0.0
	}
	return Covariance(a, b) / math.Sqrt(va*vb)
}

// SquaredCorrelation computes the square of the Pearson correlation, the
// R-squared of a single-predictor fit. Returns 0.0 whenever Correlation does.
func SquaredCorrelation(a, b []float64) float64 {
	r := Correlation(a, b)
	return r * r
}
