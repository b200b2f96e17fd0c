package simulation

import (
	"math"
	"testing"

	"github.com/causalkit/oster/internal/curve"
)

// stepOrError looks up a 1-based step for an assertion, reporting a test
// error when the index is out of range.
func stepOrError(t *testing.T, result Result, index int, assertion string) (curve.Step, bool) {
	t.Helper()
	st, ok := result.step(index)
	if !ok {
		t.Errorf("%s: step %d not in curve (%d steps)", assertion, index, result.Steps())
	}
	return st, ok
}

// AssertEstimateNear asserts the treatment-effect estimate at a step lands
// within tol of want.
func AssertEstimateNear(t *testing.T, result Result, index int, want, tol float64) {
	t.Helper()
	st, ok := stepOrError(t, result, index, "AssertEstimateNear")
	if !ok {
		return
	}
	if got := st.Estimate.ATE; math.Abs(got-want) > tol {
		t.Errorf("AssertEstimateNear: step %d: estimate %.4f not within %.4f of %.4f", index, got, tol, want)
	}
}

// AssertEstimateTrend asserts the estimate moves toward want between two
// steps: the estimate at step to sits strictly closer to want than the
// estimate at step from.
func AssertEstimateTrend(t *testing.T, result Result, want float64, from, to int) {
	t.Helper()
	a, okA := stepOrError(t, result, from, "AssertEstimateTrend")
	b, okB := stepOrError(t, result, to, "AssertEstimateTrend")
	if !okA || !okB {
		return
	}
	distFrom := math.Abs(a.Estimate.ATE - want)
	distTo := math.Abs(b.Estimate.ATE - want)
	if distTo >= distFrom {
		t.Errorf("AssertEstimateTrend: step %d estimate %.4f (off by %.4f) no closer to %.4f than step %d estimate %.4f (off by %.4f)",
			to, b.Estimate.ATE, distTo, want, from, a.Estimate.ATE, distFrom)
	}
}

// AssertRobustnessGrows asserts the sensitivity statistic grows in magnitude
// between two steps: with more confounding absorbed into the controls, a
// larger degree of selection on unobservables is needed to explain the
// estimate away.
func AssertRobustnessGrows(t *testing.T, result Result, from, to int) {
	t.Helper()
	a, okA := stepOrError(t, result, from, "AssertRobustnessGrows")
	b, okB := stepOrError(t, result, to, "AssertRobustnessGrows")
	if !okA || !okB {
		return
	}
	if a.Delta.Undefined || b.Delta.Undefined {
		t.Errorf("AssertRobustnessGrows: steps %d and %d must both be defined (undefined: %v, %v)",
			from, to, a.Delta.Undefined, b.Delta.Undefined)
		return
	}
	if math.Abs(b.Delta.Delta) <= math.Abs(a.Delta.Delta) {
		t.Errorf("AssertRobustnessGrows: |delta| %.4f at step %d not above |delta| %.4f at step %d",
			math.Abs(b.Delta.Delta), to, math.Abs(a.Delta.Delta), from)
	}
}

// AssertEstimateFlat asserts every estimate in [from, to] stays within tol
// of the estimate at from.
func AssertEstimateFlat(t *testing.T, result Result, from, to int, tol float64) {
	t.Helper()
	base, ok := stepOrError(t, result, from, "AssertEstimateFlat")
	if !ok {
		return
	}
	for i := from + 1; i <= to; i++ {
		st, ok := stepOrError(t, result, i, "AssertEstimateFlat")
		if !ok {
			return
		}
		if diff := math.Abs(st.Estimate.ATE - base.Estimate.ATE); diff > tol {
			t.Errorf("AssertEstimateFlat: step %d estimate %.4f drifted %.4f from step %d estimate %.4f (tol %.4f)",
				i, st.Estimate.ATE, diff, from, base.Estimate.ATE, tol)
		}
	}
}

// AssertDeltaFlat asserts the sensitivity statistic stays within a
// multiplicative band of its value at from across [from, to].
func AssertDeltaFlat(t *testing.T, result Result, from, to int, maxRatio float64) {
	t.Helper()
	base, ok := stepOrError(t, result, from, "AssertDeltaFlat")
	if !ok {
		return
	}
	ref := math.Abs(base.Delta.Delta)
	if base.Delta.Undefined || ref == 0 {
		t.Errorf("AssertDeltaFlat: step %d has no usable reference statistic", from)
		return
	}
	for i := from + 1; i <= to; i++ {
		st, ok := stepOrError(t, result, i, "AssertDeltaFlat")
		if !ok {
			return
		}
		if st.Delta.Undefined {
			t.Errorf("AssertDeltaFlat: step %d: statistic undefined", i)
			continue
		}
		got := math.Abs(st.Delta.Delta)
		if got > ref*maxRatio || got < ref/maxRatio {
			t.Errorf("AssertDeltaFlat: step %d |delta| %.4f outside [%.4f, %.4f] around step %d",
				i, got, ref/maxRatio, ref*maxRatio, from)
		}
	}
}

// AssertAllDefined asserts no step reported an undefined sensitivity
// statistic.
func AssertAllDefined(t *testing.T, result Result) {
	t.Helper()
	for _, st := range result.Curve.Steps {
		if st.Delta.Undefined {
			t.Errorf("AssertAllDefined: step %d: statistic undefined (den %.6g)", st.Index, st.Delta.Den)
		}
	}
}

// AssertNoDegenerateFolds asserts no step fell back to a constant
// propensity on any fold.
func AssertNoDegenerateFolds(t *testing.T, result Result) {
	t.Helper()
	for _, st := range result.Curve.Steps {
		if len(st.DegenerateFolds) > 0 {
			t.Errorf("AssertNoDegenerateFolds: step %d: degenerate folds %v", st.Index, st.DegenerateFolds)
		}
	}
}

// AssertRankingFindsRelevant asserts that at least minHits of the truly
// relevant covariates appear within the first len(Truth.Relevant) ranked
// positions. Boundary swaps between the weakest relevant covariate and a
// noise column are tolerated by setting minHits below the relevant count.
func AssertRankingFindsRelevant(t *testing.T, result Result, minHits int) {
	t.Helper()
	relevant := make(map[string]bool, len(result.Truth.Relevant))
	for _, name := range result.Truth.Relevant {
		relevant[name] = true
	}
	top := len(result.Truth.Relevant)
	if top > len(result.Ranked) {
		top = len(result.Ranked)
	}
	hits := 0
	for _, name := range result.Ranked[:top] {
		if relevant[name] {
			hits++
		}
	}
	if hits < minHits {
		t.Errorf("AssertRankingFindsRelevant: only %d of %d relevant covariates in the top %d (need %d): top ranked %v",
			hits, len(result.Truth.Relevant), top, minHits, result.Ranked[:top])
	}
}

// AssertShortMatchesControlled asserts the short and controlled coefficients
// recorded at a step agree within tol. Without omitted confounding the two
// specifications estimate the same quantity.
func AssertShortMatchesControlled(t *testing.T, result Result, index int, tol float64) {
	t.Helper()
	st, ok := stepOrError(t, result, index, "AssertShortMatchesControlled")
	if !ok {
		return
	}
	short, med := st.Delta.BetaShort, st.Delta.BetaMed
	if diff := math.Abs(short - med); diff > tol {
		t.Errorf("AssertShortMatchesControlled: step %d: |%.4f - %.4f| = %.4f exceeds tol %.4f",
			index, short, med, diff, tol)
	}
}
