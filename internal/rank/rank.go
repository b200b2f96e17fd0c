// Package rank provides the default feature-importance ranker: covariates
// ordered by the absolute magnitude of their standardized multivariate OLS
// coefficients, once against the outcome and once against the treatment.
package rank

import (
	"fmt"
	"math"
	"sort"

	"github.com/causalkit/oster/internal/dataset"
	"github.com/causalkit/oster/internal/model"
	"github.com/causalkit/oster/internal/vecmath"
)

// Ranking holds both importance orderings, each descending.
type Ranking struct {
	ByOutcome   []string
	ByTreatment []string
}

// Ranker orders covariates by predictive importance. Implementations return
// descending orderings, break ties by original covariate order, and exclude
// covariates whose coefficient is undefined.
type Ranker interface {
	Rank(d *dataset.Dataset, covariates []string, outcome, treatment string) (*Ranking, error)
}

// OLSRanker ranks by standardized joint OLS coefficients: every covariate is
// z-scored, the target is regressed on all of them at once, and the absolute
// fitted weights order the covariates. Constant covariates have no
// standardized coefficient and drop out.
type OLSRanker struct {
	// Ridge is passed to the linear solve's singular-system retry.
	// Zero means the package default.
	Ridge float64
}

func (r OLSRanker) Rank(d *dataset.Dataset, covariates []string, outcome, treatment string) (*Ranking, error) {
	if len(covariates) == 0 {
		return nil, fmt.Errorf("rank: no covariates")
	}
	for _, name := range covariates {
		if name == outcome || name == treatment {
			return nil, fmt.Errorf("rank: covariate %q already plays another role", name)
		}
	}

	byOutcome, err := r.rankAgainst(d, covariates, outcome)
	if err != nil {
		return nil, fmt.Errorf("rank: by outcome: %w", err)
	}
	byTreatment, err := r.rankAgainst(d, covariates, treatment)
	if err != nil {
		return nil, fmt.Errorf("rank: by treatment: %w", err)
	}
	return &Ranking{ByOutcome: byOutcome, ByTreatment: byTreatment}, nil
}

func (r OLSRanker) rankAgainst(d *dataset.Dataset, covariates []string, target string) ([]string, error) {
	y, err := d.Column(target)
	if err != nil {
		return nil, err
	}

	kept := make([]string, 0, len(covariates))
	cols := make([][]float64, 0, len(covariates))
	for _, name := range covariates {
		col, err := d.Column(name)
		if err != nil {
			return nil, err
		}
		sd := vecmath.StdDev(col)
		if sd == 0 {
			continue
		}
		mean := vecmath.Mean(col)
		z := make([]float64, len(col))
		for i, v := range col {
			z[i] = (v - mean) / sd
		}
		kept = append(kept, name)
		cols = append(cols, z)
	}
	if len(kept) == 0 {
		return nil, fmt.Errorf("every covariate is constant")
	}

	x := make([][]float64, d.Len())
	for i := range x {
		row := make([]float64, len(cols))
		for j, col := range cols {
			row[j] = col[i]
		}
		x[i] = row
	}
	coef, err := model.FitLinear(x, y, r.Ridge)
	if err != nil {
		return nil, err
	}

	type scored struct {
		name  string
		score float64
	}
	ranked := make([]scored, 0, len(kept))
	for j, name := range kept {
		s := math.Abs(coef[j])
		if math.IsNaN(s) {
			continue
		}
		ranked = append(ranked, scored{name: name, score: s})
	}
	// Stable sort: equal scores keep their original covariate order.
	sort.SliceStable(ranked, func(a, b int) bool {
		return ranked[a].score > ranked[b].score
	})

	out := make([]string, len(ranked))
	for i, s := range ranked {
		out[i] = s.name
	}
	return out, nil
}
