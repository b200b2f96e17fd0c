// Package synth produces seeded synthetic datasets with known ground truth,
// used by demonstrations and the statistical scenario tests.
package synth

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/causalkit/oster/internal/constants"
	"github.com/causalkit/oster/internal/dataset"
)

// Config describes a linear-Gaussian data-generating process with a binary
// treatment. Relevant covariates enter both the outcome and, scaled by
// Confounding, the treatment propensity; irrelevant covariates are pure
// noise columns. Confounding 0 means a constant 0.5 propensity.
type Config struct {
	N           int
	ATE         float64
	Relevant    int
	Irrelevant  int
	Confounding float64
	Noise       float64
	Seed        int64

	// Outcome and Treatment name the generated columns.
	Outcome   string
	Treatment string
}

// DefaultConfig mirrors the standard demonstration scenario: a thousand
// rows, twelve relevant and three irrelevant covariates, true effect 5.
func DefaultConfig() Config {
	return Config{
		N:           1000,
		ATE:         5,
		Relevant:    12,
		Irrelevant:  3,
		Confounding: 1,
		Noise:       1,
		Seed:        constants.DefaultSynthSeed,
		Outcome:     "y",
		Treatment:   "w",
	}
}

// Truth records the data-generating process so tests can compare estimates
// against it.
type Truth struct {
	ATE          float64
	Relevant     []string
	Irrelevant   []string
	OutcomeCoefs map[string]float64
	TreatCoefs   map[string]float64
}

// Generate draws a dataset from the configured process. The same Config
// always yields the same data: all randomness comes from one generator
// seeded with cfg.Seed.
func Generate(cfg Config) (*dataset.Dataset, *Truth, error) {
	if cfg.N < 2 {
		return nil, nil, fmt.Errorf("synth: need at least 2 rows, got %d", cfg.N)
	}
	if cfg.Relevant < 0 || cfg.Irrelevant < 0 || cfg.Relevant+cfg.Irrelevant < 1 {
		return nil, nil, fmt.Errorf("synth: need at least one covariate, got %d relevant + %d irrelevant", cfg.Relevant, cfg.Irrelevant)
	}
	if cfg.Noise < 0 {
		return nil, nil, fmt.Errorf("synth: noise must not be negative, got %g", cfg.Noise)
	}
	if cfg.Outcome == "" {
		cfg.Outcome = "y"
	}
	if cfg.Treatment == "" {
		cfg.Treatment = "w"
	}

	rng := rand.New(rand.NewSource(cfg.Seed))

	total := cfg.Relevant + cfg.Irrelevant
	names := make([]string, total)
	for j := range names {
		names[j] = fmt.Sprintf("x%d", j+1)
	}

	truth := &Truth{
		ATE:          cfg.ATE,
		Relevant:     names[:cfg.Relevant],
		Irrelevant:   names[cfg.Relevant:],
		OutcomeCoefs: make(map[string]float64, cfg.Relevant),
		TreatCoefs:   make(map[string]float64, cfg.Relevant),
	}
	// Distinct, descending outcome weights so the importance ranking has
	// a single correct answer; alternating-sign treatment weights keep
	// the propensities away from the extremes.
	outW := make([]float64, cfg.Relevant)
	trtW := make([]float64, cfg.Relevant)
	for j := 0; j < cfg.Relevant; j++ {
		outW[j] = 3 * float64(cfg.Relevant-j) / float64(cfg.Relevant)
		trtW[j] = float64(cfg.Relevant-j) / float64(2*cfg.Relevant)
		if j%2 == 1 {
			trtW[j] = -trtW[j]
		}
		truth.OutcomeCoefs[names[j]] = outW[j]
		truth.TreatCoefs[names[j]] = cfg.Confounding * trtW[j]
	}

	x := make([][]float64, total)
	for j := range x {
		col := make([]float64, cfg.N)
		for i := range col {
			col[i] = rng.NormFloat64()
		}
		x[j] = col
	}

	w := make([]float64, cfg.N)
	y := make([]float64, cfg.N)
	for i := 0; i < cfg.N; i++ {
		score := 0.0
		for j := 0; j < cfg.Relevant; j++ {
			score += trtW[j] * x[j][i]
		}
		p := 1 / (1 + math.Exp(-cfg.Confounding*score))
		if rng.Float64() < p {
			w[i] = 1
		}

		v := cfg.ATE * w[i]
		for j := 0; j < cfg.Relevant; j++ {
			v += outW[j] * x[j][i]
		}
		y[i] = v + cfg.Noise*rng.NormFloat64()
	}

	cols := make(map[string][]float64, total+2)
	cols[cfg.Outcome] = y
	cols[cfg.Treatment] = w
	for j, name := range names {
		cols[name] = x[j]
	}
	order := append([]string{cfg.Outcome, cfg.Treatment}, names...)

	d, err := dataset.New(cols, order)
	if err != nil {
		return nil, nil, fmt.Errorf("synth: %w", err)
	}
	return d, truth, nil
}
