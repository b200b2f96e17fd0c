package dml

import (
	"fmt"
	"runtime"

	"github.com/causalkit/oster/internal/constants"
	"github.com/causalkit/oster/internal/dataset"
	"github.com/causalkit/oster/internal/model"
)

// Config describes one treatment-effect estimation: which columns play which
// role, how to cross-fit, and which model families learn the nuisances.
type Config struct {
	// Outcome and Treatment name the dataset columns; Treatment must be
	// binary 0/1. Controls are the covariate columns for this
	// specification.
	Outcome   string
	Treatment string
	Controls  []string

	// Folds is the number of cross-fitting folds (K >= 2). Propensity
	// predictions are clipped to [TrimLower, TrimUpper].
	Folds     int
	TrimLower float64
	TrimUpper float64

	// Workers bounds the per-fold fitting pool. Zero means NumCPU.
	Workers int

	// OutcomeModel learns E[Y|controls]; TreatmentModel learns
	// P(W=1|controls). Fresh instances are created per fold.
	OutcomeModel   model.RegressorTemplate
	TreatmentModel model.ClassifierTemplate
}

// DefaultConfig returns a Config with package defaults for everything except
// the column roles, which have no sensible default.
func DefaultConfig() Config {
	return Config{
		Folds:          constants.DefaultFolds,
		TrimLower:      constants.DefaultTrimLower,
		TrimUpper:      constants.DefaultTrimUpper,
		Workers:        runtime.NumCPU(),
		OutcomeModel:   model.LinearTemplate{},
		TreatmentModel: model.LogisticTemplate{},
	}
}

// Validate checks the configuration against the dataset. It returns a
// *ConfigError describing the first problem found, before any fitting.
func (c Config) Validate(d *dataset.Dataset) error {
	if d == nil {
		return &ConfigError{Field: "Dataset", Reason: "required"}
	}
	if c.Outcome == "" {
		return &ConfigError{Field: "Outcome", Reason: "required"}
	}
	if c.Treatment == "" {
		return &ConfigError{Field: "Treatment", Reason: "required"}
	}
	if c.Outcome == c.Treatment {
		return &ConfigError{Field: "Treatment", Reason: "must differ from outcome"}
	}
	if !d.Has(c.Outcome) {
		return &ConfigError{Field: "Outcome", Reason: fmt.Sprintf("column %q not in dataset", c.Outcome)}
	}
	if !d.Has(c.Treatment) {
		return &ConfigError{Field: "Treatment", Reason: fmt.Sprintf("column %q not in dataset", c.Treatment)}
	}
	if err := d.CheckBinary(c.Treatment); err != nil {
		return &ConfigError{Field: "Treatment", Reason: err.Error()}
	}

	if len(c.Controls) == 0 {
		return &ConfigError{Field: "Controls", Reason: "at least one control required"}
	}
	seen := make(map[string]bool, len(c.Controls))
	for _, name := range c.Controls {
		if name == c.Outcome || name == c.Treatment {
			return &ConfigError{Field: "Controls", Reason: fmt.Sprintf("column %q already plays another role", name)}
		}
		if seen[name] {
			return &ConfigError{Field: "Controls", Reason: fmt.Sprintf("column %q listed twice", name)}
		}
		seen[name] = true
		if !d.Has(name) {
			return &ConfigError{Field: "Controls", Reason: fmt.Sprintf("column %q not in dataset", name)}
		}
	}

	if c.Folds < 2 {
		return &ConfigError{Field: "Folds", Reason: fmt.Sprintf("need at least 2, got %d", c.Folds)}
	}
	if c.TrimLower <= 0 || c.TrimUpper >= 1 || c.TrimLower >= c.TrimUpper {
		return &ConfigError{Field: "TrimLower", Reason: fmt.Sprintf("need 0 < lower < upper < 1, got [%g, %g]", c.TrimLower, c.TrimUpper)}
	}
	if c.Workers < 0 {
		return &ConfigError{Field: "Workers", Reason: fmt.Sprintf("must not be negative, got %d", c.Workers)}
	}
	if c.OutcomeModel == nil {
		return &ConfigError{Field: "OutcomeModel", Reason: "required"}
	}
	if c.TreatmentModel == nil {
		return &ConfigError{Field: "TreatmentModel", Reason: "required"}
	}
	return nil
}

// workers resolves the effective pool size.
func (c Config) workers() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.NumCPU()
}
