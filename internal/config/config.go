// Package config provides unified configuration loading for oster.
// It supports loading from YAML files and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/causalkit/oster/internal/constants"
	"github.com/causalkit/oster/internal/curve"
	"github.com/causalkit/oster/internal/delta"
	"github.com/causalkit/oster/internal/dml"
	"github.com/causalkit/oster/internal/model"
)

// Config contains all oster configuration settings.
type Config struct {
	// Analysis contains defaults for cross-fitting and the sensitivity
	// statistic, applied to every run unless overridden per invocation.
	Analysis AnalysisConfig `json:"analysis" yaml:"analysis"`

	// Logging contains settings for operational and trace logging.
	Logging LoggingConfig `json:"logging" yaml:"logging"`

	// Store contains settings for result persistence.
	Store StoreConfig `json:"store" yaml:"store"`
}

// AnalysisConfig configures how treatment effects are estimated.
type AnalysisConfig struct {
	// Folds is the number of cross-fitting folds.
	Folds int `json:"folds" yaml:"folds"`

	// TrimLower is the lower clip bound for estimated treatment
	// probabilities. Must satisfy 0 < TrimLower < TrimUpper < 1.
	TrimLower float64 `json:"trim_lower" yaml:"trim_lower"`

	// TrimUpper is the upper clip bound for estimated treatment
	// probabilities.
	TrimUpper float64 `json:"trim_upper" yaml:"trim_upper"`

	// RMax is the hypothesized maximum R-squared an outcome model would
	// reach with all confounders observed. Range: (0, 1].
	RMax float64 `json:"r_max" yaml:"r_max"`

	// BetaHyp is the hypothesized treatment coefficient under full
	// controls. Zero tests whether confounding could explain the whole
	// estimated effect.
	BetaHyp float64 `json:"beta_hyp" yaml:"beta_hyp"`

	// Workers bounds concurrent per-fold model fits. 0 means one per CPU.
	Workers int `json:"workers,omitempty" yaml:"workers,omitempty"`

	// Seed drives fold assignment and forest growth so that repeated
	// runs over the same data reproduce exactly.
	Seed int64 `json:"seed" yaml:"seed"`

	// OutcomeModel selects the outcome learner: "linear" (default) or
	// "forest".
	OutcomeModel string `json:"outcome_model" yaml:"outcome_model"`

	// TreatmentModel selects the propensity learner: "logistic" (default)
	// or "forest".
	TreatmentModel string `json:"treatment_model" yaml:"treatment_model"`

	// Forest configures tree-ensemble learners when either model selects
	// "forest".
	Forest ForestConfig `json:"forest,omitempty" yaml:"forest,omitempty"`
}

// ForestConfig configures the random-forest nuisance learners.
type ForestConfig struct {
	// Trees is the ensemble size.
	Trees int `json:"trees" yaml:"trees"`

	// MaxDepth bounds the depth of each tree.
	MaxDepth int `json:"max_depth" yaml:"max_depth"`

	// MinLeaf is the minimum number of samples in a leaf.
	MinLeaf int `json:"min_leaf" yaml:"min_leaf"`
}

// LoggingConfig configures oster's logging behavior.
type LoggingConfig struct {
	// Level sets the log verbosity: "info" (default), "debug", or "trace".
	// "debug" enables per-step progress logging and step records in
	// <store dir>/trace.jsonl. "trace" additionally includes the full
	// numeric intermediates of every delta computation.
	Level string `json:"level" yaml:"level"`
}

// StoreConfig configures result persistence.
type StoreConfig struct {
	// Dir is the directory holding the results database, trace logs, and
	// exports. A relative path is resolved against the working directory.
	Dir string `json:"dir" yaml:"dir"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Analysis: AnalysisConfig{
			Folds:          constants.DefaultFolds,
			TrimLower:      constants.DefaultTrimLower,
			TrimUpper:      constants.DefaultTrimUpper,
			RMax:           constants.DefaultRMax,
			BetaHyp:        constants.DefaultBetaHyp,
			Seed:           constants.DefaultSeed,
			OutcomeModel:   "linear",
			TreatmentModel: "logistic",
			Forest: ForestConfig{
				Trees:    constants.DefaultForestTrees,
				MaxDepth: constants.DefaultForestMaxDepth,
				MinLeaf:  constants.DefaultForestMinLeaf,
			},
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Store: StoreConfig{
			Dir: ".oster",
		},
	}
}

// Load loads configuration from the default locations and environment variables.
// Order: defaults -> ~/.oster/config.yaml -> environment variables
func Load() (*Config, error) {
	config := Default()

	// Try to load from default config file
	homeDir, err := os.UserHomeDir()
	if err == nil {
		configPath := filepath.Join(homeDir, ".oster", "config.yaml")
		if _, statErr := os.Stat(configPath); statErr == nil {
			fileConfig, loadErr := LoadFromFile(configPath)
			if loadErr != nil {
				return nil, fmt.Errorf("loading config file: %w", loadErr)
			}
			config = fileConfig
		}
	}

	// Apply environment variable overrides
	applyEnvOverrides(config)

	return config, nil
}

// LoadFromFile loads configuration from a specific YAML file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	return config, nil
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Analysis.Folds < 2 {
		return fmt.Errorf("folds must be at least 2, got %d", c.Analysis.Folds)
	}

	if c.Analysis.TrimLower <= 0 || c.Analysis.TrimUpper >= 1 || c.Analysis.TrimLower >= c.Analysis.TrimUpper {
		return fmt.Errorf("trim bounds must satisfy 0 < lower < upper < 1, got [%g, %g]",
			c.Analysis.TrimLower, c.Analysis.TrimUpper)
	}

	if c.Analysis.RMax <= 0 || c.Analysis.RMax > 1 {
		return fmt.Errorf("r_max must be in (0, 1], got %g", c.Analysis.RMax)
	}

	if c.Analysis.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", c.Analysis.Workers)
	}

	validOutcome := map[string]bool{"": true, "linear": true, "forest": true}
	if !validOutcome[c.Analysis.OutcomeModel] {
		return fmt.Errorf("invalid outcome_model: %s (valid: linear, forest, or empty for default)", c.Analysis.OutcomeModel)
	}

	validTreatment := map[string]bool{"": true, "logistic": true, "forest": true}
	if !validTreatment[c.Analysis.TreatmentModel] {
		return fmt.Errorf("invalid treatment_model: %s (valid: logistic, forest, or empty for default)", c.Analysis.TreatmentModel)
	}

	if c.Analysis.OutcomeModel == "forest" || c.Analysis.TreatmentModel == "forest" {
		if c.Analysis.Forest.Trees < 1 {
			return fmt.Errorf("forest trees must be at least 1, got %d", c.Analysis.Forest.Trees)
		}
		if c.Analysis.Forest.MaxDepth < 1 {
			return fmt.Errorf("forest max_depth must be at least 1, got %d", c.Analysis.Forest.MaxDepth)
		}
		if c.Analysis.Forest.MinLeaf < 1 {
			return fmt.Errorf("forest min_leaf must be at least 1, got %d", c.Analysis.Forest.MinLeaf)
		}
	}

	validLevels := map[string]bool{"info": true, "debug": true, "trace": true}
	if c.Logging.Level != "" && !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (valid: info, debug, trace, or empty for default)", c.Logging.Level)
	}

	return nil
}

// OutcomeTemplate returns the configured outcome learner template.
// An empty kind falls back to ordinary least squares.
func (c *Config) OutcomeTemplate() model.RegressorTemplate {
	if c.Analysis.OutcomeModel == "forest" {
		return c.forestTemplate()
	}
	return model.LinearTemplate{}
}

// TreatmentTemplate returns the configured propensity learner template.
// An empty kind falls back to logistic regression.
func (c *Config) TreatmentTemplate() model.ClassifierTemplate {
	if c.Analysis.TreatmentModel == "forest" {
		return c.forestTemplate()
	}
	return model.LogisticTemplate{}
}

func (c *Config) forestTemplate() model.ForestTemplate {
	return model.ForestTemplate{
		Trees:    c.Analysis.Forest.Trees,
		MaxDepth: c.Analysis.Forest.MaxDepth,
		MinLeaf:  c.Analysis.Forest.MinLeaf,
		Seed:     c.Analysis.Seed,
	}
}

// DMLConfig builds a cross-fitting configuration for the named outcome,
// treatment, and control columns.
func (c *Config) DMLConfig(outcome, treatment string, controls []string) dml.Config {
	return dml.Config{
		Outcome:        outcome,
		Treatment:      treatment,
		Controls:       controls,
		Folds:          c.Analysis.Folds,
		TrimLower:      c.Analysis.TrimLower,
		TrimUpper:      c.Analysis.TrimUpper,
		Workers:        c.Analysis.Workers,
		OutcomeModel:   c.OutcomeTemplate(),
		TreatmentModel: c.TreatmentTemplate(),
	}
}

// DeltaParams builds sensitivity parameters from the analysis settings.
func (c *Config) DeltaParams() delta.Params {
	p := delta.DefaultParams()
	p.BetaHyp = c.Analysis.BetaHyp
	p.RMax = c.Analysis.RMax
	return p
}

// CurveConfig builds a specification-curve run over the ranked control
// names. Per-invocation fields (MaxSteps, Parallel, RunID) are left zero
// for the caller to fill.
func (c *Config) CurveConfig(outcome, treatment string, ranked []string) curve.RunConfig {
	return curve.RunConfig{
		Ranked: ranked,
		Seed:   c.Analysis.Seed,
		DML:    c.DMLConfig(outcome, treatment, ranked),
		Delta:  c.DeltaParams(),
	}
}

// applyEnvOverrides applies environment variable overrides to the config.
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("OSTER_FOLDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Analysis.Folds = n
		}
	}

	if v := os.Getenv("OSTER_TRIM_LOWER"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			config.Analysis.TrimLower = f
		}
	}

	if v := os.Getenv("OSTER_TRIM_UPPER"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			config.Analysis.TrimUpper = f
		}
	}

	if v := os.Getenv("OSTER_R_MAX"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			config.Analysis.RMax = f
		}
	}

	if v := os.Getenv("OSTER_BETA_HYP"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			config.Analysis.BetaHyp = f
		}
	}

	if v := os.Getenv("OSTER_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Analysis.Workers = n
		}
	}

	if v := os.Getenv("OSTER_SEED"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			config.Analysis.Seed = n
		}
	}

	if v := os.Getenv("OSTER_OUTCOME_MODEL"); v != "" {
		config.Analysis.OutcomeModel = v
	}

	if v := os.Getenv("OSTER_TREATMENT_MODEL"); v != "" {
		config.Analysis.TreatmentModel = v
	}

	if v := os.Getenv("OSTER_FOREST_TREES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Analysis.Forest.Trees = n
		}
	}

	if v := os.Getenv("OSTER_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}

	if v := os.Getenv("OSTER_STORE_DIR"); v != "" {
		config.Store.Dir = v
	}
}
