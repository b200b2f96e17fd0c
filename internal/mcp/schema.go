package mcp

import (
	"time"
)

// GenerateInput defines the input for the oster_generate tool.
type GenerateInput struct {
	Path        string  `json:"path" jsonschema:"Output CSV path relative to the project root"`
	Rows        int     `json:"rows,omitempty" jsonschema:"Number of rows (default: 1000)"`
	Relevant    int     `json:"relevant,omitempty" jsonschema:"Covariates that drive both outcome and treatment (default: 12)"`
	Irrelevant  int     `json:"irrelevant,omitempty" jsonschema:"Pure-noise covariates (default: 3)"`
	ATE         float64 `json:"ate,omitempty" jsonschema:"True average treatment effect (default: 5)"`
	Confounding float64 `json:"confounding,omitempty" jsonschema:"Strength of covariate influence on treatment assignment (default: 1)"`
	Noise       float64 `json:"noise,omitempty" jsonschema:"Outcome noise standard deviation (default: 1)"`
	Seed        int64   `json:"seed,omitempty" jsonschema:"Generator seed (default: 42)"`
}

// GenerateOutput defines the output for the oster_generate tool.
type GenerateOutput struct {
	Path       string   `json:"path" jsonschema:"Path the CSV was written to"`
	Rows       int      `json:"rows" jsonschema:"Rows written"`
	Columns    int      `json:"columns" jsonschema:"Columns written, outcome and treatment included"`
	Relevant   []string `json:"relevant" jsonschema:"Names of the signal-bearing covariates"`
	Irrelevant []string `json:"irrelevant,omitempty" jsonschema:"Names of the noise covariates"`
	TrueATE    float64  `json:"true_ate" jsonschema:"Effect the generator built in"`
	Message    string   `json:"message" jsonschema:"Human-readable result message"`
}

// RunInput defines the input for the oster_run tool.
type RunInput struct {
	Data      string   `json:"data" jsonschema:"Input CSV path relative to the project root"`
	Outcome   string   `json:"outcome" jsonschema:"Outcome column name"`
	Treatment string   `json:"treatment" jsonschema:"Binary treatment column name"`
	Controls  []string `json:"controls,omitempty" jsonschema:"Candidate control columns (default: every other column)"`
	RankBy    string   `json:"rank_by,omitempty" jsonschema:"Importance ranking to walk: 'outcome' or 'treatment' (default: 'outcome')"`
	MaxSteps  int      `json:"max_steps,omitempty" jsonschema:"Cap on curve steps (default: all ranked controls)"`
	Folds     int      `json:"folds,omitempty" jsonschema:"Cross-fitting folds (default: from config)"`
	BetaHyp   float64  `json:"beta_hyp,omitempty" jsonschema:"Hypothetical fully-controlled coefficient (default: from config)"`
	RMax      float64  `json:"r_max,omitempty" jsonschema:"R-squared ceiling of the hypothetical full model (default: from config)"`
	Seed      int64    `json:"seed,omitempty" jsonschema:"Fold-assignment seed (default: from config)"`
	NoSave    bool     `json:"no_save,omitempty" jsonschema:"Skip persisting the run (default: false)"`
}

// StepSummary is the per-specification view returned by run and show.
type StepSummary struct {
	Index     int      `json:"index"`
	Controls  []string `json:"controls"`
	ATE       float64  `json:"ate"`
	SE        float64  `json:"se"`
	R2        float64  `json:"r2"`
	Delta     float64  `json:"delta"`
	Undefined bool     `json:"undefined,omitempty"`
}

// RunOutput defines the output for the oster_run tool.
type RunOutput struct {
	RunID   string        `json:"run_id,omitempty" jsonschema:"Identifier of the persisted run; empty when no_save was set"`
	N       int           `json:"n" jsonschema:"Rows in the dataset"`
	Ranked  []string      `json:"ranked" jsonschema:"Controls in the order the curve added them"`
	Steps   []StepSummary `json:"steps" jsonschema:"One fitted specification per ranked prefix"`
	Message string        `json:"message" jsonschema:"Human-readable result message"`
}

// RunsInput defines the input for the oster_runs tool.
type RunsInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"Maximum runs to return, newest first (default: 20)"`
}

// RunListItem provides a list view of a persisted run.
type RunListItem struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Dataset   string    `json:"dataset"`
	Outcome   string    `json:"outcome"`
	Treatment string    `json:"treatment"`
	N         int       `json:"n"`
	Steps     int       `json:"steps"`
}

// RunsOutput defines the output for the oster_runs tool.
type RunsOutput struct {
	Runs  []RunListItem `json:"runs" jsonschema:"Persisted runs, newest first"`
	Count int           `json:"count" jsonschema:"Number of runs returned"`
}

// ShowInput defines the input for the oster_show tool.
type ShowInput struct {
	ID string `json:"id" jsonschema:"Run identifier"`
}

// ShowOutput defines the output for the oster_show tool.
type ShowOutput struct {
	ID        string        `json:"id"`
	CreatedAt time.Time     `json:"created_at"`
	Dataset   string        `json:"dataset"`
	DataHash  string        `json:"data_hash,omitempty"`
	Outcome   string        `json:"outcome"`
	Treatment string        `json:"treatment"`
	N         int           `json:"n"`
	BetaHyp   float64       `json:"beta_hyp"`
	RMax      float64       `json:"r_max"`
	Seed      int64         `json:"seed"`
	Steps     []StepSummary `json:"steps"`
}
