// Package store persists specification-curve runs and their per-step
// results to a SQLite database under the project data directory.
package store

import (
	"time"

	"github.com/causalkit/oster/internal/curve"
	"github.com/causalkit/oster/internal/delta"
)

// Run is one persisted curve invocation: the analysis settings it ran with
// and the ordered step results it produced.
type Run struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`

	// Dataset names the analyzed source (a CSV path or "synthetic").
	// DataHash fingerprints its contents so stale runs are detectable.
	Dataset  string `json:"dataset"`
	DataHash string `json:"data_hash,omitempty"`
	N        int    `json:"n"`

	Outcome   string  `json:"outcome"`
	Treatment string  `json:"treatment"`
	BetaHyp   float64 `json:"beta_hyp"`
	RMax      float64 `json:"r_max"`
	Seed      int64   `json:"seed"`

	// Config is a JSON snapshot of the full analysis settings.
	Config string `json:"config,omitempty"`

	Steps []StepRecord `json:"steps,omitempty"`
}

// StepRecord is one persisted specification step. Moments retains the full
// numeric intermediates of the sensitivity statistic for later inspection.
type StepRecord struct {
	Index           int             `json:"index"`
	Controls        []string        `json:"controls"`
	ATE             float64         `json:"ate"`
	SE              float64         `json:"se"`
	R2              float64         `json:"r2"`
	Delta           float64         `json:"delta"`
	Undefined       bool            `json:"undefined,omitempty"`
	Moments         *delta.Estimate `json:"moments,omitempty"`
	DegenerateFolds []int           `json:"degenerate_folds,omitempty"`
}

// RunSummary is the step-free view used for listings.
type RunSummary struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Dataset   string    `json:"dataset"`
	N         int       `json:"n"`
	Outcome   string    `json:"outcome"`
	Treatment string    `json:"treatment"`
	Steps     int       `json:"steps"`
}

// StepsFromCurve flattens a fitted curve into persistable step records.
func StepsFromCurve(c *curve.Curve) []StepRecord {
	if c == nil {
		return nil
	}
	records := make([]StepRecord, 0, len(c.Steps))
	for _, s := range c.Steps {
		rec := StepRecord{
			Index:    s.Index,
			Controls: append([]string(nil), s.Controls...),
		}
		if len(s.DegenerateFolds) > 0 {
			rec.DegenerateFolds = append([]int(nil), s.DegenerateFolds...)
		}
		if s.Estimate != nil {
			rec.ATE = s.Estimate.ATE
			rec.SE = s.Estimate.SE
			rec.R2 = s.Estimate.R2
		}
		if s.Delta != nil {
			rec.Delta = s.Delta.Delta
			rec.Undefined = s.Delta.Undefined
			rec.Moments = s.Delta
		}
		records = append(records, rec)
	}
	return records
}
