package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver
)

// RunStore persists runs to a SQLite database at <dir>/oster.db.
type RunStore struct {
	mu     sync.RWMutex
	db     *sql.DB
	dir    string
	dbPath string
}

// NewRunStore opens the results database under dir, creating the directory
// and schema if needed.
func NewRunStore(dir string) (*RunStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dir, "oster.db")

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(1) // SQLite works best with single writer

	if err := InitSchema(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &RunStore{db: db, dir: dir, dbPath: dbPath}, nil
}

// Dir returns the data directory this store lives in.
func (s *RunStore) Dir() string {
	return s.dir
}

// SaveRun persists a run and its steps in one transaction. A missing ID is
// assigned a fresh UUID and a zero CreatedAt is set to now; both mutations
// are visible to the caller. Saving an existing ID replaces the run and all
// its steps.
func (s *RunStore) SaveRun(ctx context.Context, run *Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if run == nil {
		return fmt.Errorf("run is required")
	}
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO runs (id, created_at, dataset, data_hash, n, outcome, treatment, beta_hyp, r_max, seed, config)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.CreatedAt.Format(time.RFC3339Nano), run.Dataset, nullString(run.DataHash), run.N,
		run.Outcome, run.Treatment, run.BetaHyp, run.RMax, run.Seed, nullString(run.Config)); err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	// Replace any existing steps for this run
	if _, err := tx.ExecContext(ctx, `DELETE FROM steps WHERE run_id = ?`, run.ID); err != nil {
		return fmt.Errorf("failed to clear steps: %w", err)
	}

	for _, step := range run.Steps {
		controlsJSON, err := json.Marshal(step.Controls)
		if err != nil {
			return fmt.Errorf("failed to marshal controls: %w", err)
		}

		var momentsJSON []byte
		if step.Moments != nil {
			momentsJSON, err = json.Marshal(step.Moments)
			if err != nil {
				return fmt.Errorf("failed to marshal moments: %w", err)
			}
		}

		var degenerateJSON []byte
		if len(step.DegenerateFolds) > 0 {
			degenerateJSON, err = json.Marshal(step.DegenerateFolds)
			if err != nil {
				return fmt.Errorf("failed to marshal degenerate folds: %w", err)
			}
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO steps (run_id, idx, controls, ate, se, r2, delta, undefined, moments, degenerate_folds)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, run.ID, step.Index, string(controlsJSON), step.ATE, step.SE, step.R2, step.Delta,
			boolToInt(step.Undefined), nullBytes(momentsJSON), nullBytes(degenerateJSON)); err != nil {
			return fmt.Errorf("failed to insert step %d: %w", step.Index, err)
		}
	}

	return tx.Commit()
}

// GetRun retrieves a run with its steps in index order. Returns nil if not
// found.
func (s *RunStore) GetRun(ctx context.Context, id string) (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		createdAt        string
		dataHash, config sql.NullString
	)
	run := &Run{}

	err := s.db.QueryRowContext(ctx, `
		SELECT id, created_at, dataset, data_hash, n, outcome, treatment, beta_hyp, r_max, seed, config
		FROM runs WHERE id = ?
	`, id).Scan(&run.ID, &createdAt, &run.Dataset, &dataHash, &run.N,
		&run.Outcome, &run.Treatment, &run.BetaHyp, &run.RMax, &run.Seed, &config)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	run.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse run timestamp: %w", err)
	}
	run.DataHash = dataHash.String
	run.Config = config.String

	rows, err := s.db.QueryContext(ctx, `
		SELECT idx, controls, ate, se, r2, delta, undefined, moments, degenerate_folds
		FROM steps WHERE run_id = ? ORDER BY idx
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query steps: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		step, err := scanStep(rows)
		if err != nil {
			return nil, err
		}
		run.Steps = append(run.Steps, step)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate steps: %w", err)
	}

	return run, nil
}

// ListRuns returns summaries of stored runs, newest first. A limit of 0
// returns everything.
func (s *RunStore) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, created_at, dataset, n, outcome, treatment,
		       (SELECT COUNT(*) FROM steps WHERE steps.run_id = runs.id) AS step_count
		FROM runs ORDER BY created_at DESC
	`
	args := []interface{}{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var summaries []RunSummary
	for rows.Next() {
		var sum RunSummary
		var createdAt string
		if err := rows.Scan(&sum.ID, &createdAt, &sum.Dataset, &sum.N,
			&sum.Outcome, &sum.Treatment, &sum.Steps); err != nil {
			return nil, fmt.Errorf("failed to scan run summary: %w", err)
		}
		sum.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse run timestamp: %w", err)
		}
		summaries = append(summaries, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}

	return summaries, nil
}

// DeleteRun removes a run and its steps. Deleting an unknown ID is an error.
func (s *RunStore) DeleteRun(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("run not found: %s", id)
	}

	return nil
}

// Close closes the underlying database.
func (s *RunStore) Close() error {
	return s.db.Close()
}

// scanStep reads one steps row.
func scanStep(rows *sql.Rows) (StepRecord, error) {
	var (
		step                     StepRecord
		undefined                int
		momentsJSON, degenerates sql.NullString
		controlsJSON             string
	)

	if err := rows.Scan(&step.Index, &controlsJSON, &step.ATE, &step.SE, &step.R2,
		&step.Delta, &undefined, &momentsJSON, &degenerates); err != nil {
		return StepRecord{}, fmt.Errorf("failed to scan step: %w", err)
	}

	step.Undefined = undefined != 0

	if err := json.Unmarshal([]byte(controlsJSON), &step.Controls); err != nil {
		return StepRecord{}, fmt.Errorf("failed to unmarshal controls: %w", err)
	}
	if momentsJSON.Valid {
		if err := json.Unmarshal([]byte(momentsJSON.String), &step.Moments); err != nil {
			return StepRecord{}, fmt.Errorf("failed to unmarshal moments: %w", err)
		}
	}
	if degenerates.Valid {
		if err := json.Unmarshal([]byte(degenerates.String), &step.DegenerateFolds); err != nil {
			return StepRecord{}, fmt.Errorf("failed to unmarshal degenerate folds: %w", err)
		}
	}

	return step, nil
}

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullBytes(b []byte) sql.NullString {
	if len(b) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: string(b), Valid: true}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
