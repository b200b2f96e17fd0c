package store

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
)

// ExportToJSONL writes every stored run, steps included, to path as one
// JSON object per line.
func (s *RunStore) ExportToJSONL(ctx context.Context, path string) error {
	summaries, err := s.ListRuns(ctx, 0)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	for _, sum := range summaries {
		run, err := s.GetRun(ctx, sum.ID)
		if err != nil {
			return fmt.Errorf("failed to get run %s: %w", sum.ID, err)
		}
		if run == nil {
			continue
		}
		if err := encoder.Encode(run); err != nil {
			return fmt.Errorf("failed to encode run %s: %w", sum.ID, err)
		}
	}

	return nil
}

// ImportFromJSONL imports runs from a JSONL file. Existing runs with the
// same ID are replaced. Unparseable lines are skipped with a warning.
func (s *RunStore) ImportFromJSONL(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // No file is fine
		}
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	// Increase buffer size for long lines
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 4*1024*1024) // a run with many steps is one long line

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if line == "" {
			continue
		}

		var run Run
		if err := json.Unmarshal([]byte(line), &run); err != nil {
			// Log but continue on parse errors
			fmt.Fprintf(os.Stderr, "warning: failed to parse line %d: %v\n", lineNum, err)
			continue
		}

		if err := s.SaveRun(ctx, &run); err != nil {
			return fmt.Errorf("failed to import run %s: %w", run.ID, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scanner error: %w", err)
	}

	return nil
}
