package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/causalkit/oster/internal/store"
)

// runOutput mirrors the run command's JSON output.
type runOutput struct {
	RunID  string             `json:"run_id"`
	N      int                `json:"n"`
	Ranked []string           `json:"ranked"`
	Steps  []store.StepRecord `json:"steps"`
	Saved  bool               `json:"saved"`
}

// initProject runs 'oster init --root root' and fails the test on error.
func initProject(t *testing.T, root string) {
	t.Helper()
	rootCmd := newTestRootCmd()
	rootCmd.AddCommand(newInitCmd())
	rootCmd.SetArgs([]string{"init", "--root", root})
	rootCmd.SetOut(&bytes.Buffer{})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("init failed: %v", err)
	}
}

// runCurve runs the run command with --json and returns the decoded output.
func runCurve(t *testing.T, root, dataPath string, extra ...string) runOutput {
	t.Helper()
	var buf bytes.Buffer
	rootCmd := newTestRootCmd()
	rootCmd.AddCommand(newRunCmd())
	args := []string{
		"run", dataPath,
		"--outcome", "y", "--treatment", "w",
		"--root", root, "--json",
	}
	args = append(args, extra...)
	rootCmd.SetArgs(args)
	rootCmd.SetOut(&buf)
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	var out runOutput
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("Failed to decode run output: %v", err)
	}
	return out
}

func TestRunCmdFitsAndSavesCurve(t *testing.T) {
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)
	dataPath := writeTestData(t, tmpDir)
	initProject(t, tmpDir)

	out := runCurve(t, tmpDir, dataPath)

	if out.RunID == "" {
		t.Error("run_id is empty")
	}
	if out.N != 200 {
		t.Errorf("n = %d, want 200", out.N)
	}
	if !out.Saved {
		t.Error("saved = false, want true")
	}
	// 3 relevant + 1 irrelevant covariates, one step per prefix
	if len(out.Steps) != 4 {
		t.Fatalf("steps = %d, want 4", len(out.Steps))
	}

	// Control sets grow by exactly one covariate per step
	for i, s := range out.Steps {
		if s.Index != i+1 {
			t.Errorf("step %d has index %d", i, s.Index)
		}
		if len(s.Controls) != i+1 {
			t.Errorf("step %d has %d controls, want %d", i+1, len(s.Controls), i+1)
		}
		if i > 0 {
			prev := out.Steps[i-1].Controls
			for j, name := range prev {
				if s.Controls[j] != name {
					t.Errorf("step %d does not extend step %d: %v vs %v", i+1, i, s.Controls, prev)
				}
			}
		}
	}

	// With all controls in, the estimate should be near the true effect of 5
	final := out.Steps[len(out.Steps)-1]
	if final.ATE < 3.5 || final.ATE > 6.5 {
		t.Errorf("final ATE = %v, want near 5", final.ATE)
	}
	if final.SE <= 0 {
		t.Errorf("final SE = %v, want positive", final.SE)
	}
}

func TestRunCmdNoSave(t *testing.T) {
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)
	dataPath := writeTestData(t, tmpDir)

	// No init: --no-save must work without a data directory
	out := runCurve(t, tmpDir, dataPath, "--no-save", "--max-steps", "2")

	if out.Saved {
		t.Error("saved = true, want false")
	}
	if len(out.Steps) != 2 {
		t.Errorf("steps = %d, want 2 with --max-steps 2", len(out.Steps))
	}
	if _, err := os.Stat(filepath.Join(tmpDir, ".oster")); !os.IsNotExist(err) {
		t.Error(".oster created despite --no-save")
	}
}

func TestRunsAndShowCmds(t *testing.T) {
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)
	dataPath := writeTestData(t, tmpDir)
	initProject(t, tmpDir)

	out := runCurve(t, tmpDir, dataPath)

	// List runs
	var runsBuf bytes.Buffer
	runsCmd := newTestRootCmd()
	runsCmd.AddCommand(newRunsCmd())
	runsCmd.SetArgs([]string{"runs", "--root", tmpDir, "--json"})
	runsCmd.SetOut(&runsBuf)
	if err := runsCmd.Execute(); err != nil {
		t.Fatalf("runs failed: %v", err)
	}

	var runsOut struct {
		Runs  []store.RunSummary `json:"runs"`
		Count int                `json:"count"`
	}
	if err := json.Unmarshal(runsBuf.Bytes(), &runsOut); err != nil {
		t.Fatalf("Failed to decode runs output: %v", err)
	}
	if runsOut.Count != 1 {
		t.Fatalf("count = %d, want 1", runsOut.Count)
	}
	if runsOut.Runs[0].ID != out.RunID {
		t.Errorf("listed ID = %q, want %q", runsOut.Runs[0].ID, out.RunID)
	}
	if runsOut.Runs[0].Steps != len(out.Steps) {
		t.Errorf("listed steps = %d, want %d", runsOut.Runs[0].Steps, len(out.Steps))
	}

	// Show the run
	var showBuf bytes.Buffer
	showCmd := newTestRootCmd()
	showCmd.AddCommand(newShowCmd())
	showCmd.SetArgs([]string{"show", out.RunID, "--root", tmpDir, "--json"})
	showCmd.SetOut(&showBuf)
	if err := showCmd.Execute(); err != nil {
		t.Fatalf("show failed: %v", err)
	}

	var shown store.Run
	if err := json.Unmarshal(showBuf.Bytes(), &shown); err != nil {
		t.Fatalf("Failed to decode show output: %v", err)
	}
	if shown.ID != out.RunID {
		t.Errorf("shown ID = %q, want %q", shown.ID, out.RunID)
	}
	if shown.DataHash == "" {
		t.Error("shown run has no data hash")
	}
	if len(shown.Steps) != len(out.Steps) {
		t.Fatalf("shown steps = %d, want %d", len(shown.Steps), len(out.Steps))
	}

	// Persisted estimates match the in-memory run
	for i, s := range shown.Steps {
		if math.Abs(s.ATE-out.Steps[i].ATE) > 1e-12 {
			t.Errorf("step %d persisted ATE = %v, want %v", s.Index, s.ATE, out.Steps[i].ATE)
		}
	}
}

func TestShowCmdNotFound(t *testing.T) {
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)
	initProject(t, tmpDir)

	var buf bytes.Buffer
	showCmd := newTestRootCmd()
	showCmd.AddCommand(newShowCmd())
	showCmd.SetArgs([]string{"show", "no-such-run", "--root", tmpDir, "--json"})
	showCmd.SetOut(&buf)
	if err := showCmd.Execute(); err != nil {
		t.Fatalf("show failed: %v", err)
	}

	var out map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("Failed to decode show output: %v", err)
	}
	if out["error"] == nil {
		t.Error("expected error field for missing run")
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)
	dataPath := writeTestData(t, tmpDir)
	initProject(t, tmpDir)

	out := runCurve(t, tmpDir, dataPath)

	// Export all runs to JSONL
	exportPath := filepath.Join(tmpDir, "backup.jsonl")
	exportCmd := newTestRootCmd()
	exportCmd.AddCommand(newExportCmd())
	exportCmd.SetArgs([]string{"export", "--root", tmpDir, "--out", exportPath})
	exportCmd.SetOut(&bytes.Buffer{})
	if err := exportCmd.Execute(); err != nil {
		t.Fatalf("export failed: %v", err)
	}

	data, err := os.ReadFile(exportPath)
	if err != nil {
		t.Fatalf("Failed to read export: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 1 {
		t.Fatalf("export has %d lines, want 1", len(lines))
	}

	// Import into a fresh project
	otherRoot := filepath.Join(tmpDir, "other")
	if err := os.MkdirAll(otherRoot, 0755); err != nil {
		t.Fatalf("Failed to create second root: %v", err)
	}
	initProject(t, otherRoot)

	importCmd := newTestRootCmd()
	importCmd.AddCommand(newImportCmd())
	importCmd.SetArgs([]string{"import", exportPath, "--root", otherRoot})
	importCmd.SetOut(&bytes.Buffer{})
	if err := importCmd.Execute(); err != nil {
		t.Fatalf("import failed: %v", err)
	}

	st, err := store.NewRunStore(filepath.Join(otherRoot, ".oster"))
	if err != nil {
		t.Fatalf("Failed to open imported store: %v", err)
	}
	defer st.Close()
	imported, err := st.GetRun(context.Background(), out.RunID)
	if err != nil {
		t.Fatalf("Failed to load imported run: %v", err)
	}
	if imported == nil {
		t.Fatal("imported run not found")
	}
	if len(imported.Steps) != len(out.Steps) {
		t.Errorf("imported steps = %d, want %d", len(imported.Steps), len(out.Steps))
	}
}

func TestExportRunAsCSV(t *testing.T) {
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)
	dataPath := writeTestData(t, tmpDir)
	initProject(t, tmpDir)

	out := runCurve(t, tmpDir, dataPath)

	csvPath := filepath.Join(tmpDir, "steps.csv")
	exportCmd := newTestRootCmd()
	exportCmd.AddCommand(newExportCmd())
	exportCmd.SetArgs([]string{"export", "--root", tmpDir, "--run", out.RunID, "--out", csvPath})
	exportCmd.SetOut(&bytes.Buffer{})
	if err := exportCmd.Execute(); err != nil {
		t.Fatalf("export --run failed: %v", err)
	}

	f, err := os.Open(csvPath)
	if err != nil {
		t.Fatalf("Failed to open CSV: %v", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("Failed to parse CSV: %v", err)
	}
	if len(rows) != len(out.Steps)+1 {
		t.Fatalf("CSV rows = %d, want %d", len(rows), len(out.Steps)+1)
	}
	if rows[0][0] != "index" || rows[0][3] != "ate" {
		t.Errorf("unexpected CSV header: %v", rows[0])
	}
}
