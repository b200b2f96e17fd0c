package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	src := newTestStore(t)

	run := testRun()
	if err := src.SaveRun(ctx, run); err != nil {
		t.Fatalf("SaveRun() error = %v", err)
	}

	path := filepath.Join(t.TempDir(), "runs.jsonl")
	if err := src.ExportToJSONL(ctx, path); err != nil {
		t.Fatalf("ExportToJSONL() error = %v", err)
	}

	dst := newTestStore(t)
	if err := dst.ImportFromJSONL(ctx, path); err != nil {
		t.Fatalf("ImportFromJSONL() error = %v", err)
	}

	got, err := dst.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	if got == nil {
		t.Fatal("imported run not found")
	}
	if got.Dataset != run.Dataset || got.N != run.N {
		t.Errorf("imported run = %+v, want dataset %s with n %d", got, run.Dataset, run.N)
	}
	if len(got.Steps) != len(run.Steps) {
		t.Fatalf("imported %d steps, want %d", len(got.Steps), len(run.Steps))
	}
	if got.Steps[0].Moments == nil || got.Steps[0].Moments.Den != run.Steps[0].Moments.Den {
		t.Errorf("imported moments = %+v, want Den %g", got.Steps[0].Moments, run.Steps[0].Moments.Den)
	}
}

func TestImportFromJSONL_MissingFileIsFine(t *testing.T) {
	store := newTestStore(t)

	if err := store.ImportFromJSONL(context.Background(), filepath.Join(t.TempDir(), "absent.jsonl")); err != nil {
		t.Errorf("ImportFromJSONL() error = %v for missing file, want nil", err)
	}
}

func TestImportFromJSONL_SkipsMalformedLines(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	path := filepath.Join(t.TempDir(), "runs.jsonl")
	content := "not json at all\n" +
		`{"id":"ok-run","created_at":"2026-01-01T00:00:00Z","dataset":"d.csv","n":10,"outcome":"y","treatment":"w","beta_hyp":0,"r_max":1,"seed":1}` + "\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	if err := store.ImportFromJSONL(ctx, path); err != nil {
		t.Fatalf("ImportFromJSONL() error = %v", err)
	}

	got, err := store.GetRun(ctx, "ok-run")
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	if got == nil {
		t.Fatal("valid line was not imported")
	}
}
