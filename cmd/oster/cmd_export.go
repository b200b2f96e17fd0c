package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/causalkit/oster/internal/config"
	"github.com/causalkit/oster/internal/store"
)

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export saved runs to JSONL, or one run's steps to CSV",
		Long: `Without --run, writes every saved run as one JSON line per run, suitable
for backup and for 'oster import'. With --run, writes that run's per-step
results as CSV for spreadsheets and plotting tools.

Examples:
  oster export                        # all runs -> .oster/runs.jsonl
  oster export --out backup.jsonl
  oster export --run <id> --out steps.csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _ := cmd.Flags().GetString("root")
			jsonOut, _ := cmd.Flags().GetBool("json")
			out, _ := cmd.Flags().GetString("out")
			runID, _ := cmd.Flags().GetString("run")

			conf, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			dataDir := resolveDataDir(root, conf)
			if err := requireInit(dataDir); err != nil {
				return err
			}

			st, err := store.NewRunStore(dataDir)
			if err != nil {
				return fmt.Errorf("failed to open run store: %w", err)
			}
			defer st.Close()

			if runID != "" {
				if out == "" {
					out = runID + ".csv"
				}
				run, err := st.GetRun(cmd.Context(), runID)
				if err != nil {
					return fmt.Errorf("failed to load run: %w", err)
				}
				if run == nil {
					return fmt.Errorf("run not found: %s", runID)
				}
				if err := writeStepsCSV(out, run.Steps); err != nil {
					return err
				}

				if jsonOut {
					json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
						"exported": out,
						"run_id":   runID,
						"steps":    len(run.Steps),
					})
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "Exported %d steps of run %s to %s\n", len(run.Steps), runID, out)
				}
				return nil
			}

			if out == "" {
				out = filepath.Join(dataDir, "runs.jsonl")
			}
			if err := st.ExportToJSONL(cmd.Context(), out); err != nil {
				return fmt.Errorf("failed to export runs: %w", err)
			}

			if jsonOut {
				json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
					"exported": out,
				})
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Exported all runs to %s\n", out)
			}

			return nil
		},
	}

	cmd.Flags().String("out", "", "Output file (default: <data-dir>/runs.jsonl, or <run-id>.csv with --run)")
	cmd.Flags().String("run", "", "Export a single run's steps as CSV")

	return cmd
}

func newImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import [runs.jsonl]",
		Short: "Import runs from a JSONL export",
		Long: `Reads runs exported by 'oster export' and saves them into the project
run store. Existing runs with the same ID are replaced; malformed lines
are skipped with a warning.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _ := cmd.Flags().GetString("root")
			jsonOut, _ := cmd.Flags().GetBool("json")

			conf, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			dataDir := resolveDataDir(root, conf)
			if err := requireInit(dataDir); err != nil {
				return err
			}

			st, err := store.NewRunStore(dataDir)
			if err != nil {
				return fmt.Errorf("failed to open run store: %w", err)
			}
			defer st.Close()

			if err := st.ImportFromJSONL(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("failed to import runs: %w", err)
			}

			if jsonOut {
				json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
					"imported": args[0],
				})
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Imported runs from %s\n", args[0])
			}

			return nil
		},
	}

	return cmd
}

// writeStepsCSV renders step records as CSV, one row per specification.
func writeStepsCSV(path string, steps []store.StepRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{"index", "n_controls", "controls", "ate", "se", "r2", "delta", "undefined"}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, s := range steps {
		rec := []string{
			strconv.Itoa(s.Index),
			strconv.Itoa(len(s.Controls)),
			strings.Join(s.Controls, " "),
			strconv.FormatFloat(s.ATE, 'g', -1, 64),
			strconv.FormatFloat(s.SE, 'g', -1, 64),
			strconv.FormatFloat(s.R2, 'g', -1, 64),
			strconv.FormatFloat(s.Delta, 'g', -1, 64),
			strconv.FormatBool(s.Undefined),
		}
		if err := w.Write(rec); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}
