package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/causalkit/oster/internal/config"
	"github.com/causalkit/oster/internal/store"
)

func newRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List saved runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _ := cmd.Flags().GetString("root")
			jsonOut, _ := cmd.Flags().GetBool("json")
			limit, _ := cmd.Flags().GetInt("limit")

			conf, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			dataDir := resolveDataDir(root, conf)
			if err := requireInit(dataDir); err != nil {
				if jsonOut {
					json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
						"runs":  []store.RunSummary{},
						"count": 0,
					})
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), "Not initialized. Run 'oster init' first.")
				}
				return nil
			}

			st, err := store.NewRunStore(dataDir)
			if err != nil {
				return fmt.Errorf("failed to open run store: %w", err)
			}
			defer st.Close()

			summaries, err := st.ListRuns(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("failed to list runs: %w", err)
			}

			if jsonOut {
				json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
					"runs":  summaries,
					"count": len(summaries),
				})
			} else {
				if len(summaries) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded yet.")
					fmt.Fprintln(cmd.OutOrStdout(), "\nUse 'oster run data.csv --outcome y --treatment w' to analyze a dataset.")
					return nil
				}

				fmt.Fprintf(cmd.OutOrStdout(), "Saved runs (%d):\n\n", len(summaries))
				fmt.Fprintf(cmd.OutOrStdout(), "%-36s %-22s %-14s %7s %6s  %s\n",
					"ID", "Dataset", "Model", "N", "Steps", "Created")
				for _, s := range summaries {
					fmt.Fprintf(cmd.OutOrStdout(), "%-36s %-22s %-14s %7d %6d  %s\n",
						s.ID, s.Dataset, s.Outcome+" ~ "+s.Treatment, s.N, s.Steps,
						s.CreatedAt.Format("2006-01-02 15:04"))
				}
			}

			return nil
		},
	}

	cmd.Flags().Int("limit", 20, "Maximum number of runs to list")

	return cmd
}

func newShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show [run-id]",
		Short: "Show details of a saved run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _ := cmd.Flags().GetString("root")
			jsonOut, _ := cmd.Flags().GetBool("json")
			id := args[0]

			conf, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			dataDir := resolveDataDir(root, conf)
			if err := requireInit(dataDir); err != nil {
				if jsonOut {
					json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
						"error": ".oster not initialized",
					})
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), "Not initialized. Run 'oster init' first.")
				}
				return nil
			}

			st, err := store.NewRunStore(dataDir)
			if err != nil {
				return fmt.Errorf("failed to open run store: %w", err)
			}
			defer st.Close()

			run, err := st.GetRun(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("failed to load run: %w", err)
			}
			if run == nil {
				if jsonOut {
					json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
						"error": "run not found",
						"id":    id,
					})
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "Run not found: %s\n", id)
				}
				return nil
			}

			if jsonOut {
				json.NewEncoder(cmd.OutOrStdout()).Encode(run)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Run: %s\n", run.ID)
				fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", run.CreatedAt.Format(time.RFC3339))
				fmt.Fprintf(cmd.OutOrStdout(), "Dataset: %s (%d rows)\n", run.Dataset, run.N)
				if run.DataHash != "" {
					fmt.Fprintf(cmd.OutOrStdout(), "Data hash: %s\n", run.DataHash)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Model: %s ~ %s\n", run.Outcome, run.Treatment)
				fmt.Fprintf(cmd.OutOrStdout(), "Beta hyp: %g  R max: %g  Seed: %d\n", run.BetaHyp, run.RMax, run.Seed)
				fmt.Fprintln(cmd.OutOrStdout())
				printStepTable(cmd.OutOrStdout(), run.Steps)

				for _, s := range run.Steps {
					if len(s.DegenerateFolds) > 0 {
						fmt.Fprintf(cmd.OutOrStdout(), "\nStep %d had degenerate folds: %v\n", s.Index, s.DegenerateFolds)
					}
				}
			}

			return nil
		},
	}

	return cmd
}
