package main

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/causalkit/oster/internal/config"
	"github.com/causalkit/oster/internal/curve"
	"github.com/causalkit/oster/internal/dataset"
	"github.com/causalkit/oster/internal/logging"
	"github.com/causalkit/oster/internal/rank"
	"github.com/causalkit/oster/internal/store"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [data.csv]",
		Short: "Fit the specification curve for a dataset",
		Long: `Ranks the control columns, then fits one cross-fitted specification
per control-set prefix, from one control up to the full ranked list.
Each step reports the treatment-effect estimate, its standard error,
the outcome R-squared, and Oster's delta* sensitivity statistic.

Results are saved to the project run store unless --no-save is given.

Examples:
  oster run data.csv --outcome y --treatment w
  oster run data.csv --outcome y --treatment w --rank-by treatment
  oster run data.csv --outcome y --treatment w --max-steps 5 --no-save`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _ := cmd.Flags().GetString("root")
			jsonOut, _ := cmd.Flags().GetBool("json")
			outcome, _ := cmd.Flags().GetString("outcome")
			treatment, _ := cmd.Flags().GetString("treatment")
			controlsFlag, _ := cmd.Flags().GetString("controls")
			rankBy, _ := cmd.Flags().GetString("rank-by")
			maxSteps, _ := cmd.Flags().GetInt("max-steps")
			parallel, _ := cmd.Flags().GetInt("parallel")
			noSave, _ := cmd.Flags().GetBool("no-save")

			// Validate required parameters
			if outcome == "" {
				return fmt.Errorf("--outcome is required and cannot be empty")
			}
			if treatment == "" {
				return fmt.Errorf("--treatment is required and cannot be empty")
			}
			if rankBy != "outcome" && rankBy != "treatment" {
				return fmt.Errorf("invalid --rank-by: %s (valid: outcome, treatment)", rankBy)
			}

			conf, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if err := conf.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}

			dataDir := resolveDataDir(root, conf)
			if !noSave {
				if err := requireInit(dataDir); err != nil {
					return err
				}
			}

			d, err := dataset.FromCSV(args[0])
			if err != nil {
				return fmt.Errorf("failed to load data: %w", err)
			}

			controls := parseControls(controlsFlag)
			if len(controls) == 0 {
				controls = d.Covariates(outcome, treatment)
			}
			if len(controls) == 0 {
				return fmt.Errorf("no control columns available in %s", args[0])
			}

			ranking, err := rank.OLSRanker{}.Rank(d, controls, outcome, treatment)
			if err != nil {
				return fmt.Errorf("failed to rank controls: %w", err)
			}
			ranked := ranking.ByOutcome
			if rankBy == "treatment" {
				ranked = ranking.ByTreatment
			}

			runCfg := conf.CurveConfig(outcome, treatment, ranked)
			runCfg.MaxSteps = maxSteps
			runCfg.Parallel = parallel
			runCfg.RunID = uuid.NewString()
			if cmd.Flags().Changed("folds") {
				runCfg.DML.Folds, _ = cmd.Flags().GetInt("folds")
			}
			if cmd.Flags().Changed("beta-hyp") {
				runCfg.Delta.BetaHyp, _ = cmd.Flags().GetFloat64("beta-hyp")
			}
			if cmd.Flags().Changed("r-max") {
				runCfg.Delta.RMax, _ = cmd.Flags().GetFloat64("r-max")
			}
			if cmd.Flags().Changed("seed") {
				runCfg.Seed, _ = cmd.Flags().GetInt64("seed")
			}

			logger := logging.NewLogger(conf.Logging.Level, os.Stderr)
			trace := logging.NewTraceLogger(dataDir, conf.Logging.Level)
			defer trace.Close()

			runner := &curve.Runner{Logger: logger, Trace: trace}
			c, err := runner.Run(cmd.Context(), d, runCfg)
			if err != nil {
				return fmt.Errorf("failed to fit curve: %w", err)
			}

			records := store.StepsFromCurve(c)

			saved := false
			if !noSave {
				st, err := store.NewRunStore(dataDir)
				if err != nil {
					return fmt.Errorf("failed to open run store: %w", err)
				}
				defer st.Close()

				snapshot, _ := json.Marshal(conf.Analysis)
				run := &store.Run{
					ID:        runCfg.RunID,
					Dataset:   args[0],
					DataHash:  hashFile(args[0]),
					N:         d.Len(),
					Outcome:   outcome,
					Treatment: treatment,
					BetaHyp:   runCfg.Delta.BetaHyp,
					RMax:      runCfg.Delta.RMax,
					Seed:      runCfg.Seed,
					Config:    string(snapshot),
					Steps:     records,
				}
				if err := st.SaveRun(cmd.Context(), run); err != nil {
					return fmt.Errorf("failed to save run: %w", err)
				}
				saved = true
			}

			if jsonOut {
				json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
					"run_id":  runCfg.RunID,
					"dataset": args[0],
					"n":       d.Len(),
					"ranked":  ranked,
					"steps":   records,
					"saved":   saved,
				})
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Specification curve: %s ~ %s  (%s, %d rows, %d steps)\n\n",
					outcome, treatment, args[0], d.Len(), len(records))
				printStepTable(cmd.OutOrStdout(), records)
				if saved {
					fmt.Fprintf(cmd.OutOrStdout(), "\nSaved run %s. Run 'oster show %s' for details.\n",
						runCfg.RunID, runCfg.RunID)
				}
			}

			return nil
		},
	}

	cmd.Flags().String("outcome", "", "Outcome column name (required)")
	cmd.Flags().String("treatment", "", "Binary treatment column name (required)")
	cmd.Flags().String("controls", "", "Comma-separated control columns (default: all other columns)")
	cmd.Flags().String("rank-by", "outcome", "Importance ordering to grow controls by: outcome or treatment")
	cmd.Flags().Int("max-steps", 0, "Stop after this many steps (0 = full ranked list)")
	cmd.Flags().Int("folds", 0, "Cross-fitting folds (default from config)")
	cmd.Flags().Float64("beta-hyp", 0, "Hypothesized treatment coefficient (default from config)")
	cmd.Flags().Float64("r-max", 0, "Hypothesized maximum R-squared (default from config)")
	cmd.Flags().Int64("seed", 0, "Fold-assignment seed (default from config)")
	cmd.Flags().Int("parallel", 0, "Concurrent steps (0 = sequential)")
	cmd.Flags().Bool("no-save", false, "Do not persist the run")
	cmd.MarkFlagRequired("outcome")
	cmd.MarkFlagRequired("treatment")

	return cmd
}

// printStepTable renders per-step results, one row per specification. The
// control column shows the covariate each step added.
func printStepTable(w io.Writer, steps []store.StepRecord) {
	fmt.Fprintf(w, "%4s  %-20s %10s %9s %8s %11s\n", "Step", "Control added", "ATE", "SE", "R2", "delta*")
	for _, s := range steps {
		label := ""
		if len(s.Controls) > 0 {
			label = s.Controls[len(s.Controls)-1]
			if s.Index > 1 {
				label = "+" + label
			}
		}
		deltaStr := fmt.Sprintf("%.3f", s.Delta)
		if s.Undefined {
			deltaStr = "undefined"
		}
		fmt.Fprintf(w, "%4d  %-20s %10.4f %9.4f %8.4f %11s\n",
			s.Index, label, s.ATE, s.SE, s.R2, deltaStr)
	}
}

// hashFile fingerprints a dataset file so a saved run records which data it
// analyzed. Returns empty string on read failure.
func hashFile(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
