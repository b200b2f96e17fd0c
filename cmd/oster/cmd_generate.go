package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/causalkit/oster/internal/synth"
)

func newGenerateCmd() *cobra.Command {
	base := synth.DefaultConfig()

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a synthetic benchmark dataset",
		Long: `Draws a dataset from a known confounded process and writes it as CSV.

The true treatment effect and which covariates matter are printed, so
the output is useful for demonstrating and validating a full analysis:

  oster generate --out data.csv
  oster run data.csv --outcome y --treatment w`,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			out, _ := cmd.Flags().GetString("out")

			if out == "" {
				return fmt.Errorf("--out is required and cannot be empty")
			}

			cfg := base
			cfg.N, _ = cmd.Flags().GetInt("rows")
			cfg.Relevant, _ = cmd.Flags().GetInt("relevant")
			cfg.Irrelevant, _ = cmd.Flags().GetInt("irrelevant")
			cfg.ATE, _ = cmd.Flags().GetFloat64("ate")
			cfg.Confounding, _ = cmd.Flags().GetFloat64("confounding")
			cfg.Noise, _ = cmd.Flags().GetFloat64("noise")
			cfg.Seed, _ = cmd.Flags().GetInt64("seed")

			d, truth, err := synth.Generate(cfg)
			if err != nil {
				return fmt.Errorf("failed to generate data: %w", err)
			}

			if dir := filepath.Dir(out); dir != "." {
				if err := os.MkdirAll(dir, 0755); err != nil {
					return fmt.Errorf("failed to create output directory: %w", err)
				}
			}
			if err := d.WriteCSV(out); err != nil {
				return fmt.Errorf("failed to write CSV: %w", err)
			}

			if jsonOut {
				json.NewEncoder(os.Stdout).Encode(map[string]interface{}{
					"path":       out,
					"rows":       d.Len(),
					"columns":    len(d.Names()),
					"outcome":    cfg.Outcome,
					"treatment":  cfg.Treatment,
					"ate":        truth.ATE,
					"relevant":   truth.Relevant,
					"irrelevant": truth.Irrelevant,
				})
			} else {
				fmt.Printf("Wrote %d rows x %d columns to %s\n", d.Len(), len(d.Names()), out)
				fmt.Printf("Outcome: %s  Treatment: %s  True effect: %g\n", cfg.Outcome, cfg.Treatment, truth.ATE)
				fmt.Printf("Relevant controls: %v\n", truth.Relevant)
				if len(truth.Irrelevant) > 0 {
					fmt.Printf("Irrelevant controls: %v\n", truth.Irrelevant)
				}
			}

			return nil
		},
	}

	cmd.Flags().String("out", "data.csv", "Output CSV path")
	cmd.Flags().Int("rows", base.N, "Number of rows")
	cmd.Flags().Int("relevant", base.Relevant, "Number of relevant covariates")
	cmd.Flags().Int("irrelevant", base.Irrelevant, "Number of irrelevant covariates")
	cmd.Flags().Float64("ate", base.ATE, "True treatment effect")
	cmd.Flags().Float64("confounding", base.Confounding, "Strength of covariate influence on treatment")
	cmd.Flags().Float64("noise", base.Noise, "Outcome noise standard deviation")
	cmd.Flags().Int64("seed", base.Seed, "Random seed")

	return cmd
}
