package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/causalkit/oster/internal/dataset"
	"github.com/causalkit/oster/internal/rank"
)

func newRankCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rank [data.csv]",
		Short: "Rank covariates by importance",
		Long: `Orders covariates by the absolute magnitude of their standardized
joint-OLS coefficients, once against the outcome and once against the
treatment. These orderings decide which controls enter the
specification curve first.

Examples:
  oster rank data.csv --outcome y --treatment w
  oster rank data.csv --outcome y --treatment w --controls x1,x2,x3`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			outcome, _ := cmd.Flags().GetString("outcome")
			treatment, _ := cmd.Flags().GetString("treatment")
			controlsFlag, _ := cmd.Flags().GetString("controls")

			// Validate required parameters
			if outcome == "" {
				return fmt.Errorf("--outcome is required and cannot be empty")
			}
			if treatment == "" {
				return fmt.Errorf("--treatment is required and cannot be empty")
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

			if jsonOut {
				json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
					"by_outcome":   ranking.ByOutcome,
					"by_treatment": ranking.ByTreatment,
				})
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Ranked by outcome relevance:\n")
				for i, name := range ranking.ByOutcome {
					fmt.Fprintf(cmd.OutOrStdout(), "%3d. %s\n", i+1, name)
				}
				fmt.Fprintln(cmd.OutOrStdout())
				fmt.Fprintf(cmd.OutOrStdout(), "Ranked by treatment relevance:\n")
				for i, name := range ranking.ByTreatment {
					fmt.Fprintf(cmd.OutOrStdout(), "%3d. %s\n", i+1, name)
				}
			}

			return nil
		},
	}

	cmd.Flags().String("outcome", "", "Outcome column name (required)")
	cmd.Flags().String("treatment", "", "Binary treatment column name (required)")
	cmd.Flags().String("controls", "", "Comma-separated control columns (default: all other columns)")
	cmd.MarkFlagRequired("outcome")
	cmd.MarkFlagRequired("treatment")

	return cmd
}
