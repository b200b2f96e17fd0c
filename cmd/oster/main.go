package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/causalkit/oster/internal/config"
	"github.com/causalkit/oster/internal/store"
)

var version = "0.1.0-dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "oster",
		Short: "Oster - coefficient-stability analysis for causal estimates",
		Long: `oster estimates treatment effects with cross-fitted double machine
learning and reports Oster's delta* statistic for each specification,
so you can see how much selection on unobservables it would take to
overturn a result as controls are added.`,
	}

	// Global flags
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON (for agent consumption)")
	rootCmd.PersistentFlags().String("root", ".", "Project root directory")

	// Add subcommands
	rootCmd.AddCommand(
		newVersionCmd(),
		newInitCmd(),
		newGenerateCmd(),
		newRankCmd(),
		newRunCmd(),
		newRunsCmd(),
		newShowCmd(),
		newExportCmd(),
		newImportCmd(),
		newMCPServerCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				json.NewEncoder(os.Stdout).Encode(map[string]string{"version": version})
			} else {
				fmt.Printf("oster version %s\n", version)
			}
		},
	}
}

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize result tracking in the current directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _ := cmd.Flags().GetString("root")
			globalInit, _ := cmd.Flags().GetBool("global")

			var dataDir string
			if globalInit {
				var err error
				dataDir, err = store.GlobalDataPath()
				if err != nil {
					return fmt.Errorf("failed to get global path: %w", err)
				}
			} else {
				dataDir = store.LocalDataPath(root)
			}

			if err := store.EnsureDataDir(dataDir); err != nil {
				return fmt.Errorf("failed to create data directory: %w", err)
			}

			// Open and close the store once so the results database and
			// schema exist before the first run.
			st, err := store.NewRunStore(dataDir)
			if err != nil {
				return fmt.Errorf("failed to initialize run store: %w", err)
			}
			if err := st.Close(); err != nil {
				return fmt.Errorf("failed to close run store: %w", err)
			}

			// The global directory also carries the config file read by
			// every invocation; seed it with a commented template.
			if globalInit {
				configPath := filepath.Join(dataDir, "config.yaml")
				if _, err := os.Stat(configPath); os.IsNotExist(err) {
					template := `# Oster configuration
# created: %s
#
# Settings here apply to every invocation; environment variables
# prefixed OSTER_ override them.
analysis:
  folds: 5
  trim_lower: 0.01
  trim_upper: 0.99
  r_max: 1.0
  beta_hyp: 0.0
  seed: 1
  outcome_model: linear
  treatment_model: logistic
logging:
  level: info
store:
  dir: .oster
`
					content := fmt.Sprintf(template, time.Now().Format(time.RFC3339))
					if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
						return fmt.Errorf("failed to create config.yaml: %w", err)
					}
				}
			}

			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				result := map[string]string{
					"status": "initialized",
					"path":   dataDir,
				}
				if globalInit {
					result["scope"] = "global"
				}
				json.NewEncoder(os.Stdout).Encode(result)
			} else {
				if globalInit {
					fmt.Printf("Initialized global .oster/ at %s\n", dataDir)
				} else {
					fmt.Printf("Initialized .oster/ in %s\n", root)
				}
			}

			return nil
		},
	}

	cmd.Flags().Bool("global", false, "Initialize the global user directory (~/.oster/) with a config template")

	return cmd
}

// resolveDataDir locates the project data directory: the configured store
// dir, resolved against the project root when relative.
func resolveDataDir(root string, conf *config.Config) string {
	dir := conf.Store.Dir
	if dir == "" {
		dir = ".oster"
	}
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(root, dir)
	}
	return dir
}

// requireInit returns an error when the project data directory does not
// exist yet. Commands that read or write saved runs call this first.
func requireInit(dataDir string) error {
	if _, err := os.Stat(dataDir); os.IsNotExist(err) {
		return fmt.Errorf("not initialized. Run 'oster init' first")
	}
	return nil
}

// parseControls splits a comma-separated control list, trimming whitespace
// and dropping empty entries.
func parseControls(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	controls := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			controls = append(controls, p)
		}
	}
	return controls
}
