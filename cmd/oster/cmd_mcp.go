package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/causalkit/oster/internal/mcp"
)

func newMCPServerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp-server",
		Short: "Run the MCP server over stdio",
		Long: `Starts a Model Context Protocol server exposing oster's analysis tools
(generate, run, runs, show) over stdio. Intended to be launched by an
MCP client such as an AI coding agent, not used interactively.

Register with a client, for example:
  claude mcp add oster -- oster mcp-server`,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _ := cmd.Flags().GetString("root")

			server, err := mcp.NewServer(&mcp.Config{
				Name:    "oster",
				Version: version,
				Root:    root,
			})
			if err != nil {
				return fmt.Errorf("failed to create MCP server: %w", err)
			}

			return server.Run(cmd.Context())
		},
	}
}
