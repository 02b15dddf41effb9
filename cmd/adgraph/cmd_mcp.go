package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	mcpserver "github.com/mark3labs/mcp-go/server"

	adgraphmcp "github.com/VeeDuvv/adgraph/internal/mcp"
)

func mcpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP (Model Context Protocol) server over stdio",
		Long: `Starts an MCP JSON-RPC 2.0 server that reads from stdin and writes to stdout.
All diagnostic logs go to stderr so that stdout remains exclusively MCP protocol traffic.

Tools exposed:
  add_entity        — create or update an entity
  get_entity        — fetch an entity by ID or exact name
  add_relationship  — link two entities with a typed relationship
  find_entities     — search by text, type, or tags
  related           — expand an entity's neighborhood
  find_paths        — enumerate paths between two entities
  stats             — graph statistics`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := newLogger()

			eng, err := openEngine(cmd.Context(), logger)
			if err != nil {
				return fmt.Errorf("mcp: %w", err)
			}
			defer func() { _ = eng.Close() }()

			srv := adgraphmcp.NewServer(eng, logger)

			// Use a standard log.Logger pointing at stderr for the mcp-go error logger.
			errLogger := log.New(os.Stderr, "mcp: ", log.LstdFlags)

			logger.Info("mcp: adgraph MCP server starting", "transport", "stdio")

			return mcpserver.ServeStdio(
				srv.MCPServer(),
				mcpserver.WithErrorLogger(errLogger),
			)
		},
	}

	return cmd
}
