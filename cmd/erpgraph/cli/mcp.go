package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/erpgraph/erpgraph/internal/config"
	"github.com/erpgraph/erpgraph/internal/graphql"
	emcp "github.com/erpgraph/erpgraph/internal/mcp"
	"github.com/erpgraph/erpgraph/internal/model"
)

func newMCPCmd() *cobra.Command {
	var (
		transport string
		port      int
	)

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP server for AI agents",
		Long: `Start a Model Context Protocol (MCP) server that exposes the ERP GraphQL schema
and read-only queries as tools for AI agents. Supports stdio (default) and HTTP transports.

The MCP server talks to the ERP database directly and does not check request
signatures. Run it only where the caller is already trusted.`,
		Example: `  erpgraph mcp                              # stdio mode
  erpgraph mcp --transport http --port 3001  # streamable HTTP mode`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMCP(transport, port)
		},
	}

	cmd.Flags().StringVar(&transport, "transport", "stdio", "Transport mode: stdio or http")
	cmd.Flags().IntVar(&port, "port", 3001, "HTTP port (only used with --transport http)")

	return cmd
}

func runMCP(transport string, port int) error {
	if transport != "stdio" && transport != "http" {
		return fmt.Errorf("unsupported transport %q; use 'stdio' or 'http'", transport)
	}

	cfg := config.ReadAppConfig(viper.GetViper())
	// stdout carries the protocol in stdio mode
	logger := newLogger(cfg.Logging, os.Stderr)

	registry := newRegistry()
	erp, err := connectERP(registry, cfg)
	if err != nil {
		return err
	}
	defer registry.CloseAll()
	logger.Info("connected ERP database", "driver", cfg.ERP.Driver)

	entities := model.Entities()
	exec, err := graphql.NewExecutor(erp, entities)
	if err != nil {
		return fmt.Errorf("build graphql schema: %w", err)
	}

	mcpSrv := emcp.NewMCPServer(exec, entities, graphql.SchemaSDL(entities), versionString(), logger)

	if transport == "http" {
		return mcpSrv.ServeHTTP(fmt.Sprintf(":%d", port))
	}
	return mcpSrv.ServeStdio()
}
