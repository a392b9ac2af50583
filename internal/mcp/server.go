// Package mcp exposes the ERP entity catalog to MCP clients. Queries run
// in-process against the same executor the HTTP gateway uses, so the MCP
// server is meant for operators on the gateway host, launched over stdio.
package mcp

import (
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/erpgraph/erpgraph/internal/handler"
	"github.com/erpgraph/erpgraph/internal/model"
)

// MCPServer wraps the mcp-go server with the erpgraph tools and resources.
type MCPServer struct {
	exec     handler.Executor
	entities []model.Entity
	sdl      string
	logger   *slog.Logger
	server   *server.MCPServer
}

// NewMCPServer creates an MCPServer with every tool and resource
// registered. The returned server is ready to serve over stdio or HTTP.
func NewMCPServer(exec handler.Executor, entities []model.Entity, sdl, version string, logger *slog.Logger) *MCPServer {
	s := &MCPServer{
		exec:     exec,
		entities: entities,
		sdl:      sdl,
		logger:   logger,
	}

	mcpServer := server.NewMCPServer(
		"erpgraph",
		version,
		server.WithResourceCapabilities(true, false),
		server.WithToolCapabilities(true),
	)

	s.registerTools(mcpServer)
	s.registerResources(mcpServer)

	s.server = mcpServer
	return s
}

// Server returns the underlying mcp-go MCPServer instance.
func (s *MCPServer) Server() *server.MCPServer {
	return s.server
}

// ServeStdio starts the MCP server in stdio mode.
func (s *MCPServer) ServeStdio() error {
	s.logger.Info("starting MCP server in stdio mode")
	return server.ServeStdio(s.server)
}

// ServeHTTP starts the MCP server in Streamable HTTP mode, listening on
// the given address (e.g. ":3001").
func (s *MCPServer) ServeHTTP(addr string) error {
	httpServer := server.NewStreamableHTTPServer(s.server)
	s.logger.Info("MCP HTTP server starting", "addr", addr)
	return httpServer.Start(addr)
}

func readOnlyAnnotation() mcp.ToolAnnotation {
	return mcp.ToolAnnotation{
		ReadOnlyHint: boolPtr(true),
	}
}

func boolPtr(b bool) *bool {
	return &b
}
