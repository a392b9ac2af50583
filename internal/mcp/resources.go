package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const (
	schemaURI   = "erpgraph://schema"
	entitiesURI = "erpgraph://entities"
)

// registerResources adds read-only resources LLM clients can load into
// their context.
func (s *MCPServer) registerResources(srv *server.MCPServer) {
	srv.AddResource(
		mcp.NewResource(
			schemaURI,
			"GraphQL Schema",
			mcp.WithResourceDescription("The gateway's GraphQL schema in SDL form."),
			mcp.WithMIMEType("text/plain"),
		),
		s.handleSchemaResource,
	)

	srv.AddResource(
		mcp.NewResource(
			entitiesURI,
			"ERP Entity Catalog",
			mcp.WithResourceDescription("Mapping of GraphQL types and fields to ERP tables and columns."),
			mcp.WithMIMEType("application/json"),
		),
		s.handleEntitiesResource,
	)
}

func (s *MCPServer) handleSchemaResource(
	ctx context.Context,
	request mcp.ReadResourceRequest,
) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      schemaURI,
			MIMEType: "text/plain",
			Text:     s.sdl,
		},
	}, nil
}

func (s *MCPServer) handleEntitiesResource(
	ctx context.Context,
	request mcp.ReadResourceRequest,
) ([]mcp.ResourceContents, error) {
	b, err := json.MarshalIndent(s.entities, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal entities: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      entitiesURI,
			MIMEType: "application/json",
			Text:     string(b),
		},
	}, nil
}
