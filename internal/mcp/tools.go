package mcp

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/erpgraph/erpgraph/internal/graphql"
	"github.com/erpgraph/erpgraph/internal/signature"
)

func (s *MCPServer) registerTools(srv *server.MCPServer) {
	srv.AddTool(
		mcp.NewTool("erp_list_entities",
			mcp.WithDescription(
				"List the ERP entities available over GraphQL: the list and single-lookup "+
					"field names, the fields of each type, and which fields can be used as "+
					"equality filters. Use this before writing a query.",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
		),
		s.handleListEntities,
	)

	srv.AddTool(
		mcp.NewTool("erp_query",
			mcp.WithDescription(
				"Run a read-only GraphQL query against the ERP.\n\n"+
					"Example: { salesOrders(status: \"open\", limit: 10) { id orderNumber totalAmount } }\n"+
					"List fields accept equality filters plus limit (default 100, max 1000) and offset.",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
			mcp.WithString("query",
				mcp.Required(),
				mcp.Description("GraphQL document"),
			),
			mcp.WithObject("variables",
				mcp.Description("Variable values keyed by name"),
			),
			mcp.WithString("operation_name",
				mcp.Description("Operation to run when the document defines several"),
			),
		),
		s.handleQuery,
	)

	srv.AddTool(
		mcp.NewTool("erp_sign_request",
			mcp.WithDescription(
				"Compute the X-App-Key, X-Client-Id, X-Timestamp and X-Signature headers "+
					"for calling POST /graphql with an issued credential. Signatures expire "+
					"300 seconds after the timestamp.",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
			mcp.WithString("app_key", mcp.Required(), mcp.Description("Issued app key")),
			mcp.WithString("client_id", mcp.Required(), mcp.Description("Issued client ID")),
			mcp.WithString("secret", mcp.Required(), mcp.Description("Issued shared secret")),
			mcp.WithString("timestamp",
				mcp.Description("Unix seconds to sign; defaults to now"),
			),
		),
		s.handleSign,
	)
}

func (s *MCPServer) handleListEntities(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	type fieldInfo struct {
		Name string `json:"name"`
		Type string `json:"type"`
	}
	type entityInfo struct {
		Type        string      `json:"type"`
		ListField   string      `json:"list_field"`
		SingleField string      `json:"single_field"`
		Fields      []fieldInfo `json:"fields"`
		Filters     []string    `json:"filters"`
	}

	items := make([]entityInfo, len(s.entities))
	for i, e := range s.entities {
		fields := make([]fieldInfo, len(e.Fields))
		for j, f := range e.Fields {
			fields[j] = fieldInfo{Name: f.Name, Type: f.Type}
		}
		items[i] = entityInfo{
			Type:        e.TypeName,
			ListField:   e.ListField,
			SingleField: e.SingleField,
			Fields:      fields,
			Filters:     e.Filters,
		}
	}

	return successJSON(map[string]interface{}{
		"entities": items,
		"count":    len(items),
	})
}

func (s *MCPServer) handleQuery(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	query, err := requireString(request, "query")
	if err != nil {
		return toolError("%v", err)
	}

	resp := s.exec.Execute(ctx, graphql.Request{
		Query:         query,
		OperationName: optionalString(request, "operation_name"),
		Variables:     getObjectArg(request, "variables"),
	})

	if resp.Data == nil && len(resp.Errors) > 0 {
		msgs := make([]string, len(resp.Errors))
		for i, e := range resp.Errors {
			msgs[i] = e.Message
		}
		return toolError("Query rejected: %s", strings.Join(msgs, "; "))
	}
	return successJSON(resp)
}

func (s *MCPServer) handleSign(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	var vals [3]string
	for i, key := range []string{"app_key", "client_id", "secret"} {
		v, err := requireString(request, key)
		if err != nil {
			return toolError("%v", err)
		}
		vals[i] = v
	}
	appKey, clientID, secret := vals[0], vals[1], vals[2]

	ts := optionalString(request, "timestamp")
	if ts == "" {
		ts = strconv.FormatInt(time.Now().Unix(), 10)
	} else if _, err := strconv.ParseInt(ts, 10, 64); err != nil {
		return toolError("timestamp must be unix seconds, got %q", ts)
	}

	return successJSON(map[string]string{
		signature.HeaderAppKey:    appKey,
		signature.HeaderClientID:  clientID,
		signature.HeaderTimestamp: ts,
		signature.HeaderSignature: signature.Compute(appKey, clientID, ts, secret),
	})
}
