package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/erpgraph/erpgraph/internal/graphql"
)

// Executor runs GraphQL documents. *graphql.Executor satisfies it.
type Executor interface {
	Execute(ctx context.Context, req graphql.Request) *graphql.Response
}

// GraphQLHandler serves the signed GraphQL endpoint.
type GraphQLHandler struct {
	exec Executor
	sdl  string
}

// NewGraphQLHandler creates a new GraphQLHandler. sdl is served verbatim by
// Schema.
func NewGraphQLHandler(exec Executor, sdl string) *GraphQLHandler {
	return &GraphQLHandler{exec: exec, sdl: sdl}
}

// Query executes a GraphQL request. Documents that fail validation still get
// 200 with an errors array; only malformed HTTP bodies get 400.
// POST /graphql
func (h *GraphQLHandler) Query(w http.ResponseWriter, r *http.Request) {
	var req graphql.Request
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	resp := h.exec.Execute(r.Context(), req)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(resp)
}

// Schema returns the GraphQL schema in SDL form.
// GET /graphql/schema
func (h *GraphQLHandler) Schema(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(h.sdl))
}
