package handler

import (
	"encoding/json"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
)

// OpenAPIHandler serves a pre-rendered OpenAPI document.
type OpenAPIHandler struct {
	body []byte
	err  error
}

// NewOpenAPIHandler renders doc once.
func NewOpenAPIHandler(doc *openapi3.T) *OpenAPIHandler {
	body, err := json.MarshalIndent(doc, "", "  ")
	return &OpenAPIHandler{body: body, err: err}
}

// ServeSpec returns the OpenAPI document.
// GET /openapi.json
func (h *OpenAPIHandler) ServeSpec(w http.ResponseWriter, r *http.Request) {
	if h.err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to render OpenAPI document")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(h.body)
}
