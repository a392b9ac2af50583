package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/erpgraph/erpgraph/internal/config"
	"github.com/erpgraph/erpgraph/internal/model"
	"github.com/erpgraph/erpgraph/internal/service"
)

// CredentialIssuer is the part of the credential registry the HTTP surface
// uses. *service.CredentialService satisfies it.
type CredentialIssuer interface {
	Create(ctx context.Context, login, password, label string) (*model.IssuedCredential, error)
	Deactivate(ctx context.Context, appKey, clientID string) error
	List(ctx context.Context) ([]model.Credential, error)
}

// CredentialHandler serves the admin-gated credential endpoints.
type CredentialHandler struct {
	creds CredentialIssuer
}

// NewCredentialHandler creates a new CredentialHandler.
func NewCredentialHandler(creds CredentialIssuer) *CredentialHandler {
	return &CredentialHandler{creds: creds}
}

type issueRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
	Label    string `json:"label"`
}

// Issue verifies the operator login/password and issues a new credential.
// The plaintext secret appears in this response and nowhere else.
// POST /api/v1/credentials
func (h *CredentialHandler) Issue(w http.ResponseWriter, r *http.Request) {
	var req issueRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Login) == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "login and password are required")
		return
	}

	issued, err := h.creds.Create(r.Context(), req.Login, req.Password, strings.TrimSpace(req.Label))
	if err != nil {
		if errors.Is(err, service.ErrUnauthorized) {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		slog.Error("credential issuance failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusCreated, issued)
}

// credentialView is a credential as listed over HTTP.
type credentialView struct {
	AppKey        string     `json:"app_key"`
	ClientID      string     `json:"client_id"`
	Label         string     `json:"label,omitempty"`
	IssuedBy      string     `json:"issued_by"`
	IsActive      bool       `json:"is_active"`
	CreatedAt     time.Time  `json:"created_at"`
	DeactivatedAt *time.Time `json:"deactivated_at,omitempty"`
}

// List returns issued credentials without secrets. ?active=true hides
// deactivated ones.
// GET /api/v1/credentials
func (h *CredentialHandler) List(w http.ResponseWriter, r *http.Request) {
	creds, err := h.creds.List(r.Context())
	if err != nil {
		slog.Error("list credentials failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	activeOnly := queryBool(r, "active")
	out := make([]credentialView, 0, len(creds))
	for _, c := range creds {
		if activeOnly && !c.IsActive {
			continue
		}
		out = append(out, credentialView{
			AppKey:        c.AppKey,
			ClientID:      c.ClientID,
			Label:         c.Label,
			IssuedBy:      c.IssuedBy,
			IsActive:      c.IsActive,
			CreatedAt:     c.CreatedAt,
			DeactivatedAt: c.DeactivatedAt,
		})
	}

	writeJSON(w, http.StatusOK, model.ListResponse{
		Resource: out,
		Meta:     &model.ResponseMeta{Count: len(out)},
	})
}

// Deactivate marks a credential inactive. Subsequent requests signed with it
// are rejected.
// DELETE /api/v1/credentials/{appKey}/{clientId}
func (h *CredentialHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	appKey := chi.URLParam(r, "appKey")
	clientID := chi.URLParam(r, "clientId")

	if err := h.creds.Deactivate(r.Context(), appKey, clientID); err != nil {
		if errors.Is(err, config.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Credential not found")
			return
		}
		slog.Error("credential deactivation failed", "error", err, "app_key", appKey)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
