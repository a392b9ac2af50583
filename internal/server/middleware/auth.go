package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/erpgraph/erpgraph/internal/metrics"
	"github.com/erpgraph/erpgraph/internal/model"
	"github.com/erpgraph/erpgraph/internal/service"
	"github.com/erpgraph/erpgraph/internal/signature"
)

type contextKeyAuth string

const (
	// AuthPrincipalKey is the context key for the authenticated principal.
	AuthPrincipalKey contextKeyAuth = "auth_principal"
)

// Authenticator decides whether a signed request may proceed.
// *service.RequestAuthenticator satisfies it.
type Authenticator interface {
	Authenticate(ctx context.Context, h http.Header) (*service.Principal, error)
}

// SignedRequest returns an HTTP middleware that requires the four HMAC
// headers (X-App-Key, X-Client-Id, X-Timestamp, X-Signature). On success the
// Principal is attached to the request context. Client failures answer 401
// and operational failures 500; the body never says which check failed.
func SignedRequest(auth Authenticator, m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, err := auth.Authenticate(r.Context(), r.Header)
			m.ObserveAuth(authResult(err))

			if err != nil {
				if errors.Is(err, service.ErrUnauthorized) {
					slog.Warn("request authentication failed",
						"reason", err.Error(),
						"app_key", r.Header.Get(signature.HeaderAppKey),
						"request_id", GetRequestID(r.Context()),
					)
					writeAuthError(w, http.StatusUnauthorized, "Unauthorized")
					return
				}
				slog.Error("request authentication error",
					"error", err,
					"request_id", GetRequestID(r.Context()),
				)
				writeAuthError(w, http.StatusInternalServerError, "Internal server error")
				return
			}

			ctx := context.WithValue(r.Context(), AuthPrincipalKey, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdminKey returns an HTTP middleware that admits only requests whose
// X-Admin-Key header matches the configured admin key.
func RequireAdminKey(gate *service.AdminGate, m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !gate.Check(r.Header.Get(signature.HeaderAdminKey)) {
				m.ObserveAuth(metrics.AuthAdminRejected)
				slog.Warn("admin key rejected",
					"path", r.URL.Path,
					"request_id", GetRequestID(r.Context()),
				)
				writeAuthError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetPrincipal extracts the authenticated principal from the context.
// Returns nil if no principal is present (i.e., unauthenticated request).
func GetPrincipal(ctx context.Context) *service.Principal {
	if p, ok := ctx.Value(AuthPrincipalKey).(*service.Principal); ok {
		return p
	}
	return nil
}

func authResult(err error) string {
	switch {
	case err == nil:
		return metrics.AuthOK
	case errors.Is(err, service.ErrMissingHeaders):
		return metrics.AuthMissingHeaders
	case errors.Is(err, service.ErrTimestampExpired):
		return metrics.AuthExpired
	case errors.Is(err, service.ErrUnknownCredential):
		return metrics.AuthUnknown
	case errors.Is(err, service.ErrInvalidSignature):
		return metrics.AuthInvalidSignature
	default:
		return metrics.AuthInternal
	}
}

func writeAuthError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(model.ErrorResponse{
		Error: model.ErrorDetail{Code: status, Message: message},
	})
}
