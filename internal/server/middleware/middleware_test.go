package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/erpgraph/erpgraph/internal/metrics"
	"github.com/erpgraph/erpgraph/internal/model"
	"github.com/erpgraph/erpgraph/internal/service"
	"github.com/erpgraph/erpgraph/internal/signature"
)

// ---------------------------------------------------------------------------
// RequestID middleware tests
// ---------------------------------------------------------------------------

func TestRequestIDGeneratesUUID(t *testing.T) {
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetRequestID(r.Context()) == "" {
			t.Error("expected non-empty request ID in context")
		}
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/test", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	respID := rr.Header().Get("X-Request-ID")
	// UUID v7 format check: 36 chars with dashes
	if len(respID) != 36 {
		t.Errorf("expected UUID-length request ID, got %q (len=%d)", respID, len(respID))
	}
}

func TestRequestIDPreservesClientID(t *testing.T) {
	clientID := "my-custom-trace-id-123"

	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := GetRequestID(r.Context()); id != clientID {
			t.Errorf("expected context ID %q, got %q", clientID, id)
		}
	}))

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("X-Request-ID", clientID)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if respID := rr.Header().Get("X-Request-ID"); respID != clientID {
		t.Errorf("expected response X-Request-ID %q, got %q", clientID, respID)
	}
}

func TestRequestIDReplacesUnusableClientID(t *testing.T) {
	for _, bad := range []string{"has space", "line\nbreak", strings.Repeat("a", 129)} {
		handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

		req := httptest.NewRequest("GET", "/test", nil)
		req.Header["X-Request-Id"] = []string{bad}
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		if got := rr.Header().Get("X-Request-ID"); got == bad || len(got) != 36 {
			t.Errorf("client ID %q: got response ID %q, want a fresh UUID", bad, got)
		}
	}
}

func TestGetRequestIDEmptyContext(t *testing.T) {
	if id := GetRequestID(context.Background()); id != "" {
		t.Errorf("expected empty string from bare context, got %q", id)
	}
}

// ---------------------------------------------------------------------------
// SignedRequest middleware tests
// ---------------------------------------------------------------------------

type stubAuthenticator struct {
	principal *service.Principal
	err       error
}

func (s stubAuthenticator) Authenticate(context.Context, http.Header) (*service.Principal, error) {
	return s.principal, s.err
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) model.ErrorResponse {
	t.Helper()
	var er model.ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&er); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return er
}

func TestSignedRequestAttachesPrincipal(t *testing.T) {
	want := &service.Principal{CredentialID: 7, AppKey: "ak1", ClientID: "c1"}
	handler := SignedRequest(stubAuthenticator{principal: want}, nil)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := GetPrincipal(r.Context())
			if got == nil || got.AppKey != "ak1" || got.CredentialID != 7 {
				t.Errorf("principal = %+v, want %+v", got, want)
			}
			w.WriteHeader(http.StatusOK)
		}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("POST", "/graphql", nil))
	if rr.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rr.Code)
	}
}

func TestSignedRequestErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{"missing headers", service.ErrMissingHeaders, http.StatusUnauthorized, "Unauthorized"},
		{"expired", service.ErrTimestampExpired, http.StatusUnauthorized, "Unauthorized"},
		{"unknown", service.ErrUnknownCredential, http.StatusUnauthorized, "Unauthorized"},
		{"bad signature", service.ErrInvalidSignature, http.StatusUnauthorized, "Unauthorized"},
		{"corrupt record", service.ErrCredentialCorrupt, http.StatusInternalServerError, "Internal server error"},
		{"storage", fmt.Errorf("%w: disk I/O", service.ErrInternal), http.StatusInternalServerError, "Internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := SignedRequest(stubAuthenticator{err: tt.err}, nil)(
				http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					t.Error("inner handler should not be called")
				}))

			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, httptest.NewRequest("POST", "/graphql", nil))

			if rr.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rr.Code, tt.wantStatus)
			}
			er := decodeError(t, rr)
			if er.Error.Message != tt.wantMsg {
				t.Errorf("message = %q, want %q", er.Error.Message, tt.wantMsg)
			}
			if er.Error.Code != tt.wantStatus {
				t.Errorf("code = %d, want %d", er.Error.Code, tt.wantStatus)
			}
		})
	}
}

func TestAuthResult(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, metrics.AuthOK},
		{service.ErrMissingHeaders, metrics.AuthMissingHeaders},
		{service.ErrTimestampExpired, metrics.AuthExpired},
		{service.ErrUnknownCredential, metrics.AuthUnknown},
		{service.ErrInvalidSignature, metrics.AuthInvalidSignature},
		{service.ErrCredentialCorrupt, metrics.AuthInternal},
		{errors.New("other"), metrics.AuthInternal},
	}
	for _, tt := range tests {
		if got := authResult(tt.err); got != tt.want {
			t.Errorf("authResult(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

// ---------------------------------------------------------------------------
// RequireAdminKey middleware tests
// ---------------------------------------------------------------------------

func TestRequireAdminKey(t *testing.T) {
	gate, err := service.NewAdminGate("admin-secret")
	if err != nil {
		t.Fatalf("NewAdminGate: %v", err)
	}

	tests := []struct {
		name       string
		key        string
		wantStatus int
	}{
		{"correct key", "admin-secret", http.StatusOK},
		{"wrong key", "nope", http.StatusUnauthorized},
		{"missing key", "", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := RequireAdminKey(gate, metrics.New())(
				http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(http.StatusOK)
				}))

			req := httptest.NewRequest("POST", "/api/v1/credentials", nil)
			if tt.key != "" {
				req.Header.Set(signature.HeaderAdminKey, tt.key)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rr.Code, tt.wantStatus)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Rate limiting tests
// ---------------------------------------------------------------------------

func TestRateLimitByAppKey(t *testing.T) {
	handler := RateLimitByAppKey(2)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	send := func(appKey, remoteAddr string) int {
		req := httptest.NewRequest("POST", "/graphql", nil)
		req.RemoteAddr = remoteAddr
		p := &service.Principal{CredentialID: 1, AppKey: appKey, ClientID: "c1"}
		req = req.WithContext(context.WithValue(req.Context(), AuthPrincipalKey, p))
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr.Code
	}

	// Same app key from different addresses shares one bucket.
	if code := send("ak1", "198.51.100.1:1000"); code != http.StatusOK {
		t.Fatalf("request 1 for ak1: status %d", code)
	}
	if code := send("ak1", "198.51.100.2:1000"); code != http.StatusOK {
		t.Fatalf("request 2 for ak1: status %d", code)
	}
	if code := send("ak1", "198.51.100.3:1000"); code != http.StatusTooManyRequests {
		t.Errorf("third request for ak1: status %d, want 429", code)
	}
	if code := send("ak2", "198.51.100.1:1000"); code != http.StatusOK {
		t.Errorf("first request for ak2: status %d, want 200", code)
	}
}

func TestRateLimitByAppKeyIgnoresRawHeader(t *testing.T) {
	handler := RateLimitByAppKey(1)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	// Without a verified principal the bucket is the client IP, whatever
	// X-App-Key claims.
	for i, addr := range []string{"203.0.113.9:1000", "198.51.100.7:1000"} {
		req := httptest.NewRequest("POST", "/graphql", nil)
		req.RemoteAddr = addr
		req.Header.Set(signature.HeaderAppKey, "victimapp")
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Errorf("request %d from %s: status %d, want 200", i+1, addr, rr.Code)
		}
	}
}

// ---------------------------------------------------------------------------
// GetPrincipal tests
// ---------------------------------------------------------------------------

func TestGetPrincipalWithoutValue(t *testing.T) {
	if got := GetPrincipal(context.Background()); got != nil {
		t.Error("expected nil principal from bare context")
	}
}
