package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveAuth(AuthOK)
	m.ObserveGraphQLField("customers", true)
	m.ObserveGraphQLDuration(time.Millisecond)

	called := false
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))
	if !called {
		t.Error("nil middleware did not call next")
	}
}

func TestObserveAuth(t *testing.T) {
	m := New()
	m.ObserveAuth(AuthOK)
	m.ObserveAuth(AuthOK)
	m.ObserveAuth(AuthExpired)

	if got := testutil.ToFloat64(m.authResults.WithLabelValues(AuthOK)); got != 2 {
		t.Errorf("ok count = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.authResults.WithLabelValues(AuthExpired)); got != 1 {
		t.Errorf("expired count = %v, want 1", got)
	}
}

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	m := New()
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Delete("/api/v1/credentials/{appKey}/{clientId}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	for _, path := range []string{"/api/v1/credentials/a/b", "/api/v1/credentials/c/d"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("DELETE", path, nil))
	}

	got := testutil.ToFloat64(m.requests.WithLabelValues("/api/v1/credentials/{appKey}/{clientId}", "DELETE", "204"))
	if got != 2 {
		t.Errorf("request count = %v, want 2", got)
	}
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := New()
	m.ObserveAuth(AuthInvalidSignature)
	m.ObserveGraphQLField("customers", false)

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rr.Body)

	for _, want := range []string{
		`erpgraph_auth_results_total{result="invalid_signature"} 1`,
		`erpgraph_graphql_fields_total{field="customers",outcome="error"} 1`,
		"go_goroutines",
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
