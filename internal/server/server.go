package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/erpgraph/erpgraph/internal/handler"
	"github.com/erpgraph/erpgraph/internal/metrics"
	"github.com/erpgraph/erpgraph/internal/server/middleware"
	"github.com/erpgraph/erpgraph/internal/service"
	"github.com/erpgraph/erpgraph/internal/signature"
)

// Config holds the HTTP server configuration.
type Config struct {
	Host               string
	Port               int
	ShutdownTimeout    time.Duration
	CORSOrigins        []string
	RateLimitPerMinute int // per IP before auth, then per verified app key on signed routes; 0 disables
}

// DefaultConfig returns a Config with sensible production defaults.
func DefaultConfig() Config {
	return Config{
		Host:               "0.0.0.0",
		Port:               8080,
		ShutdownTimeout:    30 * time.Second,
		CORSOrigins:        []string{"*"},
		RateLimitPerMinute: 600,
	}
}

// Deps are the collaborators the router dispatches to.
type Deps struct {
	Authenticator middleware.Authenticator
	AdminGate     *service.AdminGate
	Credentials   handler.CredentialIssuer
	GraphQL       handler.Executor
	SchemaSDL     string
	OpenAPI       *handler.OpenAPIHandler
	Health        *handler.HealthHandler
	Metrics       *metrics.Metrics

	// OnShutdown runs after the listener has drained, e.g. to close the ERP
	// connection pool and the config store.
	OnShutdown func()
}

// Server is the top-level HTTP server for erpgraph. It owns the chi router
// and the net/http server.
type Server struct {
	cfg        Config
	deps       Deps
	router     chi.Router
	httpServer *http.Server
	logger     *slog.Logger
}

// New creates a new Server, wires up all routes and middleware, and returns
// it ready to listen. Call ListenAndServe to start accepting connections.
func New(cfg Config, deps Deps, logger *slog.Logger) *Server {
	s := &Server{
		cfg:    cfg,
		deps:   deps,
		logger: logger,
	}
	s.setupRouter()
	return s
}

func (s *Server) setupRouter() {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(s.logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(s.deps.Metrics.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{
			"Accept", "Content-Type", "X-Requested-With", "X-Request-ID",
			signature.HeaderAppKey, signature.HeaderClientID, signature.HeaderTimestamp,
			signature.HeaderSignature, signature.HeaderAdminKey,
		},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))
	r.Use(chimw.Compress(5))

	// --- Probes, metrics and docs (no auth required) ---
	if s.deps.Health != nil {
		r.Get("/healthz", s.deps.Health.Healthz)
		r.Get("/readyz", s.deps.Health.Readyz)
	}
	if s.deps.Metrics != nil {
		r.Handle("/metrics", s.deps.Metrics.Handler())
	}
	if s.deps.OpenAPI != nil {
		r.Get("/openapi.json", s.deps.OpenAPI.ServeSpec)
	}

	// --- Signed GraphQL endpoint ---
	gql := handler.NewGraphQLHandler(s.deps.GraphQL, s.deps.SchemaSDL)
	r.Group(func(r chi.Router) {
		if s.cfg.RateLimitPerMinute > 0 {
			r.Use(middleware.RateLimit(s.cfg.RateLimitPerMinute))
		}
		r.Use(middleware.SignedRequest(s.deps.Authenticator, s.deps.Metrics))
		if s.cfg.RateLimitPerMinute > 0 {
			r.Use(middleware.RateLimitByAppKey(s.cfg.RateLimitPerMinute))
		}

		r.Post("/graphql", gql.Query)
		r.Get("/graphql/schema", gql.Schema)
	})

	// --- Admin-gated credential management ---
	r.Route("/api/v1/credentials", func(r chi.Router) {
		if s.cfg.RateLimitPerMinute > 0 {
			r.Use(middleware.RateLimit(s.cfg.RateLimitPerMinute))
		}
		r.Use(middleware.RequireAdminKey(s.deps.AdminGate, s.deps.Metrics))

		ch := handler.NewCredentialHandler(s.deps.Credentials)
		r.Get("/", ch.List)
		r.Post("/", ch.Issue)
		r.Delete("/{appKey}/{clientId}", ch.Deactivate)
	})

	s.router = r
}

// ListenAndServe starts the HTTP server and blocks until a SIGINT or SIGTERM
// is received. It then performs a graceful shutdown, draining in-flight
// requests before running OnShutdown.
func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "addr", addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server listen: %w", err)
	case <-ctx.Done():
		s.logger.Info("shutdown signal received, draining connections...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	if s.deps.OnShutdown != nil {
		s.deps.OnShutdown()
	}
	s.logger.Info("server stopped")
	return nil
}

// Router returns the underlying Chi router, useful for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// ServeHTTP implements http.Handler, delegating to the router.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
