package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/erpgraph/erpgraph/internal/config"
	"github.com/erpgraph/erpgraph/internal/graphql"
	"github.com/erpgraph/erpgraph/internal/handler"
	"github.com/erpgraph/erpgraph/internal/metrics"
	"github.com/erpgraph/erpgraph/internal/model"
	"github.com/erpgraph/erpgraph/internal/openapi"
	"github.com/erpgraph/erpgraph/internal/secret"
	"github.com/erpgraph/erpgraph/internal/server"
	"github.com/erpgraph/erpgraph/internal/service"
)

const banner = `
  ___ ___ ___  __ _ _ __ __ _ _ __ | |__
 / -_) '_| '_ \/ _' | '__/ _' | '_ \| '_ \
 \___|_| | .__/\__, |_|  \__,_| .__/|_| |_|
         |_|   |___/          |_|
`

func newServeCmd() *cobra.Command {
	var (
		port int
		host string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the erpgraph API server",
		Long:  "Start the HTTP server that serves the signed GraphQL endpoint and the admin credential API.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 8080, "HTTP listen port")
	cmd.Flags().StringVar(&host, "host", "0.0.0.0", "HTTP listen host")

	viper.BindPFlag("server.port", cmd.Flags().Lookup("port"))
	viper.BindPFlag("server.host", cmd.Flags().Lookup("host"))

	return cmd
}

func runServe() error {
	cfg, err := config.LoadAppConfig(viper.GetViper())
	if err != nil {
		return err
	}

	fmt.Print(banner)
	fmt.Println()

	logger := newLogger(cfg.Logging, os.Stderr)
	ctx := context.Background()

	// 1. Credential store and secret cipher
	dir := resolveDataDir()
	store, err := config.NewStore(dir)
	if err != nil {
		return fmt.Errorf("init config store: %w", err)
	}
	logger.Info("config store initialized", "path", dir)

	cipher, err := secret.New(cfg.MasterKeyBytes())
	if err != nil {
		store.Close()
		return err
	}

	// 2. Services
	operators := service.NewOperatorService(store)
	credentials := service.NewCredentialService(store, cipher, operators)
	gate, err := service.NewAdminGate(cfg.Auth.AdminKey)
	if err != nil {
		store.Close()
		return err
	}
	authenticator := service.NewRequestAuthenticator(credentials, cipher,
		service.WithRejectFutureTimestamps(cfg.Auth.RejectFutureTimestamps),
		service.WithLogger(logger),
	)

	hasOperator, err := store.HasAnyOperator(ctx)
	if err != nil {
		logger.Warn("failed to check for operators", "error", err)
	}
	if !hasOperator {
		logger.Warn("no operator account found - run: erpgraph operator create")
	}

	// 3. ERP database
	registry := newRegistry()
	erp, err := connectERP(registry, cfg)
	if err != nil {
		store.Close()
		return err
	}
	logger.Info("connected ERP database", "driver", cfg.ERP.Driver, "schema", cfg.ERP.Schema)

	// 4. GraphQL, metrics and docs
	entities := model.Entities()
	m := metrics.New()
	exec, err := graphql.NewExecutor(erp, entities, graphql.WithMetrics(m))
	if err != nil {
		registry.CloseAll()
		store.Close()
		return fmt.Errorf("build graphql schema: %w", err)
	}
	baseURL := fmt.Sprintf("http://%s", cfg.Addr())
	doc := openapi.Generate(entities, baseURL, versionString())

	// 5. HTTP server
	srvCfg := server.Config{
		Host:               cfg.Server.Host,
		Port:               cfg.Server.Port,
		ShutdownTimeout:    30 * time.Second,
		CORSOrigins:        cfg.Server.CORSOrigins,
		RateLimitPerMinute: cfg.Server.RateLimitPerMinute,
	}
	srv := server.New(srvCfg, server.Deps{
		Authenticator: authenticator,
		AdminGate:     gate,
		Credentials:   credentials,
		GraphQL:       exec,
		SchemaSDL:     graphql.SchemaSDL(entities),
		OpenAPI:       handler.NewOpenAPIHandler(doc),
		Health:        handler.NewHealthHandler(map[string]handler.Pinger{"config_store": store, "erp": erp}),
		Metrics:       m,
		OnShutdown: func() {
			registry.CloseAll()
			store.Close()
		},
	}, logger)

	fmt.Printf("→ erpgraph %s\n", versionString())
	fmt.Printf("→ Listening on %s\n", baseURL)
	fmt.Printf("→ GraphQL:    %s/graphql\n", baseURL)
	fmt.Printf("→ OpenAPI:    %s/openapi.json\n", baseURL)
	fmt.Printf("→ Health:     %s/healthz\n", baseURL)
	fmt.Printf("→ Metrics:    %s/metrics\n", baseURL)
	fmt.Println()

	return srv.ListenAndServe()
}
