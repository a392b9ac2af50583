package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/erpgraph/erpgraph/internal/config"
	"github.com/erpgraph/erpgraph/internal/connector"
	"github.com/erpgraph/erpgraph/internal/connector/mssql"
	"github.com/erpgraph/erpgraph/internal/connector/mysql"
	"github.com/erpgraph/erpgraph/internal/connector/oracle"
	"github.com/erpgraph/erpgraph/internal/connector/postgres"
	"github.com/erpgraph/erpgraph/internal/connector/snowflake"
	"github.com/erpgraph/erpgraph/internal/connector/sqlite"
	"github.com/erpgraph/erpgraph/internal/secret"
	"github.com/erpgraph/erpgraph/internal/service"
)

// erpSource is the registry name of the single ERP database connection.
const erpSource = "erp"

// dataDir holds the --data-dir persistent flag value (set on root command).
var dataDir string

// resolveDataDir returns the data directory from --data-dir, then data_dir
// (config file or ERPGRAPH_DATA_DIR), then ~/.erpgraph.
func resolveDataDir() string {
	if dataDir != "" {
		return dataDir
	}
	if d := viper.GetString("data_dir"); d != "" {
		return d
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".erpgraph")
}

// openConfigStore opens the SQLite credential store in the data directory.
func openConfigStore() (*config.Store, error) {
	return config.NewStore(resolveDataDir())
}

// newRegistry creates a connector registry with all supported ERP drivers registered.
func newRegistry() *connector.Registry {
	registry := connector.NewRegistry()
	registry.RegisterDriver("postgres", postgres.New)
	registry.RegisterDriver("mysql", mysql.New)
	registry.RegisterDriver("mssql", mssql.New)
	registry.RegisterDriver("oracle", oracle.New)
	registry.RegisterDriver("snowflake", snowflake.New)
	registry.RegisterDriver("sqlite", sqlite.New)
	return registry
}

// connectERP opens the ERP database described by cfg.ERP.
func connectERP(registry *connector.Registry, cfg *config.AppConfig) (connector.Connector, error) {
	if cfg.ERP.DSN == "" {
		return nil, fmt.Errorf("%w: erp.dsn is required", config.ErrInvalidConfig)
	}
	return registry.Connect(erpSource, connector.ConnectionConfig{
		Driver:          cfg.ERP.Driver,
		DSN:             cfg.ERP.DSN,
		SchemaName:      cfg.ERP.Schema,
		MaxOpenConns:    cfg.ERP.MaxOpenConns,
		MaxIdleConns:    cfg.ERP.MaxIdleConns,
		ConnMaxLifetime: cfg.ERP.ConnMaxLifetimeDuration(),
		PrivateKeyPath:  cfg.ERP.PrivateKeyPath,
	})
}

// newLogger builds the process logger from the logging section.
func newLogger(cfg config.LoggingConfig, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// credentialEnv is what the local credential commands need: the store, the
// master-key cipher and the services built on them.
type credentialEnv struct {
	store       *config.Store
	cipher      *secret.Store
	operators   *service.OperatorService
	credentials *service.CredentialService
}

// openCredentialEnv loads the master key and opens the store. Callers must
// Close the returned env.
func openCredentialEnv() (*credentialEnv, error) {
	cfg := config.ReadAppConfig(viper.GetViper())
	if err := cfg.ValidateMasterKey(); err != nil {
		return nil, err
	}
	cipher, err := secret.New(cfg.MasterKeyBytes())
	if err != nil {
		return nil, err
	}
	store, err := openConfigStore()
	if err != nil {
		return nil, fmt.Errorf("open config store: %w", err)
	}
	operators := service.NewOperatorService(store)
	return &credentialEnv{
		store:       store,
		cipher:      cipher,
		operators:   operators,
		credentials: service.NewCredentialService(store, cipher, operators),
	}, nil
}

func (e *credentialEnv) Close() error {
	return e.store.Close()
}

// promptPassword reads a password from the terminal without echo. With
// confirm set it asks twice and fails on a mismatch.
func promptPassword(label string, confirm bool) (string, error) {
	fmt.Print(label + ": ")
	pwBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	if !confirm {
		return string(pwBytes), nil
	}

	fmt.Print("Confirm " + strings.ToLower(label) + ": ")
	confirmBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read confirmation: %w", err)
	}
	if string(pwBytes) != string(confirmBytes) {
		return "", fmt.Errorf("passwords do not match")
	}
	return string(pwBytes), nil
}

// versionString returns a display version string.
func versionString() string {
	if appVersion == "" || appVersion == "dev" {
		return "dev"
	}
	if strings.HasPrefix(appVersion, "v") {
		return appVersion
	}
	return "v" + appVersion
}
