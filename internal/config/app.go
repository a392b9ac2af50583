package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// MasterKeySize is the required length of auth.master_key in bytes.
const MasterKeySize = 32

// AppConfig is the effective gateway configuration, built once at startup
// and injected into the components that need it.
type AppConfig struct {
	Server  ServerConfig  `yaml:"server"`
	Auth    AuthConfig    `yaml:"auth"`
	ERP     ERPConfig     `yaml:"erp"`
	DataDir string        `yaml:"data_dir"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig controls the HTTP server behavior.
type ServerConfig struct {
	Host               string   `yaml:"host"`
	Port               int      `yaml:"port"`
	CORSOrigins        []string `yaml:"cors_origins"`
	RateLimitPerMinute int      `yaml:"rate_limit_per_minute"`
}

// AuthConfig holds the two secrets the gateway cannot start without.
type AuthConfig struct {
	MasterKey              string `yaml:"master_key"`
	AdminKey               string `yaml:"admin_key"`
	RejectFutureTimestamps bool   `yaml:"reject_future_timestamps"`
}

// ERPConfig points the gateway at the ERP database.
type ERPConfig struct {
	Driver          string `yaml:"driver"`
	DSN             string `yaml:"dsn"`
	Schema          string `yaml:"schema"`
	MaxOpenConns    int    `yaml:"max_open_conns"`
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	ConnMaxLifetime string `yaml:"conn_max_lifetime"`
	// PrivateKeyPath selects key-pair (JWT) auth for drivers that support it.
	PrivateKeyPath string `yaml:"private_key_path"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Addr returns host:port for the HTTP listener.
func (c *AppConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// MasterKeyBytes returns the master key as raw bytes for the secret store.
func (c *AppConfig) MasterKeyBytes() []byte {
	return []byte(c.Auth.MasterKey)
}

// ConnMaxLifetimeDuration parses erp.conn_max_lifetime, falling back to 5m.
func (c *ERPConfig) ConnMaxLifetimeDuration() time.Duration {
	d, err := time.ParseDuration(c.ConnMaxLifetime)
	if err != nil || d <= 0 {
		return 5 * time.Minute
	}
	return d
}

// DefaultAppConfig returns an AppConfig pre-filled with defaults. The auth
// secrets are left empty; they must come from the environment or a file.
func DefaultAppConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Host:               "0.0.0.0",
			Port:               8080,
			CORSOrigins:        []string{"*"},
			RateLimitPerMinute: 600,
		},
		ERP: ERPConfig{
			Driver:          "postgres",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: "5m",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// SetDefaults registers DefaultAppConfig values on v and binds the
// ERPGRAPH_* environment variables (auth.master_key -> ERPGRAPH_AUTH_MASTER_KEY).
func SetDefaults(v *viper.Viper) {
	d := DefaultAppConfig()
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.cors_origins", d.Server.CORSOrigins)
	v.SetDefault("server.rate_limit_per_minute", d.Server.RateLimitPerMinute)
	v.SetDefault("auth.master_key", "")
	v.SetDefault("auth.admin_key", "")
	v.SetDefault("auth.reject_future_timestamps", false)
	v.SetDefault("erp.driver", d.ERP.Driver)
	v.SetDefault("erp.dsn", "")
	v.SetDefault("erp.schema", "")
	v.SetDefault("erp.max_open_conns", d.ERP.MaxOpenConns)
	v.SetDefault("erp.max_idle_conns", d.ERP.MaxIdleConns)
	v.SetDefault("erp.conn_max_lifetime", d.ERP.ConnMaxLifetime)
	v.SetDefault("erp.private_key_path", "")
	v.SetDefault("data_dir", "")
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)

	v.SetEnvPrefix("ERPGRAPH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// LoadAppConfig builds and validates the configuration from v. A missing
// admin key or a master key that is not exactly 32 bytes is an error
// wrapping ErrInvalidConfig; callers abort startup on it.
func LoadAppConfig(v *viper.Viper) (*AppConfig, error) {
	cfg := ReadAppConfig(v)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ReadAppConfig builds the configuration from v without validating it.
func ReadAppConfig(v *viper.Viper) *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Host:               v.GetString("server.host"),
			Port:               v.GetInt("server.port"),
			CORSOrigins:        v.GetStringSlice("server.cors_origins"),
			RateLimitPerMinute: v.GetInt("server.rate_limit_per_minute"),
		},
		Auth: AuthConfig{
			MasterKey:              v.GetString("auth.master_key"),
			AdminKey:               v.GetString("auth.admin_key"),
			RejectFutureTimestamps: v.GetBool("auth.reject_future_timestamps"),
		},
		ERP: ERPConfig{
			Driver:          v.GetString("erp.driver"),
			DSN:             v.GetString("erp.dsn"),
			Schema:          v.GetString("erp.schema"),
			MaxOpenConns:    v.GetInt("erp.max_open_conns"),
			MaxIdleConns:    v.GetInt("erp.max_idle_conns"),
			ConnMaxLifetime: v.GetString("erp.conn_max_lifetime"),
			PrivateKeyPath:  v.GetString("erp.private_key_path"),
		},
		DataDir: v.GetString("data_dir"),
		Logging: LoggingConfig{
			Level:  v.GetString("logging.level"),
			Format: v.GetString("logging.format"),
		},
	}
}

// Validate checks the settings the gateway refuses to start without.
func (c *AppConfig) Validate() error {
	if err := c.ValidateMasterKey(); err != nil {
		return err
	}
	if strings.TrimSpace(c.Auth.AdminKey) == "" {
		return fmt.Errorf("%w: auth.admin_key is required", ErrInvalidConfig)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server.port %d out of range", ErrInvalidConfig, c.Server.Port)
	}
	return nil
}

// ValidateMasterKey checks only auth.master_key. Local commands that
// encrypt or decrypt secrets need it; they have no use for the admin key.
func (c *AppConfig) ValidateMasterKey() error {
	if len(c.Auth.MasterKey) != MasterKeySize {
		return fmt.Errorf("%w: auth.master_key must be exactly %d bytes, got %d",
			ErrInvalidConfig, MasterKeySize, len(c.Auth.MasterKey))
	}
	return nil
}

// WriteDefaultConfig writes the default configuration to a YAML file.
func WriteDefaultConfig(path string) error {
	data, err := yaml.Marshal(DefaultAppConfig())
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
