package snowflake

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/snowflakedb/gosnowflake"

	"github.com/erpgraph/erpgraph/internal/connector"
)

// SnowflakeConnector implements connector.Connector for Snowflake, typically
// an ERP replica used for reporting.
type SnowflakeConnector struct {
	db         *sqlx.DB
	schemaName string
}

// New creates a new SnowflakeConnector with default settings.
func New() connector.Connector {
	return &SnowflakeConnector{schemaName: "PUBLIC"}
}

// Connect opens the pool. With PrivateKeyPath set, key-pair (JWT)
// authentication replaces the password in the DSN; the key file must be
// PEM-encoded PKCS#1 or PKCS#8.
func (c *SnowflakeConnector) Connect(cfg connector.ConnectionConfig) error {
	dsn := cfg.DSN

	if cfg.PrivateKeyPath != "" {
		var err error
		dsn, err = buildJWTDSN(cfg.DSN, cfg.PrivateKeyPath)
		if err != nil {
			return fmt.Errorf("snowflake jwt auth: %w", err)
		}
	}

	db, err := sqlx.Connect("snowflake", dsn)
	if err != nil {
		return fmt.Errorf("snowflake connect: %w", err)
	}
	connector.ConfigurePool(db, cfg)

	if cfg.SchemaName != "" {
		c.schemaName = cfg.SchemaName
	}
	c.db = db
	return nil
}

// Disconnect closes the database connection pool.
func (c *SnowflakeConnector) Disconnect() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Ping verifies the database connection is alive.
func (c *SnowflakeConnector) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

// DB returns the underlying sqlx.DB connection pool.
func (c *SnowflakeConnector) DB() *sqlx.DB {
	return c.db
}

// DriverName returns the driver identifier for Snowflake.
func (c *SnowflakeConnector) DriverName() string { return "snowflake" }

// QuoteIdentifier upper-cases and double-quotes an identifier. Snowflake
// stores unquoted names in upper case, so catalog names like customers
// resolve to CUSTOMERS.
func (c *SnowflakeConnector) QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(strings.ToUpper(name), `"`, `""`) + `"`
}

// ParameterPlaceholder returns ?; Snowflake ignores the index.
func (c *SnowflakeConnector) ParameterPlaceholder(_ int) string {
	return "?"
}

// QualifiedTable returns "SCHEMA"."TABLE".
func (c *SnowflakeConnector) QualifiedTable(table string) string {
	return c.QuoteIdentifier(c.schemaName) + "." + c.QuoteIdentifier(table)
}

// Paginate uses LIMIT/OFFSET.
func (c *SnowflakeConnector) Paginate(limit, offset, next int) (string, []interface{}) {
	return connector.LimitOffset(c, limit, offset, next)
}

// BuildSelect renders req with ? placeholders.
func (c *SnowflakeConnector) BuildSelect(_ context.Context, req connector.SelectRequest) (string, []interface{}, error) {
	return connector.BuildSelect(c, req)
}

// TableNames lists tables and views in the configured schema.
func (c *SnowflakeConnector) TableNames(ctx context.Context) ([]string, error) {
	const query = `SELECT TABLE_NAME FROM INFORMATION_SCHEMA.TABLES
		WHERE TABLE_SCHEMA = ? ORDER BY TABLE_NAME`

	var names []string
	if err := c.db.SelectContext(ctx, &names, query, strings.ToUpper(c.schemaName)); err != nil {
		return nil, fmt.Errorf("get table names: %w", err)
	}
	return names, nil
}
