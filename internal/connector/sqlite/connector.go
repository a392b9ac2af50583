package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/erpgraph/erpgraph/internal/connector"
)

// SQLiteConnector implements connector.Connector for SQLite databases. It is
// used for local development and demo ERP datasets.
type SQLiteConnector struct {
	db *sqlx.DB
}

// New creates a new SQLiteConnector.
func New() connector.Connector {
	return &SQLiteConnector{}
}

// Connect opens the SQLite file named by the DSN, or ":memory:". An
// in-memory database is pinned to one connection so every query sees the
// same data.
func (c *SQLiteConnector) Connect(cfg connector.ConnectionConfig) error {
	db, err := sqlx.Connect("sqlite", cfg.DSN)
	if err != nil {
		return fmt.Errorf("sqlite connect: %w", err)
	}
	connector.ConfigurePool(db, cfg)
	if strings.HasPrefix(cfg.DSN, ":memory:") {
		db.SetMaxOpenConns(1)
	}

	c.db = db
	return nil
}

// Disconnect closes the database connection.
func (c *SQLiteConnector) Disconnect() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Ping verifies the database connection is alive.
func (c *SQLiteConnector) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

// DB returns the underlying sqlx.DB connection pool.
func (c *SQLiteConnector) DB() *sqlx.DB {
	return c.db
}

// DriverName returns the driver identifier for SQLite.
func (c *SQLiteConnector) DriverName() string { return "sqlite" }

// QuoteIdentifier wraps a SQL identifier in double quotes.
func (c *SQLiteConnector) QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// ParameterPlaceholder returns ?.
func (c *SQLiteConnector) ParameterPlaceholder(_ int) string {
	return "?"
}

// QualifiedTable returns "table"; SQLite has no schemas to qualify with.
func (c *SQLiteConnector) QualifiedTable(table string) string {
	return c.QuoteIdentifier(table)
}

// Paginate uses LIMIT/OFFSET.
func (c *SQLiteConnector) Paginate(limit, offset, next int) (string, []interface{}) {
	return connector.LimitOffset(c, limit, offset, next)
}

// BuildSelect renders req with ? placeholders.
func (c *SQLiteConnector) BuildSelect(_ context.Context, req connector.SelectRequest) (string, []interface{}, error) {
	return connector.BuildSelect(c, req)
}

// TableNames lists user tables and views.
func (c *SQLiteConnector) TableNames(ctx context.Context) ([]string, error) {
	const query = `SELECT name FROM sqlite_master
		WHERE type IN ('table', 'view') AND name NOT LIKE 'sqlite_%'
		ORDER BY name`

	var names []string
	if err := c.db.SelectContext(ctx, &names, query); err != nil {
		return nil, fmt.Errorf("get table names: %w", err)
	}
	return names, nil
}
