package mysql

import (
	"context"
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	"github.com/erpgraph/erpgraph/internal/connector"
)

// MySQLConnector implements connector.Connector for MySQL and MariaDB.
type MySQLConnector struct {
	db         *sqlx.DB
	schemaName string // empty means the DSN's default database
}

// New creates a new MySQLConnector with default settings.
func New() connector.Connector {
	return &MySQLConnector{}
}

// Connect opens the pool. parseTime is forced on so DATETIME columns scan
// as time.Time rather than []byte.
func (c *MySQLConnector) Connect(cfg connector.ConnectionConfig) error {
	dsn := cfg.DSN
	if !strings.Contains(dsn, "parseTime=") {
		if strings.Contains(dsn, "?") {
			dsn += "&parseTime=true"
		} else {
			dsn += "?parseTime=true"
		}
	}

	db, err := sqlx.Connect("mysql", dsn)
	if err != nil {
		return fmt.Errorf("mysql connect: %w", err)
	}
	connector.ConfigurePool(db, cfg)

	c.schemaName = cfg.SchemaName
	c.db = db
	return nil
}

// Disconnect closes the database connection pool.
func (c *MySQLConnector) Disconnect() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Ping verifies the database connection is alive.
func (c *MySQLConnector) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

// DB returns the underlying sqlx.DB connection pool.
func (c *MySQLConnector) DB() *sqlx.DB {
	return c.db
}

// DriverName returns the driver identifier for MySQL.
func (c *MySQLConnector) DriverName() string { return "mysql" }

// QuoteIdentifier wraps a SQL identifier in backticks.
func (c *MySQLConnector) QuoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// ParameterPlaceholder returns ?; MySQL placeholders are positional.
func (c *MySQLConnector) ParameterPlaceholder(_ int) string {
	return "?"
}

// QualifiedTable returns `schema`.`table`, or `table` when no schema is set.
func (c *MySQLConnector) QualifiedTable(table string) string {
	if c.schemaName == "" {
		return c.QuoteIdentifier(table)
	}
	return c.QuoteIdentifier(c.schemaName) + "." + c.QuoteIdentifier(table)
}

// Paginate uses LIMIT/OFFSET.
func (c *MySQLConnector) Paginate(limit, offset, next int) (string, []interface{}) {
	return connector.LimitOffset(c, limit, offset, next)
}

// BuildSelect renders req with ? placeholders.
func (c *MySQLConnector) BuildSelect(_ context.Context, req connector.SelectRequest) (string, []interface{}, error) {
	return connector.BuildSelect(c, req)
}

// TableNames lists tables and views in the configured (or current) database.
func (c *MySQLConnector) TableNames(ctx context.Context) ([]string, error) {
	query := `SELECT TABLE_NAME FROM information_schema.TABLES
		WHERE TABLE_SCHEMA = DATABASE() ORDER BY TABLE_NAME`
	var args []interface{}
	if c.schemaName != "" {
		query = `SELECT TABLE_NAME FROM information_schema.TABLES
			WHERE TABLE_SCHEMA = ? ORDER BY TABLE_NAME`
		args = append(args, c.schemaName)
	}

	var names []string
	if err := c.db.SelectContext(ctx, &names, query, args...); err != nil {
		return nil, fmt.Errorf("get table names: %w", err)
	}
	return names, nil
}
