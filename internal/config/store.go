package config

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/erpgraph/erpgraph/internal/model"
)

// Store manages the gateway's own state backed by SQLite: issued API
// credentials and the operators allowed to issue them. ERP data never
// lives here.
type Store struct {
	db *sqlx.DB
}

// NewStore creates a new config store. Pass empty string for in-memory.
func NewStore(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == "" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		dsn = filepath.Join(dataDir, "erpgraph.db") +
			"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sqlx.Connect("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open config database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes

	if err := runMigrations(db.DB); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate config database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks that the config database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// ---------------------------------------------------------------------------
// Credentials
// ---------------------------------------------------------------------------

// CreateCredential inserts a new credential. EncryptedSecret must already hold
// the sealed record. ID and CreatedAt are populated after a successful insert.
func (s *Store) CreateCredential(ctx context.Context, c *model.Credential) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}

	const q = `INSERT INTO credentials
		(app_key, client_id, encrypted_secret, label, issued_by, is_active, created_at)
		VALUES
		(:app_key, :client_id, :encrypted_secret, :label, :issued_by, :is_active, :created_at)`

	result, err := s.db.NamedExecContext(ctx, q, c)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("credential %s/%s: %w", c.AppKey, c.ClientID, ErrConflict)
		}
		return fmt.Errorf("insert credential: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get credential id: %w", err)
	}
	c.ID = id
	return nil
}

// FindActiveCredential returns the active credential for the given pair, or
// ErrNotFound when none exists or it has been deactivated.
func (s *Store) FindActiveCredential(ctx context.Context, appKey, clientID string) (*model.Credential, error) {
	var c model.Credential
	err := s.db.GetContext(ctx, &c,
		"SELECT * FROM credentials WHERE app_key = ? AND client_id = ? AND is_active = 1",
		appKey, clientID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find active credential: %w", err)
	}
	return &c, nil
}

// ListCredentials returns every credential, newest first.
func (s *Store) ListCredentials(ctx context.Context) ([]model.Credential, error) {
	var creds []model.Credential
	if err := s.db.SelectContext(ctx, &creds, "SELECT * FROM credentials ORDER BY created_at DESC, id DESC"); err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}
	return creds, nil
}

// DeactivateCredential marks the active credential for the pair inactive.
// Returns ErrNotFound if no active credential matched.
func (s *Store) DeactivateCredential(ctx context.Context, appKey, clientID string) error {
	now := time.Now().UTC()
	result, err := s.db.ExecContext(ctx,
		"UPDATE credentials SET is_active = 0, deactivated_at = ? WHERE app_key = ? AND client_id = ? AND is_active = 1",
		now, appKey, clientID)
	if err != nil {
		return fmt.Errorf("deactivate credential: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("deactivate credential rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ---------------------------------------------------------------------------
// Operators
// ---------------------------------------------------------------------------

// CreateOperator inserts a new operator. PasswordHash must already be a bcrypt
// hash. ID and CreatedAt are populated after a successful insert.
func (s *Store) CreateOperator(ctx context.Context, op *model.Operator) error {
	op.CreatedAt = time.Now().UTC()

	const q = `INSERT INTO operators
		(login, password_hash, name, is_active, created_at)
		VALUES
		(:login, :password_hash, :name, :is_active, :created_at)`

	result, err := s.db.NamedExecContext(ctx, q, op)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("operator %q: %w", op.Login, ErrConflict)
		}
		return fmt.Errorf("insert operator: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get operator id: %w", err)
	}
	op.ID = id
	return nil
}

// GetOperatorByLogin returns an operator by login name.
func (s *Store) GetOperatorByLogin(ctx context.Context, login string) (*model.Operator, error) {
	var op model.Operator
	if err := s.db.GetContext(ctx, &op, "SELECT * FROM operators WHERE login = ?", login); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get operator by login: %w", err)
	}
	return &op, nil
}

// ListOperators returns all operators ordered by login.
func (s *Store) ListOperators(ctx context.Context) ([]model.Operator, error) {
	var ops []model.Operator
	if err := s.db.SelectContext(ctx, &ops, "SELECT * FROM operators ORDER BY login"); err != nil {
		return nil, fmt.Errorf("list operators: %w", err)
	}
	return ops, nil
}

// HasAnyOperator reports whether at least one operator exists.
func (s *Store) HasAnyOperator(ctx context.Context) (bool, error) {
	var count int
	if err := s.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM operators"); err != nil {
		return false, fmt.Errorf("count operators: %w", err)
	}
	return count > 0, nil
}

// UpdateOperatorLastLogin sets last_login_at for an operator.
func (s *Store) UpdateOperatorLastLogin(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE operators SET last_login_at = ? WHERE id = ?", time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update operator last login: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update operator last login rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetOperatorActive enables or disables an operator by login.
func (s *Store) SetOperatorActive(ctx context.Context, login string, active bool) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE operators SET is_active = ? WHERE login = ?", active, login)
	if err != nil {
		return fmt.Errorf("set operator active: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("set operator active rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
