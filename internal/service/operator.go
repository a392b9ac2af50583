package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/erpgraph/erpgraph/internal/config"
	"github.com/erpgraph/erpgraph/internal/model"
)

// OperatorStore is the persistence OperatorService needs. *config.Store satisfies it.
type OperatorStore interface {
	CreateOperator(ctx context.Context, op *model.Operator) error
	GetOperatorByLogin(ctx context.Context, login string) (*model.Operator, error)
	ListOperators(ctx context.Context) ([]model.Operator, error)
	UpdateOperatorLastLogin(ctx context.Context, id int64) error
	SetOperatorActive(ctx context.Context, login string, active bool) error
}

// OperatorService manages the operators allowed to issue credentials and
// checks their passwords with bcrypt.
type OperatorService struct {
	store OperatorStore
	cost  int
}

// NewOperatorService returns an OperatorService using bcrypt.DefaultCost.
func NewOperatorService(store OperatorStore) *OperatorService {
	return &OperatorService{store: store, cost: bcrypt.DefaultCost}
}

// dummyHash keeps the unknown-login path doing the same bcrypt work as a
// real mismatch.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("erpgraph-dummy-password"), bcrypt.DefaultCost)

// Verify checks login/password and returns the operator. Unknown logins,
// inactive operators and wrong passwords all yield ErrInvalidOperator.
func (s *OperatorService) Verify(ctx context.Context, login, password string) (*model.Operator, error) {
	login = strings.TrimSpace(login)
	if login == "" || password == "" {
		return nil, ErrInvalidOperator
	}

	op, err := s.store.GetOperatorByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, config.ErrNotFound) {
			bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
			return nil, ErrInvalidOperator
		}
		return nil, fmt.Errorf("%w: lookup operator: %v", ErrInternal, err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(op.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidOperator
	}
	if !op.IsActive {
		return nil, ErrInvalidOperator
	}

	if err := s.store.UpdateOperatorLastLogin(ctx, op.ID); err != nil {
		slog.Warn("failed to record operator login", "login", op.Login, "error", err)
	}
	return op, nil
}

// Create hashes password and stores a new active operator.
func (s *OperatorService) Create(ctx context.Context, login, name, password string) (*model.Operator, error) {
	login = strings.TrimSpace(login)
	if login == "" {
		return nil, errors.New("operator login is required")
	}
	if len(password) < 8 {
		return nil, errors.New("operator password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	op := &model.Operator{
		Login:        login,
		PasswordHash: string(hash),
		Name:         name,
		IsActive:     true,
	}
	if err := s.store.CreateOperator(ctx, op); err != nil {
		return nil, err
	}
	return op, nil
}

// List returns all operators. Password hashes are never serialized.
func (s *OperatorService) List(ctx context.Context) ([]model.Operator, error) {
	return s.store.ListOperators(ctx)
}

// SetActive enables or disables an operator. Disabled operators cannot issue credentials.
func (s *OperatorService) SetActive(ctx context.Context, login string, active bool) error {
	return s.store.SetOperatorActive(ctx, login, active)
}
