package config

import (
	"context"
	"errors"
	"testing"

	"github.com/erpgraph/erpgraph/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore("") // in-memory
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCredentialCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	c := &model.Credential{
		AppKey:          "ak1",
		ClientID:        "c1",
		EncryptedSecret: "00:11:22",
		Label:           "billing",
		IssuedBy:        "ops",
		IsActive:        true,
	}
	if err := s.CreateCredential(ctx, c); err != nil {
		t.Fatalf("CreateCredential: %v", err)
	}
	if c.ID == 0 {
		t.Fatal("expected non-zero ID after create")
	}

	got, err := s.FindActiveCredential(ctx, "ak1", "c1")
	if err != nil {
		t.Fatalf("FindActiveCredential: %v", err)
	}
	if got.EncryptedSecret != "00:11:22" {
		t.Errorf("got encrypted secret %q, want %q", got.EncryptedSecret, "00:11:22")
	}
	if !got.IsActive {
		t.Error("expected credential to be active")
	}
	if got.Label != "billing" || got.IssuedBy != "ops" {
		t.Errorf("got label/issued_by %q/%q", got.Label, got.IssuedBy)
	}
	if got.DeactivatedAt != nil {
		t.Errorf("expected nil DeactivatedAt, got %v", got.DeactivatedAt)
	}

	list, err := s.ListCredentials(ctx)
	if err != nil {
		t.Fatalf("ListCredentials: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("got %d credentials, want 1", len(list))
	}
}

func TestFindActiveCredential_NotFound(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.CreateCredential(ctx, &model.Credential{
		AppKey: "ak1", ClientID: "c1", EncryptedSecret: "x", IsActive: true,
	}); err != nil {
		t.Fatalf("CreateCredential: %v", err)
	}

	tests := []struct {
		appKey, clientID string
	}{
		{"ak1", "c2"},
		{"ak2", "c1"},
		{"", ""},
	}
	for _, tt := range tests {
		_, err := s.FindActiveCredential(ctx, tt.appKey, tt.clientID)
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("FindActiveCredential(%q, %q) error = %v, want ErrNotFound", tt.appKey, tt.clientID, err)
		}
	}
}

func TestDeactivateCredential(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	c := &model.Credential{AppKey: "ak1", ClientID: "c1", EncryptedSecret: "x", IsActive: true}
	if err := s.CreateCredential(ctx, c); err != nil {
		t.Fatalf("CreateCredential: %v", err)
	}

	if err := s.DeactivateCredential(ctx, "ak1", "c1"); err != nil {
		t.Fatalf("DeactivateCredential: %v", err)
	}

	// Inactive rows are invisible to the lookup but retained.
	if _, err := s.FindActiveCredential(ctx, "ak1", "c1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after deactivation, got %v", err)
	}
	list, err := s.ListCredentials(ctx)
	if err != nil {
		t.Fatalf("ListCredentials: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("got %d credentials, want 1", len(list))
	}
	if list[0].IsActive {
		t.Error("expected listed credential to be inactive")
	}
	if list[0].DeactivatedAt == nil {
		t.Error("expected DeactivatedAt to be set")
	}

	// Second deactivation finds nothing active.
	if err := s.DeactivateCredential(ctx, "ak1", "c1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on second deactivation, got %v", err)
	}
}

func TestCreateCredential_Duplicate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	c := &model.Credential{AppKey: "ak1", ClientID: "c1", EncryptedSecret: "x", IsActive: true}
	if err := s.CreateCredential(ctx, c); err != nil {
		t.Fatalf("CreateCredential: %v", err)
	}
	dup := &model.Credential{AppKey: "ak1", ClientID: "c1", EncryptedSecret: "y", IsActive: true}
	if err := s.CreateCredential(ctx, dup); !errors.Is(err, ErrConflict) {
		t.Errorf("expected ErrConflict, got %v", err)
	}
}

func TestOperatorCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	has, err := s.HasAnyOperator(ctx)
	if err != nil {
		t.Fatalf("HasAnyOperator: %v", err)
	}
	if has {
		t.Error("expected no operators on a fresh store")
	}

	op := &model.Operator{
		Login:        "ops",
		PasswordHash: "$2a$10$fakehash",
		Name:         "Ops Team",
		IsActive:     true,
	}
	if err := s.CreateOperator(ctx, op); err != nil {
		t.Fatalf("CreateOperator: %v", err)
	}
	if op.ID == 0 {
		t.Fatal("expected non-zero ID after create")
	}

	got, err := s.GetOperatorByLogin(ctx, "ops")
	if err != nil {
		t.Fatalf("GetOperatorByLogin: %v", err)
	}
	if got.Name != "Ops Team" {
		t.Errorf("got name %q, want %q", got.Name, "Ops Team")
	}
	if got.LastLoginAt != nil {
		t.Error("expected nil LastLoginAt before first login")
	}

	if err := s.UpdateOperatorLastLogin(ctx, op.ID); err != nil {
		t.Fatalf("UpdateOperatorLastLogin: %v", err)
	}
	got, _ = s.GetOperatorByLogin(ctx, "ops")
	if got.LastLoginAt == nil {
		t.Error("expected LastLoginAt to be set")
	}

	if err := s.UpdateOperatorLastLogin(ctx, 9999); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown id, got %v", err)
	}

	if _, err := s.GetOperatorByLogin(ctx, "nobody"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	if err := s.CreateOperator(ctx, &model.Operator{Login: "ops", PasswordHash: "x"}); !errors.Is(err, ErrConflict) {
		t.Errorf("expected ErrConflict for duplicate login, got %v", err)
	}

	ops, err := s.ListOperators(ctx)
	if err != nil {
		t.Fatalf("ListOperators: %v", err)
	}
	if len(ops) != 1 {
		t.Errorf("got %d operators, want 1", len(ops))
	}
}

func TestNewStore_OnDisk(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if err := s.CreateOperator(ctx, &model.Operator{Login: "ops", PasswordHash: "x", IsActive: true}); err != nil {
		t.Fatalf("CreateOperator: %v", err)
	}
	s.Close()

	// Reopening runs migrations again without touching existing rows.
	s2, err := NewStore(dir)
	if err != nil {
		t.Fatalf("reopen NewStore: %v", err)
	}
	defer s2.Close()

	if _, err := s2.GetOperatorByLogin(ctx, "ops"); err != nil {
		t.Errorf("GetOperatorByLogin after reopen: %v", err)
	}
	if err := s2.Ping(ctx); err != nil {
		t.Errorf("Ping: %v", err)
	}
}

func TestSetOperatorActive(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.CreateOperator(ctx, &model.Operator{Login: "ops", PasswordHash: "x", IsActive: true}); err != nil {
		t.Fatalf("CreateOperator: %v", err)
	}
	if err := s.SetOperatorActive(ctx, "ops", false); err != nil {
		t.Fatalf("SetOperatorActive: %v", err)
	}
	got, _ := s.GetOperatorByLogin(ctx, "ops")
	if got.IsActive {
		t.Error("expected operator to be inactive")
	}
	if err := s.SetOperatorActive(ctx, "ghost", true); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
