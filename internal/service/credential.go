package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/erpgraph/erpgraph/internal/config"
	"github.com/erpgraph/erpgraph/internal/model"
)

const (
	appKeyBytes = 16 // 32 hex chars
	secretBytes = 32 // 64 hex chars
)

// CredentialStore is the persistence the credential registry needs.
// *config.Store satisfies it.
type CredentialStore interface {
	FindActiveCredential(ctx context.Context, appKey, clientID string) (*model.Credential, error)
	CreateCredential(ctx context.Context, c *model.Credential) error
	DeactivateCredential(ctx context.Context, appKey, clientID string) error
	ListCredentials(ctx context.Context) ([]model.Credential, error)
}

// SecretCipher seals and opens credential secrets. *secret.Store satisfies it.
type SecretCipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(record string) (string, error)
}

// OperatorVerifier checks the login/password pair supplied on issuance.
type OperatorVerifier interface {
	Verify(ctx context.Context, login, password string) (*model.Operator, error)
}

// CredentialService is the credential registry: it looks up active
// credentials for the authenticator and issues new ones.
type CredentialService struct {
	store     CredentialStore
	cipher    SecretCipher
	operators OperatorVerifier
	now       func() time.Time
}

// NewCredentialService wires the registry to its store, cipher and operator check.
func NewCredentialService(store CredentialStore, cipher SecretCipher, operators OperatorVerifier) *CredentialService {
	return &CredentialService{
		store:     store,
		cipher:    cipher,
		operators: operators,
		now:       time.Now,
	}
}

// FindActiveCredential returns the active credential for the pair. A missing
// or deactivated credential is (nil, false, nil); only storage failures are errors.
func (s *CredentialService) FindActiveCredential(ctx context.Context, appKey, clientID string) (*model.Credential, bool, error) {
	c, err := s.store.FindActiveCredential(ctx, appKey, clientID)
	if err != nil {
		if errors.Is(err, config.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return c, true, nil
}

// Create verifies the operator, generates a fresh appKey/clientId/secret,
// stores the encrypted secret and returns the plaintext. The plaintext is
// not retrievable afterwards.
func (s *CredentialService) Create(ctx context.Context, login, password, label string) (*model.IssuedCredential, error) {
	op, err := s.operators.Verify(ctx, login, password)
	if err != nil {
		return nil, err
	}

	appKey, err := randomHex(appKeyBytes)
	if err != nil {
		return nil, fmt.Errorf("generate app key: %w", err)
	}
	clientID, err := uuid.NewRandom()
	if err != nil {
		return nil, fmt.Errorf("generate client id: %w", err)
	}
	plain, err := randomHex(secretBytes)
	if err != nil {
		return nil, fmt.Errorf("generate secret: %w", err)
	}

	sealed, err := s.cipher.Encrypt(plain)
	if err != nil {
		return nil, fmt.Errorf("encrypt secret: %w", err)
	}

	c := &model.Credential{
		AppKey:          appKey,
		ClientID:        clientID.String(),
		EncryptedSecret: sealed,
		Label:           strings.TrimSpace(label),
		IssuedBy:        op.Login,
		IsActive:        true,
		CreatedAt:       s.now().UTC(),
	}
	if err := s.store.CreateCredential(ctx, c); err != nil {
		return nil, fmt.Errorf("store credential: %w", err)
	}

	slog.Info("credential issued", "app_key", c.AppKey, "client_id", c.ClientID, "issued_by", c.IssuedBy)

	return &model.IssuedCredential{
		AppKey:    c.AppKey,
		ClientID:  c.ClientID,
		Secret:    plain,
		Label:     c.Label,
		CreatedAt: c.CreatedAt,
	}, nil
}

// Deactivate marks the active credential for the pair inactive. Returns an
// error wrapping config.ErrNotFound when nothing active matched.
func (s *CredentialService) Deactivate(ctx context.Context, appKey, clientID string) error {
	if err := s.store.DeactivateCredential(ctx, appKey, clientID); err != nil {
		return err
	}
	slog.Info("credential deactivated", "app_key", appKey, "client_id", clientID)
	return nil
}

// List returns every credential. Secrets are never included.
func (s *CredentialService) List(ctx context.Context) ([]model.Credential, error) {
	return s.store.ListCredentials(ctx)
}

// RevealSecret decrypts the stored secret of an active credential. It backs
// the local `sign` command, which runs with the master key on the host.
func (s *CredentialService) RevealSecret(ctx context.Context, appKey, clientID string) (string, error) {
	c, ok, err := s.FindActiveCredential(ctx, appKey, clientID)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrUnknownCredential
	}
	plain, err := s.cipher.Decrypt(c.EncryptedSecret)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCredentialCorrupt, err)
	}
	return plain, nil
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
