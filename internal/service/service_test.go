package service

import (
	"context"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/erpgraph/erpgraph/internal/config"
	"github.com/erpgraph/erpgraph/internal/model"
	"github.com/erpgraph/erpgraph/internal/secret"
)

const testMasterKey = "0123456789abcdef0123456789abcdef"

type testEnv struct {
	store     *config.Store
	cipher    *secret.Store
	operators *OperatorService
	creds     *CredentialService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store, err := config.NewStore("")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	cipher, err := secret.New([]byte(testMasterKey))
	if err != nil {
		t.Fatalf("secret.New: %v", err)
	}

	ops := NewOperatorService(store)
	ops.cost = bcrypt.MinCost

	return &testEnv{
		store:     store,
		cipher:    cipher,
		operators: ops,
		creds:     NewCredentialService(store, cipher, ops),
	}
}

// seedCredential stores an active credential whose plaintext secret is known.
func (e *testEnv) seedCredential(t *testing.T, appKey, clientID, plain string) *model.Credential {
	t.Helper()
	sealed, err := e.cipher.Encrypt(plain)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	c := &model.Credential{AppKey: appKey, ClientID: clientID, EncryptedSecret: sealed, IsActive: true}
	if err := e.store.CreateCredential(context.Background(), c); err != nil {
		t.Fatalf("CreateCredential: %v", err)
	}
	return c
}

func (e *testEnv) seedOperator(t *testing.T, login, password string) {
	t.Helper()
	if _, err := e.operators.Create(context.Background(), login, "Test Operator", password); err != nil {
		t.Fatalf("Create operator: %v", err)
	}
}
