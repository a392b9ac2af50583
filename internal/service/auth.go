package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/erpgraph/erpgraph/internal/model"
	"github.com/erpgraph/erpgraph/internal/signature"
)

// TimestampWindow is how old a signed request's X-Timestamp may be.
// A request exactly TimestampWindow old is still accepted.
const TimestampWindow = 300 * time.Second

// Principal identifies the API client behind an authenticated request.
type Principal struct {
	CredentialID int64
	AppKey       string
	ClientID     string
}

// CredentialLookup is the registry read the authenticator needs.
// *CredentialService satisfies it.
type CredentialLookup interface {
	FindActiveCredential(ctx context.Context, appKey, clientID string) (*model.Credential, bool, error)
}

// RequestAuthenticator decides whether a request carrying the four HMAC
// headers may proceed. It holds no per-request state.
type RequestAuthenticator struct {
	creds        CredentialLookup
	cipher       SecretCipher
	now          func() time.Time
	window       time.Duration
	rejectFuture bool
	logger       *slog.Logger
}

// AuthOption configures a RequestAuthenticator.
type AuthOption func(*RequestAuthenticator)

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) AuthOption {
	return func(a *RequestAuthenticator) { a.now = now }
}

// WithRejectFutureTimestamps also rejects timestamps more than the window
// ahead of the server clock.
func WithRejectFutureTimestamps(reject bool) AuthOption {
	return func(a *RequestAuthenticator) { a.rejectFuture = reject }
}

// WithLogger sets the logger used for operational failures.
func WithLogger(l *slog.Logger) AuthOption {
	return func(a *RequestAuthenticator) { a.logger = l }
}

// NewRequestAuthenticator builds an authenticator over the registry and cipher.
func NewRequestAuthenticator(creds CredentialLookup, cipher SecretCipher, opts ...AuthOption) *RequestAuthenticator {
	a := &RequestAuthenticator{
		creds:  creds,
		cipher: cipher,
		now:    time.Now,
		window: TimestampWindow,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Authenticate runs the checks in order: headers present, timestamp fresh,
// credential active, secret decryptable, signature matching. Client failures
// wrap ErrUnauthorized; storage and decryption failures wrap ErrInternal.
func (a *RequestAuthenticator) Authenticate(ctx context.Context, h http.Header) (*Principal, error) {
	appKey := strings.TrimSpace(h.Get(signature.HeaderAppKey))
	clientID := strings.TrimSpace(h.Get(signature.HeaderClientID))
	timestamp := strings.TrimSpace(h.Get(signature.HeaderTimestamp))
	sig := strings.TrimSpace(h.Get(signature.HeaderSignature))

	if appKey == "" || clientID == "" || timestamp == "" || sig == "" {
		return nil, ErrMissingHeaders
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return nil, ErrTimestampExpired
	}
	// Compare against bounds rather than subtracting, so extreme header
	// values cannot overflow into the window.
	limit := int64(a.window / time.Second)
	now := a.now().Unix()
	if ts < now-limit || (a.rejectFuture && ts > now+limit) {
		return nil, ErrTimestampExpired
	}

	cred, ok, err := a.creds.FindActiveCredential(ctx, appKey, clientID)
	if err != nil {
		a.logger.Error("credential lookup failed", "app_key", appKey, "client_id", clientID, "error", err)
		return nil, fmt.Errorf("%w: credential lookup: %v", ErrInternal, err)
	}
	if !ok {
		return nil, ErrUnknownCredential
	}

	secret, err := a.cipher.Decrypt(cred.EncryptedSecret)
	if err != nil {
		a.logger.Error("stored credential failed to decrypt", "app_key", appKey, "client_id", clientID)
		return nil, ErrCredentialCorrupt
	}

	// Signed over the raw header string, not the parsed integer.
	if !signature.Verify(appKey, clientID, timestamp, secret, sig) {
		return nil, ErrInvalidSignature
	}

	return &Principal{
		CredentialID: cred.ID,
		AppKey:       cred.AppKey,
		ClientID:     cred.ClientID,
	}, nil
}
