package service

import "errors"

var (
	// ErrUnauthorized is wrapped by every client-side authentication failure.
	// The HTTP layer answers these with 401.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInternal is wrapped by operational failures (storage, corrupt
	// records). The HTTP layer answers these with 500.
	ErrInternal = errors.New("internal error")

	ErrMissingHeaders    = &kindError{msg: "missing authentication headers", kind: ErrUnauthorized}
	ErrTimestampExpired  = &kindError{msg: "timestamp invalid or expired", kind: ErrUnauthorized}
	ErrUnknownCredential = &kindError{msg: "invalid app key or client id", kind: ErrUnauthorized}
	ErrInvalidSignature  = &kindError{msg: "invalid signature", kind: ErrUnauthorized}
	ErrCredentialCorrupt = &kindError{msg: "stored credential could not be decrypted", kind: ErrInternal}

	// ErrInvalidOperator is returned by issuance when the operator
	// login/password pair does not check out.
	ErrInvalidOperator = &kindError{msg: "invalid operator credentials", kind: ErrUnauthorized}

	// ErrAdminKeyNotConfigured is returned by NewAdminGate for an empty key.
	ErrAdminKeyNotConfigured = errors.New("admin key not configured")
)

// kindError is a sentinel with its own message that also matches a broader
// class under errors.Is.
type kindError struct {
	msg  string
	kind error
}

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Unwrap() error { return e.kind }
