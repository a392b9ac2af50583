// Package signature computes and verifies the HMAC-SHA256 request signatures
// used by erpgraph clients. The same functions back the client-side header
// helpers and the server-side verifier, so both sides always agree.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	// HeaderAppKey carries the caller's public app key.
	HeaderAppKey = "X-App-Key"
	// HeaderClientID carries the second half of the composite credential key.
	HeaderClientID = "X-Client-Id"
	// HeaderTimestamp is the unix timestamp (seconds) used when signing.
	HeaderTimestamp = "X-Timestamp"
	// HeaderSignature carries the lowercase hex HMAC-SHA256 signature.
	HeaderSignature = "X-Signature"
	// HeaderAdminKey guards credential issuance.
	HeaderAdminKey = "X-Admin-Key"
)

// Message returns the canonical signed payload. Fields are concatenated
// without a delimiter; this is the wire format clients already sign.
func Message(appKey, clientID, timestamp string) string {
	return appKey + clientID + timestamp
}

// Compute returns the lowercase hex HMAC-SHA256 of Message under secret.
func Compute(appKey, clientID, timestamp, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(Message(appKey, clientID, timestamp)))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether supplied is the signature for the given fields.
// The comparison is constant time over the hex-encoded digests.
func Verify(appKey, clientID, timestamp, secret, supplied string) bool {
	expected := Compute(appKey, clientID, timestamp, secret)
	return hmac.Equal([]byte(expected), []byte(strings.TrimSpace(supplied)))
}

// Headers builds the four authentication headers for a request signed at now.
func Headers(appKey, clientID, secret string, now time.Time) http.Header {
	ts := strconv.FormatInt(now.Unix(), 10)
	h := make(http.Header, 4)
	h.Set(HeaderAppKey, appKey)
	h.Set(HeaderClientID, clientID)
	h.Set(HeaderTimestamp, ts)
	h.Set(HeaderSignature, Compute(appKey, clientID, ts, secret))
	return h
}

// Sign sets the authentication headers on r, replacing any existing values.
func Sign(r *http.Request, appKey, clientID, secret string, now time.Time) {
	for k, v := range Headers(appKey, clientID, secret, now) {
		r.Header[k] = v
	}
}
