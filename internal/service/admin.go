package service

import "crypto/subtle"

// AdminGate guards credential management with a single static key.
type AdminGate struct {
	key []byte
}

// NewAdminGate returns ErrAdminKeyNotConfigured for an empty key; the
// gateway must not start without one.
func NewAdminGate(key string) (*AdminGate, error) {
	if key == "" {
		return nil, ErrAdminKeyNotConfigured
	}
	return &AdminGate{key: []byte(key)}, nil
}

// Check reports whether supplied equals the configured key, in constant time.
func (g *AdminGate) Check(supplied string) bool {
	if supplied == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(supplied), g.key) == 1
}
