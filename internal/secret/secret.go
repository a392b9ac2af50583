// Package secret encrypts per-client shared secrets at rest with AES-256-GCM.
//
// A stored record is three colon-separated lowercase hex fields:
//
//	ivHex:authTagHex:ciphertextHex
package secret

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	// KeySize is the required master key length in bytes (AES-256).
	KeySize = 32
	ivSize  = 16
	tagSize = 16
)

var (
	// ErrInvalidKeyLength is returned by New when the master key is not KeySize bytes.
	ErrInvalidKeyLength = fmt.Errorf("master key must be exactly %d bytes", KeySize)
	// ErrDecrypt is wrapped by every Decrypt failure.
	ErrDecrypt = errors.New("decrypt secret")
)

// Store seals and opens secret records with a process-wide master key.
// It holds no mutable state and is safe for concurrent use.
type Store struct {
	aead cipher.AEAD
}

// New builds a Store from a 32-byte master key.
func New(masterKey []byte) (*Store, error) {
	if len(masterKey) != KeySize {
		return nil, ErrInvalidKeyLength
	}
	block, err := aes.NewCipher(masterKey)
	if err != nil {
		return nil, fmt.Errorf("aes.NewCipher: %w", err)
	}
	aead, err := cipher.NewGCMWithNonceSize(block, ivSize)
	if err != nil {
		return nil, fmt.Errorf("cipher.NewGCM: %w", err)
	}
	return &Store{aead: aead}, nil
}

// Encrypt seals plaintext under a fresh random IV.
func (s *Store) Encrypt(plaintext string) (string, error) {
	iv := make([]byte, ivSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", fmt.Errorf("rand iv: %w", err)
	}

	// Seal returns ciphertext || tag.
	sealed := s.aead.Seal(nil, iv, []byte(plaintext), nil)
	ct, tag := sealed[:len(sealed)-tagSize], sealed[len(sealed)-tagSize:]

	return hex.EncodeToString(iv) + ":" + hex.EncodeToString(tag) + ":" + hex.EncodeToString(ct), nil
}

// Decrypt opens a record produced by Encrypt. Any malformed or tampered
// record yields an error wrapping ErrDecrypt.
func (s *Store) Decrypt(record string) (string, error) {
	parts := strings.Split(record, ":")
	if len(parts) != 3 {
		return "", fmt.Errorf("%w: expected 3 fields, got %d", ErrDecrypt, len(parts))
	}

	iv, err := hex.DecodeString(parts[0])
	if err != nil {
		return "", fmt.Errorf("%w: iv: %v", ErrDecrypt, err)
	}
	tag, err := hex.DecodeString(parts[1])
	if err != nil {
		return "", fmt.Errorf("%w: auth tag: %v", ErrDecrypt, err)
	}
	ct, err := hex.DecodeString(parts[2])
	if err != nil {
		return "", fmt.Errorf("%w: ciphertext: %v", ErrDecrypt, err)
	}
	if len(iv) != ivSize {
		return "", fmt.Errorf("%w: iv must be %d bytes", ErrDecrypt, ivSize)
	}
	if len(tag) != tagSize {
		return "", fmt.Errorf("%w: auth tag must be %d bytes", ErrDecrypt, tagSize)
	}

	sealed := make([]byte, 0, len(ct)+len(tag))
	sealed = append(sealed, ct...)
	sealed = append(sealed, tag...)

	plaintext, err := s.aead.Open(nil, iv, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	return string(plaintext), nil
}
