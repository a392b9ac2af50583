package config

import "errors"

var (
	// ErrNotFound is returned when a requested resource does not exist in the store.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when an insert violates a uniqueness constraint.
	ErrConflict = errors.New("already exists")
	// ErrInvalidConfig wraps every startup configuration failure.
	ErrInvalidConfig = errors.New("invalid configuration")
)
