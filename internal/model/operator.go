package model

import "time"

// Operator is a person allowed to issue credentials. The login/password
// supplied on issuance is checked against this record. Passwords are stored
// as bcrypt hashes.
type Operator struct {
	ID           int64      `json:"id" db:"id"`
	Login        string     `json:"login" db:"login"`
	PasswordHash string     `json:"-" db:"password_hash"` // bcrypt hash, never expose
	Name         string     `json:"name" db:"name"`
	IsActive     bool       `json:"is_active" db:"is_active"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty" db:"last_login_at"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
}
