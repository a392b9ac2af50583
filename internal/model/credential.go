package model

import "time"

// Credential is one API client's trust anchor. The shared secret is stored
// only as an AES-256-GCM record ("ivHex:authTagHex:ciphertextHex"); the
// plaintext is handed out once at issuance and never persisted.
type Credential struct {
	ID              int64      `json:"id" db:"id"`
	AppKey          string     `json:"app_key" db:"app_key"`
	ClientID        string     `json:"client_id" db:"client_id"`
	EncryptedSecret string     `json:"-" db:"encrypted_secret"` // never expose
	Label           string     `json:"label" db:"label"`
	IssuedBy        string     `json:"issued_by" db:"issued_by"`
	IsActive        bool       `json:"is_active" db:"is_active"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
	DeactivatedAt   *time.Time `json:"deactivated_at,omitempty" db:"deactivated_at"`
}

// IssuedCredential is returned exactly once by credential issuance.
type IssuedCredential struct {
	AppKey    string    `json:"app_key"`
	ClientID  string    `json:"client_id"`
	Secret    string    `json:"secret"`
	Label     string    `json:"label,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
