package models

import (
	"time"

	"github.com/google/uuid"
)

// APIKey is a credential for POST / and GET /status. The raw key is printed
// once by the apikey tool; only its bcrypt hash and first characters are kept.
type APIKey struct {
	ID         uuid.UUID  `db:"id"           json:"id"`
	Name       string     `db:"name"         json:"name"`
	KeyHash    string     `db:"key_hash"     json:"-"`
	KeyPrefix  string     `db:"key_prefix"   json:"key_prefix"`
	LastUsedAt *time.Time `db:"last_used_at" json:"last_used_at,omitempty"`
	RevokedAt  *time.Time `db:"revoked_at"   json:"-"`
	CreatedAt  time.Time  `db:"created_at"   json:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at"   json:"updated_at"`
}

// NewAPIKey builds an unsaved key record stamped with now.
func NewAPIKey(name, prefix, hash string, now time.Time) *APIKey {
	now = now.UTC()
	return &APIKey{
		ID:        uuid.New(),
		Name:      name,
		KeyHash:   hash,
		KeyPrefix: prefix,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Active reports whether the key may still authenticate.
func (k *APIKey) Active() bool {
	return k.RevokedAt == nil
}
