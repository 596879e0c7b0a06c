package models

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// authTokenBytes yields a 40 character hex key.
const authTokenBytes = 20

// AuthToken is an opaque bearer credential bound to exactly one user.
type AuthToken struct {
	Key       string     `gorm:"column:token_key;primaryKey;type:varchar(40)" json:"-"`
	UserID    string     `gorm:"size:36;not null;index" json:"user_id"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}

// NewAuthToken generates an unpredictable key for userID. A zero ttl
// produces a token that never expires.
func NewAuthToken(userID string, ttl time.Duration) (*AuthToken, error) {
	buf := make([]byte, authTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("failed to generate token key: %w", err)
	}
	token := &AuthToken{Key: hex.EncodeToString(buf), UserID: userID}
	if ttl > 0 {
		expires := time.Now().UTC().Add(ttl)
		token.ExpiresAt = &expires
	}
	return token, nil
}

// Expired reports whether the token carries an expiry that has passed.
func (t *AuthToken) Expired(now time.Time) bool {
	return t.ExpiresAt != nil && !now.Before(*t.ExpiresAt)
}
