package pat

import (
	"crypto/sha256"
	"encoding/base64"
	"time"
)

const (
	// TokenMarker starts every personal access token
	TokenMarker = "p_"

	// PrefixLength is how much of the token is kept for display
	PrefixLength = 12

	secretBytes = 40

	CreateWarning = "Store this token securely. It will not be shown again."
)

// Token is the stored form of a personal access token. The secret itself is
// never stored; ID is derived from it with SHA-256.
type Token struct {
	ID          string
	UserID      string
	TokenPrefix string
	CreatedAt   time.Time
	IsActive    bool
	RevokedAt   *time.Time
}

// IsValid reports whether the token may still authenticate
func (t *Token) IsValid() bool {
	return t.IsActive
}

// Summary is the listing view of a token
type Summary struct {
	ID          string    `json:"id"`
	TokenPrefix string    `json:"tokenPrefix"`
	CreatedAt   time.Time `json:"createdAt"`
	IsActive    bool      `json:"isActive"`
}

// CreateResult carries the plaintext token. It is returned once, at creation.
type CreateResult struct {
	ID          string    `json:"id"`
	Token       string    `json:"token"`
	TokenPrefix string    `json:"tokenPrefix"`
	CreatedAt   time.Time `json:"createdAt"`
	Warning     string    `json:"warning"`
}

// HashToken derives the storage id of a token. The URL alphabet keeps the id
// usable as a path segment.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

func toSummary(t *Token) Summary {
	return Summary{
		ID:          t.ID,
		TokenPrefix: t.TokenPrefix,
		CreatedAt:   t.CreatedAt,
		IsActive:    t.IsActive,
	}
}
