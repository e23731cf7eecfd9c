package pat

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound     = errors.New("token not found")
	ErrTokenExists  = errors.New("token already exists")
	ErrUserRequired = errors.New("user id is required")
)

// Store persists token records keyed by id and by owner
type Store interface {
	// Create fails with ErrTokenExists when the id is taken
	Create(ctx context.Context, token *Token) error
	// Get returns ErrNotFound for unknown ids
	Get(ctx context.Context, id string) (*Token, error)
	ListByUser(ctx context.Context, userID string) ([]*Token, error)
	// Revoke deactivates an active token owned by userID, else ErrNotFound
	Revoke(ctx context.Context, id, userID string, at time.Time) error
	PurgeRevoked(ctx context.Context, before time.Time) (int, error)
}
