package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/redmonkez12/diary-api/internal/database"
)

var ErrNotFound = errors.New("user not found")

// Repository handles user data persistence
type Repository struct {
	db bun.IDB
}

func NewRepository(db bun.IDB) *Repository {
	return &Repository{db: db}
}

// Touch records a sign-in, creating the user on first sight. Empty email or
// name values never overwrite known ones.
func (r *Repository) Touch(ctx context.Context, id, email, displayName string, at time.Time) error {
	dbUser := &database.User{
		ID:          id,
		Email:       email,
		DisplayName: displayName,
		FirstSeenAt: at,
		LastSeenAt:  at,
	}

	_, err := r.db.NewInsert().
		Model(dbUser).
		On("CONFLICT (id) DO UPDATE").
		Set("email = COALESCE(NULLIF(EXCLUDED.email, ''), u.email)").
		Set("display_name = COALESCE(NULLIF(EXCLUDED.display_name, ''), u.display_name)").
		Set("last_seen_at = EXCLUDED.last_seen_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to touch user: %w", err)
	}

	return nil
}

// GetByID retrieves a user by ID
func (r *Repository) GetByID(ctx context.Context, id string) (*User, error) {
	dbUser := new(database.User)
	err := r.db.NewSelect().
		Model(dbUser).
		Where("id = ?", id).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}

	return mapDBUserToModel(dbUser), nil
}

// mapDBUserToModel converts database model to domain model
func mapDBUserToModel(dbu *database.User) *User {
	return &User{
		ID:          dbu.ID,
		Email:       dbu.Email,
		DisplayName: dbu.DisplayName,
		FirstSeenAt: dbu.FirstSeenAt,
		LastSeenAt:  dbu.LastSeenAt,
	}
}
