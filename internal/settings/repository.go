package settings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/redmonkez12/diary-api/internal/database"
	"github.com/redmonkez12/diary-api/internal/logging"
)

// Repository handles email settings persistence
type Repository struct {
	db     bun.IDB
	logger *logging.Logger
}

func NewRepository(db bun.IDB, logger *logging.Logger) *Repository {
	return &Repository{db: db, logger: logger}
}

// GetByUser retrieves the settings of a user
func (r *Repository) GetByUser(ctx context.Context, userID string) (*EmailSettings, error) {
	row := new(database.EmailSettings)
	err := r.db.NewSelect().
		Model(row).
		Where("user_id = ?", userID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get email settings: %w", err)
	}

	return mapDBSettings(row)
}

// Upsert creates or replaces the user's settings; last_email_sent is kept
func (r *Repository) Upsert(ctx context.Context, s *EmailSettings) (*EmailSettings, error) {
	row := &database.EmailSettings{
		ID:            uuid.New(),
		UserID:        s.UserID,
		Email:         s.Email,
		PreferredTime: s.PreferredTime.String(),
		IsEnabled:     s.IsEnabled,
		TimeZone:      s.TimeZone,
		CreatedAt:     s.UpdatedAt,
		UpdatedAt:     s.UpdatedAt,
	}

	_, err := r.db.NewInsert().
		Model(row).
		On("CONFLICT (user_id) DO UPDATE").
		Set("email = EXCLUDED.email").
		Set("preferred_time = EXCLUDED.preferred_time").
		Set("is_enabled = EXCLUDED.is_enabled").
		Set("time_zone = EXCLUDED.time_zone").
		Set("updated_at = EXCLUDED.updated_at").
		Returning("*").
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to save email settings: %w", err)
	}

	return mapDBSettings(row)
}

// Delete removes the user's settings
func (r *Repository) Delete(ctx context.Context, userID string) error {
	result, err := r.db.NewDelete().
		Model((*database.EmailSettings)(nil)).
		Where("user_id = ?", userID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete email settings: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// ListEnabled returns every enabled settings record. Rows that cannot be
// decoded are logged and left out so one bad record cannot stall dispatch.
func (r *Repository) ListEnabled(ctx context.Context) ([]*EmailSettings, error) {
	var rows []database.EmailSettings
	err := r.db.NewSelect().
		Model(&rows).
		Where("is_enabled = ?", true).
		Order("user_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list enabled email settings: %w", err)
	}

	result := make([]*EmailSettings, 0, len(rows))
	for i := range rows {
		s, err := mapDBSettings(&rows[i])
		if err != nil {
			r.logger.Error("skipping unreadable email settings", "user_id", rows[i].UserID, "error", err)
			continue
		}
		result = append(result, s)
	}
	return result, nil
}

// MarkSent records a successful dispatch
func (r *Repository) MarkSent(ctx context.Context, userID string, at time.Time) error {
	result, err := r.db.NewUpdate().
		Model((*database.EmailSettings)(nil)).
		Set("last_email_sent = ?", at).
		Set("updated_at = ?", at).
		Where("user_id = ?", userID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to mark email sent: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

func mapDBSettings(row *database.EmailSettings) (*EmailSettings, error) {
	preferred, err := ParseLocalTime(row.PreferredTime)
	if err != nil {
		return nil, fmt.Errorf("settings for user %s: %w", row.UserID, err)
	}

	return &EmailSettings{
		ID:            row.ID,
		UserID:        row.UserID,
		Email:         row.Email,
		PreferredTime: preferred,
		IsEnabled:     row.IsEnabled,
		TimeZone:      row.TimeZone,
		LastEmailSent: row.LastEmailSent,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}, nil
}
