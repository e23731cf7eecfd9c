package recommendation

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/redmonkez12/diary-api/internal/database"
)

// Repository handles recommendation persistence
type Repository struct {
	db bun.IDB
}

func NewRepository(db bun.IDB) *Repository {
	return &Repository{db: db}
}

// Create inserts a recommendation
func (r *Repository) Create(ctx context.Context, rec *Recommendation) error {
	row := &database.Recommendation{
		ID:     rec.ID,
		UserID: rec.UserID,
		Date:   rec.Date,
		Text:   rec.Text,
	}

	if _, err := r.db.NewInsert().Model(row).Exec(ctx); err != nil {
		return fmt.Errorf("failed to create recommendation: %w", err)
	}
	return nil
}

// ListRecent returns the user's n most recent recommendations, newest first
func (r *Repository) ListRecent(ctx context.Context, userID string, n int) ([]*Recommendation, error) {
	var rows []database.Recommendation
	err := r.db.NewSelect().
		Model(&rows).
		Where("user_id = ?", userID).
		Order("date DESC").
		Limit(n).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list recommendations: %w", err)
	}

	result := make([]*Recommendation, 0, len(rows))
	for _, row := range rows {
		result = append(result, &Recommendation{
			ID:     row.ID,
			UserID: row.UserID,
			Date:   row.Date,
			Text:   row.Text,
		})
	}
	return result, nil
}

// PurgeOlderThan deletes recommendations dated before the cutoff
func (r *Repository) PurgeOlderThan(ctx context.Context, before time.Time) (int, error) {
	result, err := r.db.NewDelete().
		Model((*database.Recommendation)(nil)).
		Where("date < ?", before).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to purge recommendations: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check rows affected: %w", err)
	}
	return int(n), nil
}
