package pat

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/uptrace/bun"

	"github.com/redmonkez12/diary-api/internal/database"
)

const uniqueViolation = "23505"

// BunStore keeps tokens in the personal_access_tokens table
type BunStore struct {
	db bun.IDB
}

func NewBunStore(db bun.IDB) *BunStore {
	return &BunStore{db: db}
}

func (s *BunStore) Create(ctx context.Context, token *Token) error {
	row := &database.PersonalAccessToken{
		ID:          token.ID,
		UserID:      token.UserID,
		TokenPrefix: token.TokenPrefix,
		CreatedAt:   token.CreatedAt,
		IsActive:    token.IsActive,
		RevokedAt:   token.RevokedAt,
	}

	if _, err := s.db.NewInsert().Model(row).Exec(ctx); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return ErrTokenExists
		}
		return fmt.Errorf("failed to insert token: %w", err)
	}

	return nil
}

func (s *BunStore) Get(ctx context.Context, id string) (*Token, error) {
	row := new(database.PersonalAccessToken)
	err := s.db.NewSelect().
		Model(row).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get token: %w", err)
	}

	return mapDBToken(row), nil
}

func (s *BunStore) ListByUser(ctx context.Context, userID string) ([]*Token, error) {
	var rows []database.PersonalAccessToken
	err := s.db.NewSelect().
		Model(&rows).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tokens: %w", err)
	}

	tokens := make([]*Token, 0, len(rows))
	for i := range rows {
		tokens = append(tokens, mapDBToken(&rows[i]))
	}
	return tokens, nil
}

func (s *BunStore) Revoke(ctx context.Context, id, userID string, at time.Time) error {
	result, err := s.db.NewUpdate().
		Model((*database.PersonalAccessToken)(nil)).
		Set("is_active = ?", false).
		Set("revoked_at = ?", at).
		Where("id = ?", id).
		Where("user_id = ?", userID).
		Where("is_active = ?", true).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
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

func (s *BunStore) PurgeRevoked(ctx context.Context, before time.Time) (int, error) {
	result, err := s.db.NewDelete().
		Model((*database.PersonalAccessToken)(nil)).
		Where("is_active = ?", false).
		Where("revoked_at < ?", before).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to purge revoked tokens: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check rows affected: %w", err)
	}
	return int(rowsAffected), nil
}

func mapDBToken(row *database.PersonalAccessToken) *Token {
	return &Token{
		ID:          row.ID,
		UserID:      row.UserID,
		TokenPrefix: row.TokenPrefix,
		CreatedAt:   row.CreatedAt,
		IsActive:    row.IsActive,
		RevokedAt:   row.RevokedAt,
	}
}
