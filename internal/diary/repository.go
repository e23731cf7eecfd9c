package diary

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/redmonkez12/diary-api/internal/database"
)

// Cipher protects entry content at rest
type Cipher interface {
	Encrypt(plainText, associated string) (string, error)
	Decrypt(encrypted, associated string) (string, error)
}

// Repository stores entries with their content encrypted, bound to the owner id
type Repository struct {
	db     bun.IDB
	cipher Cipher
}

func NewRepository(db bun.IDB, cipher Cipher) *Repository {
	return &Repository{db: db, cipher: cipher}
}

// Create inserts a new entry
func (r *Repository) Create(ctx context.Context, e *Entry) error {
	row, err := r.toRow(e)
	if err != nil {
		return err
	}

	if _, err := r.db.NewInsert().Model(row).Exec(ctx); err != nil {
		return fmt.Errorf("failed to create diary entry: %w", err)
	}
	return nil
}

// Get returns one of the user's entries
func (r *Repository) Get(ctx context.Context, id uuid.UUID, userID string) (*Entry, error) {
	row := new(database.DiaryEntry)
	err := r.db.NewSelect().
		Model(row).
		Where("id = ?", id).
		Where("user_id = ?", userID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get diary entry: %w", err)
	}

	return r.fromRow(row)
}

// List returns a page of the user's entries, newest first, and the total count
func (r *Repository) List(ctx context.Context, userID string, limit, offset int) ([]*Entry, int, error) {
	var rows []database.DiaryEntry
	total, err := r.db.NewSelect().
		Model(&rows).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		ScanAndCount(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list diary entries: %w", err)
	}

	entries, err := r.fromRows(rows)
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

// ListSince returns at most limit entries created at or after since, newest first
func (r *Repository) ListSince(ctx context.Context, userID string, since time.Time, limit int) ([]*Entry, error) {
	var rows []database.DiaryEntry
	err := r.db.NewSelect().
		Model(&rows).
		Where("user_id = ?", userID).
		Where("created_at >= ?", since).
		Order("created_at DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent diary entries: %w", err)
	}

	return r.fromRows(rows)
}

// Update replaces title, content and mood of an existing entry
func (r *Repository) Update(ctx context.Context, e *Entry) error {
	row, err := r.toRow(e)
	if err != nil {
		return err
	}

	result, err := r.db.NewUpdate().
		Model(row).
		Column("title", "content", "mood", "updated_at").
		Where("id = ?", e.ID).
		Where("user_id = ?", e.UserID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update diary entry: %w", err)
	}

	return requireRow(result)
}

// Delete removes one of the user's entries
func (r *Repository) Delete(ctx context.Context, id uuid.UUID, userID string) error {
	result, err := r.db.NewDelete().
		Model((*database.DiaryEntry)(nil)).
		Where("id = ?", id).
		Where("user_id = ?", userID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete diary entry: %w", err)
	}

	return requireRow(result)
}

func requireRow(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) toRow(e *Entry) (*database.DiaryEntry, error) {
	content, err := r.cipher.Encrypt(e.Content, e.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt diary entry: %w", err)
	}

	return &database.DiaryEntry{
		ID:        e.ID,
		UserID:    e.UserID,
		Title:     e.Title,
		Content:   content,
		Mood:      e.Mood,
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}, nil
}

func (r *Repository) fromRow(row *database.DiaryEntry) (*Entry, error) {
	content, err := r.cipher.Decrypt(row.Content, row.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt diary entry %s: %w", row.ID, err)
	}

	return &Entry{
		ID:        row.ID,
		UserID:    row.UserID,
		Title:     row.Title,
		Content:   content,
		Mood:      row.Mood,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}, nil
}

func (r *Repository) fromRows(rows []database.DiaryEntry) ([]*Entry, error) {
	entries := make([]*Entry, 0, len(rows))
	for i := range rows {
		e, err := r.fromRow(&rows[i])
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}
