package diary

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store is the entry persistence used by Service
type Store interface {
	Create(ctx context.Context, e *Entry) error
	Get(ctx context.Context, id uuid.UUID, userID string) (*Entry, error)
	List(ctx context.Context, userID string, limit, offset int) ([]*Entry, int, error)
	ListSince(ctx context.Context, userID string, since time.Time, limit int) ([]*Entry, error)
	Update(ctx context.Context, e *Entry) error
	Delete(ctx context.Context, id uuid.UUID, userID string) error
}

type Service struct {
	store Store
	now   func() time.Time
}

func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// Create validates and stores a new entry for userID
func (s *Service) Create(ctx context.Context, userID string, req EntryRequest) (*Entry, error) {
	if err := req.Normalize(); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	entry := &Entry{
		ID:        uuid.New(),
		UserID:    userID,
		Title:     req.Title,
		Content:   req.Content,
		Mood:      req.Mood,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.store.Create(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *Service) Get(ctx context.Context, userID string, id uuid.UUID) (*Entry, error) {
	return s.store.Get(ctx, id, userID)
}

func (s *Service) List(ctx context.Context, userID string, limit, offset int) (*Page, error) {
	entries, total, err := s.store.List(ctx, userID, limit, offset)
	if err != nil {
		return nil, err
	}

	return &Page{Entries: entries, Total: total, Limit: limit, Offset: offset}, nil
}

// Update replaces an existing entry's fields and keeps its creation time
func (s *Service) Update(ctx context.Context, userID string, id uuid.UUID, req EntryRequest) (*Entry, error) {
	if err := req.Normalize(); err != nil {
		return nil, err
	}

	entry, err := s.store.Get(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	entry.Title = req.Title
	entry.Content = req.Content
	entry.Mood = req.Mood
	entry.UpdatedAt = s.now().UTC()

	if err := s.store.Update(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *Service) Delete(ctx context.Context, userID string, id uuid.UUID) error {
	return s.store.Delete(ctx, id, userID)
}

// Recent returns at most limit entries written in the last period
func (s *Service) Recent(ctx context.Context, userID string, period time.Duration, limit int) ([]*Entry, error) {
	return s.store.ListSince(ctx, userID, s.now().UTC().Add(-period), limit)
}
