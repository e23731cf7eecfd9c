package recommendation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/redmonkez12/diary-api/internal/diary"
	"github.com/redmonkez12/diary-api/internal/llm"
	"github.com/redmonkez12/diary-api/internal/logging"
)

const (
	entryLookback   = 14 * 24 * time.Hour
	maxEntries      = 20
	historyForDedup = 5
)

// EntrySource reads a user's recent diary entries
type EntrySource interface {
	Recent(ctx context.Context, userID string, period time.Duration, limit int) ([]*diary.Entry, error)
}

// Store is the recommendation persistence used by Generator
type Store interface {
	Create(ctx context.Context, rec *Recommendation) error
	ListRecent(ctx context.Context, userID string, n int) ([]*Recommendation, error)
}

// Generator asks the model for a new recommendation based on recent entries
type Generator struct {
	entries   EntrySource
	store     Store
	completer llm.Completer
	limiter   *rate.Limiter
	logger    *logging.Logger
	now       func() time.Time
}

// NewGenerator throttles model calls to requestsPerMinute; zero or less means unthrottled
func NewGenerator(entries EntrySource, store Store, completer llm.Completer, requestsPerMinute int, logger *logging.Logger) *Generator {
	limiter := rate.NewLimiter(rate.Inf, 0)
	if requestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), 1)
	}

	return &Generator{
		entries:   entries,
		store:     store,
		completer: completer,
		limiter:   limiter,
		logger:    logger,
		now:       time.Now,
	}
}

// Generate creates, stores and returns a recommendation for the user
func (g *Generator) Generate(ctx context.Context, userID string) (string, error) {
	rec, err := g.GenerateRecommendation(ctx, userID)
	if err != nil {
		return "", err
	}
	return rec.Text, nil
}

// GenerateRecommendation is Generate returning the stored record
func (g *Generator) GenerateRecommendation(ctx context.Context, userID string) (*Recommendation, error) {
	entries, err := g.entries.Recent(ctx, userID, entryLookback, maxEntries)
	if err != nil {
		return nil, fmt.Errorf("failed to load diary entries: %w", err)
	}

	previous, err := g.store.ListRecent(ctx, userID, historyForDedup)
	if err != nil {
		return nil, fmt.Errorf("failed to load previous recommendations: %w", err)
	}

	if err := g.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for model capacity: %w", err)
	}

	text, err := g.completer.Complete(ctx, systemPrompt, buildUserPrompt(entries, previous))
	if err != nil {
		return nil, err
	}

	rec := &Recommendation{
		ID:     uuid.New(),
		UserID: userID,
		Date:   g.now().UTC(),
		Text:   text,
	}
	if err := g.store.Create(ctx, rec); err != nil {
		return nil, err
	}

	g.logger.Debug("recommendation generated",
		"user_id", userID,
		"entries", len(entries),
		"previous", len(previous),
	)
	return rec, nil
}
