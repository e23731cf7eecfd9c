package pat

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/redmonkez12/diary-api/internal/logging"
)

// Service manages the lifecycle of personal access tokens
type Service struct {
	store  Store
	logger *logging.Logger
	now    func() time.Time
	random io.Reader
}

type Option func(*Service)

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithRandom overrides the entropy source
func WithRandom(r io.Reader) Option {
	return func(s *Service) { s.random = r }
}

func NewService(store Store, logger *logging.Logger, opts ...Option) *Service {
	s := &Service{
		store:  store,
		logger: logger,
		now:    time.Now,
		random: rand.Reader,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateToken issues a new token for userID. The plaintext token is only
// available in the returned result.
func (s *Service) CreateToken(ctx context.Context, userID string) (*CreateResult, error) {
	if userID == "" {
		return nil, ErrUserRequired
	}

	secret := make([]byte, secretBytes)
	if _, err := io.ReadFull(s.random, secret); err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	plaintext := TokenMarker + base64.RawURLEncoding.EncodeToString(secret)
	record := &Token{
		ID:          HashToken(plaintext),
		UserID:      userID,
		TokenPrefix: plaintext[:PrefixLength],
		CreatedAt:   s.now().UTC(),
		IsActive:    true,
	}

	if err := s.store.Create(ctx, record); err != nil {
		if errors.Is(err, ErrTokenExists) {
			s.logger.Error("personal access token id collision", "user_id", userID)
			return nil, err
		}
		return nil, fmt.Errorf("failed to store token: %w", err)
	}

	s.logger.Info("personal access token created",
		"user_id", userID,
		"token_prefix", record.TokenPrefix,
	)

	return &CreateResult{
		ID:          record.ID,
		Token:       plaintext,
		TokenPrefix: record.TokenPrefix,
		CreatedAt:   record.CreatedAt,
		Warning:     CreateWarning,
	}, nil
}

// GetUserTokens lists a user's tokens, revoked ones included
func (s *Service) GetUserTokens(ctx context.Context, userID string) ([]Summary, error) {
	tokens, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tokens: %w", err)
	}

	summaries := make([]Summary, 0, len(tokens))
	for _, t := range tokens {
		summaries = append(summaries, toSummary(t))
	}
	return summaries, nil
}

// ValidateToken returns the active record for token, or nil when the token is
// malformed, unknown or revoked. Malformed tokens never reach the store.
func (s *Service) ValidateToken(ctx context.Context, token string) (*Token, error) {
	if token == "" || !strings.HasPrefix(token, TokenMarker) {
		return nil, nil
	}

	record, err := s.store.Get(ctx, HashToken(token))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to look up token: %w", err)
	}

	if !record.IsValid() {
		s.logger.Debug("revoked personal access token presented",
			"user_id", record.UserID,
			"token_prefix", record.TokenPrefix,
		)
		return nil, nil
	}

	return record, nil
}

// RevokeToken deactivates a token owned by userID. Any failure yields false.
func (s *Service) RevokeToken(ctx context.Context, tokenID, userID string) bool {
	logger := s.logger.With("user_id", userID, "token_id", tokenID)

	if err := s.store.Revoke(ctx, tokenID, userID, s.now().UTC()); err != nil {
		if errors.Is(err, ErrNotFound) {
			logger.Warn("token to revoke not found")
			return false
		}
		logger.Error("failed to revoke token", "error", err)
		return false
	}

	logger.Info("personal access token revoked")
	return true
}

// PurgeRevoked removes tokens revoked before the cutoff
func (s *Service) PurgeRevoked(ctx context.Context, before time.Time) (int, error) {
	n, err := s.store.PurgeRevoked(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("failed to purge revoked tokens: %w", err)
	}
	return n, nil
}
