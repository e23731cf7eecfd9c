package settings

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redmonkez12/diary-api/internal/auth"
	"github.com/redmonkez12/diary-api/internal/logging"
	"github.com/redmonkez12/diary-api/internal/timezone"
	"github.com/redmonkez12/diary-api/internal/user"
)

// Store is the settings persistence used by Service
type Store interface {
	GetByUser(ctx context.Context, userID string) (*EmailSettings, error)
	Upsert(ctx context.Context, s *EmailSettings) (*EmailSettings, error)
	Delete(ctx context.Context, userID string) error
}

// UserLookup resolves users seen through federated sign-in
type UserLookup interface {
	Lookup(ctx context.Context, id string) (*user.User, error)
}

// UpdateRequest is the client-controlled part of the settings
type UpdateRequest struct {
	PreferredTime string `json:"preferredTime"`
	IsEnabled     bool   `json:"isEnabled"`
	TimeZone      string `json:"timeZone"`
}

type Service struct {
	store  Store
	users  UserLookup
	logger *logging.Logger
	now    func() time.Time
}

func NewService(store Store, users UserLookup, logger *logging.Logger) *Service {
	return &Service{
		store:  store,
		users:  users,
		logger: logger,
		now:    time.Now,
	}
}

// Get returns the caller's settings or ErrNotFound
func (s *Service) Get(ctx context.Context, userID string) (*EmailSettings, error) {
	return s.store.GetByUser(ctx, userID)
}

// Save validates and stores the caller's settings. The address always comes
// from the identity, never from the request.
func (s *Service) Save(ctx context.Context, identity *auth.Identity, req UpdateRequest) (*EmailSettings, error) {
	preferred, err := ParseLocalTime(strings.TrimSpace(req.PreferredTime))
	if err != nil {
		return nil, err
	}

	tz := strings.TrimSpace(req.TimeZone)
	if !timezone.Valid(tz) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTimeZone, req.TimeZone)
	}

	email, err := s.resolveEmail(ctx, identity)
	if err != nil {
		return nil, err
	}

	saved, err := s.store.Upsert(ctx, &EmailSettings{
		UserID:        identity.Subject,
		Email:         email,
		PreferredTime: preferred,
		IsEnabled:     req.IsEnabled,
		TimeZone:      tz,
		UpdatedAt:     s.now().UTC(),
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("email settings saved",
		"user_id", identity.Subject,
		"preferred_time", preferred.String(),
		"time_zone", tz,
		"enabled", req.IsEnabled,
	)
	return saved, nil
}

// Delete removes the caller's settings or returns ErrNotFound
func (s *Service) Delete(ctx context.Context, userID string) error {
	return s.store.Delete(ctx, userID)
}

func (s *Service) resolveEmail(ctx context.Context, identity *auth.Identity) (string, error) {
	if identity.Email != "" {
		return identity.Email, nil
	}

	if s.users != nil {
		u, err := s.users.Lookup(ctx, identity.Subject)
		if err == nil && u.Email != "" {
			return u.Email, nil
		}
		if err != nil && !errors.Is(err, user.ErrNotFound) {
			return "", fmt.Errorf("failed to look up user email: %w", err)
		}
	}

	return "", ErrEmailUnknown
}
