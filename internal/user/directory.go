package user

import (
	"context"
	"time"

	"github.com/redmonkez12/diary-api/internal/auth"
	"github.com/redmonkez12/diary-api/internal/logging"
)

// Store is the persistence used by Directory
type Store interface {
	Touch(ctx context.Context, id, email, displayName string, at time.Time) error
	GetByID(ctx context.Context, id string) (*User, error)
}

// Directory tracks federated principals so that callers authenticating by
// other means can still be resolved to an email address
type Directory struct {
	store  Store
	logger *logging.Logger
	now    func() time.Time
}

func NewDirectory(store Store, logger *logging.Logger) *Directory {
	return &Directory{store: store, logger: logger, now: time.Now}
}

// Record is an auth.AuthenticatedFunc. Failures are logged, never fatal to the request.
func (d *Directory) Record(ctx context.Context, identity *auth.Identity) {
	if identity == nil || identity.Subject == "" {
		return
	}
	if err := d.store.Touch(ctx, identity.Subject, identity.Email, identity.Name, d.now().UTC()); err != nil {
		d.logger.Warn("failed to record user sign-in", "user_id", identity.Subject, "error", err)
	}
}

// Lookup returns the user or ErrNotFound
func (d *Directory) Lookup(ctx context.Context, id string) (*User, error) {
	return d.store.GetByID(ctx, id)
}
