package pat

import (
	"context"
	"net/http"
	"strings"

	"github.com/redmonkez12/diary-api/internal/auth"
	"github.com/redmonkez12/diary-api/internal/httputil"
	"github.com/redmonkez12/diary-api/internal/logging"
	"github.com/redmonkez12/diary-api/internal/metrics"
)

// Validator resolves a presented token to its active record
type Validator interface {
	ValidateToken(ctx context.Context, token string) (*Token, error)
}

// Scheme authenticates "Bearer p_..." requests
type Scheme struct {
	validator Validator
	logger    *logging.Logger
}

func NewScheme(validator Validator, logger *logging.Logger) *Scheme {
	return &Scheme{validator: validator, logger: logger}
}

func (s *Scheme) Name() string {
	return "pat"
}

// Authenticate defers anything that is not a PAT-shaped bearer token
func (s *Scheme) Authenticate(r *http.Request) auth.Result {
	token, ok := auth.ParseBearer(r.Header.Get("Authorization"))
	if !ok || !strings.HasPrefix(token, TokenMarker) {
		return auth.NoResult()
	}

	record, err := s.validator.ValidateToken(r.Context(), token)
	if err != nil {
		s.logger.Error("personal access token validation failed", "error", err)
		metrics.PATAuthentications.WithLabelValues("error").Inc()
		return auth.FailWithCode("Authentication error", httputil.CodeAuthError)
	}
	if record == nil {
		metrics.PATAuthentications.WithLabelValues("invalid").Inc()
		return auth.Fail("Invalid token")
	}

	identity := auth.NewIdentity(record.UserID, "PAT-"+record.TokenPrefix, "", auth.MethodPAT)
	identity.Claims[auth.ClaimPATID] = record.ID

	metrics.PATAuthentications.WithLabelValues("success").Inc()
	return auth.Success(identity)
}
