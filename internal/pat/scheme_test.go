package pat

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redmonkez12/diary-api/internal/auth"
	"github.com/redmonkez12/diary-api/internal/logging"
)

type stubValidator struct {
	record *Token
	err    error
	calls  int
	seen   string
}

func (s *stubValidator) ValidateToken(_ context.Context, token string) (*Token, error) {
	s.calls++
	s.seen = token
	return s.record, s.err
}

func requestWithAuth(header string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/api/entries", nil)
	if header != "" {
		r.Header.Set("Authorization", header)
	}
	return r
}

func TestScheme_DefersNonPATRequests(t *testing.T) {
	validator := &stubValidator{}
	scheme := NewScheme(validator, logging.Discard())

	for _, header := range []string{"", "Basic dXNlcjpwYXNz", "Bearer", "Bearer eyJhbGciOi.jwt", "Token p_abc"} {
		result := scheme.Authenticate(requestWithAuth(header))
		assert.True(t, result.None(), header)
	}
	assert.Zero(t, validator.calls)
}

func TestScheme_InvalidToken(t *testing.T) {
	scheme := NewScheme(&stubValidator{}, logging.Discard())

	result := scheme.Authenticate(requestWithAuth("Bearer p_revoked"))
	require.True(t, result.Failed())
	assert.Equal(t, "Invalid token", result.Failure)
}

func TestScheme_StoreError(t *testing.T) {
	scheme := NewScheme(&stubValidator{err: errors.New("redis down")}, logging.Discard())

	result := scheme.Authenticate(requestWithAuth("Bearer p_whatever"))
	require.True(t, result.Failed())
	assert.Equal(t, "Authentication error", result.Failure)
}

func TestScheme_Success(t *testing.T) {
	validator := &stubValidator{record: &Token{
		ID:          "hashed-id",
		UserID:      "user-1",
		TokenPrefix: "p_abcdefghij",
		IsActive:    true,
	}}
	scheme := NewScheme(validator, logging.Discard())

	result := scheme.Authenticate(requestWithAuth("  bearer   p_abcdefghijklmnop  "))
	require.True(t, result.Succeeded())
	assert.Equal(t, "p_abcdefghijklmnop", validator.seen, "scheme and secret are trimmed")

	identity := result.Identity
	assert.Equal(t, "user-1", identity.Subject)
	assert.Equal(t, "PAT-p_abcdefghij", identity.Name)
	assert.Equal(t, auth.MethodPAT, identity.Method())
	assert.True(t, identity.IsPAT())
	assert.Equal(t, "hashed-id", identity.Claim(auth.ClaimPATID))
}

func TestScheme_EndToEndWithService(t *testing.T) {
	svc := newTestService(newMemoryStore())
	created, err := svc.CreateToken(context.Background(), "user-9")
	require.NoError(t, err)

	scheme := NewScheme(svc, logging.Discard())

	result := scheme.Authenticate(requestWithAuth("Bearer " + created.Token))
	require.True(t, result.Succeeded())
	assert.Equal(t, "user-9", result.Identity.Subject)

	require.True(t, svc.RevokeToken(context.Background(), created.ID, "user-9"))

	result = scheme.Authenticate(requestWithAuth("Bearer " + created.Token))
	assert.True(t, result.Failed())
}
