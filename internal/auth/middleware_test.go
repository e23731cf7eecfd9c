package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redmonkez12/diary-api/internal/httputil"
)

func TestParseBearer(t *testing.T) {
	tests := []struct {
		name   string
		header string
		token  string
		ok     bool
	}{
		{name: "empty", header: "", ok: false},
		{name: "whitespace only", header: "   ", ok: false},
		{name: "scheme only", header: "Bearer", ok: false},
		{name: "scheme with blank token", header: "Bearer    ", ok: false},
		{name: "basic scheme", header: "Basic abc", ok: false},
		{name: "canonical", header: "Bearer p_abc", token: "p_abc", ok: true},
		{name: "lower case", header: "bearer p_abc", token: "p_abc", ok: true},
		{name: "upper case", header: "BEARER p_abc", token: "p_abc", ok: true},
		{name: "surrounding whitespace", header: "  Bearer   p_abc  ", token: "p_abc", ok: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, ok := ParseBearer(tt.header)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.token, token)
		})
	}
}

type fixedScheme struct {
	result Result
	calls  int
}

func (s *fixedScheme) Name() string { return "fixed" }

func (s *fixedScheme) Authenticate(*http.Request) Result {
	s.calls++
	return s.result
}

func protected(t *testing.T, m *Middleware) (http.Handler, *string) {
	t.Helper()
	var subject string
	return m.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := IdentityFromContext(r.Context())
		require.True(t, ok)
		subject = id.Subject
		w.WriteHeader(http.StatusOK)
	})), &subject
}

func TestRequireAuth_AllNoResult(t *testing.T) {
	first := &fixedScheme{result: NoResult()}
	second := &fixedScheme{result: NoResult()}
	handler, _ := protected(t, NewMiddleware(first, second))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/me", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 1, second.calls)

	var body httputil.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, httputil.CodeMissingAuth, body.Code)
}

func TestRequireAuth_FailStopsChain(t *testing.T) {
	first := &fixedScheme{result: Fail("Invalid token")}
	second := &fixedScheme{result: Success(NewIdentity("user-1", "", "", MethodFederated))}
	handler, _ := protected(t, NewMiddleware(first, second))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/me", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Zero(t, second.calls)

	var body httputil.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Invalid token", body.Error)
	assert.Equal(t, httputil.CodeInvalidToken, body.Code)
}

func TestRequireAuth_FallsThroughToSuccess(t *testing.T) {
	first := &fixedScheme{result: NoResult()}
	second := &fixedScheme{result: Success(NewIdentity("user-1", "", "", MethodFederated))}
	handler, subject := protected(t, NewMiddleware(first, second))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/me", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-1", *subject)
}

func TestGetUserIDFromContext_Empty(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	_, ok := GetUserIDFromContext(r.Context())
	assert.False(t, ok)
}
