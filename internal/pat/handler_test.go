package pat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redmonkez12/diary-api/internal/auth"
)

type stubLimiter struct {
	exceeded bool
	recorded int
}

func (s *stubLimiter) CheckWithPurpose(context.Context, string, string) (bool, error) {
	return s.exceeded, nil
}

func (s *stubLimiter) RecordWithPurpose(context.Context, string, string) error {
	s.recorded++
	return nil
}

func newTestRouter(h *Handler, userID string) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			identity := auth.NewIdentity(userID, "Test User", "test@example.com", auth.MethodFederated)
			next.ServeHTTP(w, req.WithContext(auth.WithIdentity(req.Context(), identity)))
		})
	})
	r.Post("/api/tokens", h.Create)
	r.Get("/api/tokens", h.List)
	r.Delete("/api/tokens/{id}", h.Revoke)
	return r
}

func TestHandler_CreateListRevoke(t *testing.T) {
	svc := newTestService(newMemoryStore())
	limiter := &stubLimiter{}
	router := newTestRouter(NewHandler(svc, limiter), "user-1")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/tokens", nil))
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	assert.Equal(t, 1, limiter.recorded)

	var created map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	for _, key := range []string{"id", "token", "tokenPrefix", "createdAt", "warning"} {
		assert.Contains(t, created, key)
	}
	token := created["token"].(string)
	id := created["id"].(string)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/tokens", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), token)

	var listed []Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, id, listed[0].ID)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/tokens/"+id, nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/tokens/"+id, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_CreateRateLimited(t *testing.T) {
	svc := newTestService(newMemoryStore())
	router := newTestRouter(NewHandler(svc, &stubLimiter{exceeded: true}), "user-1")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/tokens", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestHandler_RevokeOtherUsersToken(t *testing.T) {
	svc := newTestService(newMemoryStore())
	created, err := svc.CreateToken(context.Background(), "owner")
	require.NoError(t, err)

	router := newTestRouter(NewHandler(svc, nil), "intruder")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/tokens/"+created.ID, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
