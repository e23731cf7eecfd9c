package diary

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redmonkez12/diary-api/internal/auth"
)

func newTestRouter(h *Handler, userID string) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			identity := auth.NewIdentity(userID, "Test User", "test@example.com", auth.MethodFederated)
			next.ServeHTTP(w, req.WithContext(auth.WithIdentity(req.Context(), identity)))
		})
	})
	r.Get("/api/entries", h.List)
	r.Post("/api/entries", h.Create)
	r.Get("/api/entries/{id}", h.Get)
	r.Put("/api/entries/{id}", h.Update)
	r.Delete("/api/entries/{id}", h.Delete)
	return r
}

func TestHandler_EntryLifecycle(t *testing.T) {
	router := newTestRouter(NewHandler(newTestService(newMemoryStore(), fixedNow)), "user-1")

	rec := httptest.NewRecorder()
	body := `{"title":"Sunday","content":"Long walk by the river.","mood":"calm"}`
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/entries", strings.NewReader(body)))
	require.Equal(t, http.StatusCreated, rec.Code)

	var created Entry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	path := "/api/entries/" + created.ID.String()

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"content":"Long walk by the river."`)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, path, strings.NewReader(`{"title":"Sunday","content":"Edited"}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"content":"Edited"`)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/entries", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var page Page
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, 1, page.Total)
	assert.Equal(t, defaultPageSize, page.Limit)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, path, nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_OtherUsersEntriesAreHidden(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(store, fixedNow)
	owner := newTestRouter(NewHandler(svc), "user-1")
	other := newTestRouter(NewHandler(svc), "user-2")

	rec := httptest.NewRecorder()
	owner.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/entries", strings.NewReader(`{"title":"Mine","content":"secret"}`)))
	require.Equal(t, http.StatusCreated, rec.Code)
	var created Entry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	for _, method := range []string{http.MethodGet, http.MethodDelete} {
		rec = httptest.NewRecorder()
		other.ServeHTTP(rec, httptest.NewRequest(method, "/api/entries/"+created.ID.String(), nil))
		assert.Equal(t, http.StatusNotFound, rec.Code, method)
	}
}

func TestHandler_BadRequests(t *testing.T) {
	router := newTestRouter(NewHandler(newTestService(newMemoryStore(), fixedNow)), "user-1")

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		code   string
	}{
		{"malformed body", http.MethodPost, "/api/entries", "{", http.StatusBadRequest, "INVALID_REQUEST_BODY"},
		{"missing title", http.MethodPost, "/api/entries", `{"content":"x"}`, http.StatusBadRequest, "VALIDATION_FAILED"},
		{"limit too large", http.MethodGet, "/api/entries?limit=500", "", http.StatusBadRequest, "INVALID_PAGINATION"},
		{"negative offset", http.MethodGet, "/api/entries?offset=-1", "", http.StatusBadRequest, "INVALID_PAGINATION"},
		{"non-numeric limit", http.MethodGet, "/api/entries?limit=ten", "", http.StatusBadRequest, "INVALID_PAGINATION"},
		{"bad id", http.MethodGet, "/api/entries/not-a-uuid", "", http.StatusNotFound, "ENTRY_NOT_FOUND"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body)))
			assert.Equal(t, tt.status, rec.Code)

			var resp map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.code, resp["code"])
		})
	}
}
