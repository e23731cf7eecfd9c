package logging

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, slog.LevelDebug, true)

	var fromContext *Logger
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(logger))
	r.Get("/api/entries/{entryID}", func(w http.ResponseWriter, r *http.Request) {
		fromContext = GetLoggerFromContext(r.Context())
		w.WriteHeader(http.StatusNotFound)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/entries/abc", nil))

	require.Equal(t, http.StatusNotFound, rec.Code)
	require.NotNil(t, fromContext)
	assert.NotSame(t, logger, fromContext)

	out := buf.String()
	assert.Contains(t, out, `"msg":"request completed"`)
	assert.Contains(t, out, `"route":"/api/entries/{entryID}"`)
	assert.Contains(t, out, `"status":404`)
	assert.Contains(t, out, `"level":"WARN"`)
	assert.Contains(t, out, `"request_id":`)
}

func TestGetLoggerFromContext_Default(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	assert.NotNil(t, GetLoggerFromContext(req.Context()))
}
