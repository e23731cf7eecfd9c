package settings

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redmonkez12/diary-api/internal/auth"
	"github.com/redmonkez12/diary-api/internal/httputil"
	"github.com/redmonkez12/diary-api/internal/logging"
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

type stubTestSender struct {
	calls []string
	err   error
}

func (s *stubTestSender) SendTest(_ context.Context, settings *EmailSettings) (string, error) {
	s.calls = append(s.calls, settings.Email)
	if s.err != nil {
		return "", s.err
	}
	return "op-123", nil
}

func newHandlerRouter(h *Handler, identity *auth.Identity) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(auth.WithIdentity(req.Context(), identity)))
		})
	})
	r.Get("/api/email-settings", h.Get)
	r.Put("/api/email-settings", h.Put)
	r.Delete("/api/email-settings", h.Delete)
	r.Post("/api/email-settings/test", h.SendTest)
	return r
}

func serve(router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp httputil.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Code
}

func federated() *auth.Identity {
	return auth.NewIdentity("user-1", "Ada", "ada@example.com", auth.MethodFederated)
}

func TestHandler_PutGetDelete(t *testing.T) {
	svc := NewService(newMemoryStore(), stubUsers{}, logging.Discard())
	router := newHandlerRouter(NewHandler(svc, &stubTestSender{}, &stubLimiter{}), federated())

	rec := serve(router, http.MethodGet, "/api/email-settings", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, httputil.CodeSettingsNotFound, errorCode(t, rec))

	rec = serve(router, http.MethodPut, "/api/email-settings",
		`{"preferredTime":"07:30","isEnabled":true,"timeZone":"Europe/Berlin"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var saved EmailSettings
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &saved))
	assert.Equal(t, "user-1", saved.UserID)
	assert.Equal(t, "ada@example.com", saved.Email)
	assert.Equal(t, "07:30", saved.PreferredTime.String())
	assert.Equal(t, "Europe/Berlin", saved.TimeZone)

	rec = serve(router, http.MethodGet, "/api/email-settings", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"preferredTime":"07:30"`)

	rec = serve(router, http.MethodDelete, "/api/email-settings", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = serve(router, http.MethodDelete, "/api/email-settings", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, httputil.CodeSettingsNotFound, errorCode(t, rec))
}

func TestHandler_PutValidation(t *testing.T) {
	tests := []struct {
		name     string
		identity *auth.Identity
		body     string
		code     string
	}{
		{"malformed body", federated(), `{"preferredTime":`, httputil.CodeInvalidRequestBody},
		{"bad time", federated(), `{"preferredTime":"25:00","timeZone":"UTC"}`, httputil.CodeInvalidTime},
		{"bad zone", federated(), `{"preferredTime":"10:00","timeZone":"Mars/Olympus"}`, httputil.CodeInvalidTimeZone},
		{
			"pat caller without known email",
			auth.NewIdentity("user-2", "PAT-p_abcdefghij", "", auth.MethodPAT),
			`{"preferredTime":"10:00","timeZone":"UTC"}`,
			httputil.CodeEmailUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemoryStore()
			svc := NewService(store, stubUsers{}, logging.Discard())
			router := newHandlerRouter(NewHandler(svc, &stubTestSender{}, nil), tt.identity)

			rec := serve(router, http.MethodPut, "/api/email-settings", tt.body)

			require.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.code, errorCode(t, rec))
			assert.Empty(t, store.byUser)
		})
	}
}

func TestHandler_SendTest(t *testing.T) {
	newRouter := func(t *testing.T, sender *stubTestSender, limiter *stubLimiter, withSettings bool) http.Handler {
		t.Helper()
		store := newMemoryStore()
		svc := NewService(store, stubUsers{}, logging.Discard())
		if withSettings {
			_, err := svc.Save(context.Background(), federated(), UpdateRequest{
				PreferredTime: "10:00",
				IsEnabled:     true,
				TimeZone:      "UTC",
			})
			require.NoError(t, err)
		}
		return newHandlerRouter(NewHandler(svc, sender, limiter), federated())
	}

	t.Run("accepted", func(t *testing.T) {
		sender := &stubTestSender{}
		limiter := &stubLimiter{}
		rec := serve(newRouter(t, sender, limiter, true), http.MethodPost, "/api/email-settings/test", "")

		require.Equal(t, http.StatusAccepted, rec.Code)
		var resp TestSendResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "op-123", resp.OperationID)
		assert.Contains(t, resp.Message, "ada@example.com")
		assert.Equal(t, []string{"ada@example.com"}, sender.calls)
		assert.Equal(t, 1, limiter.recorded)
	})

	t.Run("rate limited", func(t *testing.T) {
		sender := &stubTestSender{}
		limiter := &stubLimiter{exceeded: true}
		rec := serve(newRouter(t, sender, limiter, true), http.MethodPost, "/api/email-settings/test", "")

		require.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Equal(t, httputil.CodeTooManyRequests, errorCode(t, rec))
		assert.Empty(t, sender.calls)
		assert.Zero(t, limiter.recorded)
	})

	t.Run("no settings", func(t *testing.T) {
		sender := &stubTestSender{}
		limiter := &stubLimiter{}
		rec := serve(newRouter(t, sender, limiter, false), http.MethodPost, "/api/email-settings/test", "")

		require.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, httputil.CodeSettingsNotFound, errorCode(t, rec))
		assert.Empty(t, sender.calls)
		assert.Zero(t, limiter.recorded)
	})

	t.Run("send failure", func(t *testing.T) {
		sender := &stubTestSender{err: errors.New("smtp down")}
		rec := serve(newRouter(t, sender, &stubLimiter{}, true), http.MethodPost, "/api/email-settings/test", "")

		require.Equal(t, http.StatusBadGateway, rec.Code)
		assert.Equal(t, httputil.CodeEmailSendFailed, errorCode(t, rec))
	})
}
