package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redmonkez12/diary-api/internal/config"
	"github.com/redmonkez12/diary-api/internal/logging"
)

type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func completion(text string) map[string]any {
	return map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1,
		"model":   "gpt-4o-mini",
		"choices": []map[string]any{{
			"index":         0,
			"message":       map[string]string{"role": "assistant", "content": text},
			"finish_reason": "stop",
		}},
	}
}

func writeError(w http.ResponseWriter, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{"message": http.StatusText(status), "type": "server_error"},
	})
}

func newTestClient(t *testing.T, handler http.HandlerFunc, retries int) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(config.LLMConfig{
		Provider:   config.ProviderOpenAI,
		APIKey:     "test-key",
		BaseURL:    srv.URL + "/v1",
		Model:      "gpt-4o-mini",
		Timeout:    5 * time.Second,
		MaxRetries: retries,
	}, logging.Discard(), WithBackoff(time.Millisecond, 5*time.Millisecond))
	require.NoError(t, err)
	return c
}

func TestClient_Complete(t *testing.T) {
	var got chatRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(completion("  Take a walk.  "))
	}, 0)

	text, err := c.Complete(context.Background(), "be kind", "suggest something")
	require.NoError(t, err)
	assert.Equal(t, "Take a walk.", text)

	assert.Equal(t, "gpt-4o-mini", got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "be kind", got.Messages[0].Content)
	assert.Equal(t, "user", got.Messages[1].Role)
}

func TestClient_RetriesRateLimitsAndServerErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch calls.Add(1) {
		case 1:
			writeError(w, http.StatusTooManyRequests)
		case 2:
			writeError(w, http.StatusBadGateway)
		default:
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(completion("Rest well."))
		}
	}, 3)

	text, err := c.Complete(context.Background(), "s", "u")
	require.NoError(t, err)
	assert.Equal(t, "Rest well.", text)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_GivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeError(w, http.StatusServiceUnavailable)
	}, 2)

	_, err := c.Complete(context.Background(), "s", "u")
	assert.Error(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeError(w, http.StatusUnauthorized)
	}, 3)

	_, err := c.Complete(context.Background(), "s", "u")
	assert.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_EmptyCompletion(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(completion("   "))
	}, 0)

	_, err := c.Complete(context.Background(), "s", "u")
	assert.ErrorIs(t, err, ErrEmptyCompletion)
}

func TestClient_AzureDeployment(t *testing.T) {
	var path, apiVersion, apiKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		apiVersion = r.URL.Query().Get("api-version")
		apiKey = r.Header.Get("api-key")
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(completion("Azure says hi."))
	}))
	defer srv.Close()

	c, err := NewClient(config.LLMConfig{
		Provider:   config.ProviderAzure,
		APIKey:     "azure-key",
		BaseURL:    srv.URL,
		Model:      "diary-gpt",
		APIVersion: "2024-06-01",
		Timeout:    5 * time.Second,
	}, logging.Discard())
	require.NoError(t, err)

	text, err := c.Complete(context.Background(), "s", "u")
	require.NoError(t, err)
	assert.Equal(t, "Azure says hi.", text)
	assert.Equal(t, "/openai/deployments/diary-gpt/chat/completions", path)
	assert.Equal(t, "2024-06-01", apiVersion)
	assert.Equal(t, "azure-key", apiKey)
}

func TestNewClient_UnknownProvider(t *testing.T) {
	_, err := NewClient(config.LLMConfig{Provider: "bard"}, logging.Discard())
	assert.Error(t, err)
}
