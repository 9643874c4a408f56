package openai_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/bryanwahyu/prodpulse/internal/domain/diagnosis"
	"github.com/bryanwahyu/prodpulse/internal/infra/ai/openai"
)

type chatRequest struct {
	Model       string  `json:"model"`
	Temperature float32 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
	Messages    []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func completion(content string) map[string]any {
	return map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1,
		"model":   "llama-3.3-70b-versatile",
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
	}
}

func newServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestDiagnose(t *testing.T) {
	var got chatRequest
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(completion("```html\n<div class=\"diagnosis\"><p>fix it</p></div>\n```"))
	})

	c, err := openai.NewClient(openai.Options{
		APIKey:      "test-key",
		BaseURL:     srv.URL + "/",
		Model:       "llama-3.3-70b-versatile",
		Temperature: 0.3,
		MaxTokens:   2000,
	})
	require.NoError(t, err)
	assert.Equal(t, "openai:llama-3.3-70b-versatile", c.Name())

	out, err := c.Diagnose(context.Background(), "ERROR: connection refused")
	require.NoError(t, err)
	assert.Equal(t, `<div class="diagnosis"><p>fix it</p></div>`, out)

	assert.Equal(t, "llama-3.3-70b-versatile", got.Model)
	assert.InDelta(t, 0.3, got.Temperature, 0.0001)
	assert.Equal(t, 2000, got.MaxTokens)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Contains(t, got.Messages[1].Content, "ERROR: connection refused")
}

func TestDiagnoseRateLimited(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"Rate limit reached","type":"rate_limit_exceeded","code":"rate_limit_exceeded"}}`))
	})
	c, err := openai.NewClient(openai.Options{APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = c.Diagnose(context.Background(), "ERROR: boom happened")
	assert.True(t, errors.Is(err, domain.ErrQuotaExceeded))
}

func TestDiagnoseServerError(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"internal","type":"server_error"}}`))
	})
	c, err := openai.NewClient(openai.Options{APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = c.Diagnose(context.Background(), "ERROR: boom happened")
	require.Error(t, err)
	assert.False(t, errors.Is(err, domain.ErrQuotaExceeded))
}

func TestDiagnoseEmptyResponse(t *testing.T) {
	for _, body := range []map[string]any{
		completion("   "),
		{"id": "x", "object": "chat.completion", "choices": []any{}},
	} {
		srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(body)
		})
		c, err := openai.NewClient(openai.Options{APIKey: "k", BaseURL: srv.URL})
		require.NoError(t, err)

		_, err = c.Diagnose(context.Background(), "ERROR: boom happened")
		assert.ErrorIs(t, err, domain.ErrEmptyResponse)
	}
}

func TestDiagnoseTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	c, err := openai.NewClient(openai.Options{APIKey: "k", BaseURL: srv.URL, Timeout: 50 * time.Millisecond})
	require.NoError(t, err)

	_, err = c.Diagnose(context.Background(), "ERROR: boom happened")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNewClientRequiresKey(t *testing.T) {
	_, err := openai.NewClient(openai.Options{})
	assert.Error(t, err)
}
