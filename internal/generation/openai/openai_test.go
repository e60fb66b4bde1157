package openai

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

	"docqa/internal/domain"
)

func newGateway(t *testing.T, url string, timeout time.Duration) *Gateway {
	t.Helper()
	t.Setenv("TEST_GEN_KEY", "gen-key")
	g, err := NewGateway(Config{BaseURL: url + "/v1", APIKeyEnv: "TEST_GEN_KEY", Model: "gpt-4o-mini", Timeout: timeout})
	require.NoError(t, err)
	return g
}

func TestGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) {
			return
		}
		assert.Equal(t, "gpt-4o-mini", req.Model)
		if assert.Len(t, req.Messages, 1) {
			assert.Equal(t, "user", req.Messages[0].Role)
			assert.Equal(t, "the prompt", req.Messages[0].Content)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"1","object":"chat.completion","created":0,"model":"gpt-4o-mini",
			"choices":[{"index":0,"message":{"role":"assistant","content":" Ankara. "},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	answer, err := newGateway(t, srv.URL, time.Second).Generate(context.Background(), "the prompt")
	require.NoError(t, err)
	assert.Equal(t, "Ankara.", answer)
}

func TestGenerateFailureIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"quota exceeded","type":"insufficient_quota"}}`))
	}))
	defer srv.Close()

	_, err := newGateway(t, srv.URL, time.Second).Generate(context.Background(), "p")
	assert.ErrorIs(t, err, domain.ErrGeneration)
	assert.Equal(t, int32(1), calls.Load())
}

func TestGenerateTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	_, err := newGateway(t, srv.URL, 50*time.Millisecond).Generate(context.Background(), "p")
	assert.ErrorIs(t, err, domain.ErrGeneration)
}

func TestNewGatewayRequiresKey(t *testing.T) {
	t.Setenv("TEST_GEN_KEY", "")
	_, err := NewGateway(Config{APIKeyEnv: "TEST_GEN_KEY"})
	assert.ErrorIs(t, err, domain.ErrGeneration)
}
