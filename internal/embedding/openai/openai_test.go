package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/domain"
)

type embeddingRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

// fakeEmbeddings answers with [len(text), position] vectors in reverse order.
func fakeEmbeddings(t *testing.T, calls *atomic.Int32) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/v1/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		var req embeddingRequest
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) {
			return
		}

		data := make([]map[string]any, 0, len(req.Input))
		for i := len(req.Input) - 1; i >= 0; i-- {
			data = append(data, map[string]any{
				"object":    "embedding",
				"index":     i,
				"embedding": []float32{float32(len(req.Input[i])), float32(i)},
			})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"object": "list", "model": req.Model, "data": data})
	}))
}

func TestEncodePreservesOrderAcrossBatches(t *testing.T) {
	t.Setenv("TEST_OPENAI_KEY", "test-key")
	var calls atomic.Int32
	srv := fakeEmbeddings(t, &calls)
	defer srv.Close()

	c, err := NewClient(Config{BaseURL: srv.URL + "/v1", APIKeyEnv: "TEST_OPENAI_KEY", BatchSize: 2, Concurrency: 2})
	require.NoError(t, err)

	texts := []string{"a", "bb", "ccc", "dddd", "eeeee"}
	out, err := c.Encode(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, out, len(texts))
	for i, v := range out {
		assert.Equal(t, float64(len(texts[i])), v[0])
	}
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, 2, c.Dimension())
	assert.Equal(t, "openai-text-embedding-3-small", c.ModelInfo())
}

func TestEncodeServerError(t *testing.T) {
	t.Setenv("TEST_OPENAI_KEY", "test-key")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"boom","type":"server_error"}}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	c, err := NewClient(Config{BaseURL: srv.URL + "/v1", APIKeyEnv: "TEST_OPENAI_KEY"})
	require.NoError(t, err)
	_, err = c.Encode(context.Background(), []string{"x"})
	assert.ErrorIs(t, err, domain.ErrEncoding)
}

func TestNewClientRequiresKey(t *testing.T) {
	t.Setenv("TEST_OPENAI_KEY", "")
	_, err := NewClient(Config{APIKeyEnv: "TEST_OPENAI_KEY"})
	assert.ErrorIs(t, err, domain.ErrEncoding)
}
