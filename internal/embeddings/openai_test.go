package embeddings

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type embeddingRequest struct {
	Input      string `json:"input"`
	Model      string `json:"model"`
	Dimensions int    `json:"dimensions"`
}

// embeddingServer answers /embeddings with a vector of length n, or with status when it is not 200.
func embeddingServer(t *testing.T, n, status int, calls *atomic.Int64, seen *embeddingRequest) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)

		if seen != nil {
			_ = json.NewDecoder(r.Body).Decode(seen)
		}

		w.Header().Set("Content-Type", "application/json")

		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))

			return
		}

		vec := make([]float64, n)
		for i := range vec {
			vec[i] = 0.5
		}

		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"model":  "text-embedding-3-small",
			"data":   []map[string]any{{"object": "embedding", "index": 0, "embedding": vec}},
			"usage":  map[string]any{"prompt_tokens": 1, "total_tokens": 1},
		})
	}))
	t.Cleanup(srv.Close)

	return srv
}

func TestOpenAIClient_CreateEmbedding(t *testing.T) {
	ctx := context.Background()

	t.Run("returns vector", func(t *testing.T) {
		var (
			calls atomic.Int64
			seen  embeddingRequest
		)

		srv := embeddingServer(t, 4, http.StatusOK, &calls, &seen)
		c := newOpenAIClient(Config{APIKey: "k", Dimensions: 4, BaseURL: srv.URL})

		v, err := c.CreateEmbedding(ctx, "  graph databases  ")
		require.NoError(t, err)
		assert.Equal(t, []float32{0.5, 0.5, 0.5, 0.5}, v)
		assert.Equal(t, "graph databases", seen.Input)
		assert.Equal(t, 4, seen.Dimensions)
		assert.Equal(t, "text-embedding-3-small", seen.Model)
		assert.Equal(t, "text-embedding-3-small", c.Model())
	})

	t.Run("dimension mismatch", func(t *testing.T) {
		var calls atomic.Int64

		srv := embeddingServer(t, 3, http.StatusOK, &calls, nil)
		c := newOpenAIClient(Config{APIKey: "k", Dimensions: 4, BaseURL: srv.URL})

		_, err := c.CreateEmbedding(ctx, "q")
		require.ErrorIs(t, err, ErrDimensionMismatch)
	})

	t.Run("server error is not retried", func(t *testing.T) {
		var calls atomic.Int64

		srv := embeddingServer(t, 4, http.StatusInternalServerError, &calls, nil)
		c := newOpenAIClient(Config{APIKey: "k", Dimensions: 4, BaseURL: srv.URL})

		_, err := c.CreateEmbedding(ctx, "q")
		require.Error(t, err)
		assert.Equal(t, int64(1), calls.Load())
	})

	t.Run("empty input skips the call", func(t *testing.T) {
		var calls atomic.Int64

		srv := embeddingServer(t, 4, http.StatusOK, &calls, nil)
		c := newOpenAIClient(Config{APIKey: "k", Dimensions: 4, BaseURL: srv.URL})

		_, err := c.CreateEmbedding(ctx, "   ")
		require.ErrorIs(t, err, ErrEmptyInput)
		assert.Zero(t, calls.Load())
	})

	t.Run("invalid dims", func(t *testing.T) {
		c := newOpenAIClient(Config{APIKey: "k", Dimensions: -1})

		_, err := c.CreateEmbedding(ctx, "q")
		require.ErrorIs(t, err, ErrInvalidDims)
	})
}

func TestNewClient_DefaultDimensions(t *testing.T) {
	c, err := NewClient(context.Background(), Config{Provider: ProviderOpenAI, APIKey: "k"})
	require.NoError(t, err)

	oc, ok := c.(*openAIClient)
	require.True(t, ok)
	assert.Equal(t, defaultDimensions, oc.dimensions)
}
