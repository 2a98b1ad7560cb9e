package embeddings

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient(t *testing.T) {
	t.Run("openai", func(t *testing.T) {
		c, err := NewClient(context.Background(), Config{Provider: ProviderOpenAI, APIKey: "k", Model: "m", Dimensions: 8})
		require.NoError(t, err)
		assert.Equal(t, "openai", c.Name())
		assert.Equal(t, "m", c.Model())
	})

	t.Run("unknown provider", func(t *testing.T) {
		_, err := NewClient(context.Background(), Config{Provider: "cohere"})
		require.ErrorIs(t, err, ErrUnknownProvider)
	})
}

func TestMockClient(t *testing.T) {
	ctx := context.Background()

	t.Run("deterministic and unit length", func(t *testing.T) {
		c := NewMockClient(16)

		a, err := c.CreateEmbedding(ctx, "hello")
		require.NoError(t, err)
		b, err := c.CreateEmbedding(ctx, "hello")
		require.NoError(t, err)

		assert.Equal(t, a, b)
		assert.Len(t, a, 16)

		var sum float64
		for _, v := range a {
			sum += float64(v) * float64(v)
		}

		assert.InDelta(t, 1.0, sum, 1e-4)
		assert.Equal(t, int64(2), c.Calls())
	})

	t.Run("override", func(t *testing.T) {
		c := NewMockClient(2)
		c.Set("q", []float32{1, 0})

		v, err := c.CreateEmbedding(ctx, "q")
		require.NoError(t, err)
		assert.Equal(t, []float32{1, 0}, v)
	})

	t.Run("error", func(t *testing.T) {
		c := NewMockClient(2)
		c.Err = errors.New("down")

		_, err := c.CreateEmbedding(ctx, "q")
		require.EqualError(t, err, "down")
	})

	t.Run("block honours deadline", func(t *testing.T) {
		c := NewMockClient(2)
		c.Block = true

		ctx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
		defer cancel()

		_, err := c.CreateEmbedding(ctx, "q")
		require.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("empty input", func(t *testing.T) {
		_, err := NewMockClient(2).CreateEmbedding(ctx, " ")
		require.ErrorIs(t, err, ErrEmptyInput)
	})
}
