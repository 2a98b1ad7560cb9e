package embeddings

import (
	"context"
	"crypto/sha256"
	"strings"
	"sync"
	"sync/atomic"

	pkgembeddings "github.com/unsa/eventhub/pkg/embeddings"
)

// MockClient is a deterministic Client for tests and local runs without a provider key.
// Vectors are derived from a hash of the text unless overridden with Set.
type MockClient struct {
	dimensions int
	model      string

	mu        sync.RWMutex
	overrides map[string][]float32

	// Err, when set, is returned by every call.
	Err error
	// Block, when true, waits for ctx to be done before returning its error.
	Block bool

	calls atomic.Int64
}

// NewMockClient creates a mock with the given dimension. Non-positive dims default to 1536.
func NewMockClient(dimensions int) *MockClient {
	if dimensions <= 0 {
		dimensions = defaultDimensions
	}

	return &MockClient{
		dimensions: dimensions,
		model:      "mock-embedding",
		overrides:  make(map[string][]float32),
	}
}

// Set pins the vector returned for text.
func (c *MockClient) Set(text string, vector []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.overrides[text] = vector
}

// Calls returns how many times CreateEmbedding has been invoked.
func (c *MockClient) Calls() int64 { return c.calls.Load() }

// Name implements Client.
func (c *MockClient) Name() string { return "mock" }

// Model implements Client.
func (c *MockClient) Model() string { return c.model }

// CreateEmbedding implements Client.
func (c *MockClient) CreateEmbedding(ctx context.Context, input string) ([]float32, error) {
	c.calls.Add(1)

	if c.Block {
		<-ctx.Done()

		return nil, ctx.Err()
	}

	if c.Err != nil {
		return nil, c.Err
	}

	input = strings.TrimSpace(input)
	if input == "" {
		return nil, ErrEmptyInput
	}

	c.mu.RLock()
	v, ok := c.overrides[input]
	c.mu.RUnlock()

	if ok {
		out := make([]float32, len(v))
		copy(out, v)

		return out, nil
	}

	return c.hashVector(input), nil
}

func (c *MockClient) hashVector(text string) []float32 {
	hash := sha256.Sum256([]byte(text))
	vec := make([]float32, c.dimensions)

	for i := range vec {
		vec[i] = (float32(hash[i%len(hash)]) / 127.5) - 1.0
	}

	pkgembeddings.NormalizeL2(vec)

	return vec
}
