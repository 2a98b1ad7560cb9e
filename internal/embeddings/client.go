// Package embeddings selects and constructs the text embedding provider.
package embeddings

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Provider names accepted by NewClient.
const (
	ProviderOpenAI = "openai"
	ProviderGoogle = "google"
)

var (
	// ErrUnknownProvider is returned by NewClient for an unsupported provider name.
	ErrUnknownProvider = errors.New("embeddings: unknown provider")
	// ErrEmptyInput is returned for blank text; callers skip empty fields before embedding.
	ErrEmptyInput = errors.New("embeddings: input text is empty")
	// ErrInvalidDims is returned when the configured dimension is not positive.
	ErrInvalidDims = errors.New("embeddings: dimensions must be positive")
	// ErrNoEmbedding is returned when a provider answers without a vector.
	ErrNoEmbedding = errors.New("embeddings: no embedding in response")
	// ErrDimensionMismatch is returned when the provider vector length differs from the configured one.
	ErrDimensionMismatch = errors.New("embeddings: dimension mismatch")
)

const defaultDimensions = 1536

// Client turns text into a fixed-dimension vector.
type Client interface {
	// CreateEmbedding returns the vector for input. Implementations do not retry.
	CreateEmbedding(ctx context.Context, input string) ([]float32, error)
	// Name identifies the provider (openai, google, mock).
	Name() string
	// Model is the model id stored alongside every vector.
	Model() string
}

// Config selects a provider.
type Config struct {
	Provider   string
	APIKey     string
	Model      string
	Dimensions int
	// BaseURL overrides the OpenAI endpoint (compatible gateways, tests). Ignored for google.
	BaseURL string
}

// NewClient builds the client for cfg.Provider.
func NewClient(ctx context.Context, cfg Config) (Client, error) {
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = defaultDimensions
	}

	switch cfg.Provider {
	case ProviderOpenAI:
		return newOpenAIClient(cfg), nil
	case ProviderGoogle:
		return newGoogleClient(ctx, cfg)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
}

// provider holds what every remote client shares: identity and the expected vector size.
type provider struct {
	name       string
	model      string
	dimensions int
}

func (p provider) Name() string  { return p.name }
func (p provider) Model() string { return p.model }

// prepare trims input and rejects calls that cannot produce a usable vector.
func (p provider) prepare(input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", ErrEmptyInput
	}

	if p.dimensions <= 0 {
		return "", ErrInvalidDims
	}

	return input, nil
}

// checkLen verifies a response vector before it reaches the store.
func (p provider) checkLen(n int) error {
	if n == 0 {
		return ErrNoEmbedding
	}

	if n != p.dimensions {
		return fmt.Errorf("%w: %s returned %d, want %d", ErrDimensionMismatch, p.name, n, p.dimensions)
	}

	return nil
}

var (
	_ Client = (*openAIClient)(nil)
	_ Client = (*googleClient)(nil)
	_ Client = (*MockClient)(nil)
)
