package embeddings

import (
	"context"
	"fmt"
	"math"

	"google.golang.org/genai"
)

const defaultGoogleModel = "gemini-embedding-001"

// googleClient calls the Gemini embeddings API. Speaker bios and session abstracts are compared
// with free-text questions, so requests use the SEMANTIC_SIMILARITY task type.
type googleClient struct {
	provider

	sdk *genai.Client
}

func newGoogleClient(ctx context.Context, cfg Config) (*googleClient, error) {
	if cfg.Dimensions > math.MaxInt32 {
		return nil, ErrInvalidDims
	}

	sdk, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("embeddings: google client: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = defaultGoogleModel
	}

	return &googleClient{
		provider: provider{name: ProviderGoogle, model: model, dimensions: cfg.Dimensions},
		sdk:      sdk,
	}, nil
}

func (c *googleClient) CreateEmbedding(ctx context.Context, input string) ([]float32, error) {
	input, err := c.prepare(input)
	if err != nil {
		return nil, err
	}

	dims := int32(c.dimensions) //nolint:gosec // bounded by newGoogleClient

	resp, err := c.sdk.Models.EmbedContent(ctx, c.model,
		[]*genai.Content{genai.NewContentFromText(input, genai.RoleUser)},
		&genai.EmbedContentConfig{OutputDimensionality: &dims, TaskType: "SEMANTIC_SIMILARITY"},
	)
	if err != nil {
		return nil, fmt.Errorf("gemini embedding: %w", err)
	}

	var emb []float32
	if len(resp.Embeddings) > 0 && resp.Embeddings[0] != nil {
		emb = resp.Embeddings[0].Values
	}

	if err := c.checkLen(len(emb)); err != nil {
		return nil, err
	}

	out := make([]float32, len(emb))
	copy(out, emb)

	return out, nil
}
