package embeddings

import (
	"context"
	"fmt"

	openaisdk "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/packages/param"
)

// openAIClient calls the OpenAI embeddings endpoint through the official SDK.
type openAIClient struct {
	provider

	sdk openaisdk.Client
}

// newOpenAIClient disables SDK retries: a failed call reaches the generator at once and is
// reported as a provider error instead of stretching the tool call deadline.
func newOpenAIClient(cfg Config) *openAIClient {
	model := cfg.Model
	if model == "" {
		model = string(openaisdk.EmbeddingModelTextEmbedding3Small)
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &openAIClient{
		provider: provider{name: ProviderOpenAI, model: model, dimensions: cfg.Dimensions},
		sdk:      openaisdk.NewClient(opts...),
	}
}

func (c *openAIClient) CreateEmbedding(ctx context.Context, input string) ([]float32, error) {
	input, err := c.prepare(input)
	if err != nil {
		return nil, err
	}

	resp, err := c.sdk.Embeddings.New(ctx, openaisdk.EmbeddingNewParams{
		Input:      openaisdk.EmbeddingNewParamsInputUnion{OfString: param.NewOpt(input)},
		Model:      openaisdk.EmbeddingModel(c.model),
		Dimensions: param.NewOpt(int64(c.dimensions)),
	})
	if err != nil {
		return nil, fmt.Errorf("openai embedding: %w", err)
	}

	var emb []float64
	if len(resp.Data) > 0 {
		emb = resp.Data[0].Embedding
	}

	if err := c.checkLen(len(emb)); err != nil {
		return nil, err
	}

	out := make([]float32, len(emb))
	for i, v := range emb {
		out[i] = float32(v)
	}

	return out, nil
}
