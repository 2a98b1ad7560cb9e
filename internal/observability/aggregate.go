package observability

import (
	"fmt"

	"go.opentelemetry.io/otel/metric"
)

// Metrics holds all eventhub metric collectors. When metrics are disabled, all fields are nil.
// Components that accept one of the interfaces can receive the corresponding field; they handle nil.
type Metrics struct {
	HTTP       HTTPMetrics
	API        APIMetrics
	Tools      ToolMetrics
	Embeddings EmbeddingMetrics
	Cache      CacheMetrics
}

// NewMetrics creates every collector from meter. toolNames bounds the tool label.
// Returns (nil, nil) when meter is nil (metrics disabled).
func NewMetrics(meter metric.Meter, toolNames []string) (*Metrics, error) {
	if meter == nil {
		//nolint:nilnil // intentional: callers use "if metrics != nil" when metrics disabled
		return nil, nil
	}

	httpMetrics, err := NewHTTPMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("http metrics: %w", err)
	}

	api, err := NewAPIMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("api metrics: %w", err)
	}

	tools, err := NewToolMetrics(meter, toolNames)
	if err != nil {
		return nil, fmt.Errorf("tool metrics: %w", err)
	}

	emb, err := NewEmbeddingMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("embedding metrics: %w", err)
	}

	cache, err := NewCacheMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("cache metrics: %w", err)
	}

	return &Metrics{
		HTTP:       httpMetrics,
		API:        api,
		Tools:      tools,
		Embeddings: emb,
		Cache:      cache,
	}, nil
}
