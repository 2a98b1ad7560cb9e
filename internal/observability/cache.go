package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// CacheMetrics counts lookups in in-process caches. The only cache today is the query
// embedding cache in front of the provider; a miss there costs one provider call.
type CacheMetrics interface {
	RecordHit(ctx context.Context, cacheName string)
	RecordMiss(ctx context.Context, cacheName string)
}

type cacheMetrics struct {
	hits   metric.Int64Counter
	misses metric.Int64Counter
}

// NewCacheMetrics creates CacheMetrics. Returns (nil, nil) when meter is nil (metrics disabled).
func NewCacheMetrics(meter metric.Meter) (CacheMetrics, error) {
	if meter == nil {
		//nolint:nilnil // metrics disabled
		return nil, nil
	}

	counters := make([]metric.Int64Counter, 0, 2)

	for _, def := range []struct{ name, desc string }{
		{MetricNameCacheHits, "Query embeddings served from memory"},
		{MetricNameCacheMisses, "Query embeddings that required a provider call"},
	} {
		c, err := meter.Int64Counter(def.name, metric.WithDescription(def.desc))
		if err != nil {
			return nil, fmt.Errorf("create %s: %w", def.name, err)
		}

		counters = append(counters, c)
	}

	return &cacheMetrics{hits: counters[0], misses: counters[1]}, nil
}

func (c *cacheMetrics) RecordHit(ctx context.Context, cacheName string) {
	c.hits.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrCache, NormalizeCacheName(cacheName))))
}

func (c *cacheMetrics) RecordMiss(ctx context.Context, cacheName string) {
	c.misses.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrCache, NormalizeCacheName(cacheName))))
}
