package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/unsa/eventhub/internal/datatypes"
	"github.com/unsa/eventhub/internal/huberrors"
	"github.com/unsa/eventhub/internal/models"
	"github.com/unsa/eventhub/internal/observability"
	"github.com/unsa/eventhub/pkg/cache"
)

// MaxTopK is the largest result count a ranking query may ask for.
const MaxTopK = 50

// QueryEmbedder embeds free-text queries. Implemented by EmbeddingGenerator.
type QueryEmbedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// NearestFinder is the read side of the embedding store used for ranking.
type NearestFinder interface {
	FindNearest(ctx context.Context, entityType datatypes.EntityType, query []float32, k int) ([]models.NearestEntity, error)
	FindRaw(ctx context.Context, entityType datatypes.EntityType, query []float32, k int) ([]models.NearestField, error)
}

// QueryEmbeddingCache caches query vectors by normalized query text.
type QueryEmbeddingCache = cache.LoaderCache[string, []float32]

// NewQueryEmbeddingCache creates the query-embedding cache. Keys are trimmed query text.
func NewQueryEmbeddingCache(size int) (*QueryEmbeddingCache, error) {
	c, err := cache.NewLoaderCache[string, []float32](size, strings.TrimSpace)
	if err != nil {
		return nil, fmt.Errorf("create query embedding cache: %w", err)
	}

	return c, nil
}

// SimilarityRanker turns a query into at most k distinct entity ids ordered by similarity.
type SimilarityRanker struct {
	embedder     QueryEmbedder
	store        NearestFinder
	queryCache   *QueryEmbeddingCache
	cacheMetrics observability.CacheMetrics
}

// NewSimilarityRanker creates a ranker. queryCache and cacheMetrics may be nil.
func NewSimilarityRanker(
	embedder QueryEmbedder,
	store NearestFinder,
	queryCache *QueryEmbeddingCache,
	cacheMetrics observability.CacheMetrics,
) *SimilarityRanker {
	return &SimilarityRanker{
		embedder:     embedder,
		store:        store,
		queryCache:   queryCache,
		cacheMetrics: cacheMetrics,
	}
}

// Rank embeds queryText and returns up to k entities of entityType, highest score first.
// Each entity appears once, scored by its best-matching field.
func (r *SimilarityRanker) Rank(
	ctx context.Context, entityType datatypes.EntityType, queryText string, k int,
) ([]models.RankedResult, error) {
	query, err := validateRankInput(entityType, queryText, k)
	if err != nil {
		return nil, err
	}

	ctx, span := observability.Tracer().Start(ctx, "similarity.rank")
	defer span.End()

	span.SetAttributes(attribute.String("entity_type", entityType.String()), attribute.Int("top_k", k))

	vec, err := r.embedQuery(ctx, query)
	if err != nil {
		span.RecordError(err)

		return nil, err
	}

	rows, err := r.store.FindNearest(ctx, entityType, vec, k)
	if err != nil {
		span.RecordError(err)

		return nil, fmt.Errorf("find nearest %s: %w", entityType, err)
	}

	candidates := make([]models.RankedResult, len(rows))
	for i, row := range rows {
		candidates[i] = models.RankedResult{EntityID: row.EntityID, Score: ScoreFromDistance(row.Distance)}
	}

	return CollapseRanked(candidates, k), nil
}

// RankFields is Rank over per-field rows. It over-fetches one row per applicable field so that k
// distinct entities can survive the collapse.
func (r *SimilarityRanker) RankFields(
	ctx context.Context, entityType datatypes.EntityType, queryText string, k int,
) ([]models.RankedResult, error) {
	query, err := validateRankInput(entityType, queryText, k)
	if err != nil {
		return nil, err
	}

	vec, err := r.embedQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	rows, err := r.store.FindRaw(ctx, entityType, vec, k*len(entityType.Fields()))
	if err != nil {
		return nil, fmt.Errorf("find raw %s: %w", entityType, err)
	}

	candidates := make([]models.RankedResult, len(rows))
	for i, row := range rows {
		candidates[i] = models.RankedResult{EntityID: row.EntityID, Score: ScoreFromDistance(row.Distance)}
	}

	return CollapseRanked(candidates, k), nil
}

func validateRankInput(entityType datatypes.EntityType, queryText string, k int) (string, error) {
	if !entityType.Valid() {
		return "", huberrors.NewValidationError("entityType", "unknown entity type")
	}

	if k < 1 || k > MaxTopK {
		return "", huberrors.NewValidationError("topK", fmt.Sprintf("topK must be between 1 and %d", MaxTopK))
	}

	query := strings.TrimSpace(queryText)
	if query == "" {
		return "", huberrors.NewValidationError("query", "query must not be empty")
	}

	return query, nil
}

func (r *SimilarityRanker) embedQuery(ctx context.Context, query string) ([]float32, error) {
	if r.queryCache == nil {
		return r.embedder.Embed(ctx, query) //nolint:wrapcheck // provider errors are already typed
	}

	vec, hit, err := r.queryCache.GetWithStats(ctx, query, r.embedder.Embed)
	if r.cacheMetrics != nil {
		if hit {
			r.cacheMetrics.RecordHit(ctx, observability.CacheNameQueryEmbedding)
		} else {
			r.cacheMetrics.RecordMiss(ctx, observability.CacheNameQueryEmbedding)
		}
	}

	if err != nil {
		slog.Debug("similarity: query embedding failed", "error", err)

		// A caller waiting on an in-flight load sees only its own context error.
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, huberrors.NewProviderError("", err)
		}

		return nil, err //nolint:wrapcheck // provider errors are already typed
	}

	return vec, nil
}

// ScoreFromDistance converts a cosine distance to a similarity score clamped to [0, 1].
// An undefined distance (NaN, from a zero-norm operand) scores 0.
func ScoreFromDistance(distance float64) float64 {
	score := 1 - distance

	switch {
	case math.IsNaN(score), score < 0:
		return 0
	case score > 1:
		return 1
	default:
		return score
	}
}

// CollapseRanked keeps the maximum score per entity, sorts by score descending then entity id
// ascending, and truncates to k. The collapse happens before truncation so duplicates never
// consume result slots.
func CollapseRanked(candidates []models.RankedResult, k int) []models.RankedResult {
	best := make(map[uuid.UUID]float64, len(candidates))

	for _, c := range candidates {
		if prev, ok := best[c.EntityID]; !ok || c.Score > prev {
			best[c.EntityID] = c.Score
		}
	}

	out := make([]models.RankedResult, 0, len(best))
	for id, score := range best {
		out = append(out, models.RankedResult{EntityID: id, Score: score})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}

		return bytes.Compare(out[i].EntityID[:], out[j].EntityID[:]) < 0
	})

	if k >= 0 && len(out) > k {
		out = out[:k]
	}

	return out
}
