package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"

	"github.com/unsa/eventhub/internal/datatypes"
	"github.com/unsa/eventhub/internal/huberrors"
	"github.com/unsa/eventhub/internal/models"
	"github.com/unsa/eventhub/internal/observability"
	pkgembeddings "github.com/unsa/eventhub/pkg/embeddings"
)

// ErrEmbeddingsDisabled is wrapped in a ProviderError when no embedding provider is configured.
var ErrEmbeddingsDisabled = errors.New("embedding provider not configured")

const (
	defaultEmbedTimeout = 10 * time.Second
	defaultDimensions   = 1536
)

// EmbeddingClient produces vectors for text. Implemented by the openai, googleai and mock clients.
type EmbeddingClient interface {
	CreateEmbedding(ctx context.Context, input string) ([]float32, error)
	Name() string
	Model() string
}

// EmbeddingWriter is the write side of the embedding store used by the generator.
type EmbeddingWriter interface {
	Put(ctx context.Context, rec *models.EmbeddingRecord) error
	DeleteField(ctx context.Context, entityType datatypes.EntityType, entityID uuid.UUID, field datatypes.EmbeddingField) error
	DeleteAllForEntity(ctx context.Context, entityType datatypes.EntityType, entityID uuid.UUID) (int64, error)
}

// EmbeddingGeneratorParams configures an EmbeddingGenerator.
type EmbeddingGeneratorParams struct {
	// Client may be nil; every Embed call then fails with a ProviderError.
	Client     EmbeddingClient
	Store      EmbeddingWriter
	Dimensions int
	Timeout    time.Duration
	// Limiter paces background regeneration only. Nil means unlimited.
	Limiter *rate.Limiter
	Metrics observability.EmbeddingMetrics
}

// EmbeddingGenerator composes entity text, calls the embedding provider and stores one record per field.
type EmbeddingGenerator struct {
	client     EmbeddingClient
	store      EmbeddingWriter
	dimensions int
	timeout    time.Duration
	limiter    *rate.Limiter
	metrics    observability.EmbeddingMetrics
}

// NewEmbeddingGenerator creates a generator. Metrics may be nil when metrics are disabled.
func NewEmbeddingGenerator(p EmbeddingGeneratorParams) *EmbeddingGenerator {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = defaultEmbedTimeout
	}

	dims := p.Dimensions
	if dims <= 0 {
		dims = defaultDimensions
	}

	return &EmbeddingGenerator{
		client:     p.Client,
		store:      p.Store,
		dimensions: dims,
		timeout:    timeout,
		limiter:    p.Limiter,
		metrics:    p.Metrics,
	}
}

// RegenerateOptions controls failure handling in RegenerateForEntity.
type RegenerateOptions struct {
	// BestEffort logs and counts per-field failures and keeps going instead of returning the first one.
	BestEffort bool
}

// FieldFailure is a field that could not be regenerated in best-effort mode.
type FieldFailure struct {
	Field datatypes.EmbeddingField
	Err   error
}

// RegenerateResult reports what happened to each applicable field.
type RegenerateResult struct {
	Stored  []datatypes.EmbeddingField
	Cleared []datatypes.EmbeddingField
	Failed  []FieldFailure
}

// ComposeText builds the text embedded for field of entity. Empty parts are skipped, the rest are
// joined by a single space. Returns "" when the field does not apply or there is nothing to embed.
// Session Title and Abstract are the raw text with only surrounding whitespace removed; Embed trims
// its input the same way, so the vector is identical to embedding the untrimmed text.
func ComposeText(entity models.Embeddable, field datatypes.EmbeddingField) string {
	var parts []string

	switch e := entity.(type) {
	case *models.Speaker:
		if field == datatypes.FieldBio {
			parts = []string{models.StringValue(e.Bio), models.StringValue(e.JobTitle), models.StringValue(e.OrgName)}
		}
	case *models.SessionWithSpeaker:
		switch field {
		case datatypes.FieldTitle:
			parts = []string{e.Title}
		case datatypes.FieldAbstract:
			parts = []string{models.StringValue(e.AbstractText)}
		case datatypes.FieldAll:
			parts = []string{
				e.Title, models.StringValue(e.AbstractText),
				e.Speaker.FullName, models.StringValue(e.Speaker.OrgName),
			}
		case datatypes.FieldBio:
		}
	}

	return joinNonEmpty(parts)
}

func joinNonEmpty(parts []string) string {
	kept := make([]string, 0, len(parts))

	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}

	return strings.Join(kept, " ")
}

// Embed returns the L2-normalised embedding of text. Every provider failure, including a timeout,
// is returned as *huberrors.ProviderError. Calls are never retried.
func (g *EmbeddingGenerator) Embed(ctx context.Context, text string) ([]float32, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, huberrors.NewValidationError("text", "text to embed is empty")
	}

	if g.client == nil {
		return nil, huberrors.NewProviderError("", ErrEmbeddingsDisabled)
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	vec, err := g.client.CreateEmbedding(ctx, text)
	if err != nil {
		perr := huberrors.NewProviderError(g.client.Name(), err)
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			perr.Timeout = true
		}

		g.recordProviderError(ctx, perr)

		return nil, perr
	}

	if err := pkgembeddings.Validate(vec, g.dimensions); err != nil {
		perr := huberrors.NewProviderError(g.client.Name(), fmt.Errorf("invalid embedding: %w", err))
		g.recordProviderError(ctx, perr)

		return nil, perr
	}

	pkgembeddings.NormalizeL2(vec)

	return vec, nil
}

func (g *EmbeddingGenerator) recordProviderError(ctx context.Context, err *huberrors.ProviderError) {
	if g.metrics == nil {
		return
	}

	reason := "unavailable"
	if err.Timeout {
		reason = "timeout"
	}

	g.metrics.RecordProviderError(ctx, reason)
}

// RegenerateForEntity recomputes every applicable field of entity. A field whose composed text is
// empty has its record removed. Each field is handled independently: in best-effort mode a failing
// field keeps its previous record and the remaining fields still run.
func (g *EmbeddingGenerator) RegenerateForEntity(
	ctx context.Context, entity models.Embeddable, opts RegenerateOptions,
) (RegenerateResult, error) {
	var result RegenerateResult

	if entity == nil {
		return result, huberrors.NewValidationError("entity", "entity is required")
	}

	entityType := entity.EmbeddingEntityType()
	entityID := entity.EmbeddingEntityID()

	ctx, span := observability.Tracer().Start(ctx, "embedding.regenerate")
	defer span.End()

	span.SetAttributes(
		attribute.String("entity_type", entityType.String()),
		attribute.String("entity_id", entityID.String()),
	)

	for _, field := range entityType.Fields() {
		start := time.Now()

		status, err := g.regenerateField(ctx, entity, field)
		if g.metrics != nil {
			g.metrics.RecordEmbeddingOutcome(ctx, entityType.String(), status)
			g.metrics.RecordEmbeddingDuration(ctx, time.Since(start), status)
		}

		if err != nil {
			span.RecordError(err)

			if !opts.BestEffort {
				span.SetStatus(codes.Error, "regenerate failed")

				return result, fmt.Errorf("regenerate %s %s field %s: %w", entityType, entityID, field, err)
			}

			slog.Warn("embedding: field failed, keeping previous record",
				"entity_type", entityType.String(),
				"entity_id", entityID,
				"field", field.String(),
				"error", err,
			)

			result.Failed = append(result.Failed, FieldFailure{Field: field, Err: err})

			continue
		}

		if status == "empty_text" {
			result.Cleared = append(result.Cleared, field)
		} else {
			result.Stored = append(result.Stored, field)
		}
	}

	slog.Debug("embedding: regenerated",
		"entity_type", entityType.String(),
		"entity_id", entityID,
		"stored", len(result.Stored),
		"cleared", len(result.Cleared),
		"failed", len(result.Failed),
	)

	return result, nil
}

func (g *EmbeddingGenerator) regenerateField(
	ctx context.Context, entity models.Embeddable, field datatypes.EmbeddingField,
) (string, error) {
	entityType := entity.EmbeddingEntityType()
	entityID := entity.EmbeddingEntityID()

	text := ComposeText(entity, field)
	if text == "" {
		if err := g.store.DeleteField(ctx, entityType, entityID, field); err != nil {
			return "failed", fmt.Errorf("clear field: %w", err)
		}

		return "empty_text", nil
	}

	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return "failed", fmt.Errorf("wait for rate limiter: %w", err)
		}
	}

	vec, err := g.Embed(ctx, text)
	if err != nil {
		return "failed", err
	}

	rec := &models.EmbeddingRecord{
		EntityType: entityType,
		EntityID:   entityID,
		Field:      field,
		Vector:     vec,
		Model:      g.client.Model(),
		Dim:        len(vec),
	}

	if err := g.store.Put(ctx, rec); err != nil {
		return "failed", fmt.Errorf("store embedding: %w", err)
	}

	return "success", nil
}

// DeleteForEntity removes every embedding of the entity. Idempotent.
func (g *EmbeddingGenerator) DeleteForEntity(
	ctx context.Context, entityType datatypes.EntityType, entityID uuid.UUID,
) (int64, error) {
	n, err := g.store.DeleteAllForEntity(ctx, entityType, entityID)
	if err != nil {
		return 0, fmt.Errorf("delete embeddings for %s %s: %w", entityType, entityID, err)
	}

	return n, nil
}
