// Package workers provides River job workers.
package workers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/riverqueue/river"

	"github.com/unsa/eventhub/internal/datatypes"
	"github.com/unsa/eventhub/internal/huberrors"
	"github.com/unsa/eventhub/internal/models"
	"github.com/unsa/eventhub/internal/observability"
	"github.com/unsa/eventhub/internal/service"
)

// EntityEmbeddingWorker regenerates all embeddings of one speaker or session.
type EntityEmbeddingWorker struct {
	river.WorkerDefaults[service.EntityEmbeddingArgs]

	loader    entityLoader
	generator embeddingRegenerator
	metrics   observability.EmbeddingMetrics
	timeout   time.Duration
}

// entityLoader is the minimal interface needed to resolve a job's entity.
type entityLoader interface {
	LoadEntity(ctx context.Context, entityType datatypes.EntityType, id uuid.UUID) (models.Embeddable, error)
}

type embeddingRegenerator interface {
	RegenerateForEntity(ctx context.Context, entity models.Embeddable, opts service.RegenerateOptions) (service.RegenerateResult, error)
	DeleteForEntity(ctx context.Context, entityType datatypes.EntityType, id uuid.UUID) (int64, error)
}

const defaultEntityEmbeddingTimeout = 2 * time.Minute

// NewEntityEmbeddingWorker creates the worker. metrics may be nil when metrics are disabled.
// timeout <= 0 uses a two minute default.
func NewEntityEmbeddingWorker(
	loader entityLoader,
	generator embeddingRegenerator,
	metrics observability.EmbeddingMetrics,
	timeout time.Duration,
) *EntityEmbeddingWorker {
	if timeout <= 0 {
		timeout = defaultEntityEmbeddingTimeout
	}

	return &EntityEmbeddingWorker{
		loader:    loader,
		generator: generator,
		metrics:   metrics,
		timeout:   timeout,
	}
}

// Timeout limits how long a single job can run. A session makes up to three provider calls.
func (w *EntityEmbeddingWorker) Timeout(*river.Job[service.EntityEmbeddingArgs]) time.Duration {
	return w.timeout
}

// Work loads the entity and regenerates its embeddings in best-effort mode. Provider failures never
// fail the job; only infrastructure errors (loading the entity, deleting) are returned for River to retry.
func (w *EntityEmbeddingWorker) Work(ctx context.Context, job *river.Job[service.EntityEmbeddingArgs]) error {
	args := job.Args

	entity, err := w.loader.LoadEntity(ctx, args.EntityType, args.EntityID)
	if err != nil {
		switch {
		case errors.Is(err, huberrors.ErrNotFound):
			return w.deleteMissing(ctx, args)
		case errors.Is(err, huberrors.ErrValidation):
			slog.Error("embedding: invalid job args",
				"entity_type", args.EntityType.String(),
				"entity_id", args.EntityID,
				"error", err,
			)

			return nil // retrying cannot fix the args
		}

		if w.metrics != nil {
			w.metrics.RecordWorkerError(ctx, "load_entity")
		}

		return fmt.Errorf("load %s %s: %w", args.EntityType, args.EntityID, err)
	}

	result, err := w.generator.RegenerateForEntity(ctx, entity, service.RegenerateOptions{BestEffort: true})
	if err != nil {
		if w.metrics != nil {
			w.metrics.RecordWorkerError(ctx, "regenerate")
		}

		return fmt.Errorf("regenerate embeddings: %w", err)
	}

	slog.Info("embedding: stored",
		"entity_type", args.EntityType.String(),
		"entity_id", args.EntityID,
		"stored", len(result.Stored),
		"cleared", len(result.Cleared),
		"failed", len(result.Failed),
		"attempt", job.Attempt,
	)

	return nil
}

func (w *EntityEmbeddingWorker) deleteMissing(ctx context.Context, args service.EntityEmbeddingArgs) error {
	n, err := w.generator.DeleteForEntity(ctx, args.EntityType, args.EntityID)
	if err != nil {
		if w.metrics != nil {
			w.metrics.RecordWorkerError(ctx, "delete")
		}

		return fmt.Errorf("delete embeddings of missing entity: %w", err)
	}

	if w.metrics != nil {
		w.metrics.RecordEmbeddingOutcome(ctx, args.EntityType.String(), "entity_missing")
	}

	slog.Info("embedding: entity gone, embeddings removed",
		"entity_type", args.EntityType.String(),
		"entity_id", args.EntityID,
		"deleted", n,
	)

	return nil
}
