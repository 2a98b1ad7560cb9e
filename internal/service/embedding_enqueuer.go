package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/riverqueue/river"

	"github.com/unsa/eventhub/internal/datatypes"
	"github.com/unsa/eventhub/internal/huberrors"
	"github.com/unsa/eventhub/internal/observability"
)

// MissingEmbeddingsLister lists entities that have no embedding records yet.
type MissingEmbeddingsLister interface {
	ListEntityIDsWithoutEmbeddings(ctx context.Context, entityType datatypes.EntityType) ([]uuid.UUID, error)
}

// EmbeddingEnqueuer schedules background regeneration of entity embeddings as River jobs.
type EmbeddingEnqueuer struct {
	inserter    EmbeddingJobInserter
	queueName   string
	maxAttempts int
	metrics     observability.EmbeddingMetrics
}

// NewEmbeddingEnqueuer creates an enqueuer. metrics may be nil when metrics are disabled.
func NewEmbeddingEnqueuer(
	inserter EmbeddingJobInserter,
	queueName string,
	maxAttempts int,
	metrics observability.EmbeddingMetrics,
) *EmbeddingEnqueuer {
	if queueName == "" {
		queueName = EmbeddingsQueueName
	}

	return &EmbeddingEnqueuer{
		inserter:    inserter,
		queueName:   queueName,
		maxAttempts: maxAttempts,
		metrics:     metrics,
	}
}

// EnqueueRegenerate schedules one regeneration of the entity. Jobs are not deduplicated: an update
// arriving while a previous job runs must still produce a fresh job, and regeneration is idempotent.
func (e *EmbeddingEnqueuer) EnqueueRegenerate(ctx context.Context, entityType datatypes.EntityType, entityID uuid.UUID) error {
	if !entityType.Valid() {
		return huberrors.NewValidationError("entityType", "unknown entity type")
	}

	if entityID == uuid.Nil {
		return huberrors.NewValidationError("entityId", "entityId is required")
	}

	return e.insert(ctx, EntityEmbeddingArgs{EntityType: entityType, EntityID: entityID}, &river.InsertOpts{
		Queue:       e.queueName,
		MaxAttempts: e.maxAttempts,
	})
}

// BackfillStats holds statistics from a backfill run.
type BackfillStats struct {
	SpeakersEnqueued int
	SessionsEnqueued int
	Errors           int
}

// Backfill enqueues a job for every speaker and session that has no embeddings. Backfill jobs are
// unique per entity for an hour, so re-running the command does not pile up duplicates.
func (e *EmbeddingEnqueuer) Backfill(ctx context.Context, lister MissingEmbeddingsLister) (*BackfillStats, error) {
	stats := &BackfillStats{}

	for _, entityType := range []datatypes.EntityType{datatypes.EntitySpeaker, datatypes.EntitySession} {
		ids, err := lister.ListEntityIDsWithoutEmbeddings(ctx, entityType)
		if err != nil {
			return stats, fmt.Errorf("list %s without embeddings: %w", entityType, err)
		}

		enqueued := 0

		for _, id := range ids {
			err := e.insert(ctx, EntityEmbeddingArgs{EntityType: entityType, EntityID: id}, &river.InsertOpts{
				Queue:       e.queueName,
				MaxAttempts: e.maxAttempts,
				UniqueOpts:  river.UniqueOpts{ByArgs: true, ByPeriod: uniqueByPeriodBackfill},
			})
			if err != nil {
				stats.Errors++

				continue
			}

			enqueued++
		}

		switch entityType {
		case datatypes.EntitySpeaker:
			stats.SpeakersEnqueued = enqueued
		case datatypes.EntitySession:
			stats.SessionsEnqueued = enqueued
		}
	}

	return stats, nil
}

func (e *EmbeddingEnqueuer) insert(ctx context.Context, args EntityEmbeddingArgs, opts *river.InsertOpts) error {
	_, err := e.inserter.Insert(ctx, args, opts)
	if err != nil {
		if e.metrics != nil {
			e.metrics.RecordProviderError(ctx, "enqueue_failed")
		}

		slog.Error("embedding: enqueue failed",
			"entity_type", args.EntityType.String(),
			"entity_id", args.EntityID,
			"error", err,
		)

		return fmt.Errorf("enqueue embedding job: %w", err)
	}

	slog.Info("embedding: job enqueued",
		"entity_type", args.EntityType.String(),
		"entity_id", args.EntityID,
	)

	if e.metrics != nil {
		e.metrics.RecordJobsEnqueued(ctx, args.EntityType.String(), 1)
	}

	return nil
}
