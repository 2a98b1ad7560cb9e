package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"

	"github.com/unsa/eventhub/internal/datatypes"
)

const (
	entityEmbeddingKind = "entity_embedding"
	// EmbeddingsQueueName is the River queue used for entity embedding jobs.
	EmbeddingsQueueName = "embeddings"

	// Backfill jobs for the same entity within this window are deduplicated.
	uniqueByPeriodBackfill = time.Hour
)

// EmbeddingJobInserter inserts embedding jobs (e.g. River client).
type EmbeddingJobInserter interface {
	Insert(ctx context.Context, args river.JobArgs, opts *river.InsertOpts) (*rivertype.JobInsertResult, error)
}

// EntityEmbeddingArgs is the job payload for regenerating every embedding of one entity.
// Used by EmbeddingEnqueuer to enqueue and by the entity embedding worker to run.
type EntityEmbeddingArgs struct {
	EntityType datatypes.EntityType `json:"entity_type" river:"unique"`
	EntityID   uuid.UUID            `json:"entity_id"   river:"unique"`
}

// Kind returns the River job kind.
func (EntityEmbeddingArgs) Kind() string { return entityEmbeddingKind }

var _ river.JobArgs = EntityEmbeddingArgs{}
