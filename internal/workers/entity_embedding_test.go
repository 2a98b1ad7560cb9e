package workers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unsa/eventhub/internal/datatypes"
	"github.com/unsa/eventhub/internal/huberrors"
	"github.com/unsa/eventhub/internal/models"
	"github.com/unsa/eventhub/internal/service"
)

type fakeLoader struct {
	loadFn func(ctx context.Context, et datatypes.EntityType, id uuid.UUID) (models.Embeddable, error)
}

func (f *fakeLoader) LoadEntity(ctx context.Context, et datatypes.EntityType, id uuid.UUID) (models.Embeddable, error) {
	return f.loadFn(ctx, et, id)
}

type fakeRegenerator struct {
	regenerateFn func(ctx context.Context, e models.Embeddable, opts service.RegenerateOptions) (service.RegenerateResult, error)
	deleteFn     func(ctx context.Context, et datatypes.EntityType, id uuid.UUID) (int64, error)

	regenerated []service.RegenerateOptions
	deleted     []uuid.UUID
}

func (f *fakeRegenerator) RegenerateForEntity(
	ctx context.Context, e models.Embeddable, opts service.RegenerateOptions,
) (service.RegenerateResult, error) {
	f.regenerated = append(f.regenerated, opts)
	if f.regenerateFn != nil {
		return f.regenerateFn(ctx, e, opts)
	}

	return service.RegenerateResult{}, nil
}

func (f *fakeRegenerator) DeleteForEntity(ctx context.Context, et datatypes.EntityType, id uuid.UUID) (int64, error) {
	f.deleted = append(f.deleted, id)
	if f.deleteFn != nil {
		return f.deleteFn(ctx, et, id)
	}

	return 1, nil
}

func newJob(et datatypes.EntityType, id uuid.UUID) *river.Job[service.EntityEmbeddingArgs] {
	return &river.Job[service.EntityEmbeddingArgs]{
		JobRow: &rivertype.JobRow{ID: 1, Attempt: 1, MaxAttempts: 3},
		Args:   service.EntityEmbeddingArgs{EntityType: et, EntityID: id},
	}
}

func TestEntityEmbeddingWorker_Work(t *testing.T) {
	id := uuid.New()

	t.Run("regenerates in best effort mode", func(t *testing.T) {
		loader := &fakeLoader{loadFn: func(_ context.Context, _ datatypes.EntityType, got uuid.UUID) (models.Embeddable, error) {
			return &models.Speaker{ID: got}, nil
		}}
		gen := &fakeRegenerator{}
		w := NewEntityEmbeddingWorker(loader, gen, nil, 0)

		require.NoError(t, w.Work(context.Background(), newJob(datatypes.EntitySpeaker, id)))
		require.Len(t, gen.regenerated, 1)
		assert.True(t, gen.regenerated[0].BestEffort)
		assert.Empty(t, gen.deleted)
	})

	t.Run("missing entity deletes its embeddings", func(t *testing.T) {
		loader := &fakeLoader{loadFn: func(context.Context, datatypes.EntityType, uuid.UUID) (models.Embeddable, error) {
			return nil, huberrors.NewNotFoundError("session", "")
		}}
		gen := &fakeRegenerator{}
		w := NewEntityEmbeddingWorker(loader, gen, nil, 0)

		require.NoError(t, w.Work(context.Background(), newJob(datatypes.EntitySession, id)))
		assert.Equal(t, []uuid.UUID{id}, gen.deleted)
		assert.Empty(t, gen.regenerated)
	})

	t.Run("load failure is retried", func(t *testing.T) {
		loader := &fakeLoader{loadFn: func(context.Context, datatypes.EntityType, uuid.UUID) (models.Embeddable, error) {
			return nil, errors.New("too many connections")
		}}
		w := NewEntityEmbeddingWorker(loader, &fakeRegenerator{}, nil, 0)

		assert.Error(t, w.Work(context.Background(), newJob(datatypes.EntitySession, id)))
	})

	t.Run("invalid args are dropped", func(t *testing.T) {
		loader := &fakeLoader{loadFn: func(context.Context, datatypes.EntityType, uuid.UUID) (models.Embeddable, error) {
			return nil, huberrors.NewValidationError("entityType", "unknown entity type")
		}}
		w := NewEntityEmbeddingWorker(loader, &fakeRegenerator{}, nil, 0)

		assert.NoError(t, w.Work(context.Background(), newJob(datatypes.EntityType(0), id)))
	})
}

func TestEntityEmbeddingWorker_Timeout(t *testing.T) {
	w := NewEntityEmbeddingWorker(&fakeLoader{}, &fakeRegenerator{}, nil, 0)
	assert.Equal(t, 2*time.Minute, w.Timeout(nil))

	w = NewEntityEmbeddingWorker(&fakeLoader{}, &fakeRegenerator{}, nil, time.Second)
	assert.Equal(t, time.Second, w.Timeout(nil))
}
