package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unsa/eventhub/internal/datatypes"
	"github.com/unsa/eventhub/internal/huberrors"
)

type fakeMissingLister struct {
	listFn func(ctx context.Context, et datatypes.EntityType) ([]uuid.UUID, error)
}

func (f *fakeMissingLister) ListEntityIDsWithoutEmbeddings(ctx context.Context, et datatypes.EntityType) ([]uuid.UUID, error) {
	return f.listFn(ctx, et)
}

func TestEmbeddingEnqueuer_EnqueueRegenerate(t *testing.T) {
	t.Run("inserts job on the embeddings queue", func(t *testing.T) {
		inserter := &fakeInserter{}
		e := NewEmbeddingEnqueuer(inserter, "", 3, nil)
		id := uuid.New()

		require.NoError(t, e.EnqueueRegenerate(context.Background(), datatypes.EntitySession, id))
		require.Len(t, inserter.calls, 1)

		call := inserter.calls[0]
		assert.Equal(t, EntityEmbeddingArgs{EntityType: datatypes.EntitySession, EntityID: id}, call.args)
		assert.Equal(t, "entity_embedding", call.args.Kind())
		assert.Equal(t, EmbeddingsQueueName, call.opts.Queue)
		assert.Equal(t, 3, call.opts.MaxAttempts)
		assert.False(t, call.opts.UniqueOpts.ByArgs)
	})

	t.Run("insert failure is returned", func(t *testing.T) {
		inserter := &fakeInserter{insertErr: errors.New("db down")}
		e := NewEmbeddingEnqueuer(inserter, "embeddings", 3, nil)

		err := e.EnqueueRegenerate(context.Background(), datatypes.EntitySpeaker, uuid.New())
		assert.ErrorContains(t, err, "db down")
	})

	t.Run("rejects bad input", func(t *testing.T) {
		e := NewEmbeddingEnqueuer(&fakeInserter{}, "embeddings", 3, nil)

		assert.ErrorIs(t, e.EnqueueRegenerate(context.Background(), datatypes.EntityType(0), uuid.New()), huberrors.ErrValidation)
		assert.ErrorIs(t, e.EnqueueRegenerate(context.Background(), datatypes.EntitySpeaker, uuid.Nil), huberrors.ErrValidation)
	})
}

func TestEmbeddingEnqueuer_Backfill(t *testing.T) {
	speakerIDs := []uuid.UUID{uuid.New(), uuid.New()}
	sessionIDs := []uuid.UUID{uuid.New()}

	lister := &fakeMissingLister{listFn: func(_ context.Context, et datatypes.EntityType) ([]uuid.UUID, error) {
		if et == datatypes.EntitySpeaker {
			return speakerIDs, nil
		}

		return sessionIDs, nil
	}}

	inserter := &fakeInserter{}
	e := NewEmbeddingEnqueuer(inserter, "embeddings", 5, nil)

	stats, err := e.Backfill(context.Background(), lister)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.SpeakersEnqueued)
	assert.Equal(t, 1, stats.SessionsEnqueued)
	assert.Zero(t, stats.Errors)

	require.Len(t, inserter.calls, 3)

	for _, call := range inserter.calls {
		assert.True(t, call.opts.UniqueOpts.ByArgs)
		assert.Equal(t, time.Hour, call.opts.UniqueOpts.ByPeriod)
	}
}
