package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unsa/eventhub/internal/datatypes"
	"github.com/unsa/eventhub/internal/huberrors"
	"github.com/unsa/eventhub/internal/models"
)

func TestEntityHydrator_HydrateSessions(t *testing.T) {
	e1, e2 := uuid.New(), uuid.New()
	a, b, c := uuid.New(), uuid.New(), uuid.New()

	sessions := &fakeSessionReader{listFn: func(_ context.Context, ids []uuid.UUID) ([]models.SessionWithSpeaker, error) {
		assert.Equal(t, []uuid.UUID{a, b, c}, ids)

		// returned out of order on purpose
		return []models.SessionWithSpeaker{
			{Session: models.Session{ID: c, EventID: e1, Title: "C"}},
			{Session: models.Session{ID: b, EventID: e2, Title: "B"}},
			{Session: models.Session{ID: a, EventID: e1, Title: "A"}},
		}, nil
	}}
	h := NewEntityHydrator(sessions, &fakeSpeakerReader{})

	ranked := []models.RankedResult{{EntityID: a, Score: 0.9}, {EntityID: b, Score: 0.8}, {EntityID: c, Score: 0.7}}

	t.Run("drops other events and preserves order", func(t *testing.T) {
		got, err := h.HydrateSessions(context.Background(), ranked, e1)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "A", got[0].Session.Title)
		assert.InDelta(t, 0.9, got[0].Score, 1e-9)
		assert.Equal(t, "C", got[1].Session.Title)
	})

	t.Run("nil scope keeps everything", func(t *testing.T) {
		got, err := h.HydrateSessions(context.Background(), ranked, uuid.Nil)
		require.NoError(t, err)
		assert.Len(t, got, 3)
	})

	t.Run("empty input skips the load", func(t *testing.T) {
		before := sessions.lists

		got, err := h.HydrateSessions(context.Background(), nil, e1)
		require.NoError(t, err)
		assert.Empty(t, got)
		assert.Equal(t, before, sessions.lists)
	})
}

func TestEntityHydrator_HydrateSpeakers(t *testing.T) {
	a, gone := uuid.New(), uuid.New()

	speakers := &fakeSpeakerReader{listFn: func(context.Context, []uuid.UUID) ([]models.Speaker, error) {
		return []models.Speaker{{ID: a, FullName: "Ana"}}, nil
	}}
	h := NewEntityHydrator(&fakeSessionReader{}, speakers)

	got, err := h.HydrateSpeakers(context.Background(), []models.RankedResult{{EntityID: gone, Score: 0.9}, {EntityID: a, Score: 0.5}})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Ana", got[0].Speaker.FullName)

	speakers.listFn = func(context.Context, []uuid.UUID) ([]models.Speaker, error) {
		return nil, errors.New("conn closed")
	}

	_, err = h.HydrateSpeakers(context.Background(), []models.RankedResult{{EntityID: a}})
	assert.Error(t, err)
}

func TestEntityHydrator_LoadEntity(t *testing.T) {
	id := uuid.New()
	h := NewEntityHydrator(
		&fakeSessionReader{getFn: func(context.Context, uuid.UUID) (*models.SessionWithSpeaker, error) {
			return nil, huberrors.NewNotFoundError("session", "Session not found with id: "+id.String())
		}},
		&fakeSpeakerReader{getFn: func(_ context.Context, got uuid.UUID) (*models.Speaker, error) {
			return &models.Speaker{ID: got}, nil
		}},
	)

	e, err := h.LoadEntity(context.Background(), datatypes.EntitySpeaker, id)
	require.NoError(t, err)
	assert.Equal(t, datatypes.EntitySpeaker, e.EmbeddingEntityType())
	assert.Equal(t, id, e.EmbeddingEntityID())

	_, err = h.LoadEntity(context.Background(), datatypes.EntitySession, id)
	require.ErrorIs(t, err, huberrors.ErrNotFound)

	_, err = h.LoadEntity(context.Background(), datatypes.EntityType(0), id)
	assert.ErrorIs(t, err, huberrors.ErrValidation)
}
