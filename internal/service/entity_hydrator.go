package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/unsa/eventhub/internal/datatypes"
	"github.com/unsa/eventhub/internal/huberrors"
	"github.com/unsa/eventhub/internal/models"
)

// SessionReader loads sessions joined with their speakers.
type SessionReader interface {
	GetWithSpeaker(ctx context.Context, id uuid.UUID) (*models.SessionWithSpeaker, error)
	ListWithSpeakerByIDs(ctx context.Context, ids []uuid.UUID) ([]models.SessionWithSpeaker, error)
}

// SpeakerReader loads speakers.
type SpeakerReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Speaker, error)
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Speaker, error)
}

// EntityHydrator resolves ranked ids into full entities with one batched load per call.
type EntityHydrator struct {
	sessions SessionReader
	speakers SpeakerReader
}

// NewEntityHydrator creates a hydrator.
func NewEntityHydrator(sessions SessionReader, speakers SpeakerReader) *EntityHydrator {
	return &EntityHydrator{sessions: sessions, speakers: speakers}
}

func rankedIDs(ranked []models.RankedResult) []uuid.UUID {
	ids := make([]uuid.UUID, len(ranked))
	for i, r := range ranked {
		ids[i] = r.EntityID
	}

	return ids
}

// HydrateSessions returns the sessions of ranked that belong to eventID, in ranked order, each
// with its score. Ids that no longer exist or belong to another event are dropped; the result is
// not topped up. uuid.Nil disables the event filter.
func (h *EntityHydrator) HydrateSessions(
	ctx context.Context, ranked []models.RankedResult, eventID uuid.UUID,
) ([]models.ScoredSession, error) {
	if len(ranked) == 0 {
		return []models.ScoredSession{}, nil
	}

	sessions, err := h.sessions.ListWithSpeakerByIDs(ctx, rankedIDs(ranked))
	if err != nil {
		return nil, fmt.Errorf("hydrate sessions: %w", err)
	}

	byID := make(map[uuid.UUID]models.SessionWithSpeaker, len(sessions))
	for _, s := range sessions {
		byID[s.ID] = s
	}

	out := make([]models.ScoredSession, 0, len(ranked))

	for _, r := range ranked {
		s, ok := byID[r.EntityID]
		if !ok || (eventID != uuid.Nil && s.EventID != eventID) {
			continue
		}

		out = append(out, models.ScoredSession{Session: s, Score: r.Score})
	}

	return out, nil
}

// HydrateSpeakers returns the speakers of ranked in ranked order, each with its score.
func (h *EntityHydrator) HydrateSpeakers(ctx context.Context, ranked []models.RankedResult) ([]models.ScoredSpeaker, error) {
	if len(ranked) == 0 {
		return []models.ScoredSpeaker{}, nil
	}

	speakers, err := h.speakers.ListByIDs(ctx, rankedIDs(ranked))
	if err != nil {
		return nil, fmt.Errorf("hydrate speakers: %w", err)
	}

	byID := make(map[uuid.UUID]models.Speaker, len(speakers))
	for _, s := range speakers {
		byID[s.ID] = s
	}

	out := make([]models.ScoredSpeaker, 0, len(ranked))

	for _, r := range ranked {
		if s, ok := byID[r.EntityID]; ok {
			out = append(out, models.ScoredSpeaker{Speaker: s, Score: r.Score})
		}
	}

	return out, nil
}

// LoadEntity loads a single embeddable entity. Missing entities return a NotFound error.
func (h *EntityHydrator) LoadEntity(
	ctx context.Context, entityType datatypes.EntityType, id uuid.UUID,
) (models.Embeddable, error) {
	switch entityType {
	case datatypes.EntitySpeaker:
		s, err := h.speakers.GetByID(ctx, id)
		if err != nil {
			return nil, err //nolint:wrapcheck // not-found is matched by callers
		}

		return s, nil
	case datatypes.EntitySession:
		s, err := h.sessions.GetWithSpeaker(ctx, id)
		if err != nil {
			return nil, err //nolint:wrapcheck // not-found is matched by callers
		}

		return s, nil
	default:
		return nil, huberrors.NewValidationError("entityType", "unknown entity type")
	}
}
