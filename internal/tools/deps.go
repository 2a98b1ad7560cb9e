package tools

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/unsa/eventhub/internal/datatypes"
	"github.com/unsa/eventhub/internal/models"
)

// EventStore reads events.
type EventStore interface {
	GetByYear(ctx context.Context, year int) (*models.Event, error)
	ListYears(ctx context.Context) ([]int, error)
	Count(ctx context.Context) (int64, error)
}

// SessionStore reads sessions joined with their speakers.
type SessionStore interface {
	GetWithSpeaker(ctx context.Context, id uuid.UUID) (*models.SessionWithSpeaker, error)
	ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.SessionWithSpeaker, error)
	ListByEventAndDay(ctx context.Context, eventID uuid.UUID, day time.Time) ([]models.SessionWithSpeaker, error)
	FindAtTime(ctx context.Context, eventID uuid.UUID, t time.Time) (*models.SessionWithSpeaker, error)
	NextBySeq(ctx context.Context, eventID uuid.UUID, seq int) (*models.SessionWithSpeaker, error)
	NextByTime(ctx context.Context, eventID uuid.UUID, t time.Time) (*models.SessionWithSpeaker, error)
	ListBySpeaker(ctx context.Context, speakerID uuid.UUID) ([]models.SessionWithSpeaker, error)
}

// SpeakerStore resolves speakers by fuzzy name.
type SpeakerStore interface {
	FindByNameTrigram(ctx context.Context, name string, threshold float64, limit int) ([]models.Speaker, error)
}

// EmbeddingCounter reports whether the embedding store answers.
type EmbeddingCounter interface {
	Count(ctx context.Context) (int64, error)
}

// Ranker orders entities by semantic similarity to a query.
type Ranker interface {
	Rank(ctx context.Context, entityType datatypes.EntityType, queryText string, k int) ([]models.RankedResult, error)
}

// Hydrator resolves ranked ids to entities.
type Hydrator interface {
	HydrateSessions(ctx context.Context, ranked []models.RankedResult, eventID uuid.UUID) ([]models.ScoredSession, error)
	HydrateSpeakers(ctx context.Context, ranked []models.RankedResult) ([]models.ScoredSpeaker, error)
}

// Deps are the collaborators the tool handlers call.
type Deps struct {
	Events     EventStore
	Sessions   SessionStore
	Speakers   SpeakerStore
	Embeddings EmbeddingCounter
	Ranker     Ranker
	Hydrator   Hydrator
	// Now returns the current time for agenda.now. Defaults to time.Now.
	Now func() time.Time
}

func (d Deps) withDefaults() Deps {
	if d.Now == nil {
		d.Now = time.Now
	}

	return d
}
