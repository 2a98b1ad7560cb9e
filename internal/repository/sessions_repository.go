package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/unsa/eventhub/internal/huberrors"
	"github.com/unsa/eventhub/internal/models"
)

// Every session query joins its speaker (and the event time zone) so callers never traverse lazily.
const sessionWithSpeakerSelect = `
	SELECT s.id, s.event_id, s.speaker_id, s.title, s.abstract, s.day, s.starts_at, s.ends_at,
		s.seq, s.track, s.created_at, s.updated_at,
		sp.id, sp.full_name, sp.org_name, sp.job_title, sp.bio, sp.profile_image_url, sp.contacts,
		sp.created_at, sp.updated_at,
		ev.tz
	FROM sessions s
	JOIN speakers sp ON sp.id = s.speaker_id
	JOIN events ev ON ev.id = s.event_id`

// SessionsRepository handles read access to sessions joined with their speakers.
type SessionsRepository struct {
	db *pgxpool.Pool
}

// NewSessionsRepository creates a new sessions repository.
func NewSessionsRepository(db *pgxpool.Pool) *SessionsRepository {
	return &SessionsRepository{db: db}
}

func scanSessionWithSpeaker(row pgx.Row) (models.SessionWithSpeaker, error) {
	var s models.SessionWithSpeaker

	err := row.Scan(
		&s.ID, &s.EventID, &s.SpeakerID, &s.Title, &s.AbstractText, &s.Day, &s.StartsAt, &s.EndsAt,
		&s.Seq, &s.Track, &s.CreatedAt, &s.UpdatedAt,
		&s.Speaker.ID, &s.Speaker.FullName, &s.Speaker.OrgName, &s.Speaker.JobTitle, &s.Speaker.Bio,
		&s.Speaker.ProfileImageURL, &s.Speaker.Contacts, &s.Speaker.CreatedAt, &s.Speaker.UpdatedAt,
		&s.EventTZ,
	)

	return s, err //nolint:wrapcheck // callers wrap with operation context
}

func (r *SessionsRepository) one(ctx context.Context, notFound string, query string, args ...any) (*models.SessionWithSpeaker, error) {
	s, err := scanSessionWithSpeaker(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, huberrors.NewNotFoundError("session", notFound)
		}

		return nil, fmt.Errorf("get session: %w", err)
	}

	return &s, nil
}

func (r *SessionsRepository) list(ctx context.Context, query string, args ...any) ([]models.SessionWithSpeaker, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []models.SessionWithSpeaker

	for rows.Next() {
		s, err := scanSessionWithSpeaker(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}

		out = append(out, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sessions: %w", err)
	}

	return out, nil
}

// GetWithSpeaker returns a session and its speaker.
func (r *SessionsRepository) GetWithSpeaker(ctx context.Context, id uuid.UUID) (*models.SessionWithSpeaker, error) {
	return r.one(ctx, "Session not found with id: "+id.String(),
		sessionWithSpeakerSelect+` WHERE s.id = $1`, id)
}

// ListWithSpeakerByIDs loads every session in ids, with speakers, in one query.
// Order is unspecified and missing ids are skipped.
func (r *SessionsRepository) ListWithSpeakerByIDs(ctx context.Context, ids []uuid.UUID) ([]models.SessionWithSpeaker, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	return r.list(ctx, sessionWithSpeakerSelect+` WHERE s.id = ANY($1)`, ids)
}

// ListByEvent returns the linear agenda of an event ordered by seq.
func (r *SessionsRepository) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.SessionWithSpeaker, error) {
	return r.list(ctx, sessionWithSpeakerSelect+` WHERE s.event_id = $1 ORDER BY s.seq ASC`, eventID)
}

// ListByEventAndDay returns the sessions of one calendar day ordered by seq. Sessions without
// an explicit day fall back to the local date of starts_at in the event time zone.
func (r *SessionsRepository) ListByEventAndDay(
	ctx context.Context, eventID uuid.UUID, day time.Time,
) ([]models.SessionWithSpeaker, error) {
	return r.list(ctx, sessionWithSpeakerSelect+`
		WHERE s.event_id = $1
			AND COALESCE(s.day, (s.starts_at AT TIME ZONE ev.tz)::date) = $2::date
		ORDER BY s.seq ASC`, eventID, day.Format(time.DateOnly))
}

// FindAtTime returns the session running at t (starts_at <= t < ends_at).
func (r *SessionsRepository) FindAtTime(ctx context.Context, eventID uuid.UUID, t time.Time) (*models.SessionWithSpeaker, error) {
	return r.one(ctx, "No session found at the specified time", sessionWithSpeakerSelect+`
		WHERE s.event_id = $1 AND s.starts_at <= $2 AND s.ends_at > $2
		ORDER BY s.starts_at ASC, s.seq ASC
		LIMIT 1`, eventID, t)
}

// NextBySeq returns the first session with seq greater than seq.
func (r *SessionsRepository) NextBySeq(ctx context.Context, eventID uuid.UUID, seq int) (*models.SessionWithSpeaker, error) {
	return r.one(ctx, "No next session found", sessionWithSpeakerSelect+`
		WHERE s.event_id = $1 AND s.seq > $2
		ORDER BY s.seq ASC
		LIMIT 1`, eventID, seq)
}

// NextByTime returns the first session starting strictly after t.
func (r *SessionsRepository) NextByTime(ctx context.Context, eventID uuid.UUID, t time.Time) (*models.SessionWithSpeaker, error) {
	return r.one(ctx, "No next session found", sessionWithSpeakerSelect+`
		WHERE s.event_id = $1 AND s.starts_at > $2
		ORDER BY s.starts_at ASC, s.seq ASC
		LIMIT 1`, eventID, t)
}

// ListBySpeaker returns a speaker's sessions across all events, earliest first.
func (r *SessionsRepository) ListBySpeaker(ctx context.Context, speakerID uuid.UUID) ([]models.SessionWithSpeaker, error) {
	return r.list(ctx, sessionWithSpeakerSelect+` WHERE s.speaker_id = $1 ORDER BY s.starts_at ASC`, speakerID)
}
