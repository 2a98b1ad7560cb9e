package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/unsa/eventhub/internal/datatypes"
)

// Event is a conference edition. Sessions reference it by EventID.
type Event struct {
	ID          uuid.UUID      `json:"id"`
	Name        string         `json:"name"`
	Year        int            `json:"year"`
	Description *string        `json:"description,omitempty"`
	Venue       *string        `json:"venue,omitempty"`
	TZ          string         `json:"tz"`
	StartsOn    *time.Time     `json:"starts_on,omitempty"`
	EndsOn      *time.Time     `json:"ends_on,omitempty"`
	WebsiteURL  *string        `json:"website_url,omitempty"`
	Contacts    map[string]any `json:"contacts"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// Location returns the event time zone, falling back to UTC when TZ is unknown.
func (e *Event) Location() *time.Location {
	if e == nil || e.TZ == "" {
		return time.UTC
	}

	loc, err := time.LoadLocation(e.TZ)
	if err != nil {
		return time.UTC
	}

	return loc
}

// Speaker is a person presenting at one or more events.
type Speaker struct {
	ID              uuid.UUID      `json:"id"`
	FullName        string         `json:"full_name"`
	OrgName         *string        `json:"org_name,omitempty"`
	JobTitle        *string        `json:"job_title,omitempty"`
	Bio             *string        `json:"bio,omitempty"`
	ProfileImageURL *string        `json:"profile_image_url,omitempty"`
	Contacts        map[string]any `json:"contacts"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// EmbeddingEntityType implements Embeddable.
func (s *Speaker) EmbeddingEntityType() datatypes.EntityType { return datatypes.EntitySpeaker }

// EmbeddingEntityID implements Embeddable.
func (s *Speaker) EmbeddingEntityID() uuid.UUID { return s.ID }

// Session is one agenda slot. Its event and speaker are plain foreign keys;
// use SessionWithSpeaker when the speaker is needed.
type Session struct {
	ID           uuid.UUID  `json:"id"`
	EventID      uuid.UUID  `json:"event_id"`
	SpeakerID    uuid.UUID  `json:"speaker_id"`
	Title        string     `json:"title"`
	AbstractText *string    `json:"abstract,omitempty"`
	Day          *time.Time `json:"day,omitempty"`
	StartsAt     time.Time  `json:"starts_at"`
	EndsAt       time.Time  `json:"ends_at"`
	Seq          int        `json:"seq"`
	Track        *string    `json:"track,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// SessionWithSpeaker is a session joined with its speaker in one query.
type SessionWithSpeaker struct {
	Session
	Speaker Speaker `json:"speaker"`
	// EventTZ is the owning event's IANA time zone.
	EventTZ string `json:"-"`
}

// Location returns the owning event's time zone, UTC when unknown.
func (s *SessionWithSpeaker) Location() *time.Location {
	return (&Event{TZ: s.EventTZ}).Location()
}

// EmbeddingEntityType implements Embeddable.
func (s *SessionWithSpeaker) EmbeddingEntityType() datatypes.EntityType { return datatypes.EntitySession }

// EmbeddingEntityID implements Embeddable.
func (s *SessionWithSpeaker) EmbeddingEntityID() uuid.UUID { return s.ID }

// Embeddable is an entity that owns embedding records.
type Embeddable interface {
	EmbeddingEntityType() datatypes.EntityType
	EmbeddingEntityID() uuid.UUID
}

// StringValue dereferences an optional text column.
func StringValue(s *string) string {
	if s == nil {
		return ""
	}

	return *s
}
