package tools

import (
	"time"

	"github.com/google/uuid"

	"github.com/unsa/eventhub/internal/models"
)

// agendaTimeLayout renders session times in the event's local time zone.
const agendaTimeLayout = "Mon, 02 Jan 15:04"

// SpeakerSummary is the speaker block embedded in agenda items and session details.
type SpeakerSummary struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	Org             *string   `json:"org"`
	JobTitle        *string   `json:"jobTitle"`
	ProfileImageURL *string   `json:"profileImageUrl"`
}

// EventDates is the start and end date of an event (YYYY-MM-DD).
type EventDates struct {
	Start *string `json:"start"`
	End   *string `json:"end"`
}

// EventInfo is the WIDGET_EVENT_INFO payload.
type EventInfo struct {
	ID          uuid.UUID      `json:"id"`
	Name        string         `json:"name"`
	Year        int            `json:"year"`
	Description *string        `json:"description"`
	Venue       *string        `json:"venue"`
	TZ          string         `json:"tz"`
	Dates       EventDates     `json:"dates"`
	WebsiteURL  *string        `json:"websiteUrl"`
	Contacts    map[string]any `json:"contacts"`
}

// AgendaItem is one entry of a WIDGET_AGENDA_LIST payload.
type AgendaItem struct {
	Seq          int            `json:"seq"`
	SessionID    uuid.UUID      `json:"sessionId"`
	Title        string         `json:"title"`
	AbstractText *string        `json:"abstractText"`
	StartsAt     string         `json:"startsAt"`
	EndsAt       string         `json:"endsAt"`
	Speaker      SpeakerSummary `json:"speaker"`
}

// SessionDetail is the WIDGET_SESSION_DETAIL payload.
type SessionDetail struct {
	ID           uuid.UUID      `json:"id"`
	Title        string         `json:"title"`
	AbstractText *string        `json:"abstractText"`
	StartsAt     time.Time      `json:"startsAt"`
	EndsAt       time.Time      `json:"endsAt"`
	Seq          int            `json:"seq"`
	Speaker      SpeakerSummary `json:"speaker"`
}

// SpeakerName is the reduced speaker block of a semantic search hit.
type SpeakerName struct {
	Name string `json:"name"`
}

// SemanticSearchHit is one entry of a WIDGET_SEMANTIC_SEARCH payload.
type SemanticSearchHit struct {
	SessionID    uuid.UUID   `json:"sessionId"`
	Title        string      `json:"title"`
	AbstractText *string     `json:"abstractText"`
	Score        float64     `json:"score"`
	Speaker      SpeakerName `json:"speaker"`
}

// SpeakerSession is the session a speaker presents, if any.
type SpeakerSession struct {
	ID       uuid.UUID `json:"id"`
	Title    string    `json:"title"`
	StartsAt string    `json:"startsAt"`
	EndsAt   string    `json:"endsAt"`
}

// SpeakerDetail is the WIDGET_SPEAKER_DETAIL payload.
type SpeakerDetail struct {
	ID              uuid.UUID       `json:"id"`
	FullName        string          `json:"fullName"`
	OrgName         *string         `json:"orgName"`
	JobTitle        *string         `json:"jobTitle"`
	Bio             *string         `json:"bio"`
	ProfileImageURL *string         `json:"profileImageUrl"`
	Contacts        map[string]any  `json:"contacts"`
	Session         *SpeakerSession `json:"session"`
}

// SpeakerSemanticHit is one entry of a WIDGET_SPEAKER_SEARCH_SEMANTIC payload.
type SpeakerSemanticHit struct {
	SpeakerID uuid.UUID `json:"speakerId"`
	FullName  string    `json:"fullName"`
	OrgName   *string   `json:"orgName"`
	JobTitle  *string   `json:"jobTitle"`
	Score     float64   `json:"score"`
}

// Contact is the WIDGET_CONTACT payload.
type Contact struct {
	Contacts map[string]any `json:"contacts"`
}

// AgendaNow is the WIDGET_AGENDA_NOW payload. Either side may be nil.
type AgendaNow struct {
	Current *SessionDetail `json:"current"`
	Next    *SessionDetail `json:"next"`
}

// Health status values.
const (
	StatusOK    = "OK"
	StatusError = "ERROR"
)

// HealthStatus is the WIDGET_HEALTH_STATUS payload.
type HealthStatus struct {
	DB         string `json:"db"`
	Embeddings string `json:"embeddings"`
	EventYears []int  `json:"eventYears"`
}

func newSpeakerSummary(s *models.Speaker) SpeakerSummary {
	return SpeakerSummary{
		ID:              s.ID,
		Name:            s.FullName,
		Org:             s.OrgName,
		JobTitle:        s.JobTitle,
		ProfileImageURL: s.ProfileImageURL,
	}
}

func dateString(t *time.Time) *string {
	if t == nil {
		return nil
	}

	s := t.Format(time.DateOnly)

	return &s
}

func newEventInfo(e *models.Event) EventInfo {
	return EventInfo{
		ID:          e.ID,
		Name:        e.Name,
		Year:        e.Year,
		Description: e.Description,
		Venue:       e.Venue,
		TZ:          e.TZ,
		Dates:       EventDates{Start: dateString(e.StartsOn), End: dateString(e.EndsOn)},
		WebsiteURL:  e.WebsiteURL,
		Contacts:    e.Contacts,
	}
}

func newAgendaItem(s *models.SessionWithSpeaker) AgendaItem {
	loc := s.Location()

	return AgendaItem{
		Seq:          s.Seq,
		SessionID:    s.ID,
		Title:        s.Title,
		AbstractText: s.AbstractText,
		StartsAt:     s.StartsAt.In(loc).Format(agendaTimeLayout),
		EndsAt:       s.EndsAt.In(loc).Format(agendaTimeLayout),
		Speaker:      newSpeakerSummary(&s.Speaker),
	}
}

func newAgenda(sessions []models.SessionWithSpeaker) []AgendaItem {
	items := make([]AgendaItem, len(sessions))
	for i := range sessions {
		items[i] = newAgendaItem(&sessions[i])
	}

	return items
}

func newSessionDetail(s *models.SessionWithSpeaker) SessionDetail {
	loc := s.Location()

	return SessionDetail{
		ID:           s.ID,
		Title:        s.Title,
		AbstractText: s.AbstractText,
		StartsAt:     s.StartsAt.In(loc),
		EndsAt:       s.EndsAt.In(loc),
		Seq:          s.Seq,
		Speaker:      newSpeakerSummary(&s.Speaker),
	}
}

func newSpeakerDetail(s *models.Speaker, session *models.SessionWithSpeaker) SpeakerDetail {
	d := SpeakerDetail{
		ID:              s.ID,
		FullName:        s.FullName,
		OrgName:         s.OrgName,
		JobTitle:        s.JobTitle,
		Bio:             s.Bio,
		ProfileImageURL: s.ProfileImageURL,
		Contacts:        s.Contacts,
	}

	if session != nil {
		loc := session.Location()
		d.Session = &SpeakerSession{
			ID:       session.ID,
			Title:    session.Title,
			StartsAt: session.StartsAt.In(loc).Format(agendaTimeLayout),
			EndsAt:   session.EndsAt.In(loc).Format(agendaTimeLayout),
		}
	}

	return d
}
