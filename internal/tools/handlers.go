package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/unsa/eventhub/internal/datatypes"
	"github.com/unsa/eventhub/internal/huberrors"
	"github.com/unsa/eventhub/internal/models"
)

// Tool names. These are the public contract with the tool host.
const (
	ToolEventInfoGet          = "event.info.get"
	ToolEventAgendaList       = "event.agenda.list"
	ToolSessionGet            = "session.get"
	ToolSessionFindByTime     = "session.find.by_time"
	ToolSessionNext           = "session.next"
	ToolSessionSearchSemantic = "session.search.semantic"
	ToolSessionRangeByDay     = "session.range.by_day"
	ToolSpeakerGet            = "speaker.get"
	ToolSpeakerSearchSemantic = "speaker.search.semantic"
	ToolContactGetForSpeaker  = "contact.get.for_speaker"
	ToolAgendaNow             = "agenda.now"
	ToolHealthStatus          = "health.status"
)

// Names returns every tool name, sorted. Used to bound metric labels.
func Names() []string {
	return []string{
		ToolAgendaNow,
		ToolContactGetForSpeaker,
		ToolEventAgendaList,
		ToolEventInfoGet,
		ToolHealthStatus,
		ToolSessionFindByTime,
		ToolSessionGet,
		ToolSessionNext,
		ToolSessionRangeByDay,
		ToolSessionSearchSemantic,
		ToolSpeakerGet,
		ToolSpeakerSearchSemantic,
	}
}

const (
	speakerNameThreshold = 0.3
	speakerNameLimit     = 5
)

var (
	yearParam  = ParamSpec{Name: "year", Type: "integer", Required: true, Description: "The year of the event"}
	queryParam = ParamSpec{Name: "query", Type: "string", Required: true, Description: "Query text"}
	topKParam  = ParamSpec{Name: "topK", Type: "integer", Required: true, Description: "Number of results (1-50)"}
	nameParam  = ParamSpec{
		Name: "name", Type: "string", Required: true,
		Description: "Speaker name or partial name (e.g. 'Angel', 'Angel Tomas')",
	}
)

type yearParams struct {
	Year int `json:"year" validate:"required,gte=1900,lte=2999"`
}

type sessionGetParams struct {
	SessionID string `json:"sessionId" validate:"required,uuid"`
}

type findByTimeParams struct {
	Year int    `json:"year" validate:"required,gte=1900,lte=2999"`
	At   string `json:"at"   validate:"required,rfc3339"`
}

type nextParams struct {
	Year     int    `json:"year"     validate:"required,gte=1900,lte=2999"`
	FromSeq  *int   `json:"fromSeq"  validate:"omitempty,gte=0"`
	FromTime string `json:"fromTime" validate:"omitempty,rfc3339"`
}

type sessionSearchParams struct {
	Year  int    `json:"year"  validate:"required,gte=1900,lte=2999"`
	Query string `json:"query" validate:"required,no_null_bytes,max=1000"`
	TopK  int    `json:"topK"  validate:"required,gte=1,lte=50"`
}

type byDayParams struct {
	Year int    `json:"year" validate:"required,gte=1900,lte=2999"`
	Day  string `json:"day"  validate:"required,datetime=2006-01-02"`
}

type nameParams struct {
	Name string `json:"name" validate:"required,no_null_bytes,max=200"`
}

type speakerSearchParams struct {
	Query string `json:"query" validate:"required,no_null_bytes,max=1000"`
	TopK  int    `json:"topK"  validate:"required,gte=1,lte=50"`
}

type agendaNowParams struct {
	Year int    `json:"year" validate:"required,gte=1900,lte=2999"`
	Now  string `json:"now"`
}

type noParams struct{}

type handlers struct {
	deps Deps
}

func (h *handlers) tools() []*Tool {
	return []*Tool{
		newTool(ToolEventInfoGet, "Get basic information about an event for a specific year",
			"Error retrieving event information: ", []ParamSpec{yearParam}, h.eventInfo),
		newTool(ToolEventAgendaList, "Get the complete linear agenda for an event",
			"Error retrieving agenda: ", []ParamSpec{yearParam}, h.agendaList),
		newTool(ToolSessionGet, "Get details of a specific session",
			"Error retrieving session: ", []ParamSpec{
				{Name: "sessionId", Type: "string", Required: true, Description: "The UUID of the session"},
			}, h.sessionGet),
		newTool(ToolSessionFindByTime, "Find the session occurring at a specific time",
			"Error finding session by time: ", []ParamSpec{
				yearParam,
				{Name: "at", Type: "string", Required: true, Description: "The time to search (RFC3339)"},
			}, h.sessionFindByTime),
		newTool(ToolSessionNext, "Get the next session after a given sequence number or time",
			"Error retrieving next session: ", []ParamSpec{
				yearParam,
				{Name: "fromSeq", Type: "integer", Description: "Sequence number to start from"},
				{Name: "fromTime", Type: "string", Description: "Time to start from (RFC3339)"},
			}, h.sessionNext),
		newTool(ToolSessionSearchSemantic, "Search sessions by semantic similarity using embeddings",
			"Error performing semantic search: ", []ParamSpec{yearParam, queryParam, topKParam}, h.sessionSearch),
		newTool(ToolSessionRangeByDay, "List all sessions for a specific day",
			"Error retrieving sessions by day: ", []ParamSpec{
				yearParam,
				{Name: "day", Type: "string", Required: true, Description: "The day to filter (YYYY-MM-DD)"},
			}, h.sessionsByDay),
		newTool(ToolSpeakerGet, "Get detailed information about a speaker by partial name match using similarity search",
			"Error retrieving speaker information: ", []ParamSpec{nameParam}, h.speakerGet),
		newTool(ToolSpeakerSearchSemantic, "Search speakers by semantic similarity using embeddings",
			"Error performing semantic search: ", []ParamSpec{queryParam, topKParam}, h.speakerSearch),
		newTool(ToolContactGetForSpeaker, "Get contact information for a speaker by partial name match using similarity search",
			"Error retrieving contact information: ", []ParamSpec{nameParam}, h.contactForSpeaker),
		newTool(ToolAgendaNow, "Get what is happening now - current and next sessions",
			"Error retrieving current agenda: ", []ParamSpec{
				yearParam,
				{Name: "now", Type: "string", Description: "Use 'auto' or provide an RFC3339 time"},
			}, h.agendaNow),
		newTool(ToolHealthStatus, "Get server health status and available event years",
			"Error retrieving health status: ", nil, h.health),
	}
}

func (h *handlers) eventInfo(ctx context.Context, p yearParams) (Envelope, error) {
	event, err := h.deps.Events.GetByYear(ctx, p.Year)
	if err != nil {
		return Envelope{}, err //nolint:wrapcheck // classified at the catalog boundary
	}

	return Wrap(ToolEventInfoGet, TypeEventInfo, newEventInfo(event)), nil
}

func (h *handlers) agendaList(ctx context.Context, p yearParams) (Envelope, error) {
	event, err := h.deps.Events.GetByYear(ctx, p.Year)
	if err != nil {
		return Envelope{}, err //nolint:wrapcheck // classified at the catalog boundary
	}

	sessions, err := h.deps.Sessions.ListByEvent(ctx, event.ID)
	if err != nil {
		return Envelope{}, fmt.Errorf("list agenda: %w", err)
	}

	return Wrap(ToolEventAgendaList, TypeAgendaList, newAgenda(sessions)), nil
}

func (h *handlers) sessionGet(ctx context.Context, p sessionGetParams) (Envelope, error) {
	id, err := uuid.Parse(p.SessionID)
	if err != nil {
		return Envelope{}, huberrors.NewValidationError("sessionId", "sessionId must be a valid UUID")
	}

	session, err := h.deps.Sessions.GetWithSpeaker(ctx, id)
	if err != nil {
		return Envelope{}, err //nolint:wrapcheck // classified at the catalog boundary
	}

	return Wrap(ToolSessionGet, TypeSessionDetail, newSessionDetail(session)), nil
}

func (h *handlers) sessionFindByTime(ctx context.Context, p findByTimeParams) (Envelope, error) {
	at, err := time.Parse(time.RFC3339, p.At)
	if err != nil {
		return Envelope{}, huberrors.NewValidationError("at", "at must be in RFC3339 format (ISO 8601)")
	}

	event, err := h.deps.Events.GetByYear(ctx, p.Year)
	if err != nil {
		return Envelope{}, err //nolint:wrapcheck // classified at the catalog boundary
	}

	session, err := h.deps.Sessions.FindAtTime(ctx, event.ID, at)
	if err != nil {
		if errors.Is(err, huberrors.ErrNotFound) {
			return Text(ToolSessionFindByTime, "No session found at the specified time"), nil
		}

		return Envelope{}, err //nolint:wrapcheck // classified at the catalog boundary
	}

	return Wrap(ToolSessionFindByTime, TypeSessionDetail, newSessionDetail(session)), nil
}

func (h *handlers) sessionNext(ctx context.Context, p nextParams) (Envelope, error) {
	if p.FromSeq == nil && p.FromTime == "" {
		return Envelope{}, huberrors.NewValidationError("", "Either fromSeq or fromTime must be provided")
	}

	event, err := h.deps.Events.GetByYear(ctx, p.Year)
	if err != nil {
		return Envelope{}, err //nolint:wrapcheck // classified at the catalog boundary
	}

	var next *models.SessionWithSpeaker

	if p.FromSeq != nil {
		next, err = h.deps.Sessions.NextBySeq(ctx, event.ID, *p.FromSeq)
	} else {
		from, perr := time.Parse(time.RFC3339, p.FromTime)
		if perr != nil {
			return Envelope{}, huberrors.NewValidationError("fromTime", "fromTime must be in RFC3339 format (ISO 8601)")
		}

		next, err = h.deps.Sessions.NextByTime(ctx, event.ID, from)
	}

	if err != nil {
		return Envelope{}, err //nolint:wrapcheck // not found reads "No next session found"
	}

	return Wrap(ToolSessionNext, TypeSessionDetail, newSessionDetail(next)), nil
}

func (h *handlers) sessionSearch(ctx context.Context, p sessionSearchParams) (Envelope, error) {
	event, err := h.deps.Events.GetByYear(ctx, p.Year)
	if err != nil {
		return Envelope{}, err //nolint:wrapcheck // classified at the catalog boundary
	}

	ranked, err := h.deps.Ranker.Rank(ctx, datatypes.EntitySession, p.Query, p.TopK)
	if err != nil {
		return Envelope{}, err //nolint:wrapcheck // provider errors stay typed
	}

	sessions, err := h.deps.Hydrator.HydrateSessions(ctx, ranked, event.ID)
	if err != nil {
		return Envelope{}, err //nolint:wrapcheck // classified at the catalog boundary
	}

	if len(sessions) == 0 {
		return Text(ToolSessionSearchSemantic, "No sessions found for query: "+p.Query), nil
	}

	hits := make([]SemanticSearchHit, len(sessions))
	for i, s := range sessions {
		hits[i] = SemanticSearchHit{
			SessionID:    s.Session.ID,
			Title:        s.Session.Title,
			AbstractText: s.Session.AbstractText,
			Score:        s.Score,
			Speaker:      SpeakerName{Name: s.Session.Speaker.FullName},
		}
	}

	return Wrap(ToolSessionSearchSemantic, TypeSemanticSearch, hits), nil
}

func (h *handlers) sessionsByDay(ctx context.Context, p byDayParams) (Envelope, error) {
	event, err := h.deps.Events.GetByYear(ctx, p.Year)
	if err != nil {
		return Envelope{}, err //nolint:wrapcheck // classified at the catalog boundary
	}

	day, err := time.ParseInLocation(time.DateOnly, p.Day, event.Location())
	if err != nil {
		return Envelope{}, huberrors.NewValidationError("day", "day must be in YYYY-MM-DD format")
	}

	sessions, err := h.deps.Sessions.ListByEventAndDay(ctx, event.ID, day)
	if err != nil {
		return Envelope{}, fmt.Errorf("list sessions by day: %w", err)
	}

	if len(sessions) == 0 {
		return Text(ToolSessionRangeByDay, "No sessions found for day: "+p.Day), nil
	}

	return Wrap(ToolSessionRangeByDay, TypeAgendaList, newAgenda(sessions)), nil
}

// resolveSpeaker returns the single speaker matching name. When there is no unique match it
// returns the envelope to send instead: ERROR for no match, TEXT listing candidates when ambiguous.
func (h *handlers) resolveSpeaker(ctx context.Context, toolName, name string) (*models.Speaker, *Envelope, error) {
	candidates, err := h.deps.Speakers.FindByNameTrigram(ctx, strings.TrimSpace(name), speakerNameThreshold, speakerNameLimit)
	if err != nil {
		return nil, nil, fmt.Errorf("find speaker by name: %w", err)
	}

	switch len(candidates) {
	case 0:
		env := Error(toolName, "No speaker found matching: "+name)

		return nil, &env, nil
	case 1:
		return &candidates[0], nil, nil
	}

	lines := make([]string, len(candidates))
	for i, s := range candidates {
		lines[i] = fmt.Sprintf("• %s (%s, %s)", s.FullName, models.StringValue(s.OrgName), models.StringValue(s.JobTitle))
	}

	env := Text(toolName, fmt.Sprintf("Multiple speakers found matching '%s'. Please be more specific:\n\n%s",
		name, strings.Join(lines, "\n")))

	return nil, &env, nil
}

func (h *handlers) speakerGet(ctx context.Context, p nameParams) (Envelope, error) {
	speaker, alt, err := h.resolveSpeaker(ctx, ToolSpeakerGet, p.Name)
	if err != nil {
		return Envelope{}, err
	}

	if alt != nil {
		return *alt, nil
	}

	sessions, err := h.deps.Sessions.ListBySpeaker(ctx, speaker.ID)
	if err != nil {
		return Envelope{}, fmt.Errorf("list speaker sessions: %w", err)
	}

	var first *models.SessionWithSpeaker
	if len(sessions) > 0 {
		first = &sessions[0]
	}

	return Wrap(ToolSpeakerGet, TypeSpeakerDetail, newSpeakerDetail(speaker, first)), nil
}

func (h *handlers) speakerSearch(ctx context.Context, p speakerSearchParams) (Envelope, error) {
	ranked, err := h.deps.Ranker.Rank(ctx, datatypes.EntitySpeaker, p.Query, p.TopK)
	if err != nil {
		return Envelope{}, err //nolint:wrapcheck // provider errors stay typed
	}

	speakers, err := h.deps.Hydrator.HydrateSpeakers(ctx, ranked)
	if err != nil {
		return Envelope{}, err //nolint:wrapcheck // classified at the catalog boundary
	}

	if len(speakers) == 0 {
		return Text(ToolSpeakerSearchSemantic, "No speakers found for query: "+p.Query), nil
	}

	hits := make([]SpeakerSemanticHit, len(speakers))
	for i, s := range speakers {
		hits[i] = SpeakerSemanticHit{
			SpeakerID: s.Speaker.ID,
			FullName:  s.Speaker.FullName,
			OrgName:   s.Speaker.OrgName,
			JobTitle:  s.Speaker.JobTitle,
			Score:     s.Score,
		}
	}

	return Wrap(ToolSpeakerSearchSemantic, TypeSpeakerSearchSemantic, hits), nil
}

func (h *handlers) contactForSpeaker(ctx context.Context, p nameParams) (Envelope, error) {
	speaker, alt, err := h.resolveSpeaker(ctx, ToolContactGetForSpeaker, p.Name)
	if err != nil {
		return Envelope{}, err
	}

	if alt != nil {
		return *alt, nil
	}

	return Wrap(ToolContactGetForSpeaker, TypeContact, Contact{Contacts: speaker.Contacts}), nil
}

func (h *handlers) agendaNow(ctx context.Context, p agendaNowParams) (Envelope, error) {
	now := h.deps.Now()

	if p.Now != "" && p.Now != "auto" {
		parsed, err := time.Parse(time.RFC3339, p.Now)
		if err != nil {
			return Envelope{}, huberrors.NewValidationError("now", "now must be 'auto' or an RFC3339 time")
		}

		now = parsed
	}

	event, err := h.deps.Events.GetByYear(ctx, p.Year)
	if err != nil {
		return Envelope{}, err //nolint:wrapcheck // classified at the catalog boundary
	}

	var out AgendaNow

	current, err := h.deps.Sessions.FindAtTime(ctx, event.ID, now)
	switch {
	case err == nil:
		d := newSessionDetail(current)
		out.Current = &d
	case !errors.Is(err, huberrors.ErrNotFound):
		return Envelope{}, fmt.Errorf("find current session: %w", err)
	}

	next, err := h.deps.Sessions.NextByTime(ctx, event.ID, now)
	switch {
	case err == nil:
		d := newSessionDetail(next)
		out.Next = &d
	case !errors.Is(err, huberrors.ErrNotFound):
		return Envelope{}, fmt.Errorf("find next session: %w", err)
	}

	return Wrap(ToolAgendaNow, TypeAgendaNow, out), nil
}

// health never fails: each subsystem that does not answer is reported as ERROR.
func (h *handlers) health(ctx context.Context, _ noParams) (Envelope, error) {
	status := HealthStatus{DB: StatusOK, Embeddings: StatusOK, EventYears: []int{}}

	if _, err := h.deps.Events.Count(ctx); err != nil {
		status.DB = StatusError
	}

	if _, err := h.deps.Embeddings.Count(ctx); err != nil {
		status.Embeddings = StatusError
	}

	years, err := h.deps.Events.ListYears(ctx)
	if err != nil {
		status.DB = StatusError
	} else if years != nil {
		status.EventYears = years
	}

	return Wrap(ToolHealthStatus, TypeHealthStatus, status), nil
}
