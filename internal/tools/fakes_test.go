package tools

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/unsa/eventhub/internal/datatypes"
	"github.com/unsa/eventhub/internal/huberrors"
	"github.com/unsa/eventhub/internal/models"
)

type fakeEvents struct {
	getByYearFn func(ctx context.Context, year int) (*models.Event, error)
	listYearsFn func(ctx context.Context) ([]int, error)
	countFn     func(ctx context.Context) (int64, error)
}

func (f *fakeEvents) GetByYear(ctx context.Context, year int) (*models.Event, error) {
	if f.getByYearFn != nil {
		return f.getByYearFn(ctx, year)
	}

	return nil, huberrors.NewNotFoundError("event", "Event not found for year: 0")
}

func (f *fakeEvents) ListYears(ctx context.Context) ([]int, error) {
	if f.listYearsFn != nil {
		return f.listYearsFn(ctx)
	}

	return []int{}, nil
}

func (f *fakeEvents) Count(ctx context.Context) (int64, error) {
	if f.countFn != nil {
		return f.countFn(ctx)
	}

	return 1, nil
}

type fakeSessions struct {
	getFn           func(ctx context.Context, id uuid.UUID) (*models.SessionWithSpeaker, error)
	listByEventFn   func(ctx context.Context, eventID uuid.UUID) ([]models.SessionWithSpeaker, error)
	listByDayFn     func(ctx context.Context, eventID uuid.UUID, day time.Time) ([]models.SessionWithSpeaker, error)
	findAtTimeFn    func(ctx context.Context, eventID uuid.UUID, t time.Time) (*models.SessionWithSpeaker, error)
	nextBySeqFn     func(ctx context.Context, eventID uuid.UUID, seq int) (*models.SessionWithSpeaker, error)
	nextByTimeFn    func(ctx context.Context, eventID uuid.UUID, t time.Time) (*models.SessionWithSpeaker, error)
	listBySpeakerFn func(ctx context.Context, speakerID uuid.UUID) ([]models.SessionWithSpeaker, error)
}

func notFoundSession() (*models.SessionWithSpeaker, error) {
	return nil, huberrors.NewNotFoundError("session", "No next session found")
}

func (f *fakeSessions) GetWithSpeaker(ctx context.Context, id uuid.UUID) (*models.SessionWithSpeaker, error) {
	if f.getFn != nil {
		return f.getFn(ctx, id)
	}

	return nil, huberrors.NewNotFoundError("session", "Session not found: "+id.String())
}

func (f *fakeSessions) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.SessionWithSpeaker, error) {
	if f.listByEventFn != nil {
		return f.listByEventFn(ctx, eventID)
	}

	return nil, nil
}

func (f *fakeSessions) ListByEventAndDay(
	ctx context.Context, eventID uuid.UUID, day time.Time,
) ([]models.SessionWithSpeaker, error) {
	if f.listByDayFn != nil {
		return f.listByDayFn(ctx, eventID, day)
	}

	return nil, nil
}

func (f *fakeSessions) FindAtTime(ctx context.Context, eventID uuid.UUID, t time.Time) (*models.SessionWithSpeaker, error) {
	if f.findAtTimeFn != nil {
		return f.findAtTimeFn(ctx, eventID, t)
	}

	return notFoundSession()
}

func (f *fakeSessions) NextBySeq(ctx context.Context, eventID uuid.UUID, seq int) (*models.SessionWithSpeaker, error) {
	if f.nextBySeqFn != nil {
		return f.nextBySeqFn(ctx, eventID, seq)
	}

	return notFoundSession()
}

func (f *fakeSessions) NextByTime(ctx context.Context, eventID uuid.UUID, t time.Time) (*models.SessionWithSpeaker, error) {
	if f.nextByTimeFn != nil {
		return f.nextByTimeFn(ctx, eventID, t)
	}

	return notFoundSession()
}

func (f *fakeSessions) ListBySpeaker(ctx context.Context, speakerID uuid.UUID) ([]models.SessionWithSpeaker, error) {
	if f.listBySpeakerFn != nil {
		return f.listBySpeakerFn(ctx, speakerID)
	}

	return nil, nil
}

type fakeSpeakers struct {
	findFn func(ctx context.Context, name string, threshold float64, limit int) ([]models.Speaker, error)
}

func (f *fakeSpeakers) FindByNameTrigram(
	ctx context.Context, name string, threshold float64, limit int,
) ([]models.Speaker, error) {
	if f.findFn != nil {
		return f.findFn(ctx, name, threshold, limit)
	}

	return nil, nil
}

type fakeEmbeddingCounter struct {
	err error
}

func (f *fakeEmbeddingCounter) Count(context.Context) (int64, error) {
	return 0, f.err
}

type fakeRanker struct {
	rankFn func(ctx context.Context, et datatypes.EntityType, q string, k int) ([]models.RankedResult, error)
}

func (f *fakeRanker) Rank(ctx context.Context, et datatypes.EntityType, q string, k int) ([]models.RankedResult, error) {
	if f.rankFn != nil {
		return f.rankFn(ctx, et, q, k)
	}

	return nil, nil
}

type fakeHydrator struct {
	sessionsFn func(ctx context.Context, ranked []models.RankedResult, eventID uuid.UUID) ([]models.ScoredSession, error)
	speakersFn func(ctx context.Context, ranked []models.RankedResult) ([]models.ScoredSpeaker, error)
}

func (f *fakeHydrator) HydrateSessions(
	ctx context.Context, ranked []models.RankedResult, eventID uuid.UUID,
) ([]models.ScoredSession, error) {
	if f.sessionsFn != nil {
		return f.sessionsFn(ctx, ranked, eventID)
	}

	return []models.ScoredSession{}, nil
}

func (f *fakeHydrator) HydrateSpeakers(ctx context.Context, ranked []models.RankedResult) ([]models.ScoredSpeaker, error) {
	if f.speakersFn != nil {
		return f.speakersFn(ctx, ranked)
	}

	return []models.ScoredSpeaker{}, nil
}

type recordedCall struct {
	tool    string
	outcome string
}

type fakeToolMetrics struct {
	calls []recordedCall
}

func (m *fakeToolMetrics) RecordToolCall(_ context.Context, tool, outcome string, _ time.Duration) {
	m.calls = append(m.calls, recordedCall{tool: tool, outcome: outcome})
}

// testDeps returns deps backed by empty fakes; tests override the pieces they exercise.
type testDeps struct {
	events     *fakeEvents
	sessions   *fakeSessions
	speakers   *fakeSpeakers
	embeddings *fakeEmbeddingCounter
	ranker     *fakeRanker
	hydrator   *fakeHydrator
	metrics    *fakeToolMetrics
}

func newTestDeps() *testDeps {
	return &testDeps{
		events:     &fakeEvents{},
		sessions:   &fakeSessions{},
		speakers:   &fakeSpeakers{},
		embeddings: &fakeEmbeddingCounter{},
		ranker:     &fakeRanker{},
		hydrator:   &fakeHydrator{},
		metrics:    &fakeToolMetrics{},
	}
}

func (d *testDeps) catalog(now time.Time) *Catalog {
	return NewCatalog(Deps{
		Events:     d.events,
		Sessions:   d.sessions,
		Speakers:   d.speakers,
		Embeddings: d.embeddings,
		Ranker:     d.ranker,
		Hydrator:   d.hydrator,
		Now:        func() time.Time { return now },
	}, Options{Timeout: time.Second, Metrics: d.metrics})
}

func ptr[T any](v T) *T { return &v }

var (
	eventID2025 = uuid.MustParse("0b9f4e7a-2a55-4d0c-9e56-1c1f0e6b2025")
	speakerAna  = models.Speaker{
		ID:       uuid.MustParse("5a1e0000-0000-4000-8000-000000000001"),
		FullName: "Ana Torres",
		OrgName:  ptr("UNSA"),
		JobTitle: ptr("Researcher"),
		Contacts: map[string]any{"email": "ana@example.org"},
	}
)

func event2025() *models.Event {
	return &models.Event{ID: eventID2025, Name: "CONF", Year: 2025, TZ: "America/Lima"}
}

func sessionAt(seq int, title string, startUTC time.Time) models.SessionWithSpeaker {
	return models.SessionWithSpeaker{
		Session: models.Session{
			ID:        uuid.UUID{0, 0, 0, byte(seq)},
			EventID:   eventID2025,
			SpeakerID: speakerAna.ID,
			Title:     title,
			StartsAt:  startUTC,
			EndsAt:    startUTC.Add(time.Hour),
			Seq:       seq,
		},
		Speaker: speakerAna,
		EventTZ: "America/Lima",
	}
}
