package service

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"

	"github.com/unsa/eventhub/internal/datatypes"
	"github.com/unsa/eventhub/internal/models"
)

type fakeEmbeddingStore struct {
	mu sync.Mutex

	putFn         func(ctx context.Context, rec *models.EmbeddingRecord) error
	deleteFieldFn func(ctx context.Context, et datatypes.EntityType, id uuid.UUID, f datatypes.EmbeddingField) error
	deleteAllFn   func(ctx context.Context, et datatypes.EntityType, id uuid.UUID) (int64, error)
	findNearestFn func(ctx context.Context, et datatypes.EntityType, q []float32, k int) ([]models.NearestEntity, error)
	findRawFn     func(ctx context.Context, et datatypes.EntityType, q []float32, k int) ([]models.NearestField, error)

	puts    []models.EmbeddingRecord
	cleared []datatypes.EmbeddingField
	rawK    int
}

func (f *fakeEmbeddingStore) Put(ctx context.Context, rec *models.EmbeddingRecord) error {
	if f.putFn != nil {
		if err := f.putFn(ctx, rec); err != nil {
			return err
		}
	}

	f.mu.Lock()
	f.puts = append(f.puts, *rec)
	f.mu.Unlock()

	return nil
}

func (f *fakeEmbeddingStore) DeleteField(
	ctx context.Context, et datatypes.EntityType, id uuid.UUID, field datatypes.EmbeddingField,
) error {
	if f.deleteFieldFn != nil {
		if err := f.deleteFieldFn(ctx, et, id, field); err != nil {
			return err
		}
	}

	f.mu.Lock()
	f.cleared = append(f.cleared, field)
	f.mu.Unlock()

	return nil
}

func (f *fakeEmbeddingStore) DeleteAllForEntity(ctx context.Context, et datatypes.EntityType, id uuid.UUID) (int64, error) {
	if f.deleteAllFn != nil {
		return f.deleteAllFn(ctx, et, id)
	}

	return 0, nil
}

func (f *fakeEmbeddingStore) FindNearest(
	ctx context.Context, et datatypes.EntityType, q []float32, k int,
) ([]models.NearestEntity, error) {
	if f.findNearestFn != nil {
		return f.findNearestFn(ctx, et, q, k)
	}

	return nil, nil
}

func (f *fakeEmbeddingStore) FindRaw(
	ctx context.Context, et datatypes.EntityType, q []float32, k int,
) ([]models.NearestField, error) {
	f.rawK = k
	if f.findRawFn != nil {
		return f.findRawFn(ctx, et, q, k)
	}

	return nil, nil
}

type fakeEmbeddingClient struct {
	createFn func(ctx context.Context, input string) ([]float32, error)
	calls    int
	mu       sync.Mutex
}

func (c *fakeEmbeddingClient) CreateEmbedding(ctx context.Context, input string) ([]float32, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()

	return c.createFn(ctx, input)
}

func (c *fakeEmbeddingClient) Name() string  { return "fake" }
func (c *fakeEmbeddingClient) Model() string { return "fake-model" }

func (c *fakeEmbeddingClient) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.calls
}

type fakeSessionReader struct {
	getFn  func(ctx context.Context, id uuid.UUID) (*models.SessionWithSpeaker, error)
	listFn func(ctx context.Context, ids []uuid.UUID) ([]models.SessionWithSpeaker, error)
	lists  int
}

func (f *fakeSessionReader) GetWithSpeaker(ctx context.Context, id uuid.UUID) (*models.SessionWithSpeaker, error) {
	return f.getFn(ctx, id)
}

func (f *fakeSessionReader) ListWithSpeakerByIDs(ctx context.Context, ids []uuid.UUID) ([]models.SessionWithSpeaker, error) {
	f.lists++

	return f.listFn(ctx, ids)
}

type fakeSpeakerReader struct {
	getFn  func(ctx context.Context, id uuid.UUID) (*models.Speaker, error)
	listFn func(ctx context.Context, ids []uuid.UUID) ([]models.Speaker, error)
}

func (f *fakeSpeakerReader) GetByID(ctx context.Context, id uuid.UUID) (*models.Speaker, error) {
	return f.getFn(ctx, id)
}

func (f *fakeSpeakerReader) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Speaker, error) {
	return f.listFn(ctx, ids)
}

type insertCall struct {
	args EntityEmbeddingArgs
	opts *river.InsertOpts
}

type fakeInserter struct {
	insertErr error
	calls     []insertCall
}

func (f *fakeInserter) Insert(_ context.Context, args river.JobArgs, opts *river.InsertOpts) (*rivertype.JobInsertResult, error) {
	a, _ := args.(EntityEmbeddingArgs)
	f.calls = append(f.calls, insertCall{args: a, opts: opts})

	if f.insertErr != nil {
		return nil, f.insertErr
	}

	return &rivertype.JobInsertResult{Job: &rivertype.JobRow{ID: int64(len(f.calls))}}, nil
}

func ptr(s string) *string { return &s }

func unitVector(dims int, hot int) []float32 {
	v := make([]float32, dims)
	v[hot%dims] = 2

	return v
}
