package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unsa/eventhub/internal/datatypes"
	"github.com/unsa/eventhub/internal/models"
	"github.com/unsa/eventhub/internal/tools"
)

type fakeCatalog struct {
	callFn func(ctx context.Context, name string, args json.RawMessage) tools.Envelope
	values url.Values
}

func (f *fakeCatalog) List() []tools.Info {
	return []tools.Info{{Name: "agenda.now"}, {Name: "health.status"}}
}

func (f *fakeCatalog) Has(name string) bool { return name == "agenda.now" || name == "health.status" }

func (f *fakeCatalog) Call(ctx context.Context, name string, args json.RawMessage) tools.Envelope {
	if f.callFn != nil {
		return f.callFn(ctx, name, args)
	}

	return tools.Text(name, "ok")
}

func (f *fakeCatalog) CallValues(_ context.Context, name string, values url.Values) tools.Envelope {
	f.values = values

	return tools.Text(name, "ok")
}

type fakeEnqueuer struct {
	err      error
	enqueued []uuid.UUID
}

func (f *fakeEnqueuer) EnqueueRegenerate(_ context.Context, _ datatypes.EntityType, id uuid.UUID) error {
	if f.err != nil {
		return f.err
	}

	f.enqueued = append(f.enqueued, id)

	return nil
}

type fakeRecords struct {
	listFn   func(ctx context.Context, et datatypes.EntityType, id uuid.UUID) ([]models.EmbeddingRecord, error)
	deleteFn func(ctx context.Context, et datatypes.EntityType, id uuid.UUID) (int64, error)
}

func (f *fakeRecords) ListForEntity(ctx context.Context, et datatypes.EntityType, id uuid.UUID) ([]models.EmbeddingRecord, error) {
	if f.listFn != nil {
		return f.listFn(ctx, et, id)
	}

	return nil, nil
}

func (f *fakeRecords) DeleteAllForEntity(ctx context.Context, et datatypes.EntityType, id uuid.UUID) (int64, error) {
	if f.deleteFn != nil {
		return f.deleteFn(ctx, et, id)
	}

	return 0, nil
}

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

func newTestRouter(th *ToolsHandler, eh *EmbeddingsHandler) http.Handler {
	r := chi.NewRouter()
	r.Get("/v1/tools", th.List)
	r.Post("/v1/tools/{name}", th.Call)
	r.Get("/v1/tools/{name}", th.CallQuery)
	r.Post("/v1/embeddings/regenerate", eh.Regenerate)
	r.Get("/v1/embeddings/{entityType}/{entityId}", eh.List)
	r.Delete("/v1/embeddings/{entityType}/{entityId}", eh.Delete)

	return r
}

func serve(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, http.NoBody)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	return rec
}

func TestToolsHandler(t *testing.T) {
	t.Run("list", func(t *testing.T) {
		router := newTestRouter(NewToolsHandler(&fakeCatalog{}), NewEmbeddingsHandler(nil, &fakeRecords{}))

		rec := serve(router, http.MethodGet, "/v1/tools", "")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t,
			`{"tools":[{"name":"agenda.now","description":"","params":null},{"name":"health.status","description":"","params":null}]}`,
			rec.Body.String())
	})

	t.Run("call passes the body through", func(t *testing.T) {
		var gotArgs string

		catalog := &fakeCatalog{callFn: func(_ context.Context, name string, args json.RawMessage) tools.Envelope {
			gotArgs = string(args)

			return tools.Error(name, "Error retrieving current agenda: Event not found for year: 2031")
		}}
		router := newTestRouter(NewToolsHandler(catalog), NewEmbeddingsHandler(nil, &fakeRecords{}))

		rec := serve(router, http.MethodPost, "/v1/tools/agenda.now", `{"year":2031}`)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"year":2031}`, gotArgs)
		assert.Contains(t, rec.Body.String(), `"type":"ERROR"`)
	})

	t.Run("query arguments", func(t *testing.T) {
		catalog := &fakeCatalog{}
		router := newTestRouter(NewToolsHandler(catalog), NewEmbeddingsHandler(nil, &fakeRecords{}))

		rec := serve(router, http.MethodGet, "/v1/tools/agenda.now?year=2025&now=auto", "")

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "2025", catalog.values.Get("year"))
	})

	t.Run("unknown tool", func(t *testing.T) {
		router := newTestRouter(NewToolsHandler(&fakeCatalog{}), NewEmbeddingsHandler(nil, &fakeRecords{}))

		rec := serve(router, http.MethodPost, "/v1/tools/event.delete", `{}`)

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Contains(t, rec.Body.String(), "Unknown tool: event.delete")
	})
}

func TestEmbeddingsHandler_Regenerate(t *testing.T) {
	id := uuid.New()

	tests := []struct {
		name     string
		enqueuer *fakeEnqueuer
		body     string
		want     int
	}{
		{name: "accepted", enqueuer: &fakeEnqueuer{}, body: `{"entityType":"session","entityId":"` + id.String() + `"}`, want: http.StatusAccepted},
		{name: "unknown entity type", enqueuer: &fakeEnqueuer{}, body: `{"entityType":"event","entityId":"` + id.String() + `"}`, want: http.StatusBadRequest},
		{name: "bad id", enqueuer: &fakeEnqueuer{}, body: `{"entityType":"speaker","entityId":"42"}`, want: http.StatusBadRequest},
		{name: "malformed body", enqueuer: &fakeEnqueuer{}, body: `{`, want: http.StatusBadRequest},
		{
			name: "enqueue failure", enqueuer: &fakeEnqueuer{err: errors.New("pool closed")},
			body: `{"entityType":"speaker","entityId":"` + id.String() + `"}`, want: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(NewToolsHandler(&fakeCatalog{}), NewEmbeddingsHandler(tt.enqueuer, &fakeRecords{}))

			rec := serve(router, http.MethodPost, "/v1/embeddings/regenerate", tt.body)

			assert.Equal(t, tt.want, rec.Code, rec.Body.String())

			if tt.want == http.StatusAccepted {
				assert.Equal(t, []uuid.UUID{id}, tt.enqueuer.enqueued)
			}
		})
	}

	t.Run("embeddings disabled", func(t *testing.T) {
		router := newTestRouter(NewToolsHandler(&fakeCatalog{}), NewEmbeddingsHandler(nil, &fakeRecords{}))

		rec := serve(router, http.MethodPost, "/v1/embeddings/regenerate", `{"entityType":"session","entityId":"`+id.String()+`"}`)

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestEmbeddingsHandler_ListAndDelete(t *testing.T) {
	id := uuid.New()
	records := &fakeRecords{
		listFn: func(_ context.Context, et datatypes.EntityType, got uuid.UUID) ([]models.EmbeddingRecord, error) {
			assert.Equal(t, datatypes.EntitySession, et)
			assert.Equal(t, id, got)

			return []models.EmbeddingRecord{{EntityType: datatypes.EntitySession, EntityID: id, Field: datatypes.FieldTitle, Vector: []float32{1, 0}, Dim: 2}}, nil
		},
		deleteFn: func(context.Context, datatypes.EntityType, uuid.UUID) (int64, error) {
			return 3, nil
		},
	}
	router := newTestRouter(NewToolsHandler(&fakeCatalog{}), NewEmbeddingsHandler(nil, records))

	t.Run("list omits vectors", func(t *testing.T) {
		rec := serve(router, http.MethodGet, "/v1/embeddings/session/"+id.String(), "")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.NotContains(t, rec.Body.String(), `"embedding"`)
		assert.Contains(t, rec.Body.String(), `"field":"title"`)
	})

	t.Run("delete", func(t *testing.T) {
		rec := serve(router, http.MethodDelete, "/v1/embeddings/session/"+id.String(), "")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"data":{"deleted":3}}`, rec.Body.String())
	})

	t.Run("bad entity type", func(t *testing.T) {
		rec := serve(router, http.MethodDelete, "/v1/embeddings/event/"+id.String(), "")

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHealthHandler(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		rec := serve(http.HandlerFunc(NewHealthHandler(fakePinger{}).Check), http.MethodGet, "/health", "")

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "OK", rec.Body.String())
	})

	t.Run("database down", func(t *testing.T) {
		rec := serve(http.HandlerFunc(NewHealthHandler(fakePinger{err: errors.New("refused")}).Check), http.MethodGet, "/health", "")

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}
