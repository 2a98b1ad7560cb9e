package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/unsa/eventhub/internal/api/response"
	"github.com/unsa/eventhub/internal/api/validation"
	"github.com/unsa/eventhub/internal/datatypes"
	"github.com/unsa/eventhub/internal/huberrors"
	"github.com/unsa/eventhub/internal/models"
)

// RegenerationEnqueuer schedules background embedding regeneration.
type RegenerationEnqueuer interface {
	EnqueueRegenerate(ctx context.Context, entityType datatypes.EntityType, entityID uuid.UUID) error
}

// EmbeddingRecords reads and deletes stored embeddings.
type EmbeddingRecords interface {
	ListForEntity(ctx context.Context, entityType datatypes.EntityType, entityID uuid.UUID) ([]models.EmbeddingRecord, error)
	DeleteAllForEntity(ctx context.Context, entityType datatypes.EntityType, entityID uuid.UUID) (int64, error)
}

// EmbeddingsHandler lets the entity CRUD service keep embeddings in step with its writes.
type EmbeddingsHandler struct {
	enqueuer RegenerationEnqueuer
	records  EmbeddingRecords
}

// NewEmbeddingsHandler creates the handler. enqueuer is nil when embeddings are disabled;
// regeneration then answers 503 while listing and deleting keep working.
func NewEmbeddingsHandler(enqueuer RegenerationEnqueuer, records EmbeddingRecords) *EmbeddingsHandler {
	return &EmbeddingsHandler{enqueuer: enqueuer, records: records}
}

// RegenerateRequest is the body of POST /v1/embeddings/regenerate.
type RegenerateRequest struct {
	EntityType string `json:"entityType" validate:"required,entity_type"`
	EntityID   string `json:"entityId"   validate:"required,uuid"`
}

type regenerateResponse struct {
	EntityType string    `json:"entityType"`
	EntityID   uuid.UUID `json:"entityId"`
	Enqueued   bool      `json:"enqueued"`
}

// Regenerate handles POST /v1/embeddings/regenerate: it enqueues a regeneration job and
// answers 202.
func (h *EmbeddingsHandler) Regenerate(w http.ResponseWriter, r *http.Request) {
	if h.enqueuer == nil {
		response.RespondServiceUnavailable(w, "embeddings are disabled")

		return
	}

	var req RegenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.RespondBadRequest(w, "Invalid request body")

		return
	}

	if err := validation.ValidateStruct(&req); err != nil {
		validation.RespondValidationError(w, err)

		return
	}

	entityType, _ := datatypes.ParseEntityType(req.EntityType)
	entityID := uuid.MustParse(req.EntityID)

	if err := h.enqueuer.EnqueueRegenerate(r.Context(), entityType, entityID); err != nil {
		respondServiceError(w, r, "enqueue regeneration", err)

		return
	}

	response.RespondSuccess(w, http.StatusAccepted, regenerateResponse{
		EntityType: entityType.String(),
		EntityID:   entityID,
		Enqueued:   true,
	})
}

// List handles GET /v1/embeddings/{entityType}/{entityId}. Vectors are omitted.
func (h *EmbeddingsHandler) List(w http.ResponseWriter, r *http.Request) {
	entityType, entityID, ok := entityFromPath(w, r)
	if !ok {
		return
	}

	records, err := h.records.ListForEntity(r.Context(), entityType, entityID)
	if err != nil {
		respondServiceError(w, r, "list embeddings", err)

		return
	}

	for i := range records {
		records[i].Vector = nil
	}

	if records == nil {
		records = []models.EmbeddingRecord{}
	}

	response.RespondSuccess(w, http.StatusOK, records)
}

type deleteResponse struct {
	Deleted int64 `json:"deleted"`
}

// Delete handles DELETE /v1/embeddings/{entityType}/{entityId}, called when the entity is removed.
func (h *EmbeddingsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	entityType, entityID, ok := entityFromPath(w, r)
	if !ok {
		return
	}

	n, err := h.records.DeleteAllForEntity(r.Context(), entityType, entityID)
	if err != nil {
		respondServiceError(w, r, "delete embeddings", err)

		return
	}

	response.RespondSuccess(w, http.StatusOK, deleteResponse{Deleted: n})
}

func entityFromPath(w http.ResponseWriter, r *http.Request) (datatypes.EntityType, uuid.UUID, bool) {
	entityType, err := datatypes.ParseEntityType(chi.URLParam(r, "entityType"))
	if err != nil {
		response.RespondBadRequest(w, "entityType must be one of: speaker, session")

		return 0, uuid.Nil, false
	}

	entityID, err := uuid.Parse(chi.URLParam(r, "entityId"))
	if err != nil {
		response.RespondBadRequest(w, "Invalid UUID format")

		return 0, uuid.Nil, false
	}

	return entityType, entityID, true
}

func respondServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, huberrors.ErrValidation):
		response.RespondBadRequest(w, err.Error())
	case errors.Is(err, huberrors.ErrNotFound):
		response.RespondNotFound(w, err.Error())
	default:
		slog.ErrorContext(r.Context(), "http: "+op+" failed", "error", err)
		response.RespondInternalServerError(w, "An unexpected error occurred")
	}
}
