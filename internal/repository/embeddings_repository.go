package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/unsa/eventhub/internal/datatypes"
	"github.com/unsa/eventhub/internal/huberrors"
	"github.com/unsa/eventhub/internal/models"
	"github.com/unsa/eventhub/pkg/embeddings"
)

// entityTables maps entity types to their owning table (used only for backfill listing).
var entityTables = map[datatypes.EntityType]string{
	datatypes.EntitySpeaker: "speakers",
	datatypes.EntitySession: "sessions",
}

// EmbeddingsRepository handles data access for the entity_embeddings table.
type EmbeddingsRepository struct {
	db *pgxpool.Pool
}

// NewEmbeddingsRepository creates a new embeddings repository.
func NewEmbeddingsRepository(db *pgxpool.Pool) *EmbeddingsRepository {
	return &EmbeddingsRepository{db: db}
}

// Put stores rec as the only record for (entity_type, entity_id, field). It is a single
// INSERT ... ON CONFLICT statement, so concurrent writers for the same key serialize on the
// unique constraint instead of racing a delete against an insert. On success rec.ID and
// rec.CreatedAt are set from the stored row.
func (r *EmbeddingsRepository) Put(ctx context.Context, rec *models.EmbeddingRecord) error {
	if err := validateRecord(rec); err != nil {
		return err
	}

	now := time.Now()

	err := r.db.QueryRow(ctx, `
		INSERT INTO entity_embeddings (entity_type, entity_id, field, embedding, model, dim, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT ON CONSTRAINT entity_embeddings_entity_field_key
		DO UPDATE SET embedding = EXCLUDED.embedding, model = EXCLUDED.model,
			dim = EXCLUDED.dim, created_at = EXCLUDED.created_at
		RETURNING id, created_at`,
		rec.EntityType.String(), rec.EntityID, rec.Field.String(),
		pgvector.NewVector(rec.Vector), rec.Model, rec.Dim, now,
	).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("embeddings put: %w", err)
	}

	return nil
}

func validateRecord(rec *models.EmbeddingRecord) error {
	if rec == nil {
		return huberrors.NewValidationError("record", "embedding record is required")
	}

	if !rec.EntityType.Valid() {
		return huberrors.NewValidationError("entity_type", datatypes.ErrInvalidEntityType.Error())
	}

	if !rec.EntityType.Accepts(rec.Field) {
		return huberrors.NewValidationError("field",
			fmt.Sprintf("field %q is not embedded for %s", rec.Field.String(), rec.EntityType))
	}

	if rec.EntityID == uuid.Nil {
		return huberrors.NewValidationError("entity_id", "entity id is required")
	}

	if rec.Model == "" {
		return huberrors.NewValidationError("model", "model is required")
	}

	if err := embeddings.Validate(rec.Vector, rec.Dim); err != nil {
		return huberrors.NewValidationError("embedding", err.Error())
	}

	return nil
}

const recordColumns = `id, entity_type, entity_id, field, embedding, model, dim, created_at`

func scanRecord(row pgx.Row) (models.EmbeddingRecord, error) {
	var (
		rec        models.EmbeddingRecord
		entityType string
		field      string
		vec        pgvector.Vector
	)

	if err := row.Scan(&rec.ID, &entityType, &rec.EntityID, &field, &vec, &rec.Model, &rec.Dim, &rec.CreatedAt); err != nil {
		return rec, err //nolint:wrapcheck // callers wrap with operation context
	}

	et, err := datatypes.ParseEntityType(entityType)
	if err != nil {
		return rec, fmt.Errorf("scan embedding: %w", err)
	}

	f, err := datatypes.ParseEmbeddingField(field)
	if err != nil {
		return rec, fmt.Errorf("scan embedding: %w", err)
	}

	rec.EntityType = et
	rec.Field = f
	rec.Vector = vec.Slice()

	return rec, nil
}

// Get returns the record for (entityType, entityID, field).
func (r *EmbeddingsRepository) Get(
	ctx context.Context, entityType datatypes.EntityType, entityID uuid.UUID, field datatypes.EmbeddingField,
) (*models.EmbeddingRecord, error) {
	rec, err := scanRecord(r.db.QueryRow(ctx,
		`SELECT `+recordColumns+` FROM entity_embeddings
		WHERE entity_type = $1 AND entity_id = $2 AND field = $3`,
		entityType.String(), entityID, field.String(),
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, huberrors.NewNotFoundError("embedding", "embedding not found for entity and field")
		}

		return nil, fmt.Errorf("get embedding: %w", err)
	}

	return &rec, nil
}

// ListForEntity returns every field record of one entity, ordered by field.
func (r *EmbeddingsRepository) ListForEntity(
	ctx context.Context, entityType datatypes.EntityType, entityID uuid.UUID,
) ([]models.EmbeddingRecord, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+recordColumns+` FROM entity_embeddings
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY field`,
		entityType.String(), entityID,
	)
	if err != nil {
		return nil, fmt.Errorf("list embeddings for entity: %w", err)
	}
	defer rows.Close()

	var out []models.EmbeddingRecord

	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan embedding: %w", err)
		}

		out = append(out, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating embeddings: %w", err)
	}

	return out, nil
}

// FindNearest returns up to k entities of entityType closest to query, one row per entity
// holding the minimum cosine distance over its fields. Rows are ordered by distance, ties by
// entity id.
func (r *EmbeddingsRepository) FindNearest(
	ctx context.Context, entityType datatypes.EntityType, query []float32, k int,
) ([]models.NearestEntity, error) {
	if k <= 0 {
		return nil, huberrors.NewValidationError("k", "k must be positive")
	}

	rows, err := r.db.Query(ctx, `
		SELECT entity_id, MIN(embedding <=> $1) AS distance
		FROM entity_embeddings
		WHERE entity_type = $2
		GROUP BY entity_id
		ORDER BY distance ASC, entity_id ASC
		LIMIT $3`,
		pgvector.NewVector(query), entityType.String(), k,
	)
	if err != nil {
		return nil, fmt.Errorf("nearest entities: %w", err)
	}
	defer rows.Close()

	var out []models.NearestEntity

	for rows.Next() {
		var row models.NearestEntity
		if err := rows.Scan(&row.EntityID, &row.Distance); err != nil {
			return nil, fmt.Errorf("scan nearest entity: %w", err)
		}

		out = append(out, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating nearest: %w", err)
	}

	return out, nil
}

// FindRaw returns up to k per-field rows ordered by cosine distance, without deduplication.
func (r *EmbeddingsRepository) FindRaw(
	ctx context.Context, entityType datatypes.EntityType, query []float32, k int,
) ([]models.NearestField, error) {
	if k <= 0 {
		return nil, huberrors.NewValidationError("k", "k must be positive")
	}

	rows, err := r.db.Query(ctx, `
		SELECT entity_id, field, embedding <=> $1 AS distance
		FROM entity_embeddings
		WHERE entity_type = $2
		ORDER BY distance ASC, entity_id ASC, field ASC
		LIMIT $3`,
		pgvector.NewVector(query), entityType.String(), k,
	)
	if err != nil {
		return nil, fmt.Errorf("nearest fields: %w", err)
	}
	defer rows.Close()

	var out []models.NearestField

	for rows.Next() {
		var (
			row   models.NearestField
			field string
		)

		if err := rows.Scan(&row.EntityID, &field, &row.Distance); err != nil {
			return nil, fmt.Errorf("scan nearest field: %w", err)
		}

		row.Field, err = datatypes.ParseEmbeddingField(field)
		if err != nil {
			return nil, fmt.Errorf("scan nearest field: %w", err)
		}

		out = append(out, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating nearest fields: %w", err)
	}

	return out, nil
}

// DeleteField removes one field record. Deleting a missing record is not an error.
func (r *EmbeddingsRepository) DeleteField(
	ctx context.Context, entityType datatypes.EntityType, entityID uuid.UUID, field datatypes.EmbeddingField,
) error {
	_, err := r.db.Exec(ctx,
		`DELETE FROM entity_embeddings WHERE entity_type = $1 AND entity_id = $2 AND field = $3`,
		entityType.String(), entityID, field.String(),
	)
	if err != nil {
		return fmt.Errorf("embeddings delete field: %w", err)
	}

	return nil
}

// DeleteAllForEntity removes every field record of an entity and returns how many were removed.
func (r *EmbeddingsRepository) DeleteAllForEntity(
	ctx context.Context, entityType datatypes.EntityType, entityID uuid.UUID,
) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM entity_embeddings WHERE entity_type = $1 AND entity_id = $2`,
		entityType.String(), entityID,
	)
	if err != nil {
		return 0, fmt.Errorf("embeddings delete for entity: %w", err)
	}

	return tag.RowsAffected(), nil
}

// CountForEntityType returns the number of stored records for one entity type.
func (r *EmbeddingsRepository) CountForEntityType(ctx context.Context, entityType datatypes.EntityType) (int64, error) {
	var n int64

	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM entity_embeddings WHERE entity_type = $1`, entityType.String(),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count embeddings: %w", err)
	}

	return n, nil
}

// Count returns the total number of stored records.
func (r *EmbeddingsRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM entity_embeddings`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count embeddings: %w", err)
	}

	return n, nil
}

// ListEntityIDsWithoutEmbeddings returns ids of entities of entityType that have no record at all.
func (r *EmbeddingsRepository) ListEntityIDsWithoutEmbeddings(
	ctx context.Context, entityType datatypes.EntityType,
) ([]uuid.UUID, error) {
	table, ok := entityTables[entityType]
	if !ok {
		return nil, huberrors.NewValidationError("entity_type", datatypes.ErrInvalidEntityType.Error())
	}

	rows, err := r.db.Query(ctx, `
		SELECT t.id FROM `+table+` t
		WHERE NOT EXISTS (
			SELECT 1 FROM entity_embeddings e
			WHERE e.entity_type = $1 AND e.entity_id = t.id
		)
		ORDER BY t.id`, entityType.String())
	if err != nil {
		return nil, fmt.Errorf("list entity ids for backfill: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID

	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan entity id: %w", err)
		}

		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating backfill ids: %w", err)
	}

	return ids, nil
}
