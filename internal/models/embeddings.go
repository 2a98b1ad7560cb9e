package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/unsa/eventhub/internal/datatypes"
)

// EmbeddingRecord is one stored vector: at most one per (EntityType, EntityID, Field).
type EmbeddingRecord struct {
	ID         uuid.UUID                `json:"id"`
	EntityType datatypes.EntityType     `json:"entity_type"`
	EntityID   uuid.UUID                `json:"entity_id"`
	Field      datatypes.EmbeddingField `json:"field"`
	Vector     []float32                `json:"embedding,omitempty"`
	Model      string                   `json:"model"`
	Dim        int                      `json:"dim"`
	CreatedAt  time.Time                `json:"created_at"`
}

// NearestEntity is one row of a per-entity nearest-neighbor query: the minimum
// cosine distance across all of the entity's fields.
type NearestEntity struct {
	EntityID uuid.UUID `json:"entity_id"`
	Distance float64   `json:"distance"`
}

// NearestField is one raw per-field nearest-neighbor row.
type NearestField struct {
	EntityID uuid.UUID                `json:"entity_id"`
	Field    datatypes.EmbeddingField `json:"field"`
	Distance float64                  `json:"distance"`
}

// RankedResult is a deduplicated, scored entity id. Score is 1 - cosine distance.
type RankedResult struct {
	EntityID uuid.UUID `json:"entity_id"`
	Score    float64   `json:"score"`
}

// ScoredSession is a hydrated session search hit.
type ScoredSession struct {
	Session SessionWithSpeaker
	Score   float64
}

// ScoredSpeaker is a hydrated speaker search hit.
type ScoredSpeaker struct {
	Speaker Speaker
	Score   float64
}
