// Package datatypes defines the closed enums persisted in the embedding table
// (entity types, embedded fields and embedding model identifiers).
package datatypes

import (
	"errors"
	"fmt"
)

// Enum validation errors (sentinels for err113).
var (
	ErrInvalidEntityType     = errors.New("invalid entity type")
	ErrInvalidEmbeddingField = errors.New("invalid embedding field")
	ErrFieldNotApplicable    = errors.New("embedding field not applicable to entity type")
)

// EntityType identifies which kind of entity an embedding belongs to.
// Use String() to get the string representation for API/database.
type EntityType uint8

// Entity type constants; string form is given in entityTypeMap.
const (
	EntitySpeaker EntityType = iota + 1
	EntitySession
)

// entityTypeMap maps string representations to EntityType enums.
// This is the single source of truth for valid entity type strings.
var entityTypeMap = map[string]EntityType{
	"speaker": EntitySpeaker,
	"session": EntitySession,
}

// reverseEntityTypeMap maps EntityType enums to string representations.
var reverseEntityTypeMap map[EntityType]string

// applicableFields lists, per entity type, the fields the generator embeds (in write order).
var applicableFields = map[EntityType][]EmbeddingField{
	EntitySpeaker: {FieldBio},
	EntitySession: {FieldTitle, FieldAbstract, FieldAll},
}

func init() {
	reverseEntityTypeMap = invert(entityTypeMap)
	reverseEmbeddingFieldMap = invert(embeddingFieldMap)

	// Every entity type must declare its fields, and every field must be known.
	for _, et := range entityTypeMap {
		fields, ok := applicableFields[et]
		if !ok || len(fields) == 0 {
			panic(fmt.Sprintf("datatypes: entity type %d has no applicable fields", et))
		}

		for _, f := range fields {
			if _, ok := reverseEmbeddingFieldMap[f]; !ok {
				panic(fmt.Sprintf("datatypes: unknown field %d for entity type %d", f, et))
			}
		}
	}
}

// invert builds the reverse lookup table and panics on duplicate enum values,
// so a broken mapping table fails at load time rather than at query time.
func invert[E comparable](m map[string]E) map[E]string {
	out := make(map[E]string, len(m))
	for str, v := range m {
		if prev, dup := out[v]; dup {
			panic(fmt.Sprintf("datatypes: %q and %q map to the same value", prev, str))
		}

		out[v] = str
	}

	return out
}

// String returns the string representation of an EntityType.
// Returns empty string for invalid entity types.
func (et EntityType) String() string {
	return reverseEntityTypeMap[et]
}

// Valid reports whether et is a known entity type.
func (et EntityType) Valid() bool {
	_, ok := reverseEntityTypeMap[et]

	return ok
}

// Fields returns the embedding fields generated for this entity type.
func (et EntityType) Fields() []EmbeddingField {
	fields := applicableFields[et]
	out := make([]EmbeddingField, len(fields))
	copy(out, fields)

	return out
}

// Accepts reports whether field is embedded for this entity type.
func (et EntityType) Accepts(field EmbeddingField) bool {
	for _, f := range applicableFields[et] {
		if f == field {
			return true
		}
	}

	return false
}

// MarshalText implements encoding.TextMarshaler.
func (et EntityType) MarshalText() ([]byte, error) {
	s := et.String()
	if s == "" {
		return nil, fmt.Errorf("%w: %d", ErrInvalidEntityType, et)
	}

	return []byte(s), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (et *EntityType) UnmarshalText(b []byte) error {
	parsed, err := ParseEntityType(string(b))
	if err != nil {
		return err
	}

	*et = parsed

	return nil
}

// ParseEntityType converts a string to an EntityType enum.
func ParseEntityType(s string) (EntityType, error) {
	et, ok := entityTypeMap[s]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidEntityType, s)
	}

	return et, nil
}
