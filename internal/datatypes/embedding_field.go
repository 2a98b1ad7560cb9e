package datatypes

import "fmt"

// EmbeddingField is the textual facet of an entity that was embedded.
type EmbeddingField uint8

// Embedding field constants; string form is given in embeddingFieldMap.
const (
	FieldBio EmbeddingField = iota + 1
	FieldAbstract
	FieldTitle
	FieldAll
)

var embeddingFieldMap = map[string]EmbeddingField{
	"bio":      FieldBio,
	"abstract": FieldAbstract,
	"title":    FieldTitle,
	"all":      FieldAll,
}

var reverseEmbeddingFieldMap map[EmbeddingField]string

// String returns the persisted form of the field, or empty string when invalid.
func (f EmbeddingField) String() string {
	return reverseEmbeddingFieldMap[f]
}

// Valid reports whether f is a known field.
func (f EmbeddingField) Valid() bool {
	_, ok := reverseEmbeddingFieldMap[f]

	return ok
}

// MarshalText implements encoding.TextMarshaler.
func (f EmbeddingField) MarshalText() ([]byte, error) {
	s := f.String()
	if s == "" {
		return nil, fmt.Errorf("%w: %d", ErrInvalidEmbeddingField, f)
	}

	return []byte(s), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *EmbeddingField) UnmarshalText(b []byte) error {
	parsed, err := ParseEmbeddingField(string(b))
	if err != nil {
		return err
	}

	*f = parsed

	return nil
}

// ParseEmbeddingField converts a string to an EmbeddingField enum.
func ParseEmbeddingField(s string) (EmbeddingField, error) {
	f, ok := embeddingFieldMap[s]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidEmbeddingField, s)
	}

	return f, nil
}

// ParseFieldFor parses s and checks that the field applies to entityType.
func ParseFieldFor(entityType EntityType, s string) (EmbeddingField, error) {
	f, err := ParseEmbeddingField(s)
	if err != nil {
		return 0, err
	}

	if !entityType.Accepts(f) {
		return 0, fmt.Errorf("%w: %s/%s", ErrFieldNotApplicable, entityType, f)
	}

	return f, nil
}
