// Package embeddings provides utilities for embedding vectors (L2 normalization, validation).
package embeddings

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrDimensionMismatch is returned when a vector's length does not equal its declared dimension.
	ErrDimensionMismatch = errors.New("embedding length does not match dimension")
	// ErrInvalidDimension is returned for a non-positive dimension.
	ErrInvalidDimension = errors.New("embedding dimension must be positive")
	// ErrNonFinite is returned when a component is NaN or infinite.
	ErrNonFinite = errors.New("embedding contains non-finite component")
	// ErrZeroVector is returned for an all-zero vector; cosine distance to it is undefined.
	ErrZeroVector = errors.New("embedding has zero norm")
)

// NormalizeL2 takes a raw embedding vector and normalizes it to a length of 1.
// It modifies the slice in-place.
func NormalizeL2(vector []float32) {
	var sumSquares float64

	for _, v := range vector {
		sumSquares += float64(v) * float64(v)
	}

	// All-zero vectors have no direction; leave them as they are.
	if sumSquares == 0 {
		return
	}

	magnitude := math.Sqrt(sumSquares)

	for i := range vector {
		vector[i] = float32(float64(vector[i]) / magnitude)
	}
}

// Validate checks len(vector) == dim, that every component is finite and that the vector is not all zeros.
func Validate(vector []float32, dim int) error {
	if dim <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidDimension, dim)
	}

	if len(vector) != dim {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vector), dim)
	}

	nonZero := false

	for i, v := range vector {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("%w at index %d", ErrNonFinite, i)
		}

		if v != 0 {
			nonZero = true
		}
	}

	if !nonZero {
		return ErrZeroVector
	}

	return nil
}
