// Package huberrors provides sentinel and custom error types for the application.
package huberrors

import (
	"context"
	"errors"
)

// ErrNotFound represents a "not found" error.
// Use when a requested resource or scope (e.g. the event for a year) doesn't exist.
var ErrNotFound = &NotFoundError{}

// NotFoundError is a sentinel error for resources that are not found.
type NotFoundError struct {
	Resource string
	Message  string
}

// NewNotFoundError creates a new NotFoundError with a custom message.
func NewNotFoundError(resource, message string) *NotFoundError {
	return &NotFoundError{
		Resource: resource,
		Message:  message,
	}
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	if e.Message != "" {
		return e.Message
	}

	if e.Resource != "" {
		return e.Resource + " not found"
	}

	return "resource not found"
}

// Is implements the error interface for error comparison.
func (e *NotFoundError) Is(target error) bool {
	_, ok := target.(*NotFoundError)

	return ok
}

// ErrValidation represents a validation error.
// Use when caller input (tool parameters, vectors) fails validation.
var ErrValidation = &ValidationError{}

// ValidationError is a sentinel error for validation failures.
type ValidationError struct {
	Field   string
	Message string
}

// NewValidationError creates a new ValidationError with a custom message.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Message != "" {
		return e.Message
	}

	if e.Field != "" {
		return "validation failed for field: " + e.Field
	}

	return "validation error"
}

// Is implements the error interface for error comparison.
func (e *ValidationError) Is(target error) bool {
	_, ok := target.(*ValidationError)

	return ok
}

// ErrProvider is the sentinel for embedding provider failures.
var ErrProvider = &ProviderError{}

// ProviderError reports that the external embedding provider failed, timed out
// or was unreachable. It is never used for "no matches".
type ProviderError struct {
	Provider string
	Timeout  bool
	Err      error
}

// NewProviderError wraps err, marking it as a timeout when the context deadline was hit.
func NewProviderError(provider string, err error) *ProviderError {
	return &ProviderError{
		Provider: provider,
		Timeout:  errors.Is(err, context.DeadlineExceeded),
		Err:      err,
	}
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	name := e.Provider
	if name == "" {
		name = "embedding provider"
	}

	switch {
	case e.Timeout:
		return name + " timed out"
	case e.Err != nil:
		return name + " unavailable: " + e.Err.Error()
	default:
		return name + " unavailable"
	}
}

// Unwrap returns the underlying provider error.
func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Is implements the error interface for error comparison.
func (e *ProviderError) Is(target error) bool {
	_, ok := target.(*ProviderError)

	return ok
}

// ErrInternal is the sentinel for unexpected failures (store errors, panics).
var ErrInternal = &InternalError{}

// InternalError is a sentinel error for unexpected failures.
type InternalError struct {
	Message string
	Err     error
}

// NewInternalError creates an InternalError wrapping err.
func NewInternalError(message string, err error) *InternalError {
	return &InternalError{Message: message, Err: err}
}

// Error implements the error interface.
func (e *InternalError) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return e.Message + ": " + e.Err.Error()
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return e.Err.Error()
	default:
		return "internal error"
	}
}

// Unwrap returns the wrapped error.
func (e *InternalError) Unwrap() error {
	return e.Err
}

// Is implements the error interface for error comparison.
func (e *InternalError) Is(target error) bool {
	_, ok := target.(*InternalError)

	return ok
}

// Kind classifies an error for the tool boundary.
type Kind string

// Error kinds.
const (
	KindNotFound   Kind = "not_found"
	KindValidation Kind = "validation"
	KindProvider   Kind = "provider"
	KindInternal   Kind = "internal"
)

// KindOf classifies err. Anything not explicitly typed is Internal.
func KindOf(err error) Kind {
	switch {
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrProvider):
		return KindProvider
	default:
		return KindInternal
	}
}
