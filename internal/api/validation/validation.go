// Package validation provides request validation and custom validators.
package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/form/v4"
	"github.com/go-playground/validator/v10"

	"github.com/unsa/eventhub/internal/api/response"
	"github.com/unsa/eventhub/internal/datatypes"
)

var (
	// Registration is not goroutine safe; everything is registered in init.
	validate *validator.Validate
	decoder  *form.Decoder
)

// customValidators are registered once in init; validate is read-only afterwards.
var customValidators = map[string]validator.Func{
	"entity_type":   validateEntityType,
	"no_null_bytes": validateNoNullBytes,
	"rfc3339":       validateRFC3339,
}

func init() {
	validate = validator.New()
	decoder = form.NewDecoder()
	decoder.SetTagName("json")

	// Report fields by their wire name (topK, sessionId) rather than the Go name.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" || name == "" {
			return fld.Name
		}

		return name
	})

	for tag, fn := range customValidators {
		if err := validate.RegisterValidation(tag, fn); err != nil {
			slog.Error("validation: register failed", "tag", tag, "error", err)
		}
	}

	// Optional integers arrive as query strings; an empty value means "not provided".
	decoder.RegisterCustomTypeFunc(func(vals []string) (any, error) {
		if len(vals) == 0 || vals[0] == "" {
			return (*int)(nil), nil
		}

		n, err := strconv.Atoi(vals[0])
		if err != nil {
			return nil, fmt.Errorf("invalid integer %q: %w", vals[0], err)
		}

		return &n, nil
	}, (*int)(nil))
}

// FieldErrors is returned by ValidateStruct. Error joins the per-field messages into one line
// usable as a tool error message; Details feeds RFC 7807 responses.
type FieldErrors struct {
	Details []response.ErrorDetail
}

func (e *FieldErrors) Error() string {
	messages := make([]string, 0, len(e.Details))
	for _, d := range e.Details {
		messages = append(messages, d.Message)
	}

	return "validation failed: " + strings.Join(messages, "; ")
}

// ValidateStruct validates s against its validate tags.
func ValidateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err
	}

	fe := &FieldErrors{Details: make([]response.ErrorDetail, 0, len(validationErrors))}
	for _, fieldError := range validationErrors {
		fe.Details = append(fe.Details, response.ErrorDetail{
			Location: fieldError.Field(),
			Message:  formatFieldError(fieldError),
			Value:    fieldError.Value(),
		})
	}

	return fe
}

// formatFieldError formats a single field validation error.
func formatFieldError(fieldError validator.FieldError) string {
	field := fieldError.Field()
	tag := fieldError.Tag()

	switch tag {
	case "required":
		return field + " is required"
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fieldError.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fieldError.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, fieldError.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", field, fieldError.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fieldError.Param())
	case "entity_type":
		return field + " must be one of: speaker, session"
	case "uuid":
		return field + " must be a valid UUID"
	case "rfc3339":
		return field + " must be in RFC3339 format (ISO 8601)"
	case "datetime":
		return fmt.Sprintf("%s must match the layout %s", field, fieldError.Param())
	case "no_null_bytes":
		return field + " must not contain NULL bytes"
	default:
		return field + " is invalid"
	}
}

// RespondValidationError writes a validation error response with RFC 7807 Problem Details.
func RespondValidationError(w http.ResponseWriter, err error) {
	problem := response.ProblemDetails{
		Type:   "about:blank",
		Title:  "Validation Error",
		Status: http.StatusBadRequest,
		Detail: err.Error(),
	}

	var fe *FieldErrors
	if errors.As(err, &fe) {
		problem.Errors = fe.Details
	}

	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(http.StatusBadRequest)

	if err := json.NewEncoder(w).Encode(problem); err != nil {
		slog.Error("Failed to encode validation error response", "error", err)
	}
}

// DecodeValues decodes form or query values into a struct using the json tag names.
func DecodeValues(values url.Values, dst any) error {
	if err := decoder.Decode(dst, values); err != nil {
		return fmt.Errorf("failed to decode parameters: %w", err)
	}

	return nil
}

// validateEntityType accepts datatypes.EntityType values and their string forms.
func validateEntityType(fl validator.FieldLevel) bool {
	field := fl.Field()

	if field.Type() == reflect.TypeFor[datatypes.EntityType]() {
		et, ok := field.Interface().(datatypes.EntityType)

		return ok && et.Valid()
	}

	if field.Kind() == reflect.String {
		_, err := datatypes.ParseEntityType(field.String())

		return err == nil
	}

	return false
}

// validateRFC3339 checks that a string holds an RFC3339 timestamp. Empty strings pass (use required).
func validateRFC3339(fl validator.FieldLevel) bool {
	field := fl.Field()
	if field.Kind() != reflect.String {
		return false
	}

	if field.String() == "" {
		return true
	}

	_, err := time.Parse(time.RFC3339, field.String())

	return err == nil
}

// validateNoNullBytes checks that a string field does not contain NULL bytes
// Handles both string and *string types.
func validateNoNullBytes(fl validator.FieldLevel) bool {
	field := fl.Field()

	if field.Kind() == reflect.Ptr {
		if field.IsNil() {
			return true // nil pointer is valid (handled by omitempty)
		}

		field = field.Elem()
	}

	if field.Kind() != reflect.String {
		return true
	}

	return !strings.Contains(field.String(), "\x00")
}
