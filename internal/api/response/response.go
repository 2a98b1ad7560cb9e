// Package response writes JSON and RFC 7807 problem responses for the operational API.
package response

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// ErrorDetail is one field-level entry of a problem response.
type ErrorDetail struct {
	Location string `json:"location,omitempty"`
	Message  string `json:"message,omitempty"`
	Value    any    `json:"value,omitempty"`
}

// ProblemDetails is an RFC 7807 problem response.
type ProblemDetails struct {
	Type     string        `json:"type,omitempty"`
	Title    string        `json:"title"`
	Status   int           `json:"status"`
	Detail   string        `json:"detail,omitempty"`
	Instance string        `json:"instance,omitempty"`
	Errors   []ErrorDetail `json:"errors,omitempty"`
}

// DataResponse wraps single-object responses as {"data": ...}.
type DataResponse struct {
	Data any `json:"data"`
}

// RespondError writes a problem response.
func RespondError(w http.ResponseWriter, statusCode int, title, detail string) {
	writeJSON(w, "application/problem+json", statusCode, ProblemDetails{
		Type:   "about:blank",
		Title:  title,
		Status: statusCode,
		Detail: detail,
	})
}

// RespondBadRequest writes a 400.
func RespondBadRequest(w http.ResponseWriter, detail string) {
	RespondError(w, http.StatusBadRequest, "Bad Request", detail)
}

// RespondUnauthorized writes a 401.
func RespondUnauthorized(w http.ResponseWriter, detail string) {
	RespondError(w, http.StatusUnauthorized, "Unauthorized", detail)
}

// RespondNotFound writes a 404.
func RespondNotFound(w http.ResponseWriter, detail string) {
	RespondError(w, http.StatusNotFound, "Not Found", detail)
}

// RespondInternalServerError writes a 500.
func RespondInternalServerError(w http.ResponseWriter, detail string) {
	RespondError(w, http.StatusInternalServerError, "Internal Server Error", detail)
}

// RespondServiceUnavailable writes a 503, used when an optional subsystem (embeddings) is off.
func RespondServiceUnavailable(w http.ResponseWriter, detail string) {
	RespondError(w, http.StatusServiceUnavailable, "Service Unavailable", detail)
}

// RespondJSON writes data as is.
func RespondJSON(w http.ResponseWriter, statusCode int, data any) {
	writeJSON(w, "application/json", statusCode, data)
}

// RespondSuccess writes data wrapped in {"data": ...}.
func RespondSuccess(w http.ResponseWriter, statusCode int, data any) {
	writeJSON(w, "application/json", statusCode, DataResponse{Data: data})
}

func writeJSON(w http.ResponseWriter, contentType string, statusCode int, body any) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("http: encode response failed", "error", err)
	}
}
