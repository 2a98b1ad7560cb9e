package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/unsa/eventhub/internal/api/response"
	"github.com/unsa/eventhub/internal/tools"
)

// ToolCatalog is the tool catalog as the HTTP layer sees it.
type ToolCatalog interface {
	List() []tools.Info
	Has(name string) bool
	Call(ctx context.Context, name string, args json.RawMessage) tools.Envelope
	CallValues(ctx context.Context, name string, values url.Values) tools.Envelope
}

// ToolsHandler exposes the tool catalog over HTTP.
type ToolsHandler struct {
	catalog ToolCatalog
}

// NewToolsHandler creates a tools handler.
func NewToolsHandler(catalog ToolCatalog) *ToolsHandler {
	return &ToolsHandler{catalog: catalog}
}

// toolListResponse is the body of GET /v1/tools.
type toolListResponse struct {
	Tools []tools.Info `json:"tools"`
}

// List handles GET /v1/tools: every tool, sorted by name.
func (h *ToolsHandler) List(w http.ResponseWriter, _ *http.Request) {
	response.RespondJSON(w, http.StatusOK, toolListResponse{Tools: h.catalog.List()})
}

// Call handles POST /v1/tools/{name} with JSON arguments. Tool failures are ERROR envelopes
// with status 200; only an unknown tool or an unreadable body change the status.
func (h *ToolsHandler) Call(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if !h.catalog.Has(name) {
		response.RespondNotFound(w, "Unknown tool: "+name)

		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		response.RespondBadRequest(w, "Invalid request body")

		return
	}

	response.RespondJSON(w, http.StatusOK, h.catalog.Call(r.Context(), name, body))
}

// CallQuery handles GET /v1/tools/{name}?param=value.
func (h *ToolsHandler) CallQuery(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if !h.catalog.Has(name) {
		response.RespondNotFound(w, "Unknown tool: "+name)

		return
	}

	response.RespondJSON(w, http.StatusOK, h.catalog.CallValues(r.Context(), name, r.URL.Query()))
}
