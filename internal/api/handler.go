// Package api provides HTTP handlers for the WorksheetBot API.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gpotter/worksheetbot/internal/assistant"
	"github.com/gpotter/worksheetbot/internal/store"
)

// Assistant is the slice of the assistant service the HTTP layer needs.
type Assistant interface {
	GenerateWorksheet(ctx context.Context, req assistant.GenerateRequest) (*assistant.Generation, error)
	Chat(ctx context.Context, req assistant.ChatRequest) (*assistant.ChatReply, error)
	StreamChat(ctx context.Context, req assistant.ChatRequest, onDelta func(delta string)) (*assistant.ChatReply, error)
}

// Handler provides common handler dependencies.
type Handler struct {
	svc  Assistant
	repo store.Repository
}

// NewHandler creates a new Handler with common dependencies.
func NewHandler(svc Assistant, repo store.Repository) *Handler {
	return &Handler{svc: svc, repo: repo}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// decodeBody decodes a bounded JSON request body into v.
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// maxRequestBodySize is the maximum allowed request body size (1MB).
const maxRequestBodySize = 1 << 20
