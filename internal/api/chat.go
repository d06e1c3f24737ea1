package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/gpotter/worksheetbot/internal/assistant"
	"github.com/gpotter/worksheetbot/internal/llm"
	"github.com/gpotter/worksheetbot/internal/session"
)

// ChatHandler handles conversational (non-worksheet) turns.
type ChatHandler struct {
	*Handler
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(base *Handler) *ChatHandler {
	return &ChatHandler{Handler: base}
}

// RegisterRoutes registers chat routes.
func (h *ChatHandler) RegisterRoutes(r chi.Router) {
	r.Post("/api/chat", h.Chat)
}

type chatRequest struct {
	Message string `json:"message"`
}

// Chat runs one chat turn for the caller's session.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var body chatRequest
	if !decodeBody(w, r, &body) {
		return
	}
	if strings.TrimSpace(body.Message) == "" {
		Error(w, http.StatusBadRequest, "message is required")
		return
	}

	sessionID := session.FromContext(r.Context())
	reply, err := h.svc.Chat(r.Context(), assistant.ChatRequest{
		SessionID: sessionID,
		Message:   body.Message,
	})
	if err != nil {
		var upstream *llm.UpstreamError
		if errors.As(err, &upstream) {
			slog.Error("Chat completion rejected upstream", "status", upstream.Status, "session_id", sessionID)
			Error(w, http.StatusBadGateway, "chat completion failed")
			return
		}
		slog.Error("Chat turn failed", "error", err, "session_id", sessionID)
		Error(w, http.StatusInternalServerError, "chat turn failed")
		return
	}

	JSON(w, http.StatusOK, reply)
}
