package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/coder/websocket"

	"github.com/gpotter/worksheetbot/internal/assistant"
	"github.com/gpotter/worksheetbot/internal/session"
)

// WebSocketHandler streams chat replies over a WebSocket connection.
type WebSocketHandler struct {
	svc           Assistant
	allowedOrigin string
	isDev         bool
}

// NewWebSocketHandler creates a new streaming chat handler.
func NewWebSocketHandler(svc Assistant, allowedOrigin string, isDev bool) *WebSocketHandler {
	return &WebSocketHandler{svc: svc, allowedOrigin: allowedOrigin, isDev: isDev}
}

// wsInbound is a client frame. Only type "chat" carries content.
type wsInbound struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
}

// wsOutbound is a server frame: delta while streaming, done with the full
// reply, pong, or error.
type wsOutbound struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sessionID := session.FromContext(r.Context())
	slog.Info("WebSocket chat connection", "session_id", sessionID, "ip", r.RemoteAddr)

	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "session_id", sessionID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "session_id", sessionID)
		}
	}()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	for {
		_, message, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				slog.Debug("WebSocket closed by client", "session_id", sessionID)
			} else if ctx.Err() == nil {
				slog.Warn("WebSocket read error", "error", err, "session_id", sessionID)
			}
			return
		}

		var msg wsInbound
		if err := json.Unmarshal(message, &msg); err != nil {
			// Bare text frames are treated as chat input.
			msg = wsInbound{Type: "chat", Content: string(message)}
		}

		switch msg.Type {
		case "ping":
			if err := h.writeJSON(ctx, ws, wsOutbound{Type: "pong"}); err != nil {
				slog.Debug("Failed to send pong", "error", err)
				return
			}
		case "chat":
			if strings.TrimSpace(msg.Content) == "" {
				if err := h.writeJSON(ctx, ws, wsOutbound{Type: "error", Content: "message is required"}); err != nil {
					return
				}
				continue
			}
			if err := h.streamTurn(ctx, ws, sessionID, msg.Content); err != nil {
				slog.Warn("Streaming chat turn failed", "error", err, "session_id", sessionID)
				if err := h.writeJSON(ctx, ws, wsOutbound{Type: "error", Content: "chat turn failed"}); err != nil {
					return
				}
			}
		}
	}
}

func (h *WebSocketHandler) streamTurn(ctx context.Context, ws *websocket.Conn, sessionID, content string) error {
	reply, err := h.svc.StreamChat(ctx, assistant.ChatRequest{
		SessionID: sessionID,
		Message:   content,
	}, func(delta string) {
		if err := h.writeJSON(ctx, ws, wsOutbound{Type: "delta", Content: delta}); err != nil {
			slog.Debug("Failed to send delta", "error", err, "session_id", sessionID)
		}
	})
	if err != nil {
		return err
	}
	return h.writeJSON(ctx, ws, wsOutbound{Type: "done", Content: reply.Reply})
}

func (h *WebSocketHandler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || h.allowedOrigin == "*" {
		return true
	}
	if origin == h.allowedOrigin {
		return true
	}
	slog.Warn("WebSocket origin rejected", "origin", origin, "allowed", h.allowedOrigin)
	return false
}

func (h *WebSocketHandler) writeJSON(ctx context.Context, ws *websocket.Conn, v wsOutbound) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return ws.Write(ctx, websocket.MessageText, data)
}
