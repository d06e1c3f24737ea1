package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/gpotter/worksheetbot/internal/assistant"
	"github.com/gpotter/worksheetbot/internal/domain"
	"github.com/gpotter/worksheetbot/internal/session"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// WorksheetHandler handles worksheet generation and retrieval endpoints.
type WorksheetHandler struct {
	*Handler
}

// NewWorksheetHandler creates a new worksheet handler.
func NewWorksheetHandler(base *Handler) *WorksheetHandler {
	return &WorksheetHandler{Handler: base}
}

// RegisterRoutes registers worksheet routes.
func (h *WorksheetHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/worksheets", func(r chi.Router) {
		r.Post("/", h.Generate)
		r.Get("/", h.List)
		r.Get("/{id}/file", h.File)
	})
}

type generateRequest struct {
	Child   string `json:"child"`
	Request string `json:"request"`
}

// Generate runs one worksheet turn for the caller's session.
func (h *WorksheetHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var body generateRequest
	if !decodeBody(w, r, &body) {
		return
	}
	if strings.TrimSpace(body.Request) == "" {
		Error(w, http.StatusBadRequest, "request text is required")
		return
	}

	sessionID := session.FromContext(r.Context())
	gen, err := h.svc.GenerateWorksheet(r.Context(), assistant.GenerateRequest{
		SessionID: sessionID,
		Child:     body.Child,
		Request:   body.Request,
	})
	if err != nil {
		slog.Error("Worksheet generation failed", "error", err, "session_id", sessionID)
		Error(w, http.StatusBadGateway, "worksheet generation failed")
		return
	}

	JSON(w, http.StatusCreated, gen)
}

// List returns recently generated worksheets, newest first.
func (h *WorksheetHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			Error(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxListLimit)
	}

	metas, err := h.repo.ListRecentWorksheets(r.Context(), limit)
	if err != nil {
		slog.Error("Failed to list worksheets", "error", err)
		Error(w, http.StatusInternalServerError, "failed to list worksheets")
		return
	}
	if metas == nil {
		metas = []*domain.WorksheetMeta{}
	}

	JSON(w, http.StatusOK, map[string]interface{}{"worksheets": metas})
}

// File serves a rendered worksheet artifact. format=html (default) or pdf.
func (h *WorksheetHandler) File(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	meta, err := h.repo.GetWorksheet(r.Context(), id)
	if err != nil {
		slog.Error("Failed to load worksheet", "error", err, "worksheet_id", id)
		Error(w, http.StatusInternalServerError, "failed to load worksheet")
		return
	}
	if meta == nil {
		Error(w, http.StatusNotFound, "worksheet not found")
		return
	}

	format := r.URL.Query().Get("format")
	var path string
	switch format {
	case "", "html":
		path = meta.HTMLPath
	case "pdf":
		path = meta.PDFPath
	default:
		Error(w, http.StatusBadRequest, "format must be html or pdf")
		return
	}
	if path == "" {
		Error(w, http.StatusNotFound, "artifact not available for this worksheet")
		return
	}

	http.ServeFile(w, r, path)
}
