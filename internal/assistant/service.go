// Package assistant orchestrates worksheet generation and chat turns.
package assistant

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/gpotter/worksheetbot/internal/domain"
	"github.com/gpotter/worksheetbot/internal/history"
	"github.com/gpotter/worksheetbot/internal/llm"
	"github.com/gpotter/worksheetbot/internal/lookup"
	"github.com/gpotter/worksheetbot/internal/mail"
	"github.com/gpotter/worksheetbot/internal/prompt"
	"github.com/gpotter/worksheetbot/internal/render"
	"github.com/gpotter/worksheetbot/internal/store"
	"github.com/gpotter/worksheetbot/internal/worksheet"
)

// scoresQuery is the lookup query assistant mode injects into its prompt.
const scoresQuery = "NFL scores today"

// Deps carries the collaborators a Service needs. The completer, searcher,
// and mail sender stay behind small interfaces so tests can swap them.
type Deps struct {
	History    *history.Store
	Completer  llm.Completer
	Searcher   lookup.Searcher // nil disables the scores block
	HTML       *render.HTML
	PDF        *render.PDF // nil skips the PDF artifact
	Repo       store.Repository
	Mailer     mail.Sender // nil disables delivery
	Transcript *TranscriptLogger
	// WorksheetLink is the shared-folder link included in notification
	// mail. Empty disables delivery even with a Mailer configured.
	WorksheetLink string
	Logger        *slog.Logger
	Now           func() time.Time
}

// Service processes one worksheet or chat turn at a time per session;
// callers sharing a session id must serialize their calls.
type Service struct {
	deps Deps
}

// NewService validates required collaborators and returns a Service.
func NewService(deps Deps) (*Service, error) {
	if deps.History == nil {
		return nil, fmt.Errorf("assistant: history store is required")
	}
	if deps.Completer == nil {
		return nil, fmt.Errorf("assistant: completer is required")
	}
	if deps.HTML == nil {
		return nil, fmt.Errorf("assistant: html renderer is required")
	}
	if deps.Repo == nil {
		return nil, fmt.Errorf("assistant: worksheet repository is required")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Service{deps: deps}, nil
}

// GenerateRequest asks for one worksheet.
type GenerateRequest struct {
	SessionID string
	Child     string
	Request   string
}

// Generation is the result of one worksheet turn.
type Generation struct {
	Meta      domain.WorksheetMeta `json:"meta"`
	Worksheet worksheet.Worksheet  `json:"worksheet"`
	RawText   string               `json:"-"`
	Emailed   bool                 `json:"emailed"`
}

// ChatRequest asks for one assistant reply.
type ChatRequest struct {
	SessionID string
	Message   string
}

// ChatReply is the result of one chat turn.
type ChatReply struct {
	Reply string `json:"reply"`
}

// GenerateWorksheet runs one full worksheet turn: hydrate history, complete,
// parse, render HTML (and PDF), index, persist the new turns, and deliver
// the link. A PDF or mail failure degrades the result instead of failing the
// turn; the parsed record stays valid and re-renderable either way.
func (s *Service) GenerateWorksheet(ctx context.Context, req GenerateRequest) (*Generation, error) {
	child := domain.ChildByName(req.Child)
	now := s.deps.Now()

	msgs, err := s.deps.History.Snapshot(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}

	system := prompt.Worksheet(child, now)
	raw, err := s.deps.Completer.Complete(ctx, system, toTurns(msgs), req.Request)
	if err != nil {
		return nil, fmt.Errorf("generate worksheet text: %w", err)
	}

	ws := worksheet.Parse(raw, child.Name)

	htmlPath, err := s.deps.HTML.Render(ws, child.Name, now)
	if err != nil {
		return nil, err
	}

	pdfPath := ""
	if s.deps.PDF != nil {
		pdfPath, err = s.deps.PDF.Render(ws, child.Name, now)
		if err != nil {
			s.deps.Logger.Warn("pdf render failed, keeping html artifact", "session_id", req.SessionID, "error", err)
			pdfPath = ""
		}
	}

	meta := domain.WorksheetMeta{
		ID:            uuid.NewString(),
		Child:         child.Name,
		Title:         ws.Title,
		HTMLPath:      htmlPath,
		PDFPath:       pdfPath,
		QuestionCount: ws.QuestionCount(),
		CreatedAt:     now,
	}
	if err := s.deps.Repo.InsertWorksheet(ctx, &meta); err != nil {
		return nil, err
	}

	if err := s.recordTurn(ctx, req.SessionID, req.Request, raw); err != nil {
		return nil, err
	}
	s.logTranscript(req.SessionID, "user_message", child.Name, req.Request)
	s.logTranscript(req.SessionID, "worksheet_generated", child.Name, meta.Title)

	gen := &Generation{Meta: meta, Worksheet: ws, RawText: raw}
	if s.deps.Mailer != nil && s.deps.WorksheetLink != "" {
		if err := s.deps.Mailer.SendLink(ctx, s.deps.WorksheetLink); err != nil {
			s.deps.Logger.Warn("worksheet mail delivery failed", "session_id", req.SessionID, "error", err)
		} else {
			gen.Emailed = true
		}
	}
	return gen, nil
}

// Chat runs one assistant turn with the live-scores block mixed into the
// system prompt. A lookup failure degrades to the empty-scores text; the
// chat itself still proceeds.
func (s *Service) Chat(ctx context.Context, req ChatRequest) (*ChatReply, error) {
	msgs, err := s.deps.History.Snapshot(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}

	system := prompt.Assistant(s.deps.Now(), s.scores(ctx))
	reply, err := s.deps.Completer.Complete(ctx, system, toTurns(msgs), req.Message)
	if err != nil {
		return nil, fmt.Errorf("generate chat reply: %w", err)
	}

	if err := s.recordTurn(ctx, req.SessionID, req.Message, reply); err != nil {
		return nil, err
	}
	s.logTranscript(req.SessionID, "user_message", "", req.Message)
	s.logTranscript(req.SessionID, "assistant_message", "", reply)

	return &ChatReply{Reply: reply}, nil
}

// StreamChat is Chat with per-chunk delivery; history is persisted once the
// full reply has been assembled.
func (s *Service) StreamChat(ctx context.Context, req ChatRequest, onDelta func(delta string)) (*ChatReply, error) {
	msgs, err := s.deps.History.Snapshot(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}

	system := prompt.Assistant(s.deps.Now(), s.scores(ctx))
	reply, err := s.deps.Completer.StreamComplete(ctx, system, toTurns(msgs), req.Message, onDelta)
	if err != nil {
		return nil, fmt.Errorf("generate chat reply: %w", err)
	}

	if err := s.recordTurn(ctx, req.SessionID, req.Message, reply); err != nil {
		return nil, err
	}
	s.logTranscript(req.SessionID, "user_message", "", req.Message)
	s.logTranscript(req.SessionID, "assistant_message", "", reply)

	return &ChatReply{Reply: reply}, nil
}

func (s *Service) scores(ctx context.Context) string {
	if s.deps.Searcher == nil {
		return lookup.NoResultsText
	}
	results, err := s.deps.Searcher.Results(ctx, scoresQuery)
	if err != nil {
		s.deps.Logger.Warn("scores lookup failed", "error", err)
		return lookup.NoResultsText
	}
	return lookup.FormatResults(results, lookup.DefaultLimit)
}

// recordTurn appends the user/assistant pair and persists the session.
func (s *Service) recordTurn(ctx context.Context, sessionID, userText, assistantText string) error {
	if err := s.deps.History.Append(ctx, sessionID, history.UserMessage(userText)); err != nil {
		return err
	}
	if err := s.deps.History.Append(ctx, sessionID, history.AssistantMessage(assistantText)); err != nil {
		return err
	}
	return s.deps.History.Save(ctx, sessionID)
}

func (s *Service) logTranscript(sessionID, kind, child, content string) {
	if s.deps.Transcript == nil {
		return
	}
	s.deps.Transcript.Log(TranscriptEvent{
		SessionID: sessionID,
		Kind:      kind,
		Child:     child,
		Content:   content,
	})
}

func toTurns(messages []history.Message) []llm.Turn {
	if len(messages) == 0 {
		return nil
	}
	turns := make([]llm.Turn, 0, len(messages))
	for _, m := range messages {
		turns = append(turns, llm.Turn{Role: m.Role, Content: m.Content})
	}
	return turns
}
