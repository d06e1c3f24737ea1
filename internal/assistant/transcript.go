package assistant

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gpotter/worksheetbot/internal/config"
)

// TranscriptEvent is one NDJSON record in a session transcript.
type TranscriptEvent struct {
	Timestamp string `json:"ts"`
	SessionID string `json:"session_id"`
	Kind      string `json:"kind"` // user_message, assistant_message, worksheet_generated
	Child     string `json:"child,omitempty"`
	Content   string `json:"content,omitempty"`
}

// TranscriptLogger appends conversation events to one NDJSON file per
// session, off the request path. Events are dropped (with a warning) when
// the queue is full; transcripts are an observability aid, not a store.
type TranscriptLogger struct {
	enabled bool
	dir     string
	queue   chan TranscriptEvent
	done    chan struct{}
	closeMu sync.Mutex
	closed  bool
	logger  *slog.Logger
}

// NewTranscriptLogger starts the background writer. A disabled config
// returns a logger whose Log is a no-op.
func NewTranscriptLogger(cfg config.TranscriptConfig, logger *slog.Logger) (*TranscriptLogger, error) {
	if logger == nil {
		logger = slog.Default()
	}
	t := &TranscriptLogger{
		enabled: cfg.Enabled,
		dir:     cfg.Dir,
		logger:  logger,
	}
	if !cfg.Enabled {
		return t, nil
	}

	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create transcript directory: %w", err)
	}

	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 1000
	}
	t.queue = make(chan TranscriptEvent, queueSize)
	t.done = make(chan struct{})
	go t.run()
	return t, nil
}

// Log enqueues an event without blocking the caller.
func (t *TranscriptLogger) Log(event TranscriptEvent) {
	if !t.enabled {
		return
	}
	if event.Timestamp == "" {
		event.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
	}
	select {
	case t.queue <- event:
	default:
		t.logger.Warn("transcript queue full, dropping event", "session_id", event.SessionID, "kind", event.Kind)
	}
}

func (t *TranscriptLogger) run() {
	defer close(t.done)
	for event := range t.queue {
		if err := t.write(event); err != nil {
			t.logger.Warn("failed to write transcript event", "session_id", event.SessionID, "error", err)
		}
	}
}

func (t *TranscriptLogger) write(event TranscriptEvent) error {
	line, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode transcript event: %w", err)
	}

	path := filepath.Join(t.dir, event.SessionID+".ndjson")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open transcript file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("append transcript line: %w", err)
	}
	return nil
}

// Close drains the queue and stops the writer.
func (t *TranscriptLogger) Close() error {
	if !t.enabled {
		return nil
	}
	t.closeMu.Lock()
	defer t.closeMu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	close(t.queue)
	<-t.done
	return nil
}
