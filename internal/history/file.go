package history

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var fileSessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9._:-]{1,128}$`)

// FileBackend stores one JSON file per session id under a directory,
// named "<id>_history.json".
type FileBackend struct {
	dir string
}

// NewFileBackend creates the directory if needed and returns a file backend.
func NewFileBackend(dir string) (*FileBackend, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}
	return &FileBackend{dir: dir}, nil
}

func (b *FileBackend) path(sessionID string) (string, error) {
	if !fileSessionIDPattern.MatchString(sessionID) {
		return "", fmt.Errorf("invalid session id %q", sessionID)
	}
	return filepath.Join(b.dir, sessionID+"_history.json"), nil
}

// Load reads the session file. A missing or blank file is (nil, nil); a
// non-empty unparsable file is ErrCorruptHistory.
func (b *FileBackend) Load(_ context.Context, sessionID string) ([]Message, error) {
	path, err := b.path(sessionID)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read history file: %w", err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return nil, nil
	}

	var messages []Message
	if err := json.Unmarshal(data, &messages); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptHistory, path, err)
	}
	return messages, nil
}

// Write overwrites the session file with the full message sequence.
func (b *FileBackend) Write(_ context.Context, sessionID string, messages []Message) error {
	path, err := b.path(sessionID)
	if err != nil {
		return err
	}

	if messages == nil {
		messages = []Message{}
	}
	data, err := json.MarshalIndent(messages, "", "  ")
	if err != nil {
		return fmt.Errorf("serialize history: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write history file: %w", err)
	}
	return nil
}

// Close is a no-op for the file backend.
func (b *FileBackend) Close() error { return nil }
