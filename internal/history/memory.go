package history

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// MemoryBackend keeps serialized session state in a map. Intended for tests
// and development; state does not survive the process.
type MemoryBackend struct {
	mu       sync.RWMutex
	sessions map[string][]byte
}

// NewMemoryBackend returns an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{sessions: make(map[string][]byte)}
}

// Load implements Backend. Serializing through JSON keeps the memory backend
// faithful to the durable ones, corrupt-state semantics included.
func (b *MemoryBackend) Load(_ context.Context, sessionID string) ([]Message, error) {
	b.mu.RLock()
	data, ok := b.sessions[sessionID]
	b.mu.RUnlock()

	if !ok || len(data) == 0 {
		return nil, nil
	}
	var messages []Message
	if err := json.Unmarshal(data, &messages); err != nil {
		return nil, fmt.Errorf("%w: session %s: %v", ErrCorruptHistory, sessionID, err)
	}
	return messages, nil
}

// Write implements Backend.
func (b *MemoryBackend) Write(_ context.Context, sessionID string, messages []Message) error {
	if messages == nil {
		messages = []Message{}
	}
	data, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("serialize history: %w", err)
	}

	b.mu.Lock()
	b.sessions[sessionID] = data
	b.mu.Unlock()
	return nil
}

// Close implements Backend.
func (b *MemoryBackend) Close() error {
	b.mu.Lock()
	b.sessions = nil
	b.mu.Unlock()
	return nil
}

// Seed stores raw bytes for a session, bypassing serialization. Tests use it
// to stage malformed or hand-written persisted state.
func (b *MemoryBackend) Seed(sessionID string, data []byte) {
	b.mu.Lock()
	b.sessions[sessionID] = data
	b.mu.Unlock()
}
