package history

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrCorruptHistory is returned when persisted session state exists but
// cannot be parsed. Hydration never fabricates a fresh history over corrupt
// state; the caller decides whether to abort or start over explicitly.
var ErrCorruptHistory = errors.New("history: persisted state is corrupt")

// Backend persists the serialized message sequence for a session.
//
// Load returns (nil, nil) when no state exists or the stored state is empty.
// Non-empty unparsable state returns an error wrapping ErrCorruptHistory.
type Backend interface {
	Load(ctx context.Context, sessionID string) ([]Message, error)
	Write(ctx context.Context, sessionID string, messages []Message) error
	Close() error
}

// Session is one session's in-memory message sequence, oldest first.
type Session struct {
	ID       string
	Messages []Message
}

// Store caches per-session histories for the life of the process and
// persists them through a Backend.
//
// Store methods are safe for concurrent use. Get returns the live cached
// session, so readers that may race an Append should use Snapshot instead.
// Ordering of turns within a session remains the caller's responsibility.
type Store struct {
	backend Backend

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewStore creates a history store on top of backend.
func NewStore(backend Backend) *Store {
	return &Store{
		backend:  backend,
		sessions: make(map[string]*Session),
	}
}

// Get returns the cached session if present, otherwise hydrates it from the
// backend keeping only the last RetentionWindow messages. Missing or empty
// persisted state yields a fresh empty session. The result is cached for the
// remainder of the process lifetime.
func (s *Store) Get(ctx context.Context, sessionID string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getLocked(ctx, sessionID)
}

func (s *Store) getLocked(ctx context.Context, sessionID string) (*Session, error) {
	if sess, ok := s.sessions[sessionID]; ok {
		return sess, nil
	}

	messages, err := s.backend.Load(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("hydrate session %s: %w", sessionID, err)
	}
	if n := len(messages); n > RetentionWindow {
		messages = messages[n-RetentionWindow:]
	}

	sess := &Session{ID: sessionID, Messages: messages}
	s.sessions[sessionID] = sess
	return sess, nil
}

// Snapshot returns a copy of the session's current message sequence,
// hydrating the session first if needed. The copy is safe to read while
// other goroutines append to the same session.
func (s *Store) Snapshot(ctx context.Context, sessionID string) ([]Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getLocked(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	out := make([]Message, len(sess.Messages))
	copy(out, sess.Messages)
	return out, nil
}

// Append adds message to the end of the session's sequence, hydrating the
// session first if needed. No cap is enforced here: a live session may grow
// past RetentionWindow; only rehydration truncates.
func (s *Store) Append(ctx context.Context, sessionID string, message Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getLocked(ctx, sessionID)
	if err != nil {
		return err
	}
	sess.Messages = append(sess.Messages, message)
	return nil
}

// Save serializes the full current in-memory sequence for the session,
// overwriting any prior persisted state.
func (s *Store) Save(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getLocked(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := s.backend.Write(ctx, sessionID, sess.Messages); err != nil {
		return fmt.Errorf("save session %s: %w", sessionID, err)
	}
	return nil
}

// Close releases the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}
