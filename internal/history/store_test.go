package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func TestGetReturnsFreshSessionWhenNothingPersisted(t *testing.T) {
	t.Parallel()

	store := NewStore(NewMemoryBackend())
	sess, err := store.Get(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if sess.ID != "sess-1" {
		t.Fatalf("unexpected session id: %q", sess.ID)
	}
	if len(sess.Messages) != 0 {
		t.Fatalf("expected empty history, got %d messages", len(sess.Messages))
	}
}

func TestGetIsCachedForProcessLifetime(t *testing.T) {
	t.Parallel()

	store := NewStore(NewMemoryBackend())
	ctx := context.Background()

	first, err := store.Get(ctx, "sess-1")
	if err != nil {
		t.Fatalf("first Get failed: %v", err)
	}
	second, err := store.Get(ctx, "sess-1")
	if err != nil {
		t.Fatalf("second Get failed: %v", err)
	}
	if first != second {
		t.Fatal("expected the identical cached session on repeated Get")
	}
}

func TestAppendDoesNotTruncateLiveSession(t *testing.T) {
	t.Parallel()

	store := NewStore(NewMemoryBackend())
	ctx := context.Background()

	for i := 0; i < RetentionWindow+5; i++ {
		if err := store.Append(ctx, "sess-1", UserMessage(fmt.Sprintf("msg %d", i))); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	sess, err := store.Get(ctx, "sess-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got := len(sess.Messages); got != RetentionWindow+5 {
		t.Fatalf("live session truncated: got %d messages, want %d", got, RetentionWindow+5)
	}
}

func TestSnapshotIsIndependentOfLaterAppends(t *testing.T) {
	t.Parallel()

	store := NewStore(NewMemoryBackend())
	ctx := context.Background()

	if err := store.Append(ctx, "sess-1", UserMessage("first")); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	snap, err := store.Snapshot(ctx, "sess-1")
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if err := store.Append(ctx, "sess-1", AssistantMessage("second")); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	if len(snap) != 1 {
		t.Fatalf("snapshot grew after append: got %d messages, want 1", len(snap))
	}
	if snap[0].Content != "first" {
		t.Fatalf("snapshot content changed: got %q", snap[0].Content)
	}
}

func TestConcurrentAppendAndSnapshot(t *testing.T) {
	t.Parallel()

	store := NewStore(NewMemoryBackend())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				msg := UserMessage(fmt.Sprintf("writer %d turn %d", i, j))
				if err := store.Append(ctx, "sess-1", msg); err != nil {
					t.Errorf("Append failed: %v", err)
					return
				}
			}
		}(i)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				msgs, err := store.Snapshot(ctx, "sess-1")
				if err != nil {
					t.Errorf("Snapshot failed: %v", err)
					return
				}
				for _, m := range msgs {
					if m.Content == "" {
						t.Error("snapshot contains an empty message")
						return
					}
				}
			}
		}()
	}
	wg.Wait()

	msgs, err := store.Snapshot(ctx, "sess-1")
	if err != nil {
		t.Fatalf("final Snapshot failed: %v", err)
	}
	if got := len(msgs); got != 100 {
		t.Fatalf("got %d messages after concurrent appends, want 100", got)
	}
}

func TestSaveThenFreshGetKeepsLastTwenty(t *testing.T) {
	t.Parallel()

	backend, err := NewFileBackend(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileBackend failed: %v", err)
	}
	ctx := context.Background()

	const total = 27
	store := NewStore(backend)
	for i := 0; i < total; i++ {
		role := RoleUser
		if i%2 == 1 {
			role = RoleAssistant
		}
		msg := Message{Role: role, Content: fmt.Sprintf("turn %d", i)}
		if err := store.Append(ctx, "sess-1", msg); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}
	if err := store.Save(ctx, "sess-1"); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// A fresh store simulates a process restart.
	reloaded := NewStore(backend)
	sess, err := reloaded.Get(ctx, "sess-1")
	if err != nil {
		t.Fatalf("Get after restart failed: %v", err)
	}
	if got := len(sess.Messages); got != RetentionWindow {
		t.Fatalf("got %d messages after rehydration, want %d", got, RetentionWindow)
	}
	for i, msg := range sess.Messages {
		want := fmt.Sprintf("turn %d", total-RetentionWindow+i)
		if msg.Content != want {
			t.Fatalf("message %d: got %q, want %q", i, msg.Content, want)
		}
	}
}

func TestRoundTripFewerThanWindow(t *testing.T) {
	t.Parallel()

	backend, err := NewFileBackend(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileBackend failed: %v", err)
	}
	ctx := context.Background()

	store := NewStore(backend)
	turns := []Message{
		UserMessage("make a rocket worksheet"),
		AssistantMessage("TITLE: Rocket Math"),
	}
	for _, msg := range turns {
		if err := store.Append(ctx, "sess-2", msg); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}
	if err := store.Save(ctx, "sess-2"); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	sess, err := NewStore(backend).Get(ctx, "sess-2")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(sess.Messages) != len(turns) {
		t.Fatalf("got %d messages, want %d", len(sess.Messages), len(turns))
	}
	for i := range turns {
		if sess.Messages[i].Role != turns[i].Role || sess.Messages[i].Content != turns[i].Content {
			t.Fatalf("message %d mismatch: got %+v, want %+v", i, sess.Messages[i], turns[i])
		}
	}
}

func TestCorruptPersistedStateFailsHydration(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	backend, err := NewFileBackend(dir)
	if err != nil {
		t.Fatalf("NewFileBackend failed: %v", err)
	}
	path := filepath.Join(dir, "sess-1_history.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("seed corrupt file: %v", err)
	}

	_, err = NewStore(backend).Get(context.Background(), "sess-1")
	if !errors.Is(err, ErrCorruptHistory) {
		t.Fatalf("expected ErrCorruptHistory, got %v", err)
	}
}

func TestEmptyFileIsTreatedAsMissing(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	backend, err := NewFileBackend(dir)
	if err != nil {
		t.Fatalf("NewFileBackend failed: %v", err)
	}
	path := filepath.Join(dir, "sess-1_history.json")
	if err := os.WriteFile(path, []byte("  \n"), 0o644); err != nil {
		t.Fatalf("seed blank file: %v", err)
	}

	sess, err := NewStore(backend).Get(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(sess.Messages) != 0 {
		t.Fatalf("expected empty history, got %d messages", len(sess.Messages))
	}
}

func TestUnknownMessageFieldsSurviveSave(t *testing.T) {
	t.Parallel()

	backend := NewMemoryBackend()
	backend.Seed("sess-1", []byte(`[{"role":"user","content":"hi","model":"gpt-4o-mini"}]`))

	ctx := context.Background()
	store := NewStore(backend)
	if err := store.Append(ctx, "sess-1", AssistantMessage("hello")); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := store.Save(ctx, "sess-1"); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	reloaded, err := NewStore(backend).Get(ctx, "sess-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(reloaded.Messages) != 2 {
		t.Fatalf("got %d messages, want 2", len(reloaded.Messages))
	}
	var extra struct {
		Model string `json:"model"`
	}
	if err := json.Unmarshal(reloaded.Messages[0].Raw, &extra); err != nil {
		t.Fatalf("unmarshal raw message: %v", err)
	}
	if extra.Model != "gpt-4o-mini" {
		t.Fatalf("unknown field lost on round trip: %q", extra.Model)
	}
}

func TestFileBackendRejectsUnsafeSessionIDs(t *testing.T) {
	t.Parallel()

	backend, err := NewFileBackend(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileBackend failed: %v", err)
	}
	_, err = backend.Load(context.Background(), "../escape")
	if err == nil || !strings.Contains(err.Error(), "invalid session id") {
		t.Fatalf("expected invalid session id error, got %v", err)
	}
}

func TestNewBackendFactory(t *testing.T) {
	t.Parallel()

	if _, err := NewBackend(BackendTypeMemory); err != nil {
		t.Fatalf("memory backend: %v", err)
	}
	if _, err := NewBackend(BackendTypeFile); !errors.Is(err, ErrInvalidBackendConfig) {
		t.Fatalf("file backend without dir: got %v, want ErrInvalidBackendConfig", err)
	}
	if _, err := NewBackend(BackendTypeFile, WithDir(t.TempDir())); err != nil {
		t.Fatalf("file backend with dir: %v", err)
	}
	if _, err := NewBackend(BackendTypeRedis); !errors.Is(err, ErrInvalidBackendConfig) {
		t.Fatalf("redis backend without client: got %v, want ErrInvalidBackendConfig", err)
	}
	if _, err := NewBackend("carrier-pigeon"); !errors.Is(err, ErrInvalidBackendType) {
		t.Fatalf("unknown backend: got %v, want ErrInvalidBackendType", err)
	}
}
