// Package history provides the bounded, persisted per-session chat history.
//
// A session's history is hydrated from its backend at most once per process;
// hydration keeps only the most recent RetentionWindow messages. Appends are
// unbounded while the process lives — truncation happens only on reload.
package history

import "encoding/json"

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// RetentionWindow is the maximum number of messages rehydrated from
// persisted state into an active session.
const RetentionWindow = 20

// Message is a single conversation turn. Immutable once created.
//
// Raw carries the original serialized form of a message loaded from storage
// so unknown fields written by other producers survive a save unchanged.
// Messages created in-process leave Raw empty.
type Message struct {
	Role    string
	Content string
	Raw     json.RawMessage
}

type messageJSON struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// MarshalJSON writes the pass-through raw form when present, otherwise the
// canonical {role, content} object.
func (m Message) MarshalJSON() ([]byte, error) {
	if len(m.Raw) > 0 {
		return m.Raw, nil
	}
	return json.Marshal(messageJSON{Role: m.Role, Content: m.Content})
}

// UnmarshalJSON decodes role and content and retains the full original
// object in Raw.
func (m *Message) UnmarshalJSON(data []byte) error {
	var probe messageJSON
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	m.Role = probe.Role
	m.Content = probe.Content
	m.Raw = append(json.RawMessage(nil), data...)
	return nil
}

// UserMessage builds a user turn.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// AssistantMessage builds an assistant turn.
func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}
