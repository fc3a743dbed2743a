package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SessionState is the lifecycle state of a session.
type SessionState string

const (
	SessionStateActive SessionState = "active"
	SessionStateEnded  SessionState = "ended"
)

// Roles for persisted messages.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// ErrSessionEnded is returned when a message is appended to an ended session.
var ErrSessionEnded = errors.New("domain: session is not active")

// Message is one turn stored on a session.
type Message struct {
	ID        string     `json:"id"`
	Role      string     `json:"role"`
	Content   string     `json:"content"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// NewMessage creates a message with a fresh ID and UTC timestamp.
func NewMessage(role, content string, toolCalls []ToolCall) Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		ToolCalls: toolCalls,
		CreatedAt: time.Now().UTC(),
	}
}

// Session is the chat session aggregate. State changes are recorded as
// domain events so the repository can persist it with event sourcing.
// Version counts applied events and backs optimistic concurrency.
type Session struct {
	ID        string
	AgentID   string
	UserID    string
	State     SessionState
	CreatedAt time.Time
	UpdatedAt time.Time
	Version   int

	messages []Message
	pending  []Event
}

// StartSession creates a new active session and records SessionStarted.
func StartSession(agentID, userID string) *Session {
	now := time.Now().UTC()
	s := &Session{
		ID:        uuid.NewString(),
		AgentID:   agentID,
		UserID:    userID,
		State:     SessionStateActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.record(SessionStarted{SessionID: s.ID, AgentID: agentID, UserID: userID, Timestamp: now})
	return s
}

// AddMessage appends a message to an active session.
func (s *Session) AddMessage(msg Message) error {
	if s.State != SessionStateActive {
		return fmt.Errorf("add message to session %s: %w", s.ID, ErrSessionEnded)
	}
	s.messages = append(s.messages, msg)
	s.UpdatedAt = time.Now().UTC()
	s.record(MessageAdded{SessionID: s.ID, Message: msg, Timestamp: s.UpdatedAt})
	return nil
}

// End closes the session. Ending an already ended session is an error.
func (s *Session) End(reason string) error {
	if s.State != SessionStateActive {
		return fmt.Errorf("end session %s: %w", s.ID, ErrSessionEnded)
	}
	s.State = SessionStateEnded
	s.UpdatedAt = time.Now().UTC()
	s.record(SessionEnded{SessionID: s.ID, Reason: reason, Timestamp: s.UpdatedAt})
	return nil
}

// Messages returns a copy of all messages in order.
func (s *Session) Messages() []Message {
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Context returns up to limit of the most recent messages.
func (s *Session) Context(limit int) []Message {
	if limit <= 0 || limit >= len(s.messages) {
		return s.Messages()
	}
	out := make([]Message, limit)
	copy(out, s.messages[len(s.messages)-limit:])
	return out
}

// PendingEvents returns events recorded since the last ClearPendingEvents.
func (s *Session) PendingEvents() []Event {
	out := make([]Event, len(s.pending))
	copy(out, s.pending)
	return out
}

// ClearPendingEvents drops recorded events after they have been persisted.
func (s *Session) ClearPendingEvents() {
	s.pending = nil
}

func (s *Session) record(e Event) {
	s.pending = append(s.pending, e)
	s.Version++
}

// Apply replays a single event onto the aggregate without recording it.
// Used by the repository when rebuilding from the event store.
func (s *Session) Apply(e Event) {
	switch ev := e.(type) {
	case SessionStarted:
		s.ID = ev.SessionID
		s.AgentID = ev.AgentID
		s.UserID = ev.UserID
		s.State = SessionStateActive
		s.CreatedAt = ev.Timestamp
		s.UpdatedAt = ev.Timestamp
	case MessageAdded:
		s.messages = append(s.messages, ev.Message)
		s.UpdatedAt = ev.Timestamp
	case SessionEnded:
		s.State = SessionStateEnded
		s.UpdatedAt = ev.Timestamp
	}
	s.Version++
}
