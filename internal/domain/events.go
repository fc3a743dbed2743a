package domain

import "time"

// Event type names as stored in the event store and published to EventBridge.
const (
	EventTypeSessionStarted = "SessionStarted"
	EventTypeMessageAdded   = "MessageAdded"
	EventTypeSessionEnded   = "SessionEnded"
)

// Event is a domain event emitted by the Session aggregate.
type Event interface {
	EventType() string
}

// SessionStarted signals that a new session was opened.
type SessionStarted struct {
	SessionID string    `json:"session_id"`
	AgentID   string    `json:"agent_id"`
	UserID    string    `json:"user_id"`
	Timestamp time.Time `json:"timestamp"`
}

func (SessionStarted) EventType() string { return EventTypeSessionStarted }

// MessageAdded signals that a message was appended to a session.
type MessageAdded struct {
	SessionID string    `json:"session_id"`
	Message   Message   `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

func (MessageAdded) EventType() string { return EventTypeMessageAdded }

// SessionEnded signals that a session was closed.
type SessionEnded struct {
	SessionID string    `json:"session_id"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

func (SessionEnded) EventType() string { return EventTypeSessionEnded }
