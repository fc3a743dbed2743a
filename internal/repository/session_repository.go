package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rinaata-aezisai/agentcore-langchain-poc/internal/domain"
)

// ErrSessionNotFound is returned when no event stream exists for a session.
var ErrSessionNotFound = errors.New("repository: session not found")

// SessionRepository loads and saves Session aggregates through an EventStore.
type SessionRepository struct {
	store EventStore
}

// NewSessionRepository creates a SessionRepository on top of the given store.
func NewSessionRepository(store EventStore) (*SessionRepository, error) {
	if store == nil {
		return nil, errors.New("repository: event store must not be nil")
	}
	return &SessionRepository{store: store}, nil
}

// Save persists the session's pending events and clears them on success.
func (r *SessionRepository) Save(ctx context.Context, session *domain.Session) error {
	pending := session.PendingEvents()
	if len(pending) == 0 {
		return nil
	}

	baseVersion := session.Version - len(pending)
	stored := make([]StoredEvent, 0, len(pending))
	for i, ev := range pending {
		data, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("repository: Save marshal %s: %w", ev.EventType(), err)
		}
		stored = append(stored, StoredEvent{
			SessionID: session.ID,
			EventType: ev.EventType(),
			Data:      data,
			Version:   baseVersion + i + 1,
			Timestamp: time.Now().UTC(),
		})
	}

	if err := r.store.Append(ctx, session.ID, stored); err != nil {
		return fmt.Errorf("repository: Save: %w", err)
	}
	session.ClearPendingEvents()
	return nil
}

// FindByID rebuilds a session by replaying its event stream.
func (r *SessionRepository) FindByID(ctx context.Context, sessionID string) (*domain.Session, error) {
	stored, err := r.store.Events(ctx, sessionID, 0)
	if err != nil {
		return nil, fmt.Errorf("repository: FindByID: %w", err)
	}
	if len(stored) == 0 {
		return nil, fmt.Errorf("repository: FindByID %s: %w", sessionID, ErrSessionNotFound)
	}

	session := &domain.Session{}
	for _, ev := range stored {
		decoded, err := decodeEvent(ev)
		if err != nil {
			return nil, fmt.Errorf("repository: FindByID replay: %w", err)
		}
		session.Apply(decoded)
	}
	if session.ID == "" {
		return nil, fmt.Errorf("repository: FindByID %s: stream has no %s event", sessionID, domain.EventTypeSessionStarted)
	}
	return session, nil
}

func decodeEvent(ev StoredEvent) (domain.Event, error) {
	switch ev.EventType {
	case domain.EventTypeSessionStarted:
		var out domain.SessionStarted
		if err := json.Unmarshal(ev.Data, &out); err != nil {
			return nil, fmt.Errorf("decode %s: %w", ev.EventType, err)
		}
		return out, nil
	case domain.EventTypeMessageAdded:
		var out domain.MessageAdded
		if err := json.Unmarshal(ev.Data, &out); err != nil {
			return nil, fmt.Errorf("decode %s: %w", ev.EventType, err)
		}
		return out, nil
	case domain.EventTypeSessionEnded:
		var out domain.SessionEnded
		if err := json.Unmarshal(ev.Data, &out); err != nil {
			return nil, fmt.Errorf("decode %s: %w", ev.EventType, err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unknown event type %q", ev.EventType)
	}
}
