package repository

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore is an in-memory EventStore for tests and local runs.
type MemoryStore struct {
	mu     sync.Mutex
	events map[string][]StoredEvent
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{events: make(map[string][]StoredEvent)}
}

func (s *MemoryStore) Append(_ context.Context, sessionID string, events []StoredEvent) error {
	if len(events) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	current := 0
	if existing := s.events[sessionID]; len(existing) > 0 {
		current = existing[len(existing)-1].Version
	}
	if expected := events[0].Version - 1; current != expected {
		return fmt.Errorf("memory store: expected version %d, found %d: %w", expected, current, ErrVersionConflict)
	}
	s.events[sessionID] = append(s.events[sessionID], events...)
	return nil
}

func (s *MemoryStore) Events(_ context.Context, sessionID string, fromVersion int) ([]StoredEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []StoredEvent
	for _, ev := range s.events[sessionID] {
		if ev.Version >= fromVersion {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (s *MemoryStore) LatestVersion(_ context.Context, sessionID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	events := s.events[sessionID]
	if len(events) == 0 {
		return 0, nil
	}
	return events[len(events)-1].Version, nil
}
