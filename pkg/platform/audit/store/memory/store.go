package memory

import (
	"context"
	"sync"

	"vcanchor/pkg/platform/audit"
)

// Store keeps audit events in process memory. Used in dev mode and tests.
type Store struct {
	mu     sync.RWMutex
	events []audit.Event
}

func New() *Store {
	return &Store{}
}

func (s *Store) Append(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// ListByAction returns events with the given action in append order.
func (s *Store) ListByAction(_ context.Context, action audit.Action) []audit.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []audit.Event
	for _, e := range s.events {
		if e.Action == action {
			out = append(out, e)
		}
	}
	return out
}

// All returns a copy of every stored event.
func (s *Store) All() []audit.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]audit.Event, len(s.events))
	copy(out, s.events)
	return out
}
