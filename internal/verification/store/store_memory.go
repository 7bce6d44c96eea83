package store

import (
	"context"
	"sync"
	"time"

	"vcanchor/internal/verification/models"
	"vcanchor/pkg/platform/sentinel"
)

type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*models.Session
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{sessions: make(map[string]*models.Session)}
}

func (s *InMemoryStore) Create(_ context.Context, session *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[session.ID]; ok {
		return sentinel.ErrConflict
	}
	s.sessions[session.ID] = session.Clone()
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id string) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return session.Clone(), nil
}

// Update replaces the session if its Version still matches the stored one,
// then bumps session.Version. A stale write returns sentinel.ErrConflict.
func (s *InMemoryStore) Update(_ context.Context, session *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.sessions[session.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if cur.Version != session.Version {
		return sentinel.ErrConflict
	}
	next := session.Clone()
	next.Version++
	s.sessions[session.ID] = next
	session.Version = next.Version
	return nil
}

func (s *InMemoryStore) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deleted := 0
	for id, session := range s.sessions {
		if session.IsExpired(now) {
			delete(s.sessions, id)
			deleted++
		}
	}
	return deleted, nil
}
