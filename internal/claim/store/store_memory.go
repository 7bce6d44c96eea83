package store

import (
	"context"
	"sync"
	"time"

	"vcanchor/internal/claim/models"
	"vcanchor/pkg/platform/sentinel"
)

// InMemoryStore keeps tickets in maps guarded by one RWMutex.
type InMemoryStore struct {
	mu           sync.RWMutex
	tickets      map[string]*models.Ticket
	byCredential map[string]string
	byToken      map[string]string
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		tickets:      make(map[string]*models.Ticket),
		byCredential: make(map[string]string),
		byToken:      make(map[string]string),
	}
}

// Create stores t. With exclusive set it fails with sentinel.ErrConflict
// while another active ticket exists for the same credential.
func (s *InMemoryStore) Create(_ context.Context, t *models.Ticket, exclusive bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.tickets[t.ID]; exists {
		return sentinel.ErrConflict
	}
	if exclusive {
		if cur, ok := s.tickets[s.byCredential[t.CredentialID]]; ok && cur.IsActive(t.CreatedAt) {
			return sentinel.ErrConflict
		}
	}
	s.tickets[t.ID] = t.Clone()
	s.byCredential[t.CredentialID] = t.ID
	s.byToken[t.TokenHash] = t.ID
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id string) (*models.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tickets[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return t.Clone(), nil
}

// FindActiveByCredential returns the newest ticket for credID if it is still active at now.
func (s *InMemoryStore) FindActiveByCredential(_ context.Context, credID string, now time.Time) (*models.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tickets[s.byCredential[credID]]
	if !ok || !t.IsActive(now) {
		return nil, sentinel.ErrNotFound
	}
	return t.Clone(), nil
}

func (s *InMemoryStore) FindByTokenHash(_ context.Context, hash string) (*models.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tickets[s.byToken[hash]]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return t.Clone(), nil
}

// Consume marks the ticket used once; a second call returns sentinel.ErrAlreadyUsed.
func (s *InMemoryStore) Consume(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tickets[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	if t.IsConsumed() {
		return sentinel.ErrAlreadyUsed
	}
	next := t.Clone()
	ts := at.UTC()
	next.ConsumedAt = &ts
	s.tickets[id] = next
	return nil
}

// Reopen clears ConsumedAt. It compensates a redemption whose credential
// write failed after the ticket was consumed.
func (s *InMemoryStore) Reopen(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tickets[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	next := t.Clone()
	next.ConsumedAt = nil
	s.tickets[id] = next
	return nil
}

// DeleteExpired drops tickets whose expiry is older than the retention window.
func (s *InMemoryStore) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deleted := 0
	for id, t := range s.tickets {
		if now.Before(t.ExpiresAt.Add(retention)) {
			continue
		}
		delete(s.tickets, id)
		delete(s.byToken, t.TokenHash)
		if s.byCredential[t.CredentialID] == id {
			delete(s.byCredential, t.CredentialID)
		}
		deleted++
	}
	return deleted, nil
}
