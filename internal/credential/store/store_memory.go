package store

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"vcanchor/internal/credential/models"
	"vcanchor/pkg/platform/sentinel"
	"vcanchor/pkg/platform/tx"
)

// InMemoryStore keeps credentials in process memory. Writes made inside a
// tx.MemoryRunner unit of work register undo actions on its journal.
type InMemoryStore struct {
	mu          sync.RWMutex
	credentials map[string]*models.Credential
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{credentials: make(map[string]*models.Credential)}
}

func (s *InMemoryStore) Create(ctx context.Context, c *models.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.credentials[c.ID]; exists {
		return sentinel.ErrConflict
	}
	c.Version = 1
	s.put(ctx, c.Clone())
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id string) (*models.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.credentials[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return c.Clone(), nil
}

// Update writes c if its Version still matches the stored row.
func (s *InMemoryStore) Update(ctx context.Context, c *models.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.credentials[c.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if current.Version != c.Version {
		return sentinel.ErrConflict
	}
	c.Version++
	s.put(ctx, c.Clone())
	return nil
}

func (s *InMemoryStore) List(_ context.Context, filter models.ListFilter) ([]*models.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Credential
	for _, c := range s.credentials {
		if filter.Matches(c) {
			out = append(out, c.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		ri, rj := out[i].Anchoring.RequestedAt(), out[j].Anchoring.RequestedAt()
		if !ri.Equal(rj) {
			return ri.Before(rj)
		}
		return out[i].ID < out[j].ID
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// ClaimForMint atomically moves every eligible credential to minting under
// sel.AttemptID and returns the leased rows ordered by ID.
func (s *InMemoryStore) ClaimForMint(ctx context.Context, sel models.MintSelection) ([]*models.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	candidates := s.candidates(sel.IDs)
	var leased []*models.Credential
	for _, c := range candidates {
		if !sel.Eligible(c) {
			continue
		}
		next, err := c.Anchoring.BeginMint(sel.AttemptID, sel.LeasedAt)
		if err != nil {
			continue
		}
		updated := c.Clone()
		updated.Anchoring = next
		updated.Version++
		s.put(ctx, updated)
		leased = append(leased, updated.Clone())
	}
	sort.Slice(leased, func(i, j int) bool { return leased[i].ID < leased[j].ID })
	return leased, nil
}

func (s *InMemoryStore) candidates(ids []string) []*models.Credential {
	if len(ids) == 0 {
		out := make([]*models.Credential, 0, len(s.credentials))
		for _, c := range s.credentials {
			out = append(out, c)
		}
		return out
	}
	out := make([]*models.Credential, 0, len(ids))
	for _, id := range slices.Compact(slices.Sorted(slices.Values(ids))) {
		if c, ok := s.credentials[id]; ok {
			out = append(out, c)
		}
	}
	return out
}

// ReleaseMint returns every credential leased to attemptID to approved.
func (s *InMemoryStore) ReleaseMint(ctx context.Context, attemptID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	released := 0
	for _, c := range s.credentials {
		if c.Anchoring.Status() != models.StatusMinting || c.Anchoring.MintAttemptID() != attemptID {
			continue
		}
		next, err := c.Anchoring.ReleaseMint()
		if err != nil {
			return released, err
		}
		updated := c.Clone()
		updated.Anchoring = next
		updated.Version++
		s.put(ctx, updated)
		released++
	}
	return released, nil
}

// MarkAnchored flips every credential leased to attemptID to anchored with batchID.
func (s *InMemoryStore) MarkAnchored(ctx context.Context, attemptID, batchID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	anchored := 0
	for _, c := range s.credentials {
		if c.Anchoring.Status() != models.StatusMinting || c.Anchoring.MintAttemptID() != attemptID {
			continue
		}
		next, err := c.Anchoring.Anchor(attemptID, batchID)
		if err != nil {
			return anchored, err
		}
		updated := c.Clone()
		updated.Anchoring = next
		updated.Version++
		s.put(ctx, updated)
		anchored++
	}
	return anchored, nil
}

// ReleaseStaleMints returns leases taken before cutoff to approved and
// reports the affected credential IDs.
func (s *InMemoryStore) ReleaseStaleMints(ctx context.Context, cutoff time.Time) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for _, c := range s.credentials {
		if c.Anchoring.Status() != models.StatusMinting || !c.Anchoring.LeasedAt().Before(cutoff) {
			continue
		}
		next, err := c.Anchoring.ReleaseMint()
		if err != nil {
			return ids, err
		}
		updated := c.Clone()
		updated.Anchoring = next
		updated.Version++
		s.put(ctx, updated)
		ids = append(ids, c.ID)
	}
	sort.Strings(ids)
	return ids, nil
}

// MarkClaimed sets claimed_at once; a second call returns sentinel.ErrAlreadyUsed.
func (s *InMemoryStore) MarkClaimed(ctx context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.credentials[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	updated := c.Clone()
	if err := updated.MarkClaimed(at); err != nil {
		return sentinel.ErrAlreadyUsed
	}
	updated.Version++
	s.put(ctx, updated)
	return nil
}

// Revoke sets revoked_at if it is not already set.
func (s *InMemoryStore) Revoke(ctx context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.credentials[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	if c.RevokedAt != nil {
		return nil
	}
	updated := c.Clone()
	t := at.UTC()
	updated.RevokedAt = &t
	updated.Version++
	s.put(ctx, updated)
	return nil
}

// put stores next and, inside a unit of work, journals the previous row.
// Callers hold s.mu.
func (s *InMemoryStore) put(ctx context.Context, next *models.Credential) {
	prev := s.credentials[next.ID]
	s.credentials[next.ID] = next
	tx.RecordUndo(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if prev == nil {
			delete(s.credentials, next.ID)
			return
		}
		s.credentials[next.ID] = prev
	})
}
