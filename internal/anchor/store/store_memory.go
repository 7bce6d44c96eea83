package store

import (
	"context"
	"sort"
	"sync"

	"vcanchor/internal/anchor/models"
	"vcanchor/pkg/platform/sentinel"
	"vcanchor/pkg/platform/tx"
)

// InMemoryStore keeps anchor batches in process memory. Create registers an
// undo action when called inside a tx.MemoryRunner unit of work.
type InMemoryStore struct {
	mu      sync.RWMutex
	batches map[string]*models.AnchorBatch
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		batches: make(map[string]*models.AnchorBatch),
	}
}

func (s *InMemoryStore) Create(ctx context.Context, b *models.AnchorBatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.batches[b.ID]; exists {
		return sentinel.ErrConflict
	}
	stored := cloneBatch(b)
	s.batches[b.ID] = stored
	tx.RecordUndo(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.batches, b.ID)
	})
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id string) (*models.AnchorBatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.batches[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneBatch(b), nil
}


// List returns batches newest first.
func (s *InMemoryStore) List(_ context.Context, filter models.BatchFilter) ([]*models.AnchorBatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.AnchorBatch, 0, len(s.batches))
	for _, b := range s.batches {
		if filter.ChainID != "" && b.ChainID != filter.ChainID {
			continue
		}
		out = append(out, cloneBatch(b))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].AnchoredAt.Equal(out[j].AnchoredAt) {
			return out[i].AnchoredAt.After(out[j].AnchoredAt)
		}
		return out[i].ID > out[j].ID
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func cloneBatch(b *models.AnchorBatch) *models.AnchorBatch {
	c := *b
	c.Members = append([]models.Member(nil), b.Members...)
	return &c
}
