package memory

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/aretw0/tendril/pkg/domain"
)

// Store implements ports.RunStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]*domain.Run
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]*domain.Run),
	}
}

// Save keeps a deep copy of run.
func (s *Store) Save(ctx context.Context, run *domain.Run) error {
	copied := run.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[run.ID] = copied
	return nil
}

// Load retrieves a copy of the run so callers can't mutate the stored record.
func (s *Store) Load(ctx context.Context, runID string) (*domain.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.data[runID]
	if !ok {
		return nil, domain.ErrRunNotFound
	}
	return run.Clone(), nil
}

// Delete removes the run.
func (s *Store) Delete(ctx context.Context, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, runID)
	return nil
}

// List returns copies of all runs, oldest first. Ties are broken by ID.
func (s *Store) List(ctx context.Context) ([]*domain.Run, error) {
	s.mu.RLock()
	runs := make([]*domain.Run, 0, len(s.data))
	for _, run := range s.data {
		runs = append(runs, run.Clone())
	}
	s.mu.RUnlock()

	slices.SortFunc(runs, func(a, b *domain.Run) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return runs, nil
}
