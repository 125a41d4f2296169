package repository

import (
	"context"
	"fmt"
	"sync"

	"NTIWatch/internal/domain/models"
	domrepo "NTIWatch/internal/domain/repository"
)

var (
	_ domrepo.StateStore = (*MemoryStateStore)(nil)
	_ domrepo.RunIDStore = (*MemoryStateStore)(nil)
)

// MemoryStateStore is a process-local StateStore for single-node runs and
// tests. State is lost on restart.
type MemoryStateStore struct {
	mu     sync.Mutex
	states map[string]models.PersistenceState
	runIDs map[string]string
}

func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{
		states: make(map[string]models.PersistenceState),
		runIDs: make(map[string]string),
	}
}

func (s *MemoryStateStore) Read(_ context.Context, key string) (models.PersistenceState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.states[key], nil
}

func (s *MemoryStateStore) Write(_ context.Context, key string, st models.PersistenceState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st.Version++
	s.states[key] = st
	return nil
}

func (s *MemoryStateStore) CompareAndSwap(_ context.Context, key string, expected int64, next models.PersistenceState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur := s.states[key].Version; cur != expected {
		return fmt.Errorf("%w: %s at version %d, stored %d", domrepo.ErrStateConflict, key, expected, cur)
	}
	next.Version = expected + 1
	s.states[key] = next
	return nil
}

func (s *MemoryStateStore) SaveLastRunID(_ context.Context, key, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runIDs[key] = runID
	return nil
}

func (s *MemoryStateStore) LastRunID(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runIDs[key], nil
}
