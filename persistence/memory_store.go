package persistence

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory SnapshotStore for development and tests.
type MemoryStore struct {
	states map[string]*RunState
	mu     sync.RWMutex
	closed bool
}

// NewMemoryStore creates an in-memory snapshot store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[string]*RunState)}
}

// Save implements SnapshotStore.
func (s *MemoryStore) Save(_ context.Context, state *RunState) error {
	if state == nil {
		return ErrInvalidInput
	}
	if err := state.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}

	cp := *state
	if cp.SavedAt.IsZero() {
		cp.SavedAt = time.Now()
	}
	s.states[cp.RunID] = &cp
	return nil
}

// Load implements SnapshotStore.
func (s *MemoryStore) Load(_ context.Context, runID string) (*RunState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStoreClosed
	}

	state, ok := s.states[runID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *state
	return &cp, nil
}

// List implements SnapshotStore.
func (s *MemoryStore) List(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStoreClosed
	}

	ids := make([]string, 0, len(s.states))
	for id := range s.states {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Delete implements SnapshotStore.
func (s *MemoryStore) Delete(_ context.Context, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	delete(s.states, runID)
	return nil
}

// Cleanup implements SnapshotStore.
func (s *MemoryStore) Cleanup(_ context.Context, retention time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrStoreClosed
	}

	cutoff := time.Now().Add(-retention)
	removed := 0
	for id, state := range s.states {
		if state.SavedAt.Before(cutoff) {
			delete(s.states, id)
			removed++
		}
	}
	return removed, nil
}

// Ping implements SnapshotStore.
func (s *MemoryStore) Ping(context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStoreClosed
	}
	return nil
}

// Close implements SnapshotStore.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
