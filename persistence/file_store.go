package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// FileStore persists run state as one JSON file per run. Suitable for
// single-node deployments. Writes are atomic: temp file then rename.
type FileStore struct {
	baseDir string
	mu      sync.Mutex
	closed  bool
}

// NewFileStore creates a file-backed snapshot store rooted at baseDir.
func NewFileStore(baseDir string) (*FileStore, error) {
	dir := filepath.Join(baseDir, "runs")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	return &FileStore{baseDir: dir}, nil
}

func (s *FileStore) path(runID string) string {
	return filepath.Join(s.baseDir, runID+".json")
}

// Save implements SnapshotStore.
func (s *FileStore) Save(_ context.Context, state *RunState) error {
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

	data, err := json.MarshalIndent(&cp, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal run state: %w", err)
	}

	path := s.path(cp.RunID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Load implements SnapshotStore.
func (s *FileStore) Load(_ context.Context, runID string) (*RunState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrStoreClosed
	}

	data, err := os.ReadFile(s.path(runID))
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var state RunState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run state: %w", err)
	}
	if err := state.Validate(); err != nil {
		return nil, err
	}
	return &state, nil
}

// List implements SnapshotStore.
func (s *FileStore) List(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrStoreClosed
	}

	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, err
	}

	var ids []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".json"))
	}
	sort.Strings(ids)
	return ids, nil
}

// Delete implements SnapshotStore.
func (s *FileStore) Delete(_ context.Context, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}

	err := os.Remove(s.path(runID))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Cleanup implements SnapshotStore.
func (s *FileStore) Cleanup(ctx context.Context, retention time.Duration) (int, error) {
	ids, err := s.List(ctx)
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().Add(-retention)
	removed := 0
	for _, id := range ids {
		state, err := s.Load(ctx, id)
		if err != nil {
			continue
		}
		if state.SavedAt.Before(cutoff) {
			if err := s.Delete(ctx, id); err == nil {
				removed++
			}
		}
	}
	return removed, nil
}

// Ping implements SnapshotStore.
func (s *FileStore) Ping(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	_, err := os.Stat(s.baseDir)
	return err
}

// Close implements SnapshotStore.
func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
