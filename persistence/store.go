package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/BaSui01/crewflow/registry"
	"github.com/BaSui01/crewflow/taskgraph"
	"github.com/BaSui01/crewflow/types"
)

// Common errors.
var (
	ErrNotFound     = errors.New("not found")
	ErrStoreClosed  = errors.New("store is closed")
	ErrInvalidInput = errors.New("invalid input")
)

// StoreType represents the type of storage backend.
type StoreType string

const (
	StoreTypeMemory StoreType = "memory"
	StoreTypeFile   StoreType = "file"
	StoreTypeRedis  StoreType = "redis"
	StoreTypeSQL    StoreType = "sql"
)

// RunState is the persisted unit: the registry catalog plus the task graph
// of one crew run. Each part carries its own schema version; Load rejects
// anything newer than the running binary supports.
type RunState struct {
	RunID    string             `json:"run_id"`
	CrewID   string             `json:"crew_id,omitempty"`
	CrewName string             `json:"crew_name,omitempty"`
	Registry registry.Snapshot  `json:"registry"`
	Graph    taskgraph.Snapshot `json:"graph"`
	SavedAt  time.Time          `json:"saved_at"`
}

// Validate gates the snapshot versions. Older versions are accepted here and
// migrated by the owning component on restore; newer versions are refused.
func (s *RunState) Validate() error {
	if s.RunID == "" {
		return ErrInvalidInput
	}
	if s.Registry.Version > registry.SnapshotVersion {
		return types.NewErrorf(types.ErrSnapshotVersionMismatch,
			"registry snapshot version %d is newer than supported version %d",
			s.Registry.Version, registry.SnapshotVersion)
	}
	if s.Graph.Version > taskgraph.StateVersion {
		return types.NewErrorf(types.ErrSnapshotVersionMismatch,
			"task graph snapshot version %d is newer than supported version %d",
			s.Graph.Version, taskgraph.StateVersion)
	}
	return nil
}

// SnapshotStore persists run state across restarts.
type SnapshotStore interface {
	// Save writes the state, overwriting any previous state for the run.
	Save(ctx context.Context, state *RunState) error

	// Load returns the state for a run, or ErrNotFound.
	Load(ctx context.Context, runID string) (*RunState, error)

	// List returns every stored run id, sorted.
	List(ctx context.Context) ([]string, error)

	// Delete removes the state for a run. Deleting a missing run is not an
	// error.
	Delete(ctx context.Context, runID string) error

	// Cleanup removes states saved longer ago than the retention window.
	// Returns how many were removed.
	Cleanup(ctx context.Context, retention time.Duration) (int, error)

	// Ping checks whether the store is healthy.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// RedisStoreConfig contains Redis-specific configuration.
type RedisStoreConfig struct {
	Addr      string `json:"addr" yaml:"addr"`
	Password  string `json:"password" yaml:"password"`
	DB        int    `json:"db" yaml:"db"`
	PoolSize  int    `json:"pool_size" yaml:"pool_size"`
	KeyPrefix string `json:"key_prefix" yaml:"key_prefix"`
}

// SQLStoreConfig contains SQL-specific configuration.
type SQLStoreConfig struct {
	// Driver selects the dialector: "sqlite" or "postgres".
	Driver string `json:"driver" yaml:"driver"`
	// DSN is the connection string (a file path for sqlite).
	DSN string `json:"dsn" yaml:"dsn"`
}

// StoreConfig configures the snapshot store factory.
type StoreConfig struct {
	Type    StoreType        `json:"type" yaml:"type"`
	BaseDir string           `json:"base_dir" yaml:"base_dir"`
	Redis   RedisStoreConfig `json:"redis" yaml:"redis"`
	SQL     SQLStoreConfig   `json:"sql" yaml:"sql"`

	// ArchiveAfter is the retention window applied by Cleanup callers.
	ArchiveAfter time.Duration `json:"archive_after" yaml:"archive_after"`
}

// DefaultStoreConfig returns the default store configuration.
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		Type:    StoreTypeMemory,
		BaseDir: "./data/snapshots",
		Redis: RedisStoreConfig{
			Addr:      "localhost:6379",
			PoolSize:  10,
			KeyPrefix: "crewflow:",
		},
		SQL: SQLStoreConfig{
			Driver: "sqlite",
			DSN:    "./data/crewflow.db",
		},
		ArchiveAfter: 60 * time.Minute,
	}
}
