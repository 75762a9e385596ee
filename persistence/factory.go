package persistence

import (
	"fmt"
)

// NewSnapshotStore creates a SnapshotStore for the configured backend.
func NewSnapshotStore(cfg StoreConfig) (SnapshotStore, error) {
	switch cfg.Type {
	case StoreTypeMemory, "":
		return NewMemoryStore(), nil
	case StoreTypeFile:
		return NewFileStore(cfg.BaseDir)
	case StoreTypeRedis:
		return NewRedisStore(cfg.Redis)
	case StoreTypeSQL:
		return NewGormStore(cfg.SQL)
	default:
		return nil, fmt.Errorf("unsupported snapshot store type: %s", cfg.Type)
	}
}
