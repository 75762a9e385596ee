package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// runStateRecord is the gorm row backing one run snapshot. The state itself
// is an opaque JSON blob; only the lookup columns are relational.
type runStateRecord struct {
	RunID    string    `gorm:"primaryKey;column:run_id"`
	CrewID   string    `gorm:"index;column:crew_id"`
	CrewName string    `gorm:"column:crew_name"`
	Data     []byte    `gorm:"column:data"`
	SavedAt  time.Time `gorm:"index;column:saved_at"`
}

func (runStateRecord) TableName() string { return "crew_run_states" }

// GormStore persists run state in a SQL database through gorm. The sqlite
// dialector is pure Go and serves tests and single-node deployments;
// postgres serves shared deployments.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the configured database and migrates the snapshot
// table.
func NewGormStore(cfg SQLStoreConfig) (*GormStore, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "sqlite", "":
		dialector = sqlite.Open(cfg.DSN)
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported sql driver: %s", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.AutoMigrate(&runStateRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate snapshot table: %w", err)
	}
	return &GormStore{db: db}, nil
}

// Save implements SnapshotStore.
func (s *GormStore) Save(ctx context.Context, state *RunState) error {
	if state == nil {
		return ErrInvalidInput
	}
	if err := state.Validate(); err != nil {
		return err
	}

	cp := *state
	if cp.SavedAt.IsZero() {
		cp.SavedAt = time.Now()
	}

	data, err := json.Marshal(&cp)
	if err != nil {
		return fmt.Errorf("failed to marshal run state: %w", err)
	}

	record := runStateRecord{
		RunID:    cp.RunID,
		CrewID:   cp.CrewID,
		CrewName: cp.CrewName,
		Data:     data,
		SavedAt:  cp.SavedAt,
	}
	return s.db.WithContext(ctx).Save(&record).Error
}

// Load implements SnapshotStore.
func (s *GormStore) Load(ctx context.Context, runID string) (*RunState, error) {
	var record runStateRecord
	err := s.db.WithContext(ctx).First(&record, "run_id = ?", runID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var state RunState
	if err := json.Unmarshal(record.Data, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run state: %w", err)
	}
	if err := state.Validate(); err != nil {
		return nil, err
	}
	return &state, nil
}

// List implements SnapshotStore.
func (s *GormStore) List(ctx context.Context) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).
		Model(&runStateRecord{}).
		Order("run_id").
		Pluck("run_id", &ids).Error
	return ids, err
}

// Delete implements SnapshotStore.
func (s *GormStore) Delete(ctx context.Context, runID string) error {
	return s.db.WithContext(ctx).Delete(&runStateRecord{}, "run_id = ?", runID).Error
}

// Cleanup implements SnapshotStore.
func (s *GormStore) Cleanup(ctx context.Context, retention time.Duration) (int, error) {
	cutoff := time.Now().Add(-retention)
	res := s.db.WithContext(ctx).Delete(&runStateRecord{}, "saved_at < ?", cutoff)
	return int(res.RowsAffected), res.Error
}

// Ping implements SnapshotStore.
func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close implements SnapshotStore.
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
