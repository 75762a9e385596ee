package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore persists run state in Redis. Suitable for distributed
// deployments where several nodes need access to the same snapshots. State
// lives under <prefix>run:<id>; a sorted set scored by save time backs List
// and Cleanup.
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(cfg RedisStoreConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "crewflow:"
	}
	return &RedisStore{client: client, keyPrefix: prefix}, nil
}

func (s *RedisStore) runKey(runID string) string {
	return s.keyPrefix + "run:" + runID
}

func (s *RedisStore) indexKey() string {
	return s.keyPrefix + "runs"
}

// Save implements SnapshotStore.
func (s *RedisStore) Save(ctx context.Context, state *RunState) error {
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

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.runKey(cp.RunID), data, 0)
	pipe.ZAdd(ctx, s.indexKey(), redis.Z{
		Score:  float64(cp.SavedAt.UnixNano()),
		Member: cp.RunID,
	})
	_, err = pipe.Exec(ctx)
	return err
}

// Load implements SnapshotStore.
func (s *RedisStore) Load(ctx context.Context, runID string) (*RunState, error) {
	data, err := s.client.Get(ctx, s.runKey(runID)).Bytes()
	if err == redis.Nil {
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
func (s *RedisStore) List(ctx context.Context) ([]string, error) {
	ids, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(ids)
	return ids, nil
}

// Delete implements SnapshotStore.
func (s *RedisStore) Delete(ctx context.Context, runID string) error {
	pipe := s.client.Pipeline()
	pipe.Del(ctx, s.runKey(runID))
	pipe.ZRem(ctx, s.indexKey(), runID)
	_, err := pipe.Exec(ctx)
	return err
}

// Cleanup implements SnapshotStore.
func (s *RedisStore) Cleanup(ctx context.Context, retention time.Duration) (int, error) {
	cutoff := time.Now().Add(-retention).UnixNano()
	max := strconv.FormatInt(cutoff, 10)

	stale, err := s.client.ZRangeByScore(ctx, s.indexKey(), &redis.ZRangeBy{
		Min: "-inf",
		Max: "(" + max,
	}).Result()
	if err != nil {
		return 0, err
	}
	if len(stale) == 0 {
		return 0, nil
	}

	pipe := s.client.Pipeline()
	for _, id := range stale {
		pipe.Del(ctx, s.runKey(id))
		pipe.ZRem(ctx, s.indexKey(), id)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return len(stale), nil
}

// Ping implements SnapshotStore.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close implements SnapshotStore.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
