package domain

import (
	"context"
	"time"
)

// Cache stores encoded rule table snapshots so evaluations do not read the
// four master tables on every request.
type Cache interface {
	// Get returns nil, nil on a miss.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value for ttl. A non-positive ttl means the backend default.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete invalidates key. Master data writes call it so the next
	// evaluation reloads the tables.
	Delete(ctx context.Context, key string) error

	Ping(ctx context.Context) error
	Close() error
}

// CacheConfig selects and tunes the snapshot cache.
type CacheConfig struct {
	// Type is "memory" (community) or "redis" (pro).
	Type string `mapstructure:"type"`

	// LocalMaxSize bounds the in-process LRU. LocalTTL is its default entry
	// lifetime, and the L1 lifetime when two-phase caching is on.
	LocalMaxSize int           `mapstructure:"local_max_size"`
	LocalTTL     time.Duration `mapstructure:"local_ttl"`

	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`

	// EnableTwoPhase puts a local LRU in front of Redis.
	EnableTwoPhase bool `mapstructure:"enable_two_phase"`

	// SnapshotTTL bounds how long a rule table snapshot is served from cache.
	SnapshotTTL time.Duration `mapstructure:"snapshot_ttl"`
}
