package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/opensource-finance/claimdesk/internal/domain"
)

const defaultL1TTL = 5 * time.Second

// New builds the cache selected by cfg.Type:
// "memory" is an LRU, "redis" is Redis alone or, with EnableTwoPhase,
// an LRU in front of Redis.
func New(cfg domain.CacheConfig) (domain.Cache, error) {
	switch cfg.Type {
	case "memory", "":
		return NewLRUCacheWithTTL(cfg.LocalMaxSize, cfg.LocalTTL), nil
	case "redis":
		if cfg.EnableTwoPhase {
			return NewTwoPhaseCache(cfg)
		}
		return NewRedisCache(cfg)
	default:
		return nil, fmt.Errorf("unsupported cache type: %s", cfg.Type)
	}
}

// TwoPhaseCache reads through a short-lived local LRU (L1) to Redis (L2).
//
// Replicas share L2, so a master data write on one replica reaches the others
// within the L1 TTL. An L2 outage degrades to L1 only: Get and Set log Redis
// errors instead of returning them, and callers fall back to the database on
// a miss. Delete still reports L2 errors since a failed invalidation leaves
// other replicas serving stale rule tables.
type TwoPhaseCache struct {
	local  *LRUCache
	remote *RedisCache
	l1TTL  time.Duration
}

// NewTwoPhaseCache connects L2 and creates L1 from cfg.
func NewTwoPhaseCache(cfg domain.CacheConfig) (*TwoPhaseCache, error) {
	remote, err := NewRedisCache(cfg)
	if err != nil {
		return nil, err
	}

	l1TTL := cfg.LocalTTL
	if l1TTL <= 0 {
		l1TTL = defaultL1TTL
	}

	return &TwoPhaseCache{
		local:  NewLRUCache(cfg.LocalMaxSize),
		remote: remote,
		l1TTL:  l1TTL,
	}, nil
}

// Get checks L1, then L2, copying L2 hits into L1.
func (c *TwoPhaseCache) Get(ctx context.Context, key string) ([]byte, error) {
	if val, _ := c.local.Get(ctx, key); val != nil {
		return val, nil
	}

	val, err := c.remote.Get(ctx, key)
	if err != nil {
		slog.Warn("L2 cache read failed", "key", key, "error", err)
		return nil, nil
	}
	if val != nil {
		_ = c.local.Set(ctx, key, val, c.l1TTL)
	}
	return val, nil
}

// Set writes L1 with at most the L1 TTL and L2 with ttl.
func (c *TwoPhaseCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	l1TTL := c.l1TTL
	if ttl > 0 && ttl < l1TTL {
		l1TTL = ttl
	}
	_ = c.local.Set(ctx, key, value, l1TTL)

	if err := c.remote.Set(ctx, key, value, ttl); err != nil {
		slog.Warn("L2 cache write failed", "key", key, "error", err)
	}
	return nil
}

// Delete removes key from both layers. L1 is always cleared.
func (c *TwoPhaseCache) Delete(ctx context.Context, key string) error {
	_ = c.local.Delete(ctx, key)
	if err := c.remote.Delete(ctx, key); err != nil {
		return fmt.Errorf("L2 delete of %s failed: %w", key, err)
	}
	return nil
}

// Ping reports L2 health; L1 cannot fail.
func (c *TwoPhaseCache) Ping(ctx context.Context) error {
	if err := c.remote.Ping(ctx); err != nil {
		return fmt.Errorf("L2 ping failed: %w", err)
	}
	return nil
}

// Close closes both layers.
func (c *TwoPhaseCache) Close() error {
	return errors.Join(c.local.Close(), c.remote.Close())
}

// Stats returns L1 statistics.
func (c *TwoPhaseCache) Stats() Stats {
	return c.local.Stats()
}
