// Package cache provides the caches behind rule table snapshots: an in-process
// LRU, Redis, and a two-phase combination of both.
package cache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/opensource-finance/claimdesk/internal/metrics"
)

const defaultCapacity = 1000

// Stats is a point-in-time view of an LRUCache.
type Stats struct {
	Entries   int
	Capacity  int
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

// LRUCache is a bounded in-process cache with per-entry expiry.
// It is the community tier cache and L1 of TwoPhaseCache.
type LRUCache struct {
	mu         sync.Mutex
	capacity   int
	defaultTTL time.Duration
	entries    map[string]*list.Element
	recency    *list.List
	now        func() time.Time
	stats      Stats
}

type lruEntry struct {
	key       string
	value     []byte
	expiresAt time.Time // zero means no expiry
}

// NewLRUCache creates an LRU cache holding at most capacity entries.
// Entries set with a non-positive TTL never expire.
func NewLRUCache(capacity int) *LRUCache {
	return NewLRUCacheWithTTL(capacity, 0)
}

// NewLRUCacheWithTTL is NewLRUCache with a fallback TTL for Set calls
// that pass a non-positive TTL.
func NewLRUCacheWithTTL(capacity int, defaultTTL time.Duration) *LRUCache {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &LRUCache{
		capacity:   capacity,
		defaultTTL: defaultTTL,
		entries:    make(map[string]*list.Element),
		recency:    list.New(),
		now:        time.Now,
	}
}

// Get returns the value for key, or nil on a miss or an expired entry.
func (c *LRUCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if ok && c.expired(elem.Value.(*lruEntry)) {
		c.remove(elem)
		ok = false
	}
	if !ok {
		c.stats.Misses++
		metrics.CacheRequestsTotal.WithLabelValues("lru", "miss").Inc()
		return nil, nil
	}

	c.recency.MoveToFront(elem)
	c.stats.Hits++
	metrics.CacheRequestsTotal.WithLabelValues("lru", "hit").Inc()
	return elem.Value.(*lruEntry).value, nil
}

// Set stores value under key, evicting the least recently used entries
// when the cache is full.
func (c *LRUCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := c.expiry(ttl)
	if elem, ok := c.entries[key]; ok {
		entry := elem.Value.(*lruEntry)
		entry.value = value
		entry.expiresAt = expiresAt
		c.recency.MoveToFront(elem)
		return nil
	}

	c.entries[key] = c.recency.PushFront(&lruEntry{key: key, value: value, expiresAt: expiresAt})
	for c.recency.Len() > c.capacity {
		c.remove(c.recency.Back())
		c.stats.Evictions++
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (c *LRUCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[key]; ok {
		c.remove(elem)
	}
	return nil
}

// Ping always succeeds.
func (c *LRUCache) Ping(ctx context.Context) error {
	return nil
}

// Close drops every entry.
func (c *LRUCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*list.Element)
	c.recency.Init()
	return nil
}

// Stats returns the current entry count, capacity and counters.
func (c *LRUCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.Entries = c.recency.Len()
	s.Capacity = c.capacity
	return s
}

func (c *LRUCache) expiry(ttl time.Duration) time.Time {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	if ttl <= 0 {
		return time.Time{}
	}
	return c.now().Add(ttl)
}

func (c *LRUCache) expired(e *lruEntry) bool {
	return !e.expiresAt.IsZero() && !c.now().Before(e.expiresAt)
}

func (c *LRUCache) remove(elem *list.Element) {
	c.recency.Remove(elem)
	delete(c.entries, elem.Value.(*lruEntry).key)
}
