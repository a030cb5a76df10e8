package rulestore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/opensource-finance/claimdesk/internal/domain"
	"github.com/opensource-finance/claimdesk/internal/metrics"
)

const snapshotCacheKey = "rulestore:snapshot"

// Source is the persistence the loader reads from.
type Source interface {
	LoadRuleTables(ctx context.Context) (*domain.RuleTables, error)
	RuleTablesVersion(ctx context.Context) (string, error)
	HasPhoto(ctx context.Context, claimID string) (bool, error)
}

// cachedSnapshot is the cache entry. Version is the source version read
// before the tables were loaded.
type cachedSnapshot struct {
	Version string             `json:"version"`
	Tables  *domain.RuleTables `json:"tables"`
}

// Loader hands out rule snapshots, caching the table read between evaluations.
// A cached snapshot is served only while the source version is unchanged, so
// edits made by another process are picked up on the next evaluation.
type Loader struct {
	source Source
	cache  domain.Cache
	ttl    time.Duration
}

// NewLoader creates a loader. A nil cache disables snapshot caching.
func NewLoader(source Source, cache domain.Cache, ttl time.Duration) *Loader {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Loader{source: source, cache: cache, ttl: ttl}
}

// Snapshot returns the current rule tables as one consistent snapshot.
func (l *Loader) Snapshot(ctx context.Context) (*Snapshot, error) {
	if l.cache == nil {
		tables, err := l.source.LoadRuleTables(ctx)
		if err != nil {
			return nil, fmt.Errorf("load rule tables: %w", err)
		}
		return NewSnapshot(tables), nil
	}

	version, err := l.source.RuleTablesVersion(ctx)
	if err != nil {
		return nil, fmt.Errorf("read rule tables version: %w", err)
	}
	if entry := l.cached(ctx); entry != nil && entry.Version == version {
		metrics.SnapshotCacheHitsTotal.Inc()
		return NewSnapshot(entry.Tables), nil
	}
	metrics.SnapshotCacheMissesTotal.Inc()

	tables, err := l.source.LoadRuleTables(ctx)
	if err != nil {
		return nil, fmt.Errorf("load rule tables: %w", err)
	}

	if data, err := json.Marshal(cachedSnapshot{Version: version, Tables: tables}); err == nil {
		if err := l.cache.Set(ctx, snapshotCacheKey, data, l.ttl); err != nil {
			slog.Warn("failed to cache rule snapshot", "error", err)
		}
	}
	return NewSnapshot(tables), nil
}

// ForClaim returns a snapshot bound to the claim's persisted photo state.
// An empty claim id yields a view where no claim has photos.
func (l *Loader) ForClaim(ctx context.Context, claimID string) (domain.RuleStore, error) {
	snap, err := l.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	if claimID == "" {
		return snap, nil
	}

	has, err := l.source.HasPhoto(ctx, claimID)
	if err != nil {
		return nil, fmt.Errorf("check photos for %s: %w", claimID, err)
	}
	return snap.ForClaim(claimID, has), nil
}

// Invalidate drops the cached snapshot so the next evaluation rereads the tables.
func (l *Loader) Invalidate(ctx context.Context) {
	if l.cache == nil {
		return
	}
	if err := l.cache.Delete(ctx, snapshotCacheKey); err != nil {
		slog.Warn("failed to invalidate rule snapshot", "error", err)
	}
}

func (l *Loader) cached(ctx context.Context) *cachedSnapshot {
	data, err := l.cache.Get(ctx, snapshotCacheKey)
	if err != nil {
		slog.Warn("rule snapshot cache read failed", "error", err)
		return nil
	}
	if data == nil {
		return nil
	}

	var entry cachedSnapshot
	if err := json.Unmarshal(data, &entry); err != nil || entry.Tables == nil {
		slog.Warn("discarding unreadable rule snapshot", "error", err)
		return nil
	}
	return &entry
}
