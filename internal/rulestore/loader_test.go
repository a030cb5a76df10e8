package rulestore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/opensource-finance/claimdesk/internal/cache"
	"github.com/opensource-finance/claimdesk/internal/domain"
)

type stubSource struct {
	tables  *domain.RuleTables
	version string
	photos  map[string]bool
	loads   int
	err     error
}

func (s *stubSource) LoadRuleTables(ctx context.Context) (*domain.RuleTables, error) {
	s.loads++
	if s.err != nil {
		return nil, s.err
	}
	return s.tables, nil
}

func (s *stubSource) RuleTablesVersion(ctx context.Context) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.version, nil
}

func (s *stubSource) HasPhoto(ctx context.Context, claimID string) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	return s.photos[claimID], nil
}

func TestLoaderCachesSnapshot(t *testing.T) {
	ctx := context.Background()
	src := &stubSource{tables: testTables()}
	l := NewLoader(src, cache.NewLRUCache(10), time.Minute)

	for i := 0; i < 3; i++ {
		if _, err := l.Snapshot(ctx); err != nil {
			t.Fatalf("snapshot failed: %v", err)
		}
	}
	if src.loads != 1 {
		t.Errorf("expected 1 table load, got %d", src.loads)
	}

	l.Invalidate(ctx)
	src.tables = &domain.RuleTables{}
	snap, err := l.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot failed: %v", err)
	}
	if src.loads != 2 {
		t.Errorf("expected reload after invalidate, got %d loads", src.loads)
	}
	if _, ok := snap.FindRule("Early Claim", ""); ok {
		t.Error("expected fresh tables after invalidate")
	}
}

func TestLoaderReloadsOnVersionChange(t *testing.T) {
	ctx := context.Background()
	src := &stubSource{tables: testTables(), version: "v1"}
	l := NewLoader(src, cache.NewLRUCache(10), time.Minute)

	if _, err := l.Snapshot(ctx); err != nil {
		t.Fatalf("snapshot failed: %v", err)
	}

	// Another process edits the tables; this loader's cache is never invalidated.
	src.tables = &domain.RuleTables{}
	src.version = "v2"

	snap, err := l.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot failed: %v", err)
	}
	if src.loads != 2 {
		t.Errorf("expected reload after version change, got %d loads", src.loads)
	}
	if _, ok := snap.FindRule("Early Claim", ""); ok {
		t.Error("expected the edited tables after version change")
	}

	if _, err := l.Snapshot(ctx); err != nil {
		t.Fatalf("snapshot failed: %v", err)
	}
	if src.loads != 2 {
		t.Errorf("expected cache hit for unchanged version, got %d loads", src.loads)
	}
}

func TestLoaderWithoutCache(t *testing.T) {
	src := &stubSource{tables: testTables()}
	l := NewLoader(src, nil, 0)

	l.Snapshot(context.Background())
	l.Snapshot(context.Background())
	l.Invalidate(context.Background())

	if src.loads != 2 {
		t.Errorf("expected every call to load tables, got %d", src.loads)
	}
}

func TestLoaderForClaim(t *testing.T) {
	ctx := context.Background()
	src := &stubSource{tables: testTables(), photos: map[string]bool{"CLM-1": true}}
	l := NewLoader(src, nil, 0)

	store, err := l.ForClaim(ctx, "CLM-1")
	if err != nil {
		t.Fatalf("ForClaim failed: %v", err)
	}
	if !store.HasPhoto("CLM-1") {
		t.Error("expected CLM-1 to have photos")
	}

	store, _ = l.ForClaim(ctx, "")
	if store.HasPhoto("CLM-1") {
		t.Error("unbound view must not report photos")
	}
}

func TestLoaderError(t *testing.T) {
	src := &stubSource{err: errors.New("db down")}
	l := NewLoader(src, cache.NewLRUCache(10), time.Minute)

	if _, err := l.ForClaim(context.Background(), "CLM-1"); err == nil {
		t.Error("expected error when tables cannot be read")
	}
}
