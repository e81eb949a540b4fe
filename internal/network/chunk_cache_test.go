package network

import (
	"context"
	"time"

	"testing"

	"github.com/annel0/mmo-game/internal/cache"
)

// fakeCacheRepo is a minimal in-memory cache.CacheRepo for exercising
// chunk_cache.go without a live Redis connection.
type fakeCacheRepo struct {
	store map[string][]byte
}

func newFakeCacheRepo() *fakeCacheRepo { return &fakeCacheRepo{store: make(map[string][]byte)} }

func (f *fakeCacheRepo) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := f.store[key]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return v, nil
}
func (f *fakeCacheRepo) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	f.store[key] = value
	return nil
}
func (f *fakeCacheRepo) Delete(_ context.Context, key string) error {
	delete(f.store, key)
	return nil
}
func (f *fakeCacheRepo) Exists(_ context.Context, key string) (bool, error) {
	_, ok := f.store[key]
	return ok, nil
}
func (f *fakeCacheRepo) Invalidate(_ context.Context, key string) error {
	delete(f.store, key)
	return nil
}
func (f *fakeCacheRepo) BatchGet(_ context.Context, keys []string) (map[string][]byte, error) {
	out := make(map[string][]byte, len(keys))
	for _, k := range keys {
		if v, ok := f.store[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}
func (f *fakeCacheRepo) BatchSet(_ context.Context, items map[string][]byte, _ time.Duration) error {
	for k, v := range items {
		f.store[k] = v
	}
	return nil
}
func (f *fakeCacheRepo) Close() error                    { return nil }
func (f *fakeCacheRepo) GetMetrics() *cache.CacheMetrics { return &cache.CacheMetrics{} }

// TestCachedHardUpdateEntriesRoundTripsCompressed проверяет, что
// заполнение и чтение join-кеша через zstd-компрессор (chunkbatch.go)
// не теряет данные: второй вызов должен вернуть те же записи из кеша,
// не перестраивая их из сетки.
func TestCachedHardUpdateEntriesRoundTripsCompressed(t *testing.T) {
	s := newTestServer(t)
	s.grid.SeedDefaultTerrain()
	repo := newFakeCacheRepo()
	s.SetChunkCache(repo)

	first := s.cachedHardUpdateEntries()
	if len(first) == 0 {
		t.Fatal("expected a non-empty grid snapshot")
	}
	if _, ok := repo.store[chunkHardUpdateCacheKey]; !ok {
		t.Fatal("expected cachedHardUpdateEntries to populate the cache")
	}

	second := s.cachedHardUpdateEntries()
	if len(second) != len(first) {
		t.Fatalf("cached read returned %d entries, want %d", len(second), len(first))
	}
	for i := range first {
		if first[i].Coord != second[i].Coord || first[i].Density != second[i].Density {
			t.Fatalf("entry %d mismatch after cache round-trip: %+v vs %+v", i, first[i], second[i])
		}
	}
}
