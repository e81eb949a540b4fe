package network

import (
	"context"
	"encoding/json"

	"github.com/annel0/mmo-game/internal/cache"
	"github.com/annel0/mmo-game/internal/logging"
	"github.com/annel0/mmo-game/internal/protocol"
)

// chunkHardUpdateCacheKey caches the full-grid hard-update entries built on
// join; invalidated whenever any chunk goes dirty (see publishDirtyChunks).
const chunkHardUpdateCacheKey = "grid:hardupdate"

// SetChunkCache wires an optional Hot Cache in front of the join-time
// full-grid snapshot walk (internal/voxel.Grid.AllChunks + per-chunk
// Snapshot); nil disables it and every join rebuilds the entries directly.
func (s *Server) SetChunkCache(repo cache.CacheRepo) { s.chunkCache = repo }

// cachedHardUpdateEntries returns the cached full-grid entries if present,
// otherwise rebuilds them from the grid and populates the cache.
func (s *Server) cachedHardUpdateEntries() []protocol.ChunkHardUpdateEntry {
	if s.chunkCache == nil {
		return s.buildHardUpdateEntries()
	}

	ctx := context.Background()
	if raw, err := s.chunkCache.Get(ctx, chunkHardUpdateCacheKey); err == nil {
		if entries, ok := s.decodeHardUpdateBlob(raw); ok {
			return entries
		}
	}

	entries := s.buildHardUpdateEntries()
	if raw, err := json.Marshal(entries); err == nil {
		blob := raw
		if s.compressor != nil {
			blob = s.compressor.Compress(raw)
		}
		if err := s.chunkCache.Set(ctx, chunkHardUpdateCacheKey, blob, 0); err != nil {
			logging.LogWarn("network: failed to populate chunk hard-update cache: %v", err)
		}
	}
	return entries
}

// decodeHardUpdateBlob reverses the (optional compress +) JSON-marshal
// done when populating the cache; ok is false on any decode failure, so
// the caller falls back to rebuilding from the grid.
func (s *Server) decodeHardUpdateBlob(raw []byte) ([]protocol.ChunkHardUpdateEntry, bool) {
	if s.compressor != nil {
		if plain, err := s.compressor.Decompress(raw); err == nil {
			raw = plain
		}
	}
	var entries []protocol.ChunkHardUpdateEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, false
	}
	return entries, true
}

func (s *Server) buildHardUpdateEntries() []protocol.ChunkHardUpdateEntry {
	chunks := s.grid.AllChunks()
	entries := make([]protocol.ChunkHardUpdateEntry, 0, len(chunks))
	for _, c := range chunks {
		entries = append(entries, protocol.ChunkHardUpdateEntry{
			Coord:   protocol.ChunkCoord{X: c.Coord.X, Y: c.Coord.Y, Z: c.Coord.Z},
			Density: c.Snapshot(),
		})
	}
	return entries
}

// invalidateChunkCache drops the cached full-grid snapshot; called once per
// dispatch interval whenever any chunk was touched.
func (s *Server) invalidateChunkCache() {
	if s.chunkCache == nil {
		return
	}
	if err := s.chunkCache.Invalidate(context.Background(), chunkHardUpdateCacheKey); err != nil {
		logging.LogWarn("network: chunk cache invalidation failed: %v", err)
	}
}
