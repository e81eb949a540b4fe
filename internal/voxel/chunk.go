// Package voxel implements the Voxel Grid: a fixed 3-D grid of dense
// 16x16x16 density chunks, world<->voxel-space transforms, terraforming,
// and the modification-history bookkeeping snapshot dispatch needs.
package voxel

import (
	"sync"

	"github.com/annel0/mmo-game/internal/mathx"
)

// ChunkEdge is the fixed edge length of a chunk (16^3 dense voxels).
const ChunkEdge = 16

// ChunkCoord identifies a chunk by its integer grid coordinate.
type ChunkCoord struct {
	X, Y, Z int32
}

func localIndex(x, y, z int) int {
	return x*ChunkEdge*ChunkEdge + y*ChunkEdge + z
}

// Chunk holds one 16x16x16 dense block of voxel density plus the
// modification bookkeeping the Network Core needs to build voxel deltas.
type Chunk struct {
	Coord ChunkCoord

	mu sync.RWMutex

	density [ChunkEdge * ChunkEdge * ChunkEdge]uint8

	// modList is the ordered, unique set of voxel indices written since
	// the last close of the interval. history holds the pre-modification
	// value captured the first time an index is written in the interval.
	modList []int
	history map[int]uint8

	DirtyMesh   bool
	DirtyForGPU bool

	// Mesh caches the last extracted vertex buffer; invalidated whenever
	// DirtyMesh is set.
	Mesh []MeshTriangle
}

// MeshTriangle is a chunk-local extracted triangle (voxel-cell offset
// included, per spec.md §4.2).
type MeshTriangle struct {
	A, B, C mathx.Vec3
}

// NewChunk allocates a chunk with all-air density.
func NewChunk(coord ChunkCoord) *Chunk {
	return &Chunk{
		Coord:   coord,
		history: make(map[int]uint8),
	}
}

// At returns the density at chunk-local coordinates.
func (c *Chunk) At(x, y, z int) uint8 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.density[localIndex(x, y, z)]
}

// set writes a voxel and records history/modification bookkeeping. Caller
// holds no lock; set acquires its own.
func (c *Chunk) set(x, y, z int, value uint8) {
	idx := localIndex(x, y, z)

	c.mu.Lock()
	defer c.mu.Unlock()

	prev := c.density[idx]
	if prev == value {
		return
	}

	pre, tracked := c.history[idx]
	if !tracked {
		pre = prev
		c.history[idx] = pre
		c.modList = append(c.modList, idx)
	}

	c.density[idx] = value
	c.DirtyMesh = true
	c.DirtyForGPU = true

	// A write that returns the voxel to its pre-interval value is not a
	// net modification: drop it from the tracked set so the invariant
	// "modification list contains v iff C.V[v] differs from the history
	// pre-image" holds after any sequence of writes.
	if value == pre {
		delete(c.history, idx)
		for i, m := range c.modList {
			if m == idx {
				c.modList = append(c.modList[:i], c.modList[i+1:]...)
				break
			}
		}
	}
}

// VoxelChange is one entry of a chunk's modification list since the last
// CloseInterval: the voxel index and local coordinates with its pre- and
// post-values.
type VoxelChange struct {
	Index      int
	X, Y, Z    int
	Prev, Next uint8
}

func unindex(idx int) (int, int, int) {
	x := idx / (ChunkEdge * ChunkEdge)
	rem := idx % (ChunkEdge * ChunkEdge)
	y := rem / ChunkEdge
	z := rem % ChunkEdge
	return x, y, z
}

// Changes returns the modification list as (prev,next) pairs, drawn from
// history plus current state, per spec.md §4.6's snapshot voxel-delta
// construction.
func (c *Chunk) Changes() []VoxelChange {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]VoxelChange, 0, len(c.modList))
	for _, idx := range c.modList {
		x, y, z := unindex(idx)
		out = append(out, VoxelChange{
			Index: idx, X: x, Y: y, Z: z,
			Prev: c.history[idx],
			Next: c.density[idx],
		})
	}
	return out
}

// HasChanges reports whether the chunk has a non-empty modification list.
func (c *Chunk) HasChanges() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.modList) > 0
}

// CloseInterval clears modification list, history and dirty-for-gpu after
// the caller has serialized them into a snapshot.
func (c *Chunk) CloseInterval() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.modList = nil
	c.history = make(map[int]uint8)
	c.DirtyForGPU = false
}

// Snapshot copies the full dense density array (used for
// CHUNK_VOXELS_HARD_UPDATE on join).
func (c *Chunk) Snapshot() [ChunkEdge * ChunkEdge * ChunkEdge]uint8 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.density
}

// LoadSnapshot replaces the entire density array (client-side hard update
// application), bypassing the modification-history bookkeeping since it is
// a full replacement, not an incremental edit.
func (c *Chunk) LoadSnapshot(density [ChunkEdge * ChunkEdge * ChunkEdge]uint8) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.density = density
	c.DirtyMesh = true
}
