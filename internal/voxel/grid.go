package voxel

import (
	"math"
	"sync"

	"github.com/annel0/mmo-game/internal/mathx"
)

// Grid is the fixed G x G x G grid of chunks. Chunks are allocated eagerly
// for every grid cell and live for the lifetime of the world (spec.md §3).
type Grid struct {
	Edge      int32   // G, chunk-grid edge count
	VoxelSize float32 // world units per voxel
	Threshold uint8   // iso-surface threshold S

	origin mathx.Vec3

	mu     sync.RWMutex
	chunks map[ChunkCoord]*Chunk
}

// NewGrid builds a grid of edge^3 chunks, all-air, centered on the world
// origin per spec.md §4.1: origin = -(G*16/2)*voxel_size on each axis.
func NewGrid(edge int32, voxelSize float32, threshold uint8) *Grid {
	half := float32(edge*ChunkEdge) / 2
	origin := mathx.Vec3{-half * voxelSize, -half * voxelSize, -half * voxelSize}

	g := &Grid{
		Edge:      edge,
		VoxelSize: voxelSize,
		Threshold: threshold,
		origin:    origin,
		chunks:    make(map[ChunkCoord]*Chunk, edge*edge*edge),
	}

	for x := int32(0); x < edge; x++ {
		for y := int32(0); y < edge; y++ {
			for z := int32(0); z < edge; z++ {
				coord := ChunkCoord{x, y, z}
				g.chunks[coord] = NewChunk(coord)
			}
		}
	}
	return g
}

// Origin returns the world-space position of voxel-space (0,0,0).
func (g *Grid) Origin() mathx.Vec3 { return g.origin }

// ChunkAt returns the chunk at a grid coordinate, or nil if out of range.
func (g *Grid) ChunkAt(coord ChunkCoord) *Chunk {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.chunks[coord]
}

// inBounds reports whether a chunk coordinate is inside the grid.
func (g *Grid) inBounds(coord ChunkCoord) bool {
	return coord.X >= 0 && coord.X < g.Edge &&
		coord.Y >= 0 && coord.Y < g.Edge &&
		coord.Z >= 0 && coord.Z < g.Edge
}

func floorDiv(a, b int32) int32 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func floorMod(a, b int32) int32 {
	m := a % b
	if m != 0 && ((m < 0) != (b < 0)) {
		m += b
	}
	return m
}

// splitGlobal maps a global voxel-space integer coordinate to its owning
// chunk coordinate plus chunk-local index.
func splitGlobal(g int32) (chunk int32, local int32) {
	return floorDiv(g, ChunkEdge), floorMod(g, ChunkEdge)
}

// Density implements mesh.DensitySource over global voxel-space
// coordinates, returning ok=false for voxels outside any allocated chunk
// (grid boundary or an out-of-bounds chunk index) — the "absent neighbor"
// case mesh extraction and collision must tolerate.
func (g *Grid) Density(gx, gy, gz int32) (uint8, bool) {
	cx, lx := splitGlobal(gx)
	cy, ly := splitGlobal(gy)
	cz, lz := splitGlobal(gz)
	coord := ChunkCoord{cx, cy, cz}
	if !g.inBounds(coord) {
		return 0, false
	}
	c := g.ChunkAt(coord)
	if c == nil {
		return 0, false
	}
	return c.At(int(lx), int(ly), int(lz)), true
}

// VoxelAt returns the density at a chunk + chunk-local coordinate.
func (g *Grid) VoxelAt(cx, cy, cz int32, x, y, z int) uint8 {
	c := g.ChunkAt(ChunkCoord{cx, cy, cz})
	if c == nil {
		return 0
	}
	return c.At(x, y, z)
}

// SetVoxel writes a voxel at a chunk + chunk-local coordinate, recording
// modification-history bookkeeping (spec.md §4.1).
func (g *Grid) SetVoxel(cx, cy, cz int32, x, y, z int, value uint8) {
	c := g.ChunkAt(ChunkCoord{cx, cy, cz})
	if c == nil {
		return
	}
	c.set(x, y, z, value)
}

// SetVoxelGlobal writes a voxel addressed by global voxel-space
// coordinates.
func (g *Grid) SetVoxelGlobal(gx, gy, gz int32, value uint8) {
	cx, lx := splitGlobal(gx)
	cy, ly := splitGlobal(gy)
	cz, lz := splitGlobal(gz)
	g.SetVoxel(cx, cy, cz, int(lx), int(ly), int(lz), value)
}

// WorldToVoxelSpace converts a world-space point to continuous voxel-space
// coordinates: voxel_space = (world - origin) / voxel_size.
func (g *Grid) WorldToVoxelSpace(world mathx.Vec3) mathx.Vec3 {
	return world.Sub(g.origin).Mul(1 / g.VoxelSize)
}

// VoxelSpaceToWorld is the inverse of WorldToVoxelSpace.
func (g *Grid) VoxelSpaceToWorld(vs mathx.Vec3) mathx.Vec3 {
	return g.origin.Add(vs.Mul(g.VoxelSize))
}

// ChunkOf returns the chunk containing a world-space point, or nil if the
// point falls outside the grid.
func (g *Grid) ChunkOf(world mathx.Vec3) *Chunk {
	coord, _, _, _, ok := g.VoxelCoord(world)
	if !ok {
		return nil
	}
	return g.ChunkAt(coord)
}

// VoxelCoord decomposes a world-space point into (chunk coord, local x,y,z),
// per spec.md §4.1's voxel_coord operation.
func (g *Grid) VoxelCoord(world mathx.Vec3) (coord ChunkCoord, x, y, z int, ok bool) {
	vs := g.WorldToVoxelSpace(world)
	gx := int32(math.Floor(float64(vs.X())))
	gy := int32(math.Floor(float64(vs.Y())))
	gz := int32(math.Floor(float64(vs.Z())))

	cx, lx := splitGlobal(gx)
	cy, ly := splitGlobal(gy)
	cz, lz := splitGlobal(gz)
	coord = ChunkCoord{cx, cy, cz}
	if !g.inBounds(coord) {
		return coord, 0, 0, 0, false
	}
	return coord, int(lx), int(ly), int(lz), true
}

// InWorldBounds reports whether a world point falls inside the grid's
// world-box (spec.md §3 invariant: player p always inside grid world-box).
func (g *Grid) InWorldBounds(world mathx.Vec3) bool {
	_, _, _, _, ok := g.VoxelCoord(world)
	return ok
}

// ModifiedChunks returns every chunk with a non-empty modification list,
// for snapshot-dispatch voxel-delta construction.
func (g *Grid) ModifiedChunks() []*Chunk {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]*Chunk, 0)
	for _, c := range g.chunks {
		if c.HasChanges() {
			out = append(out, c)
		}
	}
	return out
}

// CloseInterval clears the modification list/history of every chunk after
// the caller has serialized the deltas into an outgoing snapshot.
func (g *Grid) CloseInterval() {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, c := range g.chunks {
		if c.HasChanges() {
			c.CloseInterval()
		}
	}
}

// AllChunks returns every allocated chunk in the grid (used for the
// join-time CHUNK_VOXELS_HARD_UPDATE stream).
func (g *Grid) AllChunks() []*Chunk {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]*Chunk, 0, len(g.chunks))
	for _, c := range g.chunks {
		out = append(out, c)
	}
	return out
}

// ChunkCount returns G^3, the total number of chunks in the grid.
func (g *Grid) ChunkCount() int {
	return int(g.Edge) * int(g.Edge) * int(g.Edge)
}

// terraformRate is the density-units-per-second·dt tunable (spec.md §6).
const terraformRate = 700.0

// Terraform adjusts every voxel within radiusVoxels of centerVoxelSpace
// (given in continuous voxel-space coordinates) by
// ±round(proportion*700*dt), proportion = 1 - d²/r², clamped to [0,255].
func (g *Grid) Terraform(centerVoxelSpace mathx.Vec3, radiusVoxels float32, additive bool, dt float32) {
	r := int32(math.Ceil(float64(radiusVoxels)))
	radiusSq := radiusVoxels * radiusVoxels

	cx := int32(math.Round(float64(centerVoxelSpace.X())))
	cy := int32(math.Round(float64(centerVoxelSpace.Y())))
	cz := int32(math.Round(float64(centerVoxelSpace.Z())))

	for z := -r; z <= r; z++ {
		for y := -r; y <= r; y++ {
			for x := -r; x <= r; x++ {
				gx, gy, gz := cx+x, cy+y, cz+z
				dx := float32(gx) - centerVoxelSpace.X()
				dy := float32(gy) - centerVoxelSpace.Y()
				dz := float32(gz) - centerVoxelSpace.Z()
				distSq := dx*dx + dy*dy + dz*dz
				if distSq > radiusSq {
					continue
				}

				proportion := 1 - distSq/radiusSq
				delta := int(math.Round(float64(proportion) * terraformRate * float64(dt)))

				current, ok := g.Density(gx, gy, gz)
				if !ok {
					continue
				}
				var next int
				if additive {
					next = int(current) + delta
				} else {
					next = int(current) - delta
				}
				g.SetVoxelGlobal(gx, gy, gz, mathx.ClampByte(next))
			}
		}
	}
}

// RayTerraform steps along a world-space ray in voxel-space increments of
// max_range/10 and, on the first voxel whose density exceeds the grid's
// threshold, invokes Terraform(., 2, additive, dt) there and stops.
func (g *Grid) RayTerraform(worldOrigin, worldDir mathx.Vec3, maxRange, dt float32, additive bool) {
	dir := mathx.SafeNormalize(worldDir)
	step := maxRange / 10
	vsOrigin := g.WorldToVoxelSpace(worldOrigin)

	for i := float32(0); i <= maxRange; i += step {
		vs := vsOrigin.Add(dir.Mul(i))

		gx := int32(math.Floor(float64(vs.X())))
		gy := int32(math.Floor(float64(vs.Y())))
		gz := int32(math.Floor(float64(vs.Z())))

		value, ok := g.Density(gx, gy, gz)
		if !ok {
			continue
		}
		if value > g.Threshold {
			g.Terraform(vs, 2, additive, dt)
			return
		}
	}
}
