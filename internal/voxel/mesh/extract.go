// Package mesh implements the Marching-Cubes-style surface extraction
// shared by chunk mesh generation and the collision engine's triangle-soup
// queries (a single routine parameterized by output sink, per the
// system's "unify the two Marching-Cubes implementations" note).
package mesh

import "github.com/annel0/mmo-game/internal/mathx"

// DensitySource exposes voxel density at global voxel-space coordinates.
// Implementations return ok=false for coordinates outside any allocated
// chunk; extraction treats an absent corner as "no surface" and skips the
// cube it belongs to, which is how boundary chunks end up with partial
// meshes.
type DensitySource interface {
	Density(gx, gy, gz int32) (value uint8, ok bool)
}

// Vertex is one Marching-Cubes output vertex.
type Vertex struct {
	Pos mathx.Vec3
}

// Triangle is three vertices in emission order (CCW as defined by the
// edge table).
type Triangle struct {
	A, B, C Vertex
}

// Sink receives extracted triangles. ChunkMesh (vertex buffer) and the
// collision engine's local triangle buffer both implement Sink so the same
// Extract routine can feed either.
type Sink interface {
	Emit(t Triangle)
}

// SliceSink collects triangles into a slice; used both for chunk meshes and
// for collision's per-query triangle buffer.
type SliceSink struct {
	Triangles []Triangle
}

func (s *SliceSink) Emit(t Triangle) {
	s.Triangles = append(s.Triangles, t)
}

// Extract runs Marching-Cubes over every voxel-pair cube anchored in
// [base, base+size) (in global voxel-space coordinates), reading corner
// densities from src and comparing against threshold. Vertices are placed
// in the coordinate frame implied by src.Density's argument space scaled by
// cellSize and offset by origin — callers pick local (chunk) or world space
// by choosing origin/cellSize accordingly.
func Extract(src DensitySource, base [3]int32, size [3]int32, threshold uint8, origin mathx.Vec3, cellSize float32, sink Sink) {
	for x := base[0]; x < base[0]+size[0]; x++ {
		for y := base[1]; y < base[1]+size[1]; y++ {
			for z := base[2]; z < base[2]+size[2]; z++ {
				extractCube(src, x, y, z, threshold, origin, cellSize, sink)
			}
		}
	}
}

func extractCube(src DensitySource, x, y, z int32, threshold uint8, origin mathx.Vec3, cellSize float32, sink Sink) {
	var corner [8]uint8
	for i := 0; i < 8; i++ {
		ox, oy, oz := Corner(i)
		v, ok := src.Density(x+int32(ox), y+int32(oy), z+int32(oz))
		if !ok {
			// Absent neighbor corner: skip this whole cube (partial mesh
			// at chunk/grid boundaries).
			return
		}
		corner[i] = v
	}

	mask := 0
	for i := 0; i < 8; i++ {
		if corner[i] > threshold {
			mask |= 1 << uint(i)
		}
	}
	if mask == 0 || mask == 0xff {
		return
	}

	var edgeVerts [12]mathx.Vec3
	var haveEdge [12]bool

	row := triTable[mask]
	for i := 0; i+2 < len(row) && row[i] != -1; i += 3 {
		tri := Triangle{}
		verts := [3]mathx.Vec3{}
		for k := 0; k < 3; k++ {
			edge := int(row[i+k])
			if !haveEdge[edge] {
				edgeVerts[edge] = interpolateEdge(edge, corner, x, y, z, threshold, origin, cellSize)
				haveEdge[edge] = true
			}
			verts[k] = edgeVerts[edge]
		}
		tri.A = Vertex{Pos: verts[0]}
		tri.B = Vertex{Pos: verts[1]}
		tri.C = Vertex{Pos: verts[2]}
		sink.Emit(tri)
	}
}

// interpolateEdge linearly interpolates the surface-crossing point between
// an edge's two corners, weighted by density vs threshold, with the corner
// of smaller density on the left as spec.md §4.2 requires.
func interpolateEdge(edge int, corner [8]uint8, x, y, z int32, threshold uint8, origin mathx.Vec3, cellSize float32) mathx.Vec3 {
	e0, e1 := EdgeEnds(edge)
	o0x, o0y, o0z := Corner(e0)
	o1x, o1y, o1z := Corner(e1)

	d0, d1 := corner[e0], corner[e1]
	// Ensure the smaller-density corner is on the left (p0).
	p0 := mathx.Vec3{float32(x + int32(o0x)), float32(y + int32(o0y)), float32(z + int32(o0z))}
	p1 := mathx.Vec3{float32(x + int32(o1x)), float32(y + int32(o1y)), float32(z + int32(o1z))}
	if d0 > d1 {
		p0, p1 = p1, p0
		d0, d1 = d1, d0
	}

	var t float32
	if d1 == d0 {
		t = 0.5
	} else {
		t = (float32(threshold) - float32(d0)) / (float32(d1) - float32(d0))
	}
	t = mathx.Clamp01(t)

	local := p0.Add(p1.Sub(p0).Mul(t))
	world := origin.Add(local.Mul(cellSize))
	return world
}
