package voxel

import (
	"math"

	"github.com/annel0/mmo-game/internal/mathx"
	"github.com/annel0/mmo-game/internal/util"
)

// ConstructSphere fills a filled sphere of solid voxels (density 255)
// centered at a world-space point, matching the two-sphere startup terrain
// the original client/server seeded before any player connected.
func (g *Grid) ConstructSphere(center mathx.Vec3, radius float32) {
	voxelRadius := float32(math.Round(float64(radius / g.VoxelSize)))
	radiusSquared := voxelRadius * voxelRadius

	vs := g.WorldToVoxelSpace(center)
	cx := int32(math.Round(float64(vs.X())))
	cy := int32(math.Round(float64(vs.Y())))
	cz := int32(math.Round(float64(vs.Z())))

	r := int32(voxelRadius)
	for z := -r; z <= r; z++ {
		for y := -r; y <= r; y++ {
			for x := -r; x <= r; x++ {
				dist := float32(x*x + y*y + z*z)
				if dist > radiusSquared {
					continue
				}
				g.SetVoxelGlobal(cx+x, cy+y, cz+z, 255)
			}
		}
	}
}

// ConstructPlane fills a flat disc of solid voxels at y=center.Y, used by
// the plane-terrain alternative to the two-sphere default.
func (g *Grid) ConstructPlane(center mathx.Vec3, radius float32) {
	voxelRadius := float32(math.Round(float64(radius / g.VoxelSize)))

	vs := g.WorldToVoxelSpace(center)
	cx := int32(math.Round(float64(vs.X())))
	cy := int32(math.Round(float64(vs.Y())))
	cz := int32(math.Round(float64(vs.Z())))

	r := int32(voxelRadius)
	for z := -r; z <= r; z++ {
		for x := -r; x <= r; x++ {
			g.SetVoxelGlobal(cx+x, cy, cz+z, 255)
		}
	}
}

// SeedDefaultTerrain reproduces the startup world construction: two
// overlapping spheres planted before the first player joins.
func (g *Grid) SeedDefaultTerrain() {
	g.ConstructSphere(mathx.Vec3{80.0, 70.0, 0.0}, 60.0)
	g.ConstructSphere(mathx.Vec3{-80.0, -50.0, 0.0}, 120.0)
	g.CloseInterval()
}

// SeedPerlinTerrain fills every chunk from 3-D Perlin density, an
// alternative to the two-sphere default useful for larger worlds where a
// hand-placed start island isn't enough ground to stand on.
func (g *Grid) SeedPerlinTerrain(seed int64, scale float64) {
	util.InitPerlinNoise(seed)

	edge := g.Edge * ChunkEdge
	for gx := int32(0); gx < edge; gx++ {
		for gy := int32(0); gy < edge; gy++ {
			for gz := int32(0); gz < edge; gz++ {
				v := util.PerlinDensity3D(float64(gx)*scale, float64(gy)*scale, float64(gz)*scale, seed)
				if v > 0 {
					g.SetVoxelGlobal(gx, gy, gz, v)
				}
			}
		}
	}
	g.CloseInterval()
}
