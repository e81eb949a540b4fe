package physics

import (
	"testing"

	"github.com/annel0/mmo-game/internal/mathx"
	"github.com/annel0/mmo-game/internal/voxel"
)

// TestSweepStopsAtHalfSpace проверяет, что развёртка единичного эллипсоида
// в сторону твёрдого полупространства обнаруживает столкновение с нормалью,
// близкой к нормали полупространства.
func TestSweepStopsAtHalfSpace(t *testing.T) {
	g := voxel.NewGrid(3, 1.0, 60)

	// Fill the bottom half of the grid solid, leaving the rest air: a flat
	// floor at the chunk boundary the player falls toward.
	edge := g.Edge * voxel.ChunkEdge
	mid := edge / 2
	for x := int32(0); x < edge; x++ {
		for z := int32(0); z < edge; z++ {
			for y := int32(0); y < mid; y++ {
				g.SetVoxelGlobal(x, y, z, 255)
			}
		}
	}
	g.CloseInterval()

	center := g.Origin().Add(mathx.Vec3{
		float32(edge) / 2,
		float32(mid) + 2,
		float32(edge) / 2,
	})
	radii := mathx.Vec3{1, 1, 1}
	velocity := mathx.Vec3{0, -5, 0}

	result := Sweep(g, center, radii, velocity)
	if !result.Collided {
		t.Fatal("expected a collision falling onto a solid floor")
	}
	if result.Normal.Y() <= 0 {
		t.Errorf("expected an upward-facing normal, got %v", result.Normal)
	}
}

// TestSweepNoCollisionInOpenAir проверяет, что развёртка через чисто
// воздушную область не обнаруживает столкновений.
func TestSweepNoCollisionInOpenAir(t *testing.T) {
	g := voxel.NewGrid(3, 1.0, 60)
	center := g.Origin().Add(mathx.Vec3{24, 24, 24})
	radii := mathx.Vec3{1, 1, 1}
	velocity := mathx.Vec3{1, 0, 0}

	result := Sweep(g, center, radii, velocity)
	if result.Collided {
		t.Errorf("expected no collision in open air, got normal %v", result.Normal)
	}
}
