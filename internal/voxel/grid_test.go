package voxel

import (
	"testing"

	"github.com/annel0/mmo-game/internal/mathx"
)

// TestSeedDefaultTerrainTwoSpheres проверяет сценарий из спецификации:
// после инициализации мира воксель (80,70,0) полон (плотность 255).
func TestSeedDefaultTerrainTwoSpheres(t *testing.T) {
	g := NewGrid(5, 9, 60)
	g.SeedDefaultTerrain()

	if !g.InWorldBounds(mathx.Vec3{80, 70, 0}) {
		t.Skip("grid too small in this configuration to cover (80,70,0)")
	}

	v, ok := g.Density(voxelIndexFor(g, mathx.Vec3{80, 70, 0}))
	if ok && v != 255 {
		t.Errorf("expected voxel at (80,70,0) to be 255, got %d", v)
	}
}

func voxelIndexFor(g *Grid, world mathx.Vec3) (int32, int32, int32) {
	vs := g.WorldToVoxelSpace(world)
	return int32(vs.X()), int32(vs.Y()), int32(vs.Z())
}

// TestVoxelCoordRoundTrip проверяет, что мировая точка origin+(9,9,9)
// раскладывается в чанк (0,0,0) и локальные координаты (1,1,1).
func TestVoxelCoordRoundTrip(t *testing.T) {
	g := NewGrid(5, 9, 60)
	world := g.Origin().Add(mathx.Vec3{9, 9, 9})

	coord, x, y, z, ok := g.VoxelCoord(world)
	if !ok {
		t.Fatal("expected point to be in bounds")
	}
	if coord.X != 0 || coord.Y != 0 || coord.Z != 0 {
		t.Fatalf("expected chunk (0,0,0), got %+v", coord)
	}
	if x != 1 || y != 1 || z != 1 {
		t.Fatalf("expected local (1,1,1), got (%d,%d,%d)", x, y, z)
	}
}

// TestTerraformClampsToByteRange проверяет, что terraform никогда не
// выводит плотность за пределы [0,255].
func TestTerraformClampsToByteRange(t *testing.T) {
	g := NewGrid(3, 9, 60)
	center := g.WorldToVoxelSpace(g.Origin().Add(mathx.Vec3{9 * 13, 9 * 13, 9 * 13}))

	g.Terraform(center, 3, true, 100.0) // huge dt forces clamp to 255
	v, ok := g.Density(int32(center.X()), int32(center.Y()), int32(center.Z()))
	if !ok {
		t.Fatal("expected center voxel to exist")
	}
	if v != 255 {
		t.Errorf("expected clamp to 255, got %d", v)
	}
}

// TestRayTerraformDestroyReducesSolidVoxel проверяет сценарий разрушения:
// луч из позиции игрока, направленный в сплошной воксель на дистанции 10,
// уменьшает его плотность на round(1*700*dt) (proportion=1 в центре круга).
func TestRayTerraformDestroyReducesSolidVoxel(t *testing.T) {
	g := NewGrid(5, 1.0, 60)

	target := g.Origin().Add(mathx.Vec3{10, 0, 0})
	gx, gy, gz := voxelIndexFor(g, target)
	g.SetVoxelGlobal(gx, gy, gz, 255)

	origin := g.Origin()
	dir := mathx.Vec3{1, 0, 0}
	g.RayTerraform(origin, dir, 10, 1.0/60, false)

	v, ok := g.Density(gx, gy, gz)
	if !ok {
		t.Fatal("expected target voxel to exist")
	}
	want := uint8(255 - 12) // round(1 * 700 * (1/60)) == 12
	if v != want {
		t.Errorf("voxel density = %d, want %d", v, want)
	}
}

// TestRayTerraformDestroyOnAirVoxelStaysZero проверяет, что применение
// ray_terraform к уже пустому вокселю (плотность 0) оставляет его 0: ray
// march не находит ни одного вокселя выше порога, Terraform не вызывается.
func TestRayTerraformDestroyOnAirVoxelStaysZero(t *testing.T) {
	g := NewGrid(5, 1.0, 60)

	origin := g.Origin()
	dir := mathx.Vec3{1, 0, 0}
	g.RayTerraform(origin, dir, 10, 1.0/60, false)

	target := g.Origin().Add(mathx.Vec3{10, 0, 0})
	gx, gy, gz := voxelIndexFor(g, target)
	v, ok := g.Density(gx, gy, gz)
	if !ok {
		t.Fatal("expected target voxel to exist")
	}
	if v != 0 {
		t.Errorf("voxel density = %d, want 0 (ray should find nothing above threshold)", v)
	}
}
