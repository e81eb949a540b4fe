// Package physics implements the swept-ellipsoid vs voxel-mesh collision
// engine: the player capsule is solved as a unit sphere in ellipsoid space
// (Kasper Fauerby's classic algorithm), iterating a sliding-plane response
// against the triangle soup produced by the Marching-Cubes extractor.
package physics

import (
	"math"

	"github.com/annel0/mmo-game/internal/mathx"
	"github.com/annel0/mmo-game/internal/voxel"
	"github.com/annel0/mmo-game/internal/voxel/mesh"
)

// maxRecursionDepth caps the sliding-plane iteration (spec.md §4.3).
const maxRecursionDepth = 5

// triangle is a world-space (pre ellipsoid-scale) triangle.
type triangle struct {
	a, b, c mathx.Vec3
}

// Result is the outcome of a Sweep: the corrected world-space position, the
// remaining (possibly redirected) velocity, whether any contact occurred,
// and the contact normal of the last plane slid against.
type Result struct {
	Position mathx.Vec3
	Velocity mathx.Vec3
	Collided bool
	Normal   mathx.Vec3
}

// Sweep moves an ellipsoid (center, radii) by velocity through grid,
// returning the resolved position/velocity after up to maxRecursionDepth
// sliding-plane iterations.
func Sweep(grid *voxel.Grid, center, radii, velocity mathx.Vec3) Result {
	return sweepRecurse(grid, center, radii, velocity, 0, Result{})
}

func sweepRecurse(grid *voxel.Grid, wsCenter, radii, wsVelocity mathx.Vec3, depth int, prev Result) Result {
	esCenter := divElem(wsCenter, radii)
	esVelocity := divElem(wsVelocity, radii)

	tris := gatherTriangles(grid, wsCenter, radii, wsVelocity)

	closest := collisionState{distance: 1000.0}
	for _, t := range tris {
		ta := divElem(t.a, radii)
		tb := divElem(t.b, radii)
		tc := divElem(t.c, radii)
		collideWithTriangle(ta, tb, tc, esCenter, esVelocity, &closest)
	}

	if !closest.detected {
		return Result{
			Position: wsCenter.Add(wsVelocity),
			Velocity: wsVelocity,
			Collided: depth > 0,
			Normal:   prev.Normal,
		}
	}

	const veryClose = float32(0.0)

	esNewPosition := esCenter
	if closest.distance >= veryClose {
		normVel := mathx.SafeNormalize(esVelocity)
		scaled := normVel.Mul(closest.distance - veryClose)
		esNewPosition = esCenter.Add(scaled)
		closest.contact = closest.contact.Sub(normVel.Mul(veryClose))
	}

	esDestination := esCenter.Add(esVelocity)

	slidePlanePoint := closest.contact
	slidePlaneNormal := mathx.SafeNormalize(esNewPosition.Sub(closest.contact))

	planeConstant := -slidePlanePoint.Dot(slidePlaneNormal)
	destDist := esDestination.Dot(slidePlaneNormal) + planeConstant

	esNewDestination := esDestination.Sub(slidePlaneNormal.Mul(destDist))
	esNewVelocity := esNewDestination.Sub(closest.contact)

	if esNewVelocity.LenSqr() < veryClose*veryClose {
		return Result{
			Position: mulElem(esNewPosition, radii),
			Velocity: mathx.Zero3(),
			Collided: true,
			Normal:   slidePlaneNormal,
		}
	}

	if depth < maxRecursionDepth {
		return sweepRecurse(grid, mulElem(esNewPosition, radii), radii, mulElem(esNewVelocity, radii), depth+1, Result{
			Collided: true,
			Normal:   slidePlaneNormal,
		})
	}

	return Result{
		Position: mulElem(esNewPosition, radii),
		Velocity: mulElem(esNewVelocity, radii),
		Collided: true,
		Normal:   slidePlaneNormal,
	}
}

func divElem(v, d mathx.Vec3) mathx.Vec3 {
	return mathx.Vec3{v.X() / d.X(), v.Y() / d.Y(), v.Z() / d.Z()}
}

func mulElem(v, m mathx.Vec3) mathx.Vec3 {
	return mathx.Vec3{v.X() * m.X(), v.Y() * m.Y(), v.Z() * m.Z()}
}

// gatherTriangles runs the shared Marching-Cubes extractor over the
// voxel-space AABB swept by the ellipsoid's motion this tick and returns
// the resulting triangle soup in world space.
func gatherTriangles(grid *voxel.Grid, wsCenter, radii, wsVelocity mathx.Vec3) []triangle {
	lo := wsCenter.Sub(radii)
	hi := wsCenter.Add(radii)
	if wsVelocity.X() < 0 {
		lo[0] += wsVelocity.X()
	} else {
		hi[0] += wsVelocity.X()
	}
	if wsVelocity.Y() < 0 {
		lo[1] += wsVelocity.Y()
	} else {
		hi[1] += wsVelocity.Y()
	}
	if wsVelocity.Z() < 0 {
		lo[2] += wsVelocity.Z()
	} else {
		hi[2] += wsVelocity.Z()
	}

	vsLo := grid.WorldToVoxelSpace(lo)
	vsHi := grid.WorldToVoxelSpace(hi)

	base := [3]int32{
		int32(math.Floor(float64(vsLo.X()))) - 1,
		int32(math.Floor(float64(vsLo.Y()))) - 1,
		int32(math.Floor(float64(vsLo.Z()))) - 1,
	}
	top := [3]int32{
		int32(math.Ceil(float64(vsHi.X()))) + 1,
		int32(math.Ceil(float64(vsHi.Y()))) + 1,
		int32(math.Ceil(float64(vsHi.Z()))) + 1,
	}
	size := [3]int32{top[0] - base[0], top[1] - base[1], top[2] - base[2]}

	sink := &mesh.SliceSink{}
	mesh.Extract(grid, base, size, grid.Threshold, grid.Origin(), grid.VoxelSize, sink)

	out := make([]triangle, 0, len(sink.Triangles))
	for _, t := range sink.Triangles {
		out = append(out, triangle{a: t.A.Pos, b: t.B.Pos, c: t.C.Pos})
	}
	return out
}

// collisionState mirrors the original accumulator: the closest contact
// found so far across every candidate triangle/primitive.
type collisionState struct {
	detected    bool
	distance    float32
	contact     mathx.Vec3
	normal      mathx.Vec3
	underGround bool
}

func collideWithTriangle(fa, fb, fc, esCenter, esVelocity mathx.Vec3, closest *collisionState) {
	// The extractor sets mask bits for solid corners, so (b-a)×(c-a) points
	// into the solid; (c-a)×(b-a) is the face normal pointing out into air.
	normal := mathx.SafeNormalize(fc.Sub(fa).Cross(fb.Sub(fa)))

	velDotNormal := mathx.SafeNormalize(esVelocity).Dot(normal)
	if velDotNormal > 0 {
		return
	}

	planeConstant := -fa.Dot(normal)

	onlyEdgesVertices := false
	normalDotVelocity := esVelocity.Dot(normal)
	spherePlaneDistance := esCenter.Dot(normal) + planeConstant

	if normalDotVelocity == 0 {
		if float32(math.Abs(float64(spherePlaneDistance))) >= 1.0 {
			return
		}
		onlyEdgesVertices = true
	}

	foundFaceCollision := false

	if !onlyEdgesVertices {
		t0 := (1.0 - spherePlaneDistance) / normalDotVelocity
		t1 := (-1.0 - spherePlaneDistance) / normalDotVelocity
		if t0 > t1 {
			t0, t1 = t1, t0
		}
		if t0 <= 1.0 && t1 >= 0.0 {
			if t0 < 0 {
				t0 = 0
			}
			contact := esCenter.Add(esVelocity.Mul(t0)).Sub(normal)

			if pointInTriangle(contact, fa, fb, fc) {
				distance := esVelocity.Mul(t0).Len()
				if distance < closest.distance {
					pointPlaneDistance := esCenter.Sub(normal).Dot(normal) + planeConstant
					if pointPlaneDistance < 0 && !closest.underGround {
						newCenter := esCenter.Sub(normal.Mul(pointPlaneDistance))
						closest.underGround = true
						closest.normal = normal
						collideWithTriangle(fa, fb, fc, newCenter, esVelocity, closest)
						return
					}

					foundFaceCollision = true
					closest.detected = true
					closest.distance = distance
					closest.contact = contact
					closest.normal = normal
				}
			}
		}
	}

	if !foundFaceCollision {
		checkVertex(esVelocity, esCenter, fa, normal, closest)
		checkVertex(esVelocity, esCenter, fb, normal, closest)
		checkVertex(esVelocity, esCenter, fc, normal, closest)

		checkEdge(esVelocity, esCenter, fa, fb, normal, closest)
		checkEdge(esVelocity, esCenter, fb, fc, normal, closest)
		checkEdge(esVelocity, esCenter, fc, fa, normal, closest)
	}
}

func checkVertex(esVelocity, esCenter, vertex, normal mathx.Vec3, closest *collisionState) {
	a := esVelocity.LenSqr()
	b := 2.0 * esVelocity.Dot(esCenter.Sub(vertex))
	c := vertex.Sub(esCenter).LenSqr() - 1.0

	root, ok := smallestRoot(a, b, c, 1.0)
	if !ok {
		return
	}
	distance := esVelocity.Mul(root).Len()
	if distance < closest.distance {
		closest.detected = true
		closest.distance = distance
		closest.contact = vertex
		closest.normal = normal
	}
}

func checkEdge(esVelocity, esCenter, va, vb, normal mathx.Vec3, closest *collisionState) {
	edge := vb.Sub(va)
	toVertex := va.Sub(esCenter)

	edgeLenSqr := edge.LenSqr()
	a := edgeLenSqr*-esVelocity.LenSqr() + sq(edge.Dot(esVelocity))
	b := edgeLenSqr*2*esVelocity.Dot(toVertex) - 2*(edge.Dot(esVelocity)*edge.Dot(toVertex))
	c := edgeLenSqr*(1-toVertex.LenSqr()) + sq(edge.Dot(toVertex))

	root, ok := smallestRoot(a, b, c, 1.0)
	if !ok {
		return
	}

	inEdge := (edge.Dot(esVelocity)*root - edge.Dot(toVertex)) / edgeLenSqr
	if inEdge < 0 || inEdge > 1 {
		return
	}

	contact := va.Add(edge.Mul(inEdge))
	distance := esVelocity.Mul(root).Len()
	if distance < closest.distance {
		closest.detected = true
		closest.distance = distance
		closest.contact = contact
		closest.normal = normal
	}
}

func sq(f float32) float32 { return f * f }

// smallestRoot solves a*t^2 + b*t + c = 0 and returns the smallest root in
// (0, maxRoot), per Kasper Fauerby's swept-sphere collision paper.
func smallestRoot(a, b, c, maxRoot float32) (float32, bool) {
	determinant := b*b - 4*a*c
	if determinant < 0 {
		return 0, false
	}
	sqrtD := float32(math.Sqrt(float64(determinant)))
	r1 := (-b - sqrtD) / (2 * a)
	r2 := (-b + sqrtD) / (2 * a)
	if r1 > r2 {
		r1, r2 = r2, r1
	}
	if r1 > 0 && r1 < maxRoot {
		return r1, true
	}
	if r2 > 0 && r2 < maxRoot {
		return r2, true
	}
	return 0, false
}

// pointInTriangle uses the same-side-of-edge barycentric test.
func pointInTriangle(p, a, b, c mathx.Vec3) bool {
	cross1 := c.Sub(b).Cross(p.Sub(b))
	cross2 := c.Sub(b).Cross(a.Sub(b))
	if cross1.Dot(cross2) < 0 {
		return false
	}
	cross3 := c.Sub(a).Cross(p.Sub(a))
	cross4 := c.Sub(a).Cross(b.Sub(a))
	if cross3.Dot(cross4) < 0 {
		return false
	}
	cross5 := b.Sub(a).Cross(p.Sub(a))
	cross6 := b.Sub(a).Cross(c.Sub(a))
	return cross5.Dot(cross6) >= 0
}
