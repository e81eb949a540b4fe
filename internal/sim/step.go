package sim

import (
	"math"

	"github.com/annel0/mmo-game/internal/mathx"
	"github.com/annel0/mmo-game/internal/physics"
	"github.com/annel0/mmo-game/internal/voxel"
)

// Tuning constants fixed by spec.md §6's tunables table.
const (
	Gravity         = 9.81
	TerrainRoughness = 0.5
	FreeFlySpeedFactor = 20.0
	RollAccelFactor = 10.0
	MouseSensitivity = 1.0
	TerraformMaxRange = 70.0
	TerraformRadius   = 2.0
)

// Step advances one player by one (dt, input) pair: mouse look, mode
// dispatch (rolling / standing / free-fly), swept collision, and
// terraform-flag handling. grid may be nil only for isolated unit tests
// that don't exercise collision or terraform.
func Step(p *Player, grid *voxel.Grid, cmd InputCommand) {
	applyMouseLook(p, cmd)
	applyRollingToggle(p, cmd)

	p.ActionFlags = cmd.ActionFlags

	switch p.Mode {
	case ModeRolling:
		stepRolling(p, grid, cmd)
	case ModeStanding:
		stepStanding(p, cmd)
	case ModeFreeFly:
		stepFreeFly(p, grid, cmd)
	}

	if grid != nil {
		handleTerraform(p, grid, cmd)
	}
}

// applyMouseLook rotates d around u (yaw) then around cross(d,u) (pitch),
// rejecting any rotation that would put |u.d| above the gimbal-flip
// threshold, per spec.md §4.4.
func applyMouseLook(p *Player, cmd InputCommand) {
	if cmd.MouseDX == 0 && cmd.MouseDY == 0 {
		return
	}

	yawAngle := -cmd.MouseDX * MouseSensitivity * cmd.DT
	candidate := mathx.RotateAround(p.D, p.U, yawAngle)

	right := candidate.Cross(p.U)
	pitchAngle := -cmd.MouseDY * MouseSensitivity * cmd.DT
	candidate = mathx.RotateAround(candidate, right, pitchAngle)

	candidate = mathx.SafeNormalize(candidate)
	if float32(math.Abs(float64(p.U.Dot(candidate)))) > 0.99 {
		return
	}
	p.D = candidate
}

// applyRollingToggle flips rolling mode on an edge-triggered press of the
// toggle key (a press that follows a release).
func applyRollingToggle(p *Player, cmd InputCommand) {
	down := cmd.Flags&FlagToggleRolling != 0
	if down && !p.RollingKeyWasDown {
		if p.Mode == ModeRolling {
			p.Mode = ModeStanding
		} else {
			p.Mode = ModeRolling
		}
	}
	p.RollingKeyWasDown = down
}

func movementAxes(p *Player) (forward, right mathx.Vec3) {
	forward = mathx.SafeNormalize(p.D)
	right = mathx.SafeNormalize(forward.Cross(p.U))
	return
}

// stepRolling integrates gravity, WASD lateral acceleration and ground
// friction, then resolves motion through swept collision (spec.md §4.4).
func stepRolling(p *Player, grid *voxel.Grid, cmd InputCommand) {
	forward, right := movementAxes(p)
	dt := cmd.DT

	if p.IsEntering {
		p.V = p.D.Mul(p.EnteringAcceleration)
	} else {
		if p.Physics == StateInAir {
			p.V = p.V.Add(p.U.Mul(-float32(Gravity) * dt))
		} else {
			accel := mathx.Zero3()
			if cmd.ActionFlags&ActionForward != 0 {
				accel = accel.Add(forward)
			}
			if cmd.ActionFlags&ActionLeft != 0 {
				accel = accel.Sub(right)
			}
			if cmd.ActionFlags&ActionBack != 0 {
				accel = accel.Sub(forward)
			}
			if cmd.ActionFlags&ActionRight != 0 {
				accel = accel.Add(right)
			}
			p.V = p.V.Add(accel.Mul(RollAccelFactor * dt))
			p.V = p.V.Sub(p.U.Mul(float32(Gravity) * dt))

			friction := p.V.Mul(-float32(TerrainRoughness) * float32(Gravity) * 0.5)
			p.V = p.V.Add(friction.Mul(dt))
		}
	}

	if grid == nil {
		p.P = p.P.Add(p.V.Mul(dt))
		return
	}

	result := physics.Sweep(grid, p.P, p.Size, p.V.Mul(dt))
	if p.IsEntering && result.Collided {
		p.IsEntering = false
	}

	p.P = result.Position
	if result.Collided {
		p.U = mathx.SafeNormalize(mulElem(result.Normal, p.Size))
		p.Physics = StateOnGround
		p.V = result.Velocity.Mul(1 / dt)
	} else {
		p.Physics = StateInAir
		p.V = result.Velocity.Mul(1 / dt)
	}
}

func mulElem(v, m mathx.Vec3) mathx.Vec3 {
	return mathx.Vec3{v.X() * m.X(), v.Y() * m.Y(), v.Z() * m.Z()}
}

// stepStanding is the non-rolling placeholder: no gravity, no implicit
// state change, preserved only for wire compatibility (spec.md §9's open
// question on the mode's minimal behavior).
func stepStanding(p *Player, cmd InputCommand) {
	forward, right := movementAxes(p)
	accel := mathx.Zero3()
	if cmd.ActionFlags&ActionForward != 0 {
		accel = accel.Add(forward)
	}
	if cmd.ActionFlags&ActionBack != 0 {
		accel = accel.Sub(forward)
	}
	if cmd.ActionFlags&ActionLeft != 0 {
		accel = accel.Sub(right)
	}
	if cmd.ActionFlags&ActionRight != 0 {
		accel = accel.Add(right)
	}
	p.V = accel
	p.P = p.P.Add(p.V.Mul(cmd.DT))
}

// stepFreeFly directly translates along world right/up/forward axes,
// still passing through swept collision so walls stop a free-flyer.
func stepFreeFly(p *Player, grid *voxel.Grid, cmd InputCommand) {
	forward, right := movementAxes(p)
	move := mathx.Zero3()
	if cmd.ActionFlags&ActionForward != 0 {
		move = move.Add(forward)
	}
	if cmd.ActionFlags&ActionBack != 0 {
		move = move.Sub(forward)
	}
	if cmd.ActionFlags&ActionLeft != 0 {
		move = move.Sub(right)
	}
	if cmd.ActionFlags&ActionRight != 0 {
		move = move.Add(right)
	}
	if cmd.ActionFlags&ActionUp != 0 {
		move = move.Add(p.U)
	}
	if cmd.ActionFlags&ActionDown != 0 {
		move = move.Sub(p.U)
	}

	velocity := move.Mul(FreeFlySpeedFactor * p.Size.X() * cmd.DT)
	p.V = mathx.Zero3()

	if grid == nil {
		p.P = p.P.Add(velocity)
		return
	}
	result := physics.Sweep(grid, p.P, p.Size, velocity)
	p.P = result.Position
}

// handleTerraform invokes ray_terraform from the player's eye position
// along its facing direction when a terraform action bit is set.
func handleTerraform(p *Player, grid *voxel.Grid, cmd InputCommand) {
	if cmd.ActionFlags&ActionTerraformAdd != 0 {
		grid.RayTerraform(p.P, p.D, TerraformMaxRange, cmd.DT, true)
	}
	if cmd.ActionFlags&ActionTerraformDestroy != 0 {
		grid.RayTerraform(p.P, p.D, TerraformMaxRange, cmd.DT, false)
	}
}
