package sim

import "github.com/annel0/mmo-game/internal/mathx"

// Mode selects which integration path Step takes.
type Mode uint8

const (
	ModeRolling Mode = iota
	ModeStanding
	ModeFreeFly
)

// PhysicsState tracks whether the last collision response found ground.
type PhysicsState uint8

const (
	StateOnGround PhysicsState = iota
	StateInAir
)

// AnimState mirrors the original's animated_state_t for replication only;
// the simulation core never interprets animation beyond selecting a value.
type AnimState uint8

const (
	AnimIdle AnimState = iota
	AnimMoving
	AnimSlidingNotRolling
)

// Player is the flattened per-player simulation state (spec.md §3 folds
// the source's handle-table ECS components into one struct since every
// player carries exactly one of each).
type Player struct {
	ClientID uint16
	Name     string

	P mathx.Vec3 // world position
	D mathx.Vec3 // facing direction, unit
	U mathx.Vec3 // up vector, unit
	V mathx.Vec3 // velocity
	R mathx.Quat // orientation

	Size mathx.Vec3 // ellipsoid radii

	ActionFlags uint32
	Mode        Mode
	Physics     PhysicsState
	Anim        AnimState

	IsEntering           bool
	EnteringAcceleration float32

	RollingKeyWasDown bool // for edge-triggered toggle

	Commands *CommandRing
}

// NewPlayer creates a player at the given spawn position with default
// orientation and rolling mode, matching the "enter" launch behavior of
// a freshly joined avatar.
func NewPlayer(clientID uint16, name string, spawn mathx.Vec3) *Player {
	return &Player{
		ClientID:             clientID,
		Name:                 name,
		P:                    spawn,
		D:                    mathx.Vec3{0, 0, 1},
		U:                    mathx.Up(),
		V:                    mathx.Zero3(),
		R:                    mathx.Quat{W: 1},
		Size:                 mathx.Vec3{1, 1, 1},
		Mode:                 ModeRolling,
		Physics:              StateInAir,
		IsEntering:           true,
		EnteringAcceleration: 10.0,
		Commands:             NewCommandRing(),
	}
}
