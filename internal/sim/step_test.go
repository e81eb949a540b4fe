package sim

import (
	"testing"

	"github.com/annel0/mmo-game/internal/mathx"
)

// TestMouseLookStaysUnitAndAvoidsGimbalFlip проверяет инварианты §8: после
// применения взгляда мышью |d|=1 в пределах 1e-5 и |d·u| <= 0.99.
func TestMouseLookStaysUnitAndAvoidsGimbalFlip(t *testing.T) {
	p := NewPlayer(1, "alice", mathx.Zero3())
	p.D = mathx.Vec3{0, 0, 1}
	p.U = mathx.Up()

	for i := 0; i < 200; i++ {
		cmd := InputCommand{MouseDX: 5, MouseDY: 5, DT: 0.02}
		applyMouseLook(p, cmd)

		if !mathx.NearUnit(p.D, 1e-5) {
			t.Fatalf("iteration %d: |d| not unit: %v (len=%v)", i, p.D, p.D.Len())
		}
		if dot := p.U.Dot(p.D); dot > 0.99 || dot < -0.99 {
			t.Fatalf("iteration %d: gimbal flip: u.d=%v", i, dot)
		}
	}
}

// TestRollingToggleIsEdgeTriggered проверяет, что переключение режима
// происходит только на переходе "не нажато -> нажато", а не при
// удержании клавиши.
func TestRollingToggleIsEdgeTriggered(t *testing.T) {
	p := NewPlayer(1, "alice", mathx.Zero3())
	p.Mode = ModeRolling

	applyRollingToggle(p, InputCommand{Flags: FlagToggleRolling})
	if p.Mode != ModeStanding {
		t.Fatalf("expected toggle to standing on first press, got %v", p.Mode)
	}

	// Holding the key down must not toggle again.
	applyRollingToggle(p, InputCommand{Flags: FlagToggleRolling})
	if p.Mode != ModeStanding {
		t.Fatalf("expected mode to stay standing while held, got %v", p.Mode)
	}

	// Release then press again toggles back.
	applyRollingToggle(p, InputCommand{Flags: 0})
	applyRollingToggle(p, InputCommand{Flags: FlagToggleRolling})
	if p.Mode != ModeRolling {
		t.Fatalf("expected toggle back to rolling, got %v", p.Mode)
	}
}

// TestCommandRingDropsOldestOnOverflow проверяет, что переполнение кольца
// входящих команд отбрасывает самые старые неприменённые команды.
func TestCommandRingDropsOldestOnOverflow(t *testing.T) {
	r := &CommandRing{capacity: 3}
	r.Push(InputCommand{DT: 1})
	r.Push(InputCommand{DT: 2})
	r.Push(InputCommand{DT: 3})
	r.Push(InputCommand{DT: 4})

	pending := r.Pending()
	if len(pending) != 3 {
		t.Fatalf("expected ring capped at 3, got %d", len(pending))
	}
	if pending[0].DT != 2 {
		t.Fatalf("expected oldest command (DT=1) dropped, got first DT=%v", pending[0].DT)
	}
}
