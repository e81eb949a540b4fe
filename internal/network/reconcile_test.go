package network

import (
	"testing"

	"github.com/annel0/mmo-game/internal/mathx"
	"github.com/annel0/mmo-game/internal/protocol"
	"github.com/annel0/mmo-game/internal/sim"
	"github.com/annel0/mmo-game/internal/voxel"
)

// TestApplySnapshotNoCorrectionAcksCommands проверяет, что при
// need_correction=false ApplySnapshot только применяет воксельную дельту
// и подтверждает команды до LastAckTick, не трогая локальное состояние игрока.
func TestApplySnapshotNoCorrectionAcksCommands(t *testing.T) {
	grid := voxel.NewGrid(2, 1.0, 60)
	local := sim.NewPlayer(1, "alice", mathx.Vec3{0, 0, 0})
	local.Commands.Push(sim.InputCommand{Tick: 1})
	local.Commands.Push(sim.InputCommand{Tick: 2})
	local.Commands.Push(sim.InputCommand{Tick: 3})

	cs := NewClientSim(1, local, grid)

	pkt := &protocol.GameStateSnapshot{
		LastAckTick: 2,
		VoxelCorrections: []protocol.ChunkEdits{
			{
				Coord: protocol.ChunkCoord{X: 0, Y: 0, Z: 0},
				Voxels: []protocol.VoxelEdit{
					{X: 1, Y: 1, Z: 1, Value: 200},
					{X: 2, Y: 2, Z: 2, Value: protocol.VoxelCorrectionSentinel},
				},
			},
		},
		Players: []protocol.PlayerSnapshot{
			{ID: 1, P: local.P, D: local.D, V: local.V, U: local.U, R: local.R, NeedCorrection: false},
		},
	}

	if got := cs.ApplySnapshot(pkt); got != nil {
		t.Fatalf("expected no correction, got %+v", got)
	}
	if got := grid.ChunkAt(voxel.ChunkCoord{X: 0, Y: 0, Z: 0}).At(1, 1, 1); got != 200 {
		t.Fatalf("voxel (1,1,1) = %d, want 200", got)
	}
	if got := grid.ChunkAt(voxel.ChunkCoord{X: 0, Y: 0, Z: 0}).At(2, 2, 2); got != 0 {
		t.Fatalf("sentinel voxel should be left untouched, got %d", got)
	}
	if remaining := local.Commands.Pending(); len(remaining) != 1 || remaining[0].Tick != 3 {
		t.Fatalf("expected only tick 3 pending after ack through 2, got %+v", remaining)
	}
}

// TestApplySnapshotCorrectionReplaysPendingCommands проверяет сценарий
// рассинхронизации (spec.md §4.6): при need_correction=true локальное
// состояние переустанавливается на присланное сервером и все ещё не
// подтверждённые команды переигрываются через sim.Step.
func TestApplySnapshotCorrectionReplaysPendingCommands(t *testing.T) {
	grid := voxel.NewGrid(2, 1.0, 60)
	local := sim.NewPlayer(1, "alice", mathx.Vec3{0, 0, 0})
	local.Mode = sim.ModeFreeFly
	local.Commands.Push(sim.InputCommand{Tick: 5, DT: 1.0 / 60})

	cs := NewClientSim(1, local, grid)

	authoritative := mathx.Vec3{10, 20, 30}
	pkt := &protocol.GameStateSnapshot{
		LastAckTick: 4,
		Players: []protocol.PlayerSnapshot{
			{
				ID: 1, P: authoritative, D: mathx.Vec3{0, 0, 1}, V: mathx.Zero3(), U: mathx.Up(), R: mathx.Quat{W: 1},
				NeedCorrection: true,
			},
		},
	}

	corr := cs.ApplySnapshot(pkt)
	if corr == nil {
		t.Fatal("expected a PredictionErrorCorrection, got nil")
	}
	if corr.ResyncedTick != 5 {
		t.Fatalf("ResyncedTick = %d, want 5 (highest replayed command)", corr.ResyncedTick)
	}
	if local.P == (mathx.Vec3{0, 0, 0}) {
		t.Fatal("local player position was not reset to the authoritative snapshot before replay")
	}
}

// TestApplySnapshotTracksOtherPlayers проверяет, что состояние других
// игроков из roster копируется в Others, не затрагивая локального игрока.
func TestApplySnapshotTracksOtherPlayers(t *testing.T) {
	grid := voxel.NewGrid(2, 1.0, 60)
	local := sim.NewPlayer(1, "alice", mathx.Vec3{0, 0, 0})
	cs := NewClientSim(1, local, grid)

	pkt := &protocol.GameStateSnapshot{
		Players: []protocol.PlayerSnapshot{
			{ID: 1, P: local.P},
			{ID: 2, P: mathx.Vec3{5, 5, 5}, IsRolling: true},
		},
	}

	cs.ApplySnapshot(pkt)

	other, ok := cs.Others[2]
	if !ok {
		t.Fatal("expected client 2 to be tracked in Others")
	}
	if other.P != (mathx.Vec3{5, 5, 5}) {
		t.Fatalf("other player position = %v, want (5,5,5)", other.P)
	}
	if other.Mode != sim.ModeRolling {
		t.Fatalf("other player mode = %v, want ModeRolling", other.Mode)
	}
	if _, ok := cs.Others[1]; ok {
		t.Fatal("local player id must not appear in Others")
	}
}
