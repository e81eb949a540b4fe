package network

import (
	"github.com/annel0/mmo-game/internal/protocol"
	"github.com/annel0/mmo-game/internal/sim"
	"github.com/annel0/mmo-game/internal/voxel"
)

// ClientSim is the client-side half of spec.md §4.6: local prediction
// plus reconciliation against GAME_STATE_SNAPSHOT. It runs the same
// sim.Step code path as the server so a resync-and-replay reproduces the
// server's result exactly.
type ClientSim struct {
	ID     uint16
	Local  *sim.Player
	Grid   *voxel.Grid
	Others map[uint16]*sim.Player

	// lastCorrectionTick is stamped on the outgoing
	// PREDICTION_ERROR_CORRECTION when a correction was applied.
	lastCorrectionTick uint64
}

// NewClientSim constructs a client-side simulation for a freshly
// assigned client id and spawn state.
func NewClientSim(id uint16, local *sim.Player, grid *voxel.Grid) *ClientSim {
	return &ClientSim{ID: id, Local: local, Grid: grid, Others: make(map[uint16]*sim.Player)}
}

// ApplySnapshot performs spec.md §4.6's client-side reconciliation and
// returns a PREDICTION_ERROR_CORRECTION to send back, or nil if no
// correction was necessary.
func (c *ClientSim) ApplySnapshot(pkt *protocol.GameStateSnapshot) *protocol.PredictionErrorCorrection {
	c.applyVoxelDelta(pkt.VoxelCorrections)

	var selfNeedsCorrection bool
	var selfSnapshot protocol.PlayerSnapshot
	for _, ps := range pkt.Players {
		if ps.ID == c.ID {
			selfNeedsCorrection = ps.NeedCorrection
			selfSnapshot = ps
			continue
		}
		c.applyOtherPlayer(ps)
	}

	c.Local.Commands.AckThrough(pkt.LastAckTick)

	if !selfNeedsCorrection {
		return nil
	}

	c.Local.P = selfSnapshot.P
	c.Local.D = selfSnapshot.D
	c.Local.V = selfSnapshot.V
	c.Local.U = selfSnapshot.U
	c.Local.R = selfSnapshot.R

	pending := c.Local.Commands.Pending()
	var resyncTick uint64 = pkt.LastAckTick
	for _, cmd := range pending {
		sim.Step(c.Local, c.Grid, cmd)
		resyncTick = cmd.Tick
	}

	c.lastCorrectionTick = resyncTick
	return &protocol.PredictionErrorCorrection{ResyncedTick: resyncTick}
}

// applyVoxelDelta writes every non-sentinel voxel from the delta into
// the local grid; sentinel entries mean the client's own prediction was
// already correct and require no write.
func (c *ClientSim) applyVoxelDelta(corrections []protocol.ChunkEdits) {
	for _, ce := range corrections {
		for _, v := range ce.Voxels {
			if v.Value == protocol.VoxelCorrectionSentinel {
				continue
			}
			c.Grid.SetVoxel(ce.Coord.X, ce.Coord.Y, ce.Coord.Z, int(v.X), int(v.Y), int(v.Z), v.Value)
		}
	}
}

func (c *ClientSim) applyOtherPlayer(ps protocol.PlayerSnapshot) {
	other, ok := c.Others[ps.ID]
	if !ok {
		other = sim.NewPlayer(ps.ID, "", ps.P)
		c.Others[ps.ID] = other
	}
	other.P = ps.P
	other.D = ps.D
	other.V = ps.V
	other.U = ps.U
	other.R = ps.R
	other.ActionFlags = ps.ActionFlags
	if ps.IsRolling {
		other.Mode = sim.ModeRolling
	} else {
		other.Mode = sim.ModeStanding
	}
}
