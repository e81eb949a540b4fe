package network

import (
	"github.com/annel0/mmo-game/internal/protocol"
	"github.com/annel0/mmo-game/internal/sim"
)

// handleInputState is the server-side authoritative step's ingestion
// half (spec.md §4.6): append commands to the player's ring, record the
// client's final reported (p,d), and store the client's voxel edits
// verbatim for comparison at the next snapshot. INPUT_STATE is ignored
// while the client has an outstanding prediction-error correction.
func (s *Server) handleInputState(clientID uint16, pkt *protocol.InputState) {
	client, ok := s.clients[clientID]
	if !ok {
		return
	}
	if client.NeedsAckPredictionError {
		return
	}

	player := s.players[clientID]
	if player == nil {
		return
	}

	for _, wc := range pkt.Commands {
		player.Commands.Push(sim.InputCommand{
			Tick:        wc.Tick,
			ActionFlags: wc.ActionFlags,
			MouseDX:     wc.DX,
			MouseDY:     wc.DY,
			Flags:       wc.Flags,
			DT:          wc.DT,
		})
	}
	if len(pkt.Commands) > 0 {
		client.ReceivedCommandsThisInterval = true
		client.LastAckTick = pkt.Commands[len(pkt.Commands)-1].Tick
	}

	client.LastReportedP = pkt.FinalP
	client.LastReportedD = pkt.FinalD

	for _, ce := range pkt.ChunkEdits {
		key := ChunkKey{X: ce.Coord.X, Y: ce.Coord.Y, Z: ce.Coord.Z}
		for _, v := range ce.Voxels {
			client.PendingVoxelEdits[key] = append(client.PendingVoxelEdits[key], VoxelPos{
				X: int(v.X), Y: int(v.Y), Z: int(v.Z), Value: v.Value,
			})
		}
	}
}

// applyQueuedCommands runs one Player Simulation step per queued command
// per player against the authoritative voxel grid, in reception order.
func (s *Server) applyQueuedCommands() {
	for _, player := range s.players {
		pending := player.Commands.Pending()
		for _, cmd := range pending {
			sim.Step(player, s.grid, cmd)
		}
		player.Commands.DropThrough(len(pending))
	}
}
