package network

import (
	"context"
	"math"
	"strconv"

	"github.com/annel0/mmo-game/internal/eventbus"
	"github.com/annel0/mmo-game/internal/logging"
	"github.com/annel0/mmo-game/internal/mathx"
	"github.com/annel0/mmo-game/internal/protocol"
	"github.com/annel0/mmo-game/internal/sim"
)

// dispatchSnapshots implements spec.md §4.6's snapshot-dispatch
// algorithm: build the interval's voxel delta once, personalize it per
// client (sentinel 255 where the client's own prediction matched),
// detect position/voxel drift, send, then close the voxel interval.
func (s *Server) dispatchSnapshots() {
	ctx := s.tickCtx
	if ctx == nil {
		ctx = context.Background()
	}
	_, span := tracer.Start(ctx, "snapshot.dispatch")
	defer span.End()

	delta := s.buildVoxelDelta(ctx)
	roster := s.buildRoster()

	for id, client := range s.clients {
		player := s.players[id]
		if player == nil {
			continue
		}

		corrections, voxelMismatch := s.personalizeDelta(client, delta)
		positionDrift := driftExceeds(client.LastReportedP, player.P) || driftExceeds(client.LastReportedD, player.D)
		needCorrection := positionDrift || voxelMismatch
		isToIgnore := !client.ReceivedCommandsThisInterval

		if needCorrection {
			client.NeedsAckPredictionError = true
			if positionDrift {
				s.metrics.recordPositionCorrection()
			}
			if voxelMismatch {
				s.metrics.recordVoxelCorrection()
			}
		}

		players := make([]protocol.PlayerSnapshot, len(roster))
		copy(players, roster)
		for i := range players {
			if players[i].ID == id {
				players[i].NeedCorrection = needCorrection
				players[i].NeedVoxelCorrection = voxelMismatch
				players[i].IsToIgnore = isToIgnore
			}
		}

		pkt := &protocol.GameStateSnapshot{
			LastAckTick:      client.LastAckTick,
			VoxelCorrections: corrections,
			Players:          players,
		}
		data := protocol.Encode(protocol.ModeServer, id, s.tick, pkt)
		s.metrics.recordSnapshot(len(data))
		if _, err := s.transport.WriteTo(data, client.Addr); err != nil {
			continue
		}

		client.resetInterval()
	}

	s.publishDirtyChunks(delta)
	s.grid.CloseInterval()
	s.autosavePositions()
	s.mirrorPositionsToCache()
}

// mirrorPositionsToCache pushes every connected client's current position
// into the Redis GEO proximity cache, if one is wired. Best-effort: a
// failure here must never affect dispatch.
func (s *Server) mirrorPositionsToCache() {
	if s.posCache == nil {
		return
	}
	for id, player := range s.players {
		if err := s.posCache.SavePosition(id, player.P, player.D); err != nil {
			logging.LogWarn("network: position cache mirror failed for client %d: %v", id, err)
		}
	}
}

// autosavePositions batch-persists authenticated clients' positions each
// snapshot interval, so a crash loses at most one interval of movement.
func (s *Server) autosavePositions() {
	if s.posRepo == nil {
		return
	}

	positions := make(map[uint64]mathx.Vec3)
	for _, client := range s.clients {
		if client.UserID == 0 {
			continue
		}
		if player, ok := s.players[client.ID]; ok {
			positions[client.UserID] = player.P
		}
	}
	if len(positions) == 0 {
		return
	}
	if err := s.posRepo.BatchSave(context.Background(), positions); err != nil {
		logging.LogWarn("network: autosave positions failed: %v", err)
	}
}

func driftExceeds(a, b mathx.Vec3) bool {
	return math.Abs(float64(a.X()-b.X())) > posDriftEpsilon ||
		math.Abs(float64(a.Y()-b.Y())) > posDriftEpsilon ||
		math.Abs(float64(a.Z()-b.Z())) > posDriftEpsilon
}

// buildRoster snapshots every current player's replicated state, before
// any per-client correction-flag personalization.
func (s *Server) buildRoster() []protocol.PlayerSnapshot {
	out := make([]protocol.PlayerSnapshot, 0, len(s.players))
	for _, p := range s.players {
		out = append(out, protocol.PlayerSnapshot{
			ID:          p.ClientID,
			P:           p.P,
			D:           p.D,
			V:           p.V,
			U:           p.U,
			R:           p.R,
			ActionFlags: p.ActionFlags,
			IsRolling:   p.Mode == sim.ModeRolling,
		})
	}
	return out
}

// buildVoxelDelta gathers every chunk's modification list drawn from
// history plus current state (spec.md §4.6 step 1).
func (s *Server) buildVoxelDelta(ctx context.Context) []protocol.ChunkEdits {
	_, span := tracer.Start(ctx, "voxel.delta.build")
	defer span.End()

	chunks := s.grid.ModifiedChunks()
	out := make([]protocol.ChunkEdits, 0, len(chunks))
	for _, c := range chunks {
		changes := c.Changes()
		if len(changes) == 0 {
			continue
		}
		voxels := make([]protocol.VoxelEdit, 0, len(changes))
		for _, ch := range changes {
			voxels = append(voxels, protocol.VoxelEdit{
				X: uint8(ch.X), Y: uint8(ch.Y), Z: uint8(ch.Z), Value: ch.Next,
			})
		}
		out = append(out, protocol.ChunkEdits{
			Coord:  protocol.ChunkCoord{X: c.Coord.X, Y: c.Coord.Y, Z: c.Coord.Z},
			Voxels: voxels,
		})
	}
	return out
}

// personalizeDelta rewrites the shared voxel delta for one client:
// voxels that client itself reported are replaced with the sentinel
// (prediction confirmed) or left as the authoritative override
// (mismatch); voxels never touched by this client pass through
// unmodified. Returns whether any of the client's own predictions
// mismatched.
func (s *Server) personalizeDelta(client *Client, delta []protocol.ChunkEdits) ([]protocol.ChunkEdits, bool) {
	mismatch := false
	out := make([]protocol.ChunkEdits, 0, len(delta))

	for _, ce := range delta {
		key := ChunkKey{X: ce.Coord.X, Y: ce.Coord.Y, Z: ce.Coord.Z}
		predicted := indexPredicted(client.PendingVoxelEdits[key])

		voxels := make([]protocol.VoxelEdit, len(ce.Voxels))
		for i, v := range ce.Voxels {
			voxels[i] = v
			if pv, ok := predicted[[3]int{int(v.X), int(v.Y), int(v.Z)}]; ok {
				if pv == v.Value {
					voxels[i].Value = protocol.VoxelCorrectionSentinel
				} else {
					mismatch = true
					// voxels[i].Value already carries the authoritative value.
				}
			}
		}
		out = append(out, protocol.ChunkEdits{Coord: ce.Coord, Voxels: voxels})
	}
	return out, mismatch
}

func indexPredicted(edits []VoxelPos) map[[3]int]uint8 {
	if len(edits) == 0 {
		return nil
	}
	m := make(map[[3]int]uint8, len(edits))
	for _, e := range edits {
		m[[3]int{e.X, e.Y, e.Z}] = e.Value
	}
	return m
}

// publishDirtyChunks notifies out-of-process renderers/tooling of every
// touched chunk this interval (spec.md §6.d's ray-terraform hook).
func (s *Server) publishDirtyChunks(delta []protocol.ChunkEdits) {
	if len(delta) > 0 {
		s.invalidateChunkCache()
	}
	for _, ce := range delta {
		s.bus.Publish(s.ctx, &eventbus.Envelope{
			Source:    "voxel-grid",
			EventType: "chunk.dirty",
			Metadata: map[string]string{
				"chunk_x": strconv.Itoa(int(ce.Coord.X)),
				"chunk_y": strconv.Itoa(int(ce.Coord.Y)),
				"chunk_z": strconv.Itoa(int(ce.Coord.Z)),
			},
		})
	}
}
