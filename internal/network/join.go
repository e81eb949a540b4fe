package network

import (
	"context"
	"net"

	"github.com/annel0/mmo-game/internal/logging"
	"github.com/annel0/mmo-game/internal/mathx"
	"github.com/annel0/mmo-game/internal/protocol"
	"github.com/annel0/mmo-game/internal/sim"
)

// spawnPoint is a fixed default spawn until a proper spawn-selection hook
// exists; the source has no analog worth preserving beyond "somewhere
// above the terrain".
var spawnPoint = mathx.Vec3{0, 100, 0}

// handleJoin allocates a player record for a new client, replies with
// SERVER_HANDSHAKE plus the full voxel grid in batches of 8 chunks
// (spec.md §4.6's "chunk hard-update on join"), and notifies existing
// clients via CLIENT_JOINED.
func (s *Server) handleJoin(pkt *protocol.ClientJoin, addr *net.UDPAddr) {
	id := s.nextClientID
	s.nextClientID++

	spawn := spawnPoint
	if pkt.UserID != 0 && s.posRepo != nil {
		if saved, found, err := s.posRepo.Load(context.Background(), pkt.UserID); err != nil {
			logging.LogWarn("network: failed to load saved position for user %d: %v", pkt.UserID, err)
		} else if found {
			spawn = saved
		}
	}

	client := newClient(id, pkt.ClientName, addr)
	client.UserID = pkt.UserID
	player := sim.NewPlayer(id, pkt.ClientName, spawn)

	existing := make([]protocol.ExistingPlayer, 0, len(s.players))
	for _, p := range s.players {
		existing = append(existing, protocol.ExistingPlayer{ID: p.ClientID, Name: p.Name, P: p.P, D: p.D})
	}

	s.clients[id] = client
	s.players[id] = player
	s.metrics.setActiveClients(len(s.clients))

	s.send(id, addr, &protocol.ServerHandshake{AssignedClientID: id, Existing: existing})
	s.sendChunkHardUpdate(id, addr)

	for otherID, other := range s.clients {
		if otherID == id {
			continue
		}
		s.send(otherID, other.Addr, &protocol.ClientJoined{ID: id, Name: pkt.ClientName, P: player.P, D: player.D})
	}

	logging.LogInfo("network: client %s (%s) joined as id=%d", client.DebugID, pkt.ClientName, id)
}

// sendChunkHardUpdate streams every chunk in the grid to clientID in
// batches of 8 chunks (batchSize); the first packet carries the total
// chunk count so the client can size its receive state.
func (s *Server) sendChunkHardUpdate(clientID uint16, addr *net.UDPAddr) {
	all := s.cachedHardUpdateEntries()
	total := uint32(len(all))

	const batchSize = 8
	for i := 0; i < len(all); i += batchSize {
		end := i + batchSize
		if end > len(all) {
			end = len(all)
		}

		pkt := &protocol.ChunkVoxelsHardUpdate{Chunks: all[i:end]}
		if i == 0 {
			pkt.TotalChunks = total
		}
		s.send(clientID, addr, pkt)
	}
}

func (s *Server) send(clientID uint16, addr *net.UDPAddr, pkt protocol.Packet) {
	data := protocol.Encode(protocol.ModeServer, clientID, s.tick, pkt)
	if _, err := s.transport.WriteTo(data, addr); err != nil {
		logging.LogWarn("network: failed to send %T to client %d: %v", pkt, clientID, err)
	}
}
