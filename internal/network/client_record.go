package network

import (
	"net"
	"time"

	"github.com/annel0/mmo-game/internal/mathx"
	"github.com/google/uuid"
)

// Client is the server-side per-connection record: everything the
// Network Core needs about one connected player beyond the simulation
// state itself (spec.md §4.6's "client record").
type Client struct {
	ID      uint16
	Name    string
	Addr    *net.UDPAddr
	DebugID string // uuid, logged next to ClientID on drop/correction events

	// UserID is the authenticated account this client joined as (0 means
	// anonymous), used to key cross-session spawn persistence.
	UserID uint64

	LastAckTick uint64 // tick of the last input command received from this client, echoed as the snapshot's last-ack tick

	LastReportedP mathx.Vec3
	LastReportedD mathx.Vec3

	// NeedsAckPredictionError latches when a correction has been sent;
	// while set, INPUT_STATE from this client is ignored per spec.md §7.
	NeedsAckPredictionError bool

	// PendingVoxelEdits accumulates the client's self-reported voxel edits
	// since the last snapshot, keyed by chunk coordinate.
	PendingVoxelEdits map[ChunkKey][]VoxelPos

	ReceivedCommandsThisInterval bool
	LastSeen                     time.Time
}

// ChunkKey is a hashable stand-in for protocol.ChunkCoord (map key).
type ChunkKey struct{ X, Y, Z int32 }

// VoxelPos is a local-space voxel coordinate plus the client-reported value.
type VoxelPos struct {
	X, Y, Z int
	Value   uint8
}

func newClient(id uint16, name string, addr *net.UDPAddr) *Client {
	return &Client{
		ID:                id,
		Name:              name,
		Addr:              addr,
		DebugID:           uuid.NewString(),
		PendingVoxelEdits: make(map[ChunkKey][]VoxelPos),
		LastSeen:          time.Now(),
	}
}

func (c *Client) resetInterval() {
	c.PendingVoxelEdits = make(map[ChunkKey][]VoxelPos)
	c.ReceivedCommandsThisInterval = false
}
