package protocol

import "github.com/annel0/mmo-game/internal/mathx"

// ChunkEdge mirrors voxel.ChunkEdge without importing the voxel package
// (protocol must stay a leaf package on the wire-format side).
const ChunkEdge = 16

// ChunkDensityBytes is the byte size of one chunk's full dense array.
const ChunkDensityBytes = ChunkEdge * ChunkEdge * ChunkEdge

// maxChunksPerHardUpdate bounds each CHUNK_VOXELS_HARD_UPDATE packet.
const maxChunksPerHardUpdate = 8

// VoxelCorrectionSentinel means "prediction was correct" in a
// GAME_STATE_SNAPSHOT voxel-correction list.
const VoxelCorrectionSentinel = 255

// ChunkCoord is a 3-int32 chunk grid coordinate as carried on the wire.
type ChunkCoord struct{ X, Y, Z int32 }

func (w *writer) chunkCoord(c ChunkCoord) {
	w.u32(uint32(int32(c.X)))
	w.u32(uint32(int32(c.Y)))
	w.u32(uint32(int32(c.Z)))
}

func (r *reader) chunkCoord() ChunkCoord {
	return ChunkCoord{int32(r.u32()), int32(r.u32()), int32(r.u32())}
}

// ---- CLIENT_JOIN ----

type ClientJoin struct {
	ClientName string
	// UserID identifies the authenticated account issued by the pre-auth
	// REST login (0 means anonymous, no cross-session spawn persistence).
	UserID uint64
}

func (p *ClientJoin) Type() Type { return TypeClientJoin }
func (p *ClientJoin) encode(w *writer) {
	w.str(p.ClientName)
	w.u64(p.UserID)
}
func (p *ClientJoin) decode(r *reader) {
	p.ClientName = r.str()
	p.UserID = r.u64()
}

// ---- SERVER_HANDSHAKE ----

type ExistingPlayer struct {
	ID   uint16
	Name string
	P, D mathx.Vec3
}

type ServerHandshake struct {
	AssignedClientID uint16
	Existing         []ExistingPlayer
}

func (p *ServerHandshake) Type() Type { return TypeServerHandshake }

func (p *ServerHandshake) encode(w *writer) {
	w.u16(p.AssignedClientID)
	w.u16(uint16(len(p.Existing)))
	for _, e := range p.Existing {
		w.u16(e.ID)
		w.str(e.Name)
		w.vec3(e.P)
		w.vec3(e.D)
	}
}

func (p *ServerHandshake) decode(r *reader) {
	p.AssignedClientID = r.u16()
	n := int(r.u16())
	p.Existing = make([]ExistingPlayer, 0, n)
	for i := 0; i < n; i++ {
		var e ExistingPlayer
		e.ID = r.u16()
		e.Name = r.str()
		e.P = r.vec3()
		e.D = r.vec3()
		p.Existing = append(p.Existing, e)
	}
}

// ---- CHUNK_VOXELS_HARD_UPDATE ----

type ChunkHardUpdateEntry struct {
	Coord   ChunkCoord
	Density [ChunkDensityBytes]byte
}

type ChunkVoxelsHardUpdate struct {
	// TotalChunks is only meaningful (nonzero) on the first packet of a
	// stream; it lets the client size its receive state.
	TotalChunks uint32
	Chunks      []ChunkHardUpdateEntry
}

func (p *ChunkVoxelsHardUpdate) Type() Type { return TypeChunkVoxelsHardUpdate }

func (p *ChunkVoxelsHardUpdate) encode(w *writer) {
	w.u32(p.TotalChunks)
	w.u8(uint8(len(p.Chunks)))
	for _, c := range p.Chunks {
		w.chunkCoord(c.Coord)
		w.bytes(c.Density[:])
	}
}

func (p *ChunkVoxelsHardUpdate) decode(r *reader) {
	p.TotalChunks = r.u32()
	n := int(r.u8())
	p.Chunks = make([]ChunkHardUpdateEntry, 0, n)
	for i := 0; i < n; i++ {
		var c ChunkHardUpdateEntry
		c.Coord = r.chunkCoord()
		copy(c.Density[:], r.bytesN(ChunkDensityBytes))
		p.Chunks = append(p.Chunks, c)
	}
}

// ---- CLIENT_JOINED ----

type ClientJoined struct {
	ID   uint16
	Name string
	P, D mathx.Vec3
}

func (p *ClientJoined) Type() Type { return TypeClientJoined }

func (p *ClientJoined) encode(w *writer) {
	w.u16(p.ID)
	w.str(p.Name)
	w.vec3(p.P)
	w.vec3(p.D)
}

func (p *ClientJoined) decode(r *reader) {
	p.ID = r.u16()
	p.Name = r.str()
	p.P = r.vec3()
	p.D = r.vec3()
}

// ---- INPUT_STATE ----

type WireCommand struct {
	Tick        uint64
	ActionFlags uint32
	DX, DY      float32
	Flags       uint8
	DT          float32
}

type VoxelEdit struct{ X, Y, Z, Value uint8 }

type ChunkEdits struct {
	Coord  ChunkCoord
	Voxels []VoxelEdit
}

type InputState struct {
	Commands  []WireCommand
	FinalP    mathx.Vec3
	FinalD    mathx.Vec3
	ChunkEdits []ChunkEdits
}

func (p *InputState) Type() Type { return TypeInputState }

func (p *InputState) encode(w *writer) {
	w.u16(uint16(len(p.Commands)))
	for _, c := range p.Commands {
		w.u64(c.Tick)
		w.u32(c.ActionFlags)
		w.f32(c.DX)
		w.f32(c.DY)
		w.u8(c.Flags)
		w.f32(c.DT)
	}
	w.vec3(p.FinalP)
	w.vec3(p.FinalD)

	w.u16(uint16(len(p.ChunkEdits)))
	for _, ce := range p.ChunkEdits {
		w.chunkCoord(ce.Coord)
		w.u16(uint16(len(ce.Voxels)))
		for _, v := range ce.Voxels {
			w.u8(v.X)
			w.u8(v.Y)
			w.u8(v.Z)
			w.u8(v.Value)
		}
	}
}

func (p *InputState) decode(r *reader) {
	n := int(r.u16())
	p.Commands = make([]WireCommand, 0, n)
	for i := 0; i < n; i++ {
		var c WireCommand
		c.Tick = r.u64()
		c.ActionFlags = r.u32()
		c.DX = r.f32()
		c.DY = r.f32()
		c.Flags = r.u8()
		c.DT = r.f32()
		p.Commands = append(p.Commands, c)
	}
	p.FinalP = r.vec3()
	p.FinalD = r.vec3()

	nc := int(r.u16())
	p.ChunkEdits = make([]ChunkEdits, 0, nc)
	for i := 0; i < nc; i++ {
		var ce ChunkEdits
		ce.Coord = r.chunkCoord()
		nv := int(r.u16())
		ce.Voxels = make([]VoxelEdit, 0, nv)
		for j := 0; j < nv; j++ {
			ce.Voxels = append(ce.Voxels, VoxelEdit{r.u8(), r.u8(), r.u8(), r.u8()})
		}
		p.ChunkEdits = append(p.ChunkEdits, ce)
	}
}

// ---- GAME_STATE_SNAPSHOT ----

type PlayerSnapshot struct {
	ID                   uint16
	P, D, V, U           mathx.Vec3
	R                    mathx.Quat
	ActionFlags          uint32
	IsRolling            bool
	NeedCorrection       bool
	NeedVoxelCorrection  bool
	IsToIgnore           bool
}

type GameStateSnapshot struct {
	LastAckTick      uint64
	VoxelCorrections []ChunkEdits
	Players          []PlayerSnapshot
}

func (p *GameStateSnapshot) Type() Type { return TypeGameStateSnapshot }

func (p *GameStateSnapshot) encode(w *writer) {
	w.u64(p.LastAckTick)

	w.u16(uint16(len(p.VoxelCorrections)))
	for _, ce := range p.VoxelCorrections {
		w.chunkCoord(ce.Coord)
		w.u16(uint16(len(ce.Voxels)))
		for _, v := range ce.Voxels {
			w.u8(v.X)
			w.u8(v.Y)
			w.u8(v.Z)
			w.u8(v.Value)
		}
	}

	w.u16(uint16(len(p.Players)))
	for _, ps := range p.Players {
		w.u16(ps.ID)
		w.vec3(ps.P)
		w.vec3(ps.D)
		w.vec3(ps.V)
		w.vec3(ps.U)
		w.quat(ps.R)
		w.u32(ps.ActionFlags)
		w.bool(ps.IsRolling)
		w.bool(ps.NeedCorrection)
		w.bool(ps.NeedVoxelCorrection)
		w.bool(ps.IsToIgnore)
	}
}

func (p *GameStateSnapshot) decode(r *reader) {
	p.LastAckTick = r.u64()

	nc := int(r.u16())
	p.VoxelCorrections = make([]ChunkEdits, 0, nc)
	for i := 0; i < nc; i++ {
		var ce ChunkEdits
		ce.Coord = r.chunkCoord()
		nv := int(r.u16())
		ce.Voxels = make([]VoxelEdit, 0, nv)
		for j := 0; j < nv; j++ {
			ce.Voxels = append(ce.Voxels, VoxelEdit{r.u8(), r.u8(), r.u8(), r.u8()})
		}
		p.VoxelCorrections = append(p.VoxelCorrections, ce)
	}

	np := int(r.u16())
	p.Players = make([]PlayerSnapshot, 0, np)
	for i := 0; i < np; i++ {
		var ps PlayerSnapshot
		ps.ID = r.u16()
		ps.P = r.vec3()
		ps.D = r.vec3()
		ps.V = r.vec3()
		ps.U = r.vec3()
		ps.R = r.quat()
		ps.ActionFlags = r.u32()
		ps.IsRolling = r.boolean()
		ps.NeedCorrection = r.boolean()
		ps.NeedVoxelCorrection = r.boolean()
		ps.IsToIgnore = r.boolean()
		p.Players = append(p.Players, ps)
	}
}

// ---- PREDICTION_ERROR_CORRECTION ----

type PredictionErrorCorrection struct {
	ResyncedTick uint64
}

func (p *PredictionErrorCorrection) Type() Type { return TypePredictionErrorCorrection }
func (p *PredictionErrorCorrection) encode(w *writer) { w.u64(p.ResyncedTick) }
func (p *PredictionErrorCorrection) decode(r *reader) { p.ResyncedTick = r.u64() }

// ---- ACK_GAME_STATE_RECEPTION ----

type AckGameStateReception struct {
	AcknowledgedTick uint64
}

func (p *AckGameStateReception) Type() Type { return TypeAckGameStateReception }
func (p *AckGameStateReception) encode(w *writer) { w.u64(p.AcknowledgedTick) }
func (p *AckGameStateReception) decode(r *reader) { p.AcknowledgedTick = r.u64() }
