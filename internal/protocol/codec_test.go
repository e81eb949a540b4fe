package protocol

import (
	"testing"

	"github.com/annel0/mmo-game/internal/mathx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestCodecRoundTrip проверяет, что Encode->Decode возвращает эквивалентный
// пакет для каждого вида пакета протокола.
func TestCodecRoundTrip(t *testing.T) {
	cases := []Packet{
		&ClientJoin{ClientName: "alice"},
		&ServerHandshake{
			AssignedClientID: 3,
			Existing: []ExistingPlayer{
				{ID: 1, Name: "bob", P: mathx.Vec3{1, 2, 3}, D: mathx.Vec3{0, 0, 1}},
			},
		},
		&ChunkVoxelsHardUpdate{
			TotalChunks: 125,
			Chunks: []ChunkHardUpdateEntry{
				{Coord: ChunkCoord{1, 2, 3}},
			},
		},
		&ClientJoined{ID: 7, Name: "carol", P: mathx.Vec3{4, 5, 6}, D: mathx.Vec3{1, 0, 0}},
		&InputState{
			Commands: []WireCommand{{ActionFlags: 3, DX: 0.5, DY: -0.5, Flags: 1, DT: 0.02}},
			FinalP:   mathx.Vec3{1, 1, 1},
			FinalD:   mathx.Vec3{0, 1, 0},
			ChunkEdits: []ChunkEdits{
				{Coord: ChunkCoord{0, 0, 0}, Voxels: []VoxelEdit{{X: 1, Y: 2, Z: 3, Value: 200}}},
			},
		},
		&GameStateSnapshot{
			LastAckTick: 42,
			VoxelCorrections: []ChunkEdits{
				{Coord: ChunkCoord{0, 0, 0}, Voxels: []VoxelEdit{{X: 1, Y: 1, Z: 1, Value: VoxelCorrectionSentinel}}},
			},
			Players: []PlayerSnapshot{
				{ID: 1, P: mathx.Vec3{1, 2, 3}, D: mathx.Vec3{0, 0, 1}, R: mathx.Quat{W: 1}, IsRolling: true},
			},
		},
		&PredictionErrorCorrection{ResyncedTick: 99},
		&AckGameStateReception{AcknowledgedTick: 100},
	}

	for _, pkt := range cases {
		data := Encode(ModeClient, 5, 17, pkt)

		header, decoded, err := Decode(data)
		require.NoError(t, err)
		assert.Equal(t, pkt.Type(), header.Type)
		assert.Equal(t, uint16(5), header.ClientID)
		assert.Equal(t, uint64(17), header.CurrentTick)
		assert.Equal(t, pkt, decoded)
	}
}

// TestDecodeRejectsSizeMismatch проверяет, что несовпадение total_size с
// фактическим размером датаграммы приводит к отбросу пакета (§4.5, §7).
func TestDecodeRejectsSizeMismatch(t *testing.T) {
	data := Encode(ModeServer, 0, 0, &AckGameStateReception{AcknowledgedTick: 1})
	data = append(data, 0xFF) // corrupt: extra trailing byte

	_, _, err := Decode(data)
	assert.Error(t, err)
}

// TestDecodeRejectsUnknownType проверяет отбрасывание пакета неизвестного типа.
func TestDecodeRejectsUnknownType(t *testing.T) {
	data := Encode(ModeServer, 0, 0, &AckGameStateReception{AcknowledgedTick: 1})
	data[1] = 0xFE // corrupt the type byte

	_, _, err := Decode(data)
	assert.Error(t, err)
}
