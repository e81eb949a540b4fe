package network

import (
	"net"
	"testing"

	"github.com/annel0/mmo-game/internal/protocol"
)

// TestPersonalizeDeltaMatchReplacesWithSentinel проверяет сценарий
// совпадения предсказания: клиент сообщил voxel=200, сервер независимо
// вычислил то же значение — в дельте для этого клиента должен стоять
// sentinel 255, без принудительной коррекции.
func TestPersonalizeDeltaMatchReplacesWithSentinel(t *testing.T) {
	s := newTestServer(t)
	client := newClient(1, "alice", &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 1})
	client.PendingVoxelEdits[ChunkKey{0, 0, 0}] = []VoxelPos{{X: 3, Y: 4, Z: 5, Value: 200}}

	delta := []protocol.ChunkEdits{
		{
			Coord:  protocol.ChunkCoord{X: 0, Y: 0, Z: 0},
			Voxels: []protocol.VoxelEdit{{X: 3, Y: 4, Z: 5, Value: 200}},
		},
	}

	out, mismatch := s.personalizeDelta(client, delta)
	if mismatch {
		t.Fatal("expected no mismatch when client and server agree")
	}
	if got := out[0].Voxels[0].Value; got != protocol.VoxelCorrectionSentinel {
		t.Fatalf("voxel value = %d, want sentinel %d", got, protocol.VoxelCorrectionSentinel)
	}
}

// TestPersonalizeDeltaMismatchKeepsAuthoritativeValue проверяет сценарий
// расхождения предсказания: клиент сообщил voxel=200, сервер вычислил
// 120 — дельта для этого клиента должна нести 120 и флаг mismatch=true,
// что ведёт к need_correction в отправленном снапшоте.
func TestPersonalizeDeltaMismatchKeepsAuthoritativeValue(t *testing.T) {
	s := newTestServer(t)
	client := newClient(1, "alice", &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 1})
	client.PendingVoxelEdits[ChunkKey{0, 0, 0}] = []VoxelPos{{X: 3, Y: 4, Z: 5, Value: 200}}

	delta := []protocol.ChunkEdits{
		{
			Coord:  protocol.ChunkCoord{X: 0, Y: 0, Z: 0},
			Voxels: []protocol.VoxelEdit{{X: 3, Y: 4, Z: 5, Value: 120}},
		},
	}

	out, mismatch := s.personalizeDelta(client, delta)
	if !mismatch {
		t.Fatal("expected a mismatch when client and server disagree")
	}
	if got := out[0].Voxels[0].Value; got != 120 {
		t.Fatalf("voxel value = %d, want authoritative 120", got)
	}
}

// TestPersonalizeDeltaUntouchedVoxelPassesThrough проверяет, что вокселя,
// которые этот клиент не сообщал, проходят без изменений и не
// порождают mismatch.
func TestPersonalizeDeltaUntouchedVoxelPassesThrough(t *testing.T) {
	s := newTestServer(t)
	client := newClient(1, "alice", &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 1})

	delta := []protocol.ChunkEdits{
		{
			Coord:  protocol.ChunkCoord{X: 0, Y: 0, Z: 0},
			Voxels: []protocol.VoxelEdit{{X: 1, Y: 1, Z: 1, Value: 77}},
		},
	}

	out, mismatch := s.personalizeDelta(client, delta)
	if mismatch {
		t.Fatal("expected no mismatch for a voxel this client never reported")
	}
	if got := out[0].Voxels[0].Value; got != 77 {
		t.Fatalf("voxel value = %d, want unchanged 77", got)
	}
}
