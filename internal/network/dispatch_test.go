package network

import (
	"net"
	"testing"

	"github.com/annel0/mmo-game/internal/mathx"
	"github.com/annel0/mmo-game/internal/protocol"
	"github.com/annel0/mmo-game/internal/sim"
)

// TestHandleDatagramPredictionErrorCorrectionUnlocksInput проверяет
// сквозной путь через handleDatagram (не просто ApplySnapshot в
// изоляции): после того как need_correction защёлкнул
// NeedsAckPredictionError, приход PREDICTION_ERROR_CORRECTION от этого
// клиента должен снять защёлку, а не оставить клиента заблокированным
// навсегда, как это было бы при отсутствии case в switch.
func TestHandleDatagramPredictionErrorCorrectionUnlocksInput(t *testing.T) {
	s := newTestServer(t)
	addr := &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 22001}

	client := newClient(1, "alice", addr)
	client.NeedsAckPredictionError = true
	s.clients[1] = client
	s.players[1] = sim.NewPlayer(1, "alice", mathx.Vec3{0, 0, 0})

	data := protocol.Encode(protocol.ModeClient, 1, 0, &protocol.PredictionErrorCorrection{ResyncedTick: 7})
	s.handleDatagram(data, addr)

	if client.NeedsAckPredictionError {
		t.Fatal("expected PREDICTION_ERROR_CORRECTION to clear NeedsAckPredictionError")
	}

	input := protocol.Encode(protocol.ModeClient, 1, 0, &protocol.InputState{
		Commands: []protocol.WireCommand{{Tick: 8}},
	})
	s.handleDatagram(input, addr)

	if got := s.players[1].Commands.Pending(); len(got) != 1 || got[0].Tick != 8 {
		t.Fatalf("expected INPUT_STATE to be accepted after unlock, got %+v", got)
	}
}

// TestHandleDatagramInputStateIgnoredWhileLocked проверяет обратную
// сторону: пока защёлка установлена, INPUT_STATE отбрасывается.
func TestHandleDatagramInputStateIgnoredWhileLocked(t *testing.T) {
	s := newTestServer(t)
	addr := &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 22002}

	client := newClient(2, "bob", addr)
	client.NeedsAckPredictionError = true
	s.clients[2] = client
	s.players[2] = sim.NewPlayer(2, "bob", mathx.Vec3{0, 0, 0})

	input := protocol.Encode(protocol.ModeClient, 2, 0, &protocol.InputState{
		Commands: []protocol.WireCommand{{Tick: 1}},
	})
	s.handleDatagram(input, addr)

	if got := s.players[2].Commands.Pending(); len(got) != 0 {
		t.Fatalf("expected INPUT_STATE to be ignored while locked, got %+v", got)
	}
}
