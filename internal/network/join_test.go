package network

import (
	"context"
	"net"
	"testing"

	"github.com/annel0/mmo-game/internal/config"
	"github.com/annel0/mmo-game/internal/mathx"
	"github.com/annel0/mmo-game/internal/protocol"
	"github.com/annel0/mmo-game/internal/storage"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	s, err := NewServer("127.0.0.1:0", config.SimConfig{}.WithDefaults())
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	t.Cleanup(func() { s.transport.Close() })
	return s
}

// TestHandleJoinAnonymousUsesDefaultSpawn проверяет, что клиент с
// UserID=0 всегда спавнится в spawnPoint, независимо от posRepo.
func TestHandleJoinAnonymousUsesDefaultSpawn(t *testing.T) {
	s := newTestServer(t)
	repo := storage.NewMemoryPositionRepo()
	if err := repo.Save(context.Background(), 42, mathx.Vec3{1, 2, 3}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	s.SetPositionRepo(repo)

	addr := &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 12345}
	s.handleJoin(&protocol.ClientJoin{ClientName: "bob", UserID: 0}, addr)

	player := s.players[0]
	if player == nil {
		t.Fatal("expected a player to be registered for client id 0")
	}
	if player.P != spawnPoint {
		t.Fatalf("anonymous join spawned at %v, want default spawnPoint %v", player.P, spawnPoint)
	}
}

// TestHandleJoinAuthenticatedResumesSavedPosition проверяет
// восстановление позиции по UserID при повторном подключении
// (кросс-сессионная персистентность спавна).
func TestHandleJoinAuthenticatedResumesSavedPosition(t *testing.T) {
	s := newTestServer(t)
	repo := storage.NewMemoryPositionRepo()
	saved := mathx.Vec3{7, 8, 9}
	if err := repo.Save(context.Background(), 42, saved); err != nil {
		t.Fatalf("Save: %v", err)
	}
	s.SetPositionRepo(repo)

	addr := &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 12346}
	s.handleJoin(&protocol.ClientJoin{ClientName: "carol", UserID: 42}, addr)

	player := s.players[0]
	if player == nil {
		t.Fatal("expected a player to be registered for client id 0")
	}
	if player.P != saved {
		t.Fatalf("authenticated join spawned at %v, want saved position %v", player.P, saved)
	}
	if s.clients[0].UserID != 42 {
		t.Fatalf("client record UserID = %d, want 42", s.clients[0].UserID)
	}
}

// TestHandleJoinAuthenticatedNoSavedPositionUsesDefault проверяет, что
// новый (ещё не сохранённый) UserID тоже спавнится в spawnPoint.
func TestHandleJoinAuthenticatedNoSavedPositionUsesDefault(t *testing.T) {
	s := newTestServer(t)
	s.SetPositionRepo(storage.NewMemoryPositionRepo())

	addr := &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 12347}
	s.handleJoin(&protocol.ClientJoin{ClientName: "dave", UserID: 99}, addr)

	player := s.players[0]
	if player == nil {
		t.Fatal("expected a player to be registered for client id 0")
	}
	if player.P != spawnPoint {
		t.Fatalf("unsaved-user join spawned at %v, want default spawnPoint %v", player.P, spawnPoint)
	}
}
