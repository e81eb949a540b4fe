package network

import (
	"github.com/annel0/mmo-game/internal/logging"
	"github.com/annel0/mmo-game/internal/storage"
)

// LoadSnapshot restores the grid from a Badger-backed world snapshot
// before the main loop starts. Must be called before Start(): nothing
// else may be touching s.grid/s.players yet. The persisted roster is
// informational only — spawn positions for reconnecting clients are
// resolved through posRepo by UserID, not by replaying disconnected
// players from the last run.
func (s *Server) LoadSnapshot(store *storage.WorldSnapshotStore) error {
	roster, err := store.LoadWorld(s.grid)
	if err != nil {
		return err
	}
	logging.LogInfo("network: restored world snapshot (%d players in last saved roster)", len(roster))
	return nil
}

// SaveSnapshot persists the grid and current player roster to a
// Badger-backed world snapshot. Must be called after Stop() returns, so
// the main loop goroutine is no longer mutating either.
func (s *Server) SaveSnapshot(store *storage.WorldSnapshotStore) error {
	return store.SaveWorld(s.grid, s.players)
}
