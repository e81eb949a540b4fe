package storage

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/annel0/mmo-game/internal/mathx"
	"github.com/annel0/mmo-game/internal/sim"
	"github.com/annel0/mmo-game/internal/voxel"
	"github.com/dgraph-io/badger/v3"
)

// WorldSnapshotStore persists a voxel grid and player roster to Badger for
// crash-restart continuity. Nothing in the tick loop calls it — spec.md
// §6 keeps a run's live state entirely in memory — it is invoked only by
// an explicit SaveWorld/LoadWorld hook.
type WorldSnapshotStore struct {
	db      *badger.DB
	mutex   sync.RWMutex
	isReady bool
}

// chunkRecord is one chunk's dense voxel array, keyed by its grid
// coordinate.
type chunkRecord struct {
	X       int32                                                    `json:"x"`
	Y       int32                                                    `json:"y"`
	Z       int32                                                    `json:"z"`
	Density [voxel.ChunkEdge * voxel.ChunkEdge * voxel.ChunkEdge]byte `json:"density"`
}

// playerRecord is one player's replicated state at save time.
type playerRecord struct {
	ID   uint16       `json:"id"`
	Name string       `json:"name"`
	P    mathx.Vec3   `json:"p"`
	D    mathx.Vec3   `json:"d"`
	V    mathx.Vec3   `json:"v"`
	U    mathx.Vec3   `json:"u"`
	R    mathx.Quat   `json:"r"`
	Mode sim.Mode     `json:"mode"`
}

// NewWorldSnapshotStore opens (or creates) a Badger database rooted at
// dataPath/world.
func NewWorldSnapshotStore(dataPath string) (*WorldSnapshotStore, error) {
	dbPath := filepath.Join(dataPath, "world")
	opts := badger.DefaultOptions(dbPath)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть BadgerDB: %w", err)
	}

	return &WorldSnapshotStore{db: db, isReady: true}, nil
}

// Close closes the underlying database.
func (ws *WorldSnapshotStore) Close() error {
	ws.mutex.Lock()
	defer ws.mutex.Unlock()

	if !ws.isReady {
		return nil
	}
	ws.isReady = false
	return ws.db.Close()
}

// SaveWorld writes every chunk's dense array and the full player roster
// in one Badger transaction.
func (ws *WorldSnapshotStore) SaveWorld(grid *voxel.Grid, players map[uint16]*sim.Player) error {
	ws.mutex.Lock()
	defer ws.mutex.Unlock()

	if !ws.isReady {
		return fmt.Errorf("хранилище не готово")
	}

	return ws.db.Update(func(txn *badger.Txn) error {
		for _, c := range grid.AllChunks() {
			rec := chunkRecord{X: c.Coord.X, Y: c.Coord.Y, Z: c.Coord.Z, Density: c.Snapshot()}
			data, err := json.Marshal(rec)
			if err != nil {
				return fmt.Errorf("ошибка сериализации чанка %v: %w", c.Coord, err)
			}
			key := fmt.Sprintf("chunk:%d:%d:%d", c.Coord.X, c.Coord.Y, c.Coord.Z)
			if err := txn.Set([]byte(key), data); err != nil {
				return err
			}
		}

		roster := make([]playerRecord, 0, len(players))
		for _, p := range players {
			roster = append(roster, playerRecord{
				ID: p.ClientID, Name: p.Name, P: p.P, D: p.D, V: p.V, U: p.U, R: p.R, Mode: p.Mode,
			})
		}
		data, err := json.Marshal(roster)
		if err != nil {
			return fmt.Errorf("ошибка сериализации ростера: %w", err)
		}
		return txn.Set([]byte("players"), data)
	})
}

// LoadWorld reads every persisted chunk into grid and returns the
// persisted player roster (spawned players, not yet registered against
// any client connection).
func (ws *WorldSnapshotStore) LoadWorld(grid *voxel.Grid) ([]*sim.Player, error) {
	ws.mutex.RLock()
	defer ws.mutex.RUnlock()

	if !ws.isReady {
		return nil, fmt.Errorf("хранилище не готово")
	}

	var players []*sim.Player

	err := ws.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte("chunk:")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			var rec chunkRecord
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			}); err != nil {
				return fmt.Errorf("ошибка десериализации чанка: %w", err)
			}
			chunk := grid.ChunkAt(voxel.ChunkCoord{X: rec.X, Y: rec.Y, Z: rec.Z})
			if chunk == nil {
				continue
			}
			chunk.LoadSnapshot(rec.Density)
		}

		item, err := txn.Get([]byte("players"))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		var roster []playerRecord
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &roster)
		}); err != nil {
			return fmt.Errorf("ошибка десериализации ростера: %w", err)
		}
		for _, pr := range roster {
			p := sim.NewPlayer(pr.ID, pr.Name, pr.P)
			p.D, p.V, p.U, p.R, p.Mode = pr.D, pr.V, pr.U, pr.R, pr.Mode
			players = append(players, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return players, nil
}
