package storage

import (
	"os"
	"testing"

	"github.com/annel0/mmo-game/internal/mathx"
	"github.com/annel0/mmo-game/internal/sim"
	"github.com/annel0/mmo-game/internal/voxel"
)

func setupTestStore(t *testing.T) (*WorldSnapshotStore, string) {
	tempDir, err := os.MkdirTemp("", "world-storage-test")
	if err != nil {
		t.Fatalf("Не удалось создать временную директорию: %v", err)
	}

	store, err := NewWorldSnapshotStore(tempDir)
	if err != nil {
		os.RemoveAll(tempDir)
		t.Fatalf("Не удалось создать хранилище: %v", err)
	}

	return store, tempDir
}

func cleanupTestStore(store *WorldSnapshotStore, tempDir string) {
	if store != nil {
		store.Close()
	}
	if tempDir != "" {
		os.RemoveAll(tempDir)
	}
}

func TestSaveAndLoadWorld(t *testing.T) {
	store, tempDir := setupTestStore(t)
	defer cleanupTestStore(store, tempDir)

	grid := voxel.NewGrid(2, 1.0, 60)
	grid.SetVoxel(0, 0, 0, 3, 4, 5, 200)
	grid.SetVoxel(1, 0, 0, 1, 1, 1, 100)

	players := map[uint16]*sim.Player{
		1: sim.NewPlayer(1, "tester", mathx.Vec3{1, 2, 3}),
	}

	if err := store.SaveWorld(grid, players); err != nil {
		t.Fatalf("ошибка сохранения мира: %v", err)
	}

	loadedGrid := voxel.NewGrid(2, 1.0, 60)
	loadedPlayers, err := store.LoadWorld(loadedGrid)
	if err != nil {
		t.Fatalf("ошибка загрузки мира: %v", err)
	}

	if got := loadedGrid.VoxelAt(0, 0, 0, 3, 4, 5); got != 200 {
		t.Errorf("voxel (0,0,0)+(3,4,5) = %d, ожидалось 200", got)
	}
	if got := loadedGrid.VoxelAt(1, 0, 0, 1, 1, 1); got != 100 {
		t.Errorf("voxel (1,0,0)+(1,1,1) = %d, ожидалось 100", got)
	}

	if len(loadedPlayers) != 1 {
		t.Fatalf("ожидался 1 игрок в ростере, получено %d", len(loadedPlayers))
	}
	if loadedPlayers[0].Name != "tester" {
		t.Errorf("имя игрока = %q, ожидалось %q", loadedPlayers[0].Name, "tester")
	}
}

func TestLoadWorldEmptyStore(t *testing.T) {
	store, tempDir := setupTestStore(t)
	defer cleanupTestStore(store, tempDir)

	grid := voxel.NewGrid(2, 1.0, 60)
	players, err := store.LoadWorld(grid)
	if err != nil {
		t.Fatalf("ошибка загрузки пустого хранилища: %v", err)
	}
	if len(players) != 0 {
		t.Errorf("ожидался пустой ростер, получено %d записей", len(players))
	}
}
