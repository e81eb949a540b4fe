package storage

import (
	"context"
	"testing"
	"time"

	"github.com/annel0/mmo-game/internal/mathx"
)

// TestMemoryPositionRepo тестирует in-memory репозиторий позиций
func TestMemoryPositionRepo(t *testing.T) {
	repo := NewMemoryPositionRepo()
	ctx := context.Background()

	t.Run("Save and Load", func(t *testing.T) {
		userID := uint64(123)
		expectedPos := mathx.Vec3{10, 20, 1}

		err := repo.Save(ctx, userID, expectedPos)
		if err != nil {
			t.Fatalf("Ошибка сохранения позиции: %v", err)
		}

		actualPos, found, err := repo.Load(ctx, userID)
		if err != nil {
			t.Fatalf("Ошибка загрузки позиции: %v", err)
		}
		if !found {
			t.Fatal("Позиция не найдена")
		}
		if actualPos != expectedPos {
			t.Errorf("Неверная позиция: ожидалась %+v, получена %+v", expectedPos, actualPos)
		}
	})

	t.Run("Load Non-Existent User", func(t *testing.T) {
		userID := uint64(999)

		pos, found, err := repo.Load(ctx, userID)
		if err != nil {
			t.Fatalf("Ошибка при загрузке несуществующего пользователя: %v", err)
		}
		if found {
			t.Error("Позиция найдена для несуществующего пользователя")
		}
		if pos != (mathx.Vec3{}) {
			t.Errorf("Ожидалась пустая позиция, получена: %+v", pos)
		}
	})

	t.Run("Update Position", func(t *testing.T) {
		userID := uint64(456)
		firstPos := mathx.Vec3{1, 2, 1}
		secondPos := mathx.Vec3{3, 4, 2}

		if err := repo.Save(ctx, userID, firstPos); err != nil {
			t.Fatalf("Ошибка сохранения первой позиции: %v", err)
		}
		if err := repo.Save(ctx, userID, secondPos); err != nil {
			t.Fatalf("Ошибка обновления позиции: %v", err)
		}

		actualPos, found, err := repo.Load(ctx, userID)
		if err != nil {
			t.Fatalf("Ошибка загрузки обновленной позиции: %v", err)
		}
		if !found {
			t.Fatal("Обновленная позиция не найдена")
		}
		if actualPos != secondPos {
			t.Errorf("Неверная обновленная позиция: ожидалась %+v, получена %+v", secondPos, actualPos)
		}
	})

	t.Run("Delete Position", func(t *testing.T) {
		userID := uint64(789)
		pos := mathx.Vec3{5, 6, 1}

		if err := repo.Save(ctx, userID, pos); err != nil {
			t.Fatalf("Ошибка сохранения позиции: %v", err)
		}
		if err := repo.Delete(ctx, userID); err != nil {
			t.Fatalf("Ошибка удаления позиции: %v", err)
		}

		_, found, err := repo.Load(ctx, userID)
		if err != nil {
			t.Fatalf("Ошибка загрузки после удаления: %v", err)
		}
		if found {
			t.Error("Позиция найдена после удаления")
		}
	})

	t.Run("BatchSave", func(t *testing.T) {
		positions := map[uint64]mathx.Vec3{
			100: {10, 11, 1},
			200: {20, 21, 2},
			300: {30, 31, 1},
		}

		if err := repo.BatchSave(ctx, positions); err != nil {
			t.Fatalf("Ошибка пакетного сохранения: %v", err)
		}

		for userID, expectedPos := range positions {
			actualPos, found, err := repo.Load(ctx, userID)
			if err != nil {
				t.Fatalf("Ошибка загрузки позиции для пользователя %d: %v", userID, err)
			}
			if !found {
				t.Errorf("Позиция не найдена для пользователя %d", userID)
				continue
			}
			if actualPos != expectedPos {
				t.Errorf("Неверная позиция для пользователя %d: ожидалась %+v, получена %+v",
					userID, expectedPos, actualPos)
			}
		}
	})

	t.Run("Validation", func(t *testing.T) {
		err := repo.Save(ctx, 0, mathx.Vec3{1, 1, 1})
		if err == nil {
			t.Error("Ожидалась ошибка для недействительного userID")
		}
	})

	t.Run("Context Cancellation", func(t *testing.T) {
		canceledCtx, cancel := context.WithCancel(context.Background())
		cancel()

		err := repo.Save(canceledCtx, uint64(555), mathx.Vec3{1, 1, 1})
		if err != context.Canceled {
			t.Errorf("Ожидалась ошибка отмены контекста, получена: %v", err)
		}
	})
}

// TestMemoryPositionRepoUtilityMethods тестирует вспомогательные методы
func TestMemoryPositionRepoUtilityMethods(t *testing.T) {
	repo := NewMemoryPositionRepo()
	ctx := context.Background()

	if repo.Count() != 0 {
		t.Errorf("Ожидалось 0 позиций, получено: %d", repo.Count())
	}

	positions := map[uint64]mathx.Vec3{
		1: {1, 1, 1},
		2: {2, 2, 1},
		3: {3, 3, 2},
	}

	for userID, pos := range positions {
		if err := repo.Save(ctx, userID, pos); err != nil {
			t.Fatalf("Ошибка сохранения позиции для пользователя %d: %v", userID, err)
		}
	}

	if repo.Count() != len(positions) {
		t.Errorf("Ожидалось %d позиций, получено: %d", len(positions), repo.Count())
	}

	allPositions := repo.GetAllPositions()
	if len(allPositions) != len(positions) {
		t.Errorf("Ожидалось %d позиций в GetAllPositions, получено: %d",
			len(positions), len(allPositions))
	}

	for userID, expectedPos := range positions {
		if actualPos, exists := allPositions[userID]; !exists {
			t.Errorf("Позиция для пользователя %d не найдена в GetAllPositions", userID)
		} else if actualPos != expectedPos {
			t.Errorf("Неверная позиция для пользователя %d: ожидалась %+v, получена %+v",
				userID, expectedPos, actualPos)
		}
	}

	repo.Clear()
	if repo.Count() != 0 {
		t.Errorf("После Clear ожидалось 0 позиций, получено: %d", repo.Count())
	}
	if len(repo.GetAllPositions()) != 0 {
		t.Error("После Clear GetAllPositions должна возвращать пустую карту")
	}
}

// TestConcurrentAccess тестирует concurrent доступ к репозиторию
func TestConcurrentAccess(t *testing.T) {
	repo := NewMemoryPositionRepo()
	ctx := context.Background()

	const numGoroutines = 10
	const numOperations = 100

	done := make(chan bool, numGoroutines)

	for i := 0; i < numGoroutines; i++ {
		go func(goroutineID int) {
			defer func() { done <- true }()

			for j := 0; j < numOperations; j++ {
				userID := uint64(goroutineID*numOperations + j + 1)
				pos := mathx.Vec3{float32(goroutineID), float32(j), 1}

				if err := repo.Save(ctx, userID, pos); err != nil {
					t.Errorf("Ошибка сохранения в горутине %d: %v", goroutineID, err)
					return
				}

				loadedPos, found, err := repo.Load(ctx, userID)
				if err != nil {
					t.Errorf("Ошибка загрузки в горутине %d: %v", goroutineID, err)
					return
				}
				if !found {
					t.Errorf("Позиция не найдена в горутине %d для пользователя %d",
						goroutineID, userID)
					return
				}
				if loadedPos != pos {
					t.Errorf("Неверная позиция в горутине %d: ожидалась %+v, получена %+v",
						goroutineID, pos, loadedPos)
					return
				}
			}
		}(i)
	}

	for i := 0; i < numGoroutines; i++ {
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("Тест превысил таймаут")
		}
	}

	expectedCount := numGoroutines * numOperations
	actualCount := repo.Count()
	if actualCount != expectedCount {
		t.Errorf("Ожидалось %d позиций после concurrent теста, получено: %d",
			expectedCount, actualCount)
	}
}
