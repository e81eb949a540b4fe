package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/annel0/mmo-game/internal/mathx"
)

// MemoryPositionRepo реализует PositionRepo в памяти.
// Используется как fallback, когда MariaDB недоступна,
// или для CI/локальной разработки без БД.
// ВНИМАНИЕ: Данные теряются при перезапуске сервера!
type MemoryPositionRepo struct {
	mu   sync.RWMutex
	data map[uint64]mathx.Vec3 // userID -> позиция
}

// NewMemoryPositionRepo создает новый репозиторий позиций в памяти.
func NewMemoryPositionRepo() *MemoryPositionRepo {
	return &MemoryPositionRepo{
		data: make(map[uint64]mathx.Vec3),
	}
}

// Save сохраняет позицию игрока в памяти.
func (r *MemoryPositionRepo) Save(ctx context.Context, userID uint64, pos mathx.Vec3) error {
	if userID == 0 {
		return fmt.Errorf("недействительный userID: %d", userID)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.data[userID] = pos
	return nil
}

// Load загружает позицию игрока из памяти.
func (r *MemoryPositionRepo) Load(ctx context.Context, userID uint64) (mathx.Vec3, bool, error) {
	if userID == 0 {
		return mathx.Vec3{}, false, fmt.Errorf("недействительный userID: %d", userID)
	}

	select {
	case <-ctx.Done():
		return mathx.Vec3{}, false, ctx.Err()
	default:
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	pos, exists := r.data[userID]
	return pos, exists, nil
}

// Delete удаляет сохраненную позицию игрока из памяти.
func (r *MemoryPositionRepo) Delete(ctx context.Context, userID uint64) error {
	if userID == 0 {
		return fmt.Errorf("недействительный userID: %d", userID)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.data[userID]; !exists {
		return fmt.Errorf("позиция для пользователя %d не найдена", userID)
	}

	delete(r.data, userID)
	return nil
}

// BatchSave сохраняет позиции нескольких игроков в памяти.
func (r *MemoryPositionRepo) BatchSave(ctx context.Context, positions map[uint64]mathx.Vec3) error {
	if len(positions) == 0 {
		return nil
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	for userID := range positions {
		if userID == 0 {
			return fmt.Errorf("недействительный userID в batch: %d", userID)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for userID, pos := range positions {
		r.data[userID] = pos
	}

	return nil
}

// GetAllPositions возвращает все сохраненные позиции (для отладки).
// Этот метод не входит в интерфейс PositionRepo, но полезен для тестирования.
func (r *MemoryPositionRepo) GetAllPositions() map[uint64]mathx.Vec3 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[uint64]mathx.Vec3, len(r.data))
	for userID, pos := range r.data {
		result[userID] = pos
	}

	return result
}

// Count возвращает количество сохраненных позиций (для отладки).
func (r *MemoryPositionRepo) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.data)
}

// Clear очищает все сохраненные позиции (для тестов).
func (r *MemoryPositionRepo) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data = make(map[uint64]mathx.Vec3)
}
