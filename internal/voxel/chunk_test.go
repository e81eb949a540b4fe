package voxel

import "testing"

// TestModificationListMatchesHistoryInvariant проверяет инвариант: после
// любой последовательности записей в пределах интервала modList содержит v
// тогда и только тогда, когда V[v] отличается от пред-образа из history.
func TestModificationListMatchesHistoryInvariant(t *testing.T) {
	c := NewChunk(ChunkCoord{0, 0, 0})

	c.set(1, 2, 3, 100)
	if !c.HasChanges() {
		t.Fatal("expected a change after first write")
	}

	changes := c.Changes()
	if len(changes) != 1 || changes[0].Prev != 0 || changes[0].Next != 100 {
		t.Fatalf("unexpected change record: %+v", changes)
	}

	// Writing back to the pre-interval value must remove the index from
	// both the modification list and history.
	c.set(1, 2, 3, 0)
	if c.HasChanges() {
		t.Fatal("expected no changes after reverting to pre-image value")
	}
}

// TestChangesUniquePerIndex проверяет, что повторные записи по одному
// индексу не дублируют запись в списке модификаций.
func TestChangesUniquePerIndex(t *testing.T) {
	c := NewChunk(ChunkCoord{0, 0, 0})

	c.set(0, 0, 0, 10)
	c.set(0, 0, 0, 20)
	c.set(0, 0, 0, 30)

	changes := c.Changes()
	if len(changes) != 1 {
		t.Fatalf("expected exactly 1 change record, got %d", len(changes))
	}
	if changes[0].Prev != 0 || changes[0].Next != 30 {
		t.Fatalf("expected prev=0 next=30, got prev=%d next=%d", changes[0].Prev, changes[0].Next)
	}
}

// TestCloseIntervalClearsBookkeeping проверяет, что CloseInterval очищает
// список модификаций, историю и dirty_for_gpu.
func TestCloseIntervalClearsBookkeeping(t *testing.T) {
	c := NewChunk(ChunkCoord{0, 0, 0})
	c.set(5, 5, 5, 77)

	c.CloseInterval()
	if c.HasChanges() {
		t.Fatal("expected no changes after CloseInterval")
	}
	if c.DirtyForGPU {
		t.Fatal("expected DirtyForGPU cleared after CloseInterval")
	}
	if c.At(5, 5, 5) != 77 {
		t.Fatal("CloseInterval must not revert the voxel's current value")
	}
}
