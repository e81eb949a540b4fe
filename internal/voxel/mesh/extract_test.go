package mesh

import (
	"testing"

	"github.com/annel0/mmo-game/internal/mathx"
)

type constSource struct{ value uint8 }

func (c constSource) Density(gx, gy, gz int32) (uint8, bool) { return c.value, true }

// TestExtractUniformProducesNoTriangles проверяет, что полностью твёрдый
// или полностью воздушный куб не порождает треугольников.
func TestExtractUniformProducesNoTriangles(t *testing.T) {
	for _, v := range []uint8{0, 255} {
		sink := &SliceSink{}
		Extract(constSource{v}, [3]int32{0, 0, 0}, [3]int32{4, 4, 4}, 60, mathx.Zero3(), 1, sink)
		if len(sink.Triangles) != 0 {
			t.Errorf("value=%d: expected 0 triangles, got %d", v, len(sink.Triangles))
		}
	}
}

type stepSource struct{ threshold int32 }

func (s stepSource) Density(gx, gy, gz int32) (uint8, bool) {
	if gx < s.threshold {
		return 255, true
	}
	return 0, true
}

// TestExtractStepProducesTriangles проверяет, что поле с резким переходом
// плотности через порог производит хотя бы один треугольник.
func TestExtractStepProducesTriangles(t *testing.T) {
	sink := &SliceSink{}
	Extract(stepSource{threshold: 2}, [3]int32{0, 0, 0}, [3]int32{4, 4, 4}, 60, mathx.Zero3(), 1, sink)
	if len(sink.Triangles) == 0 {
		t.Fatal("expected at least one triangle across a density step")
	}
}

// TestExtractSkipsAbsentNeighbor проверяет, что куб с недостающим соседним
// значением плотности пропускается (границы чанка дают частичный меш).
func TestExtractSkipsAbsentNeighbor(t *testing.T) {
	sink := &SliceSink{}
	Extract(absentAtOrigin{}, [3]int32{0, 0, 0}, [3]int32{1, 1, 1}, 60, mathx.Zero3(), 1, sink)
	if len(sink.Triangles) != 0 {
		t.Errorf("expected 0 triangles when a corner is absent, got %d", len(sink.Triangles))
	}
}

type absentAtOrigin struct{}

func (a absentAtOrigin) Density(gx, gy, gz int32) (uint8, bool) {
	if gx == 1 && gy == 1 && gz == 1 {
		return 0, false
	}
	return 200, true
}
