package protocol

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/annel0/mmo-game/internal/mathx"
)

// writer accumulates a packet body in wire order.
type writer struct {
	buf []byte
}

func (w *writer) u8(v uint8)   { w.buf = append(w.buf, v) }
func (w *writer) u16(v uint16) { w.buf = append(w.buf, 0, 0); binary.LittleEndian.PutUint16(w.buf[len(w.buf)-2:], v) }
func (w *writer) u32(v uint32) {
	w.buf = append(w.buf, 0, 0, 0, 0)
	binary.LittleEndian.PutUint32(w.buf[len(w.buf)-4:], v)
}
func (w *writer) u64(v uint64) {
	w.buf = append(w.buf, 0, 0, 0, 0, 0, 0, 0, 0)
	binary.LittleEndian.PutUint64(w.buf[len(w.buf)-8:], v)
}
func (w *writer) f32(v float32) { w.u32(math.Float32bits(v)) }

func (w *writer) vec3(v mathx.Vec3) {
	w.f32(v.X())
	w.f32(v.Y())
	w.f32(v.Z())
}

func (w *writer) quat(q mathx.Quat) {
	w.f32(q.W)
	w.f32(q.V.X())
	w.f32(q.V.Y())
	w.f32(q.V.Z())
}

func (w *writer) str(s string) {
	w.u16(uint16(len(s)))
	w.buf = append(w.buf, s...)
}

func (w *writer) bytes(b []byte) { w.buf = append(w.buf, b...) }

func (w *writer) bool(b bool) {
	if b {
		w.u8(1)
	} else {
		w.u8(0)
	}
}

// reader consumes a packet body in wire order, tracking the first error
// encountered so call sites can chain reads and check once at the end.
type reader struct {
	buf []byte
	off int
	err error
}

func (r *reader) need(n int) bool {
	if r.err != nil {
		return false
	}
	if r.off+n > len(r.buf) {
		r.err = fmt.Errorf("protocol: body truncated at offset %d, need %d more bytes", r.off, n)
		return false
	}
	return true
}

func (r *reader) u8() uint8 {
	if !r.need(1) {
		return 0
	}
	v := r.buf[r.off]
	r.off++
	return v
}

func (r *reader) u16() uint16 {
	if !r.need(2) {
		return 0
	}
	v := binary.LittleEndian.Uint16(r.buf[r.off:])
	r.off += 2
	return v
}

func (r *reader) u32() uint32 {
	if !r.need(4) {
		return 0
	}
	v := binary.LittleEndian.Uint32(r.buf[r.off:])
	r.off += 4
	return v
}

func (r *reader) u64() uint64 {
	if !r.need(8) {
		return 0
	}
	v := binary.LittleEndian.Uint64(r.buf[r.off:])
	r.off += 8
	return v
}

func (r *reader) f32() float32 { return math.Float32frombits(r.u32()) }

func (r *reader) vec3() mathx.Vec3 {
	return mathx.Vec3{r.f32(), r.f32(), r.f32()}
}

func (r *reader) quat() mathx.Quat {
	w := r.f32()
	x := r.f32()
	y := r.f32()
	z := r.f32()
	return mathx.Quat{W: w, V: mathx.Vec3{x, y, z}}
}

func (r *reader) str() string {
	n := int(r.u16())
	if !r.need(n) {
		return ""
	}
	s := string(r.buf[r.off : r.off+n])
	r.off += n
	return s
}

func (r *reader) bytesN(n int) []byte {
	if !r.need(n) {
		return nil
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b
}

func (r *reader) boolean() bool { return r.u8() != 0 }
