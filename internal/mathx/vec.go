// Package mathx предоставляет 3-мерную векторную алгебру и кватернионы
// для симуляции игрока и коллизий поверх github.com/go-gl/mathgl.
//
// Собственный пакет vec teamplate-а ориентирован на 2-D координаты блоков
// (vec.Vec2, vec.Vec3 с целыми компонентами); здесь нужна непрерывная
// 3-D математика с ориентацией, поэтому используем mathgl вместо
// самодельных формул.
package mathx

import "github.com/go-gl/mathgl/mgl32"

// Vec3 — позиция/направление/скорость в мировых координатах.
type Vec3 = mgl32.Vec3

// Quat — ориентация игрока.
type Quat = mgl32.Quat

// Zero3 возвращает нулевой вектор.
func Zero3() Vec3 { return Vec3{0, 0, 0} }

// Up возвращает мировую ось "вверх" по умолчанию.
func Up() Vec3 { return Vec3{0, 1, 0} }

// NearUnit проверяет, что вектор нормализован с заданной точностью.
func NearUnit(v Vec3, eps float32) bool {
	l := v.Len()
	return l > 1-eps && l < 1+eps
}

// SafeNormalize нормализует вектор, возвращая исходный при нулевой длине.
func SafeNormalize(v Vec3) Vec3 {
	l := v.Len()
	if l < 1e-8 {
		return v
	}
	return v.Mul(1 / l)
}

// RotateAround поворачивает v вокруг оси axis на угол angle (радианы).
func RotateAround(v, axis Vec3, angle float32) Vec3 {
	q := mgl32.QuatRotate(angle, SafeNormalize(axis))
	return q.Rotate(v)
}

// Clamp01 ограничивает f в диапазоне [0,1].
func Clamp01(f float32) float32 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// ClampByte ограничивает целое в диапазоне [0,255] и возвращает uint8.
func ClampByte(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
