package util

import (
	"github.com/aquilax/go-perlin"
)

var perlinNoise *perlin.Perlin

// InitPerlinNoise инициализирует генератор шума Перлина с указанным сидом
func InitPerlinNoise(seed int64) {
	alpha := 2.0  // Сглаживание шума
	beta := 2.0   // Частота шума
	n := int32(3) // Количество октав
	perlinNoise = perlin.NewPerlin(alpha, beta, n, seed)
}

// PerlinNoise2D возвращает значение шума Перлина для указанных координат (от 0 до 1)
func PerlinNoise2D(x, y float64, seed int64) float64 {
	// Если генератор не инициализирован или используется другой сид, инициализируем его
	if perlinNoise == nil {
		InitPerlinNoise(seed)
	}

	// Получаем значение шума (от -1 до 1)
	noise := perlinNoise.Noise2D(x, y)

	// Преобразуем в диапазон от 0 до 1
	return (noise + 1.0) / 2.0
}

// PerlinDensity3D сэмплирует 3-мерный шум Перлина (через два 2-D среза) и
// возвращает значение плотности вокселя в диапазоне [0,255] — альтернативный
// генератор рельефа для воксельной сетки вместо двух стартовых сфер.
func PerlinDensity3D(x, y, z float64, seed int64) uint8 {
	if perlinNoise == nil {
		InitPerlinNoise(seed)
	}

	xy := perlinNoise.Noise2D(x, y)
	yz := perlinNoise.Noise2D(y, z+1000.0)
	combined := (xy + yz) / 2.0

	normalized := (combined + 1.0) / 2.0
	return uint8(normalized * 255.0)
}
