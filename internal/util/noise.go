package util

import (
	"math"

	"github.com/aquilax/go-perlin"
)

// Параметры шума Перлина
const (
	perlinAlpha   = 2.0 // Сглаживание шума
	perlinBeta    = 2.0 // Частота шума
	perlinOctaves = 3   // Количество октав

	DefaultNoiseScale = 0.137
)

// HeightSampler выдаёт высоту земли по глобальным координатам сетки.
// Экземпляр не меняется после создания и безопасен для параллельного чтения.
type HeightSampler struct {
	noise     *perlin.Perlin
	scale     float64
	maxHeight int
}

// NewHeightSampler создаёт сэмплер с заданным сидом.
// scale <= 0 заменяется на DefaultNoiseScale.
func NewHeightSampler(seed int64, scale float64, maxHeight int) *HeightSampler {
	if scale <= 0 {
		scale = DefaultNoiseScale
	}
	return &HeightSampler{
		noise:     perlin.NewPerlin(perlinAlpha, perlinBeta, perlinOctaves, seed),
		scale:     scale,
		maxHeight: maxHeight,
	}
}

// Noise2D возвращает значение шума Перлина для указанных координат (от 0 до 1)
func (s *HeightSampler) Noise2D(x, y float64) float64 {
	n := (s.noise.Noise2D(x*s.scale, y*s.scale) + 1.0) / 2.0
	return math.Max(0, math.Min(1, n))
}

// Height возвращает высоту в диапазоне [0, maxHeight], округлённую до целого
func (s *HeightSampler) Height(x, y float64) float64 {
	if s.maxHeight <= 0 {
		return 0
	}
	return math.Round(s.Noise2D(x, y) * float64(s.maxHeight))
}

// MaxHeight возвращает верхнюю границу высоты
func (s *HeightSampler) MaxHeight() int { return s.maxHeight }
