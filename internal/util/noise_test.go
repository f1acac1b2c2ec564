package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHeightSamplerRangeAndDeterminism(t *testing.T) {
	a := NewHeightSampler(42, 0, 8)
	b := NewHeightSampler(42, 0, 8)

	for x := 0; x < 20; x++ {
		for y := 0; y < 20; y++ {
			h := a.Height(float64(x), float64(y))
			assert.GreaterOrEqual(t, h, 0.0)
			assert.LessOrEqual(t, h, 8.0)
			assert.Equal(t, h, b.Height(float64(x), float64(y)), "одинаковый сид, одинаковая высота")
		}
	}
}

func TestHeightSamplerZeroMax(t *testing.T) {
	s := NewHeightSampler(7, 0.5, 0)
	assert.Equal(t, 0.0, s.Height(3, 4))
	assert.Equal(t, 0, s.MaxHeight())
}
