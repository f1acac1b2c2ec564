package vec

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVec2Distances(t *testing.T) {
	a := Vec2{X: 1, Y: 2}
	b := Vec2{X: 4, Y: -2}

	assert.Equal(t, 7, a.ManhattanTo(b))
	assert.Equal(t, 4, a.ChebyshevTo(b))
	assert.InDelta(t, 5.0, a.DistanceTo(b), 1e-9)
	assert.Equal(t, Vec2{X: 5, Y: 0}, a.Add(b))
	assert.Equal(t, Vec2{X: -3, Y: 4}, a.Sub(b))
}

func TestVec2Less(t *testing.T) {
	assert.True(t, Vec2{X: 5, Y: 0}.Less(Vec2{X: 0, Y: 1}), "строка важнее столбца")
	assert.True(t, Vec2{X: 1, Y: 3}.Less(Vec2{X: 2, Y: 3}))
	assert.False(t, Vec2{X: 2, Y: 3}.Less(Vec2{X: 2, Y: 3}))
}

func TestVec2FloatToVec2(t *testing.T) {
	assert.Equal(t, Vec2{X: -1, Y: 2}, Vec2Float{X: -0.5, Y: 2.9}.ToVec2())
	assert.Equal(t, Vec2Float{X: 3, Y: 4}, FromVec2(Vec2{X: 3, Y: 4}))
	assert.InDelta(t, 5.0, Vec2Float{X: 3, Y: 4}.Length(), 1e-9)
}

func TestVec3FloatGround(t *testing.T) {
	p := Vec3Float{X: 1, Y: 7, Z: 3}
	assert.Equal(t, Vec2Float{X: 1, Y: 3}, p.Ground())
	assert.Equal(t, 2.0, p.WithY(2).Y)
	assert.Equal(t, 7.0, p.Y, "WithY не должен менять исходный вектор")
}
