package world

import (
	"math/rand"
	"testing"

	"github.com/annel0/worldgen/internal/vec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func vecKey(x, y int) vec.Vec2 { return vec.Vec2{X: x, Y: y} }

func TestClassificationScenario(t *testing.T) {
	m := NewCoordinateMap(scenarioSettings(), RegionKey{})

	assert.Equal(t, 49, m.Len())
	assert.Equal(t, 4, m.CountOfType(TypeCorner))
	assert.Equal(t, 20, m.CountOfType(TypeBorder))
	assert.Equal(t, 24, m.CountOfType(TypeBorder)+m.CountOfType(TypeCorner), "граничная полоса вместе с углами")
	assert.Equal(t, 25, m.CountOfType(TypeNull))

	assert.Equal(t, []vec.Vec2{vecKey(0, 0), vecKey(6, 0), vecKey(0, 6), vecKey(6, 6)}, m.KeysOfType(TypeCorner))
}

func TestClassificationCountsForVariousSettings(t *testing.T) {
	for _, tc := range []struct {
		width, offset int
	}{
		{3, 1}, {5, 2}, {8, 1}, {16, 3}, {9, 0},
	} {
		s := scenarioSettings()
		s.RegionWidth = tc.width
		s.RegionBoundaryOffset = tc.offset
		require.NoError(t, s.Validate())

		m := NewCoordinateMap(s, RegionKey{})
		assert.Equal(t, tc.width*tc.width, m.Len())

		inner := tc.width - 2*tc.offset
		assert.Equal(t, inner*inner, m.CountOfType(TypeNull), "width=%d offset=%d", tc.width, tc.offset)
		if tc.offset > 0 {
			assert.Equal(t, 4, m.CountOfType(TypeCorner))
		} else {
			assert.Zero(t, m.CountOfType(TypeCorner))
		}
	}
}

func TestClassificationIsDeterministic(t *testing.T) {
	a := NewCoordinateMap(scenarioSettings(), RegionKey{X: 0, Y: 0})
	b := NewCoordinateMap(scenarioSettings(), RegionKey{X: 0, Y: 0})
	assert.Equal(t, a.TypeSnapshot(), b.TypeSnapshot())

	before := a.TypeSnapshot()
	a.Reclassify()
	assert.Equal(t, before, a.TypeSnapshot())
}

func TestCoordinatePositions(t *testing.T) {
	s := scenarioSettings()
	s.WorldWidth = 2
	m := NewCoordinateMap(s, RegionKey{X: 1, Y: 0})

	c, ok := m.Get(vecKey(3, 2))
	require.True(t, ok)

	// Чанк 10×2 = 20 мировых единиц, регион 7×20 = 140
	assert.Equal(t, vec.Vec3Float{X: 140 + 60, Z: 40}, c.WorldPosition)
	assert.InDelta(t, 0.5, c.Normalized.X, 1e-9)
	assert.InDelta(t, 2.0/6.0, c.Normalized.Y, 1e-9)

	_, ok = m.Get(vecKey(7, 0))
	assert.False(t, ok)
}

func TestNeighborsOrder(t *testing.T) {
	m := NewCoordinateMap(scenarioSettings(), RegionKey{})

	assert.Equal(t, []vec.Vec2{vecKey(4, 3), vecKey(2, 3), vecKey(3, 4), vecKey(3, 2)}, m.Neighbors(vecKey(3, 3)))
	assert.Equal(t, []vec.Vec2{vecKey(1, 0), vecKey(0, 1)}, m.Neighbors(vecKey(0, 0)))
}

func TestTypePrecedence(t *testing.T) {
	m := NewCoordinateMap(scenarioSettings(), RegionKey{})

	// override сильнее Border
	require.NoError(t, m.SetOverride(vecKey(0, 3), TypeObstacle))
	assert.Equal(t, TypeObstacle, mustType(t, m, vecKey(0, 3)))

	// Corner сильнее всего
	require.NoError(t, m.SetOverride(vecKey(0, 0), TypeObstacle))
	assert.Equal(t, TypeCorner, mustType(t, m, vecKey(0, 0)))

	// зона сильнее override
	require.NoError(t, m.SetOverride(vecKey(3, 3), TypeSpawnPoint))
	_, err := m.CarveZone(rectZone("camp", TypeSettlement, 3, 3, 1, 1), nil)
	require.NoError(t, err)
	assert.Equal(t, TypeSettlement, mustType(t, m, vecKey(3, 3)))

	// снятие override возвращает классификацию
	require.NoError(t, m.SetOverride(vecKey(0, 3), TypeNull))
	assert.Equal(t, TypeBorder, mustType(t, m, vecKey(0, 3)))

	assert.ErrorIs(t, m.SetOverride(vecKey(2, 2), TypeForest), ErrConfiguration)
	assert.ErrorIs(t, m.SetOverride(vecKey(9, 9), TypeObstacle), ErrNotFound)
}

func TestRandomCoordinateOfType(t *testing.T) {
	m := NewCoordinateMap(scenarioSettings(), RegionKey{})

	t.Run("детерминированность", func(t *testing.T) {
		a, err := m.RandomCoordinateOfType(rand.New(rand.NewSource(7)), TypeNull)
		require.NoError(t, err)
		b, err := m.RandomCoordinateOfType(rand.New(rand.NewSource(7)), TypeNull)
		require.NoError(t, err)
		assert.Equal(t, a, b)
		assert.Equal(t, TypeNull, mustType(t, m, a))
	})

	t.Run("только нужный тип", func(t *testing.T) {
		rng := rand.New(rand.NewSource(1))
		for i := 0; i < 50; i++ {
			k, err := m.RandomCoordinateOfType(rng, TypeCorner)
			require.NoError(t, err)
			assert.Equal(t, TypeCorner, mustType(t, m, k))
		}
	})

	t.Run("тип отсутствует", func(t *testing.T) {
		_, err := m.RandomCoordinateOfType(rand.New(rand.NewSource(1)), TypeWater)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestCloneIsIndependent(t *testing.T) {
	m := NewCoordinateMap(scenarioSettings(), RegionKey{})
	_, err := m.CarveZone(rectZone("lake", TypeWater, 3, 3, 3, 3), nil)
	require.NoError(t, err)

	cp := m.Clone()
	require.NoError(t, cp.SetOverride(vecKey(1, 1), TypeObstacle))
	cp.ClearZones()

	assert.Equal(t, 9, m.CountOfType(TypeWater))
	assert.Equal(t, TypeNull, mustType(t, m, vecKey(1, 1)))
	assert.Len(t, m.Zones(), 1)
}

func TestTypeNames(t *testing.T) {
	for _, typ := range AllTypes() {
		parsed, err := ParseCoordinateType(typ.String())
		require.NoError(t, err)
		assert.Equal(t, typ, parsed)
	}

	edge, err := ParseCoordinateType("edge")
	require.NoError(t, err)
	assert.Equal(t, TypeBorder, edge)

	_, err = ParseCoordinateType("lava")
	assert.ErrorIs(t, err, ErrConfiguration)

	assert.Equal(t, "{Corner,Obstacle}", NewTypeSet(TypeObstacle, TypeCorner).String())
}

func mustType(t *testing.T, m *CoordinateMap, key vec.Vec2) CoordinateType {
	t.Helper()
	typ, err := m.TypeAt(key)
	require.NoError(t, err)
	return typ
}
