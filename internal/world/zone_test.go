package world

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/annel0/worldgen/internal/vec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCarveRectZoneScenario(t *testing.T) {
	m := NewCoordinateMap(scenarioSettings(), RegionKey{})
	def := rectZone("village", TypeSettlement, 3, 3, 3, 3)

	z, err := m.CarveZone(def, nil)
	require.NoError(t, err)
	assert.Equal(t, 9, z.Len())
	assert.Equal(t, 9, m.CountOfType(TypeSettlement))
	assert.Equal(t, 16, m.CountOfType(TypeNull))

	for y := 2; y <= 4; y++ {
		for x := 2; x <= 4; x++ {
			assert.True(t, z.Contains(vecKey(x, y)), "(%d,%d)", x, y)
		}
	}

	t.Run("повторное вырезание идемпотентно", func(t *testing.T) {
		before := m.TypeSnapshot()
		again, err := m.CarveZone(def, nil)
		require.NoError(t, err)
		assert.Same(t, z, again)
		assert.Equal(t, before, m.TypeSnapshot())
		assert.Len(t, m.Zones(), 1)
	})

	t.Run("CarveZones повторяет результат", func(t *testing.T) {
		before := m.TypeSnapshot()
		require.NoError(t, m.CarveZones([]ZoneDefinition{def}, nil))
		require.NoError(t, m.CarveZones([]ZoneDefinition{def}, nil))
		assert.Equal(t, before, m.TypeSnapshot())
	})
}

func TestCarveZoneClipping(t *testing.T) {
	m := NewCoordinateMap(scenarioSettings(), RegionKey{})

	z, err := m.CarveZone(rectZone("shore", TypeWater, 0, 3, 3, 3), nil)
	require.NoError(t, err)
	// x=-1 отсекается, граничные клетки x=0 занимаются
	assert.Equal(t, 6, z.Len())
	assert.Equal(t, TypeWater, mustType(t, m, vecKey(0, 3)))

	corner, err := m.CarveZone(rectZone("nook", TypeForest, 0, 0, 3, 3), nil)
	require.NoError(t, err)
	// из 2×2 внутри карты угол (0,0) не занимается
	assert.Equal(t, 3, corner.Len())
	assert.False(t, corner.Contains(vecKey(0, 0)))
	assert.Equal(t, TypeCorner, mustType(t, m, vecKey(0, 0)))
}

func TestCarveEvenSizeExtendsTowardPositive(t *testing.T) {
	m := NewCoordinateMap(scenarioSettings(), RegionKey{})
	z, err := m.CarveZone(rectZone("arena", TypeArena, 3, 3, 2, 2), nil)
	require.NoError(t, err)
	assert.Equal(t, []vec.Vec2{vecKey(3, 3), vecKey(4, 3), vecKey(3, 4), vecKey(4, 4)}, z.Members())
}

func TestCarveRadiusZone(t *testing.T) {
	m := NewCoordinateMap(scenarioSettings(), RegionKey{})
	def := ZoneDefinition{Name: "grove", Type: TypeForest, Anchor: vecKey(3, 3), Shape: ShapeRadius, Radius: 1}

	z, err := m.CarveZone(def, nil)
	require.NoError(t, err)
	assert.Equal(t, 5, z.Len())
	assert.False(t, z.Contains(vecKey(2, 2)))

	def.Name = "point"
	def.Radius = 0
	def.Anchor = vecKey(1, 1)
	p, err := m.CarveZone(def, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Len())
}

func TestCarveZoneOverlap(t *testing.T) {
	m := NewCoordinateMap(scenarioSettings(), RegionKey{})
	defs := []ZoneDefinition{
		rectZone("a", TypeSettlement, 3, 3, 3, 3),
		rectZone("b", TypeForest, 4, 4, 3, 3),
	}

	_, err := m.CarveZone(defs[0], nil)
	require.NoError(t, err)

	_, err = m.CarveZone(defs[1], nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrZoneOverlap)

	var overlap *ZoneOverlapError
	require.True(t, errors.As(err, &overlap))
	assert.Equal(t, "b", overlap.Zone)
	assert.Equal(t, "a", overlap.Other)

	// от неудачной зоны ничего не осталось
	assert.Zero(t, m.CountOfType(TypeForest))
	_, ok := m.Zone("b")
	assert.False(t, ok)
	assert.Equal(t, 9, m.CountOfType(TypeSettlement))

	t.Run("CarveZones не оставляет частичный результат", func(t *testing.T) {
		err := m.CarveZones(defs, nil)
		assert.ErrorIs(t, err, ErrZoneOverlap)
		assert.Empty(t, m.Zones())
		assert.Equal(t, 25, m.CountOfType(TypeNull))
	})
}

func TestZonesAreDisjoint(t *testing.T) {
	s := scenarioSettings()
	s.RegionWidth = 16
	m := NewCoordinateMap(s, RegionKey{})

	defs := []ZoneDefinition{
		rectZone("village", TypeSettlement, 3, 3, 4, 4),
		rectZone("lake", TypeWater, 10, 3, 5, 3),
		{Name: "grove", Type: TypeForest, Anchor: vecKey(8, 10), Shape: ShapeRadius, Radius: 3},
		{Name: "random", Type: TypePlayZone, RandomAnchor: true, Shape: ShapeRect, Width: 2, Height: 2},
	}
	require.NoError(t, m.CarveZones(defs, rand.New(rand.NewSource(42))))

	owner := make(map[vec.Vec2]string)
	for _, z := range m.Zones() {
		for _, k := range z.Members() {
			prev, taken := owner[k]
			assert.False(t, taken, "клетка %s принадлежит %q и %q", k, prev, z.Name())
			owner[k] = z.Name()
			assert.Equal(t, z.Type(), mustType(t, m, k))
		}
	}
}

func TestRandomAnchorIsSeedStable(t *testing.T) {
	def := ZoneDefinition{Name: "camp", Type: TypeSettlement, RandomAnchor: true, Shape: ShapeRect, Width: 3, Height: 3}

	carve := func() vec.Vec2 {
		m := NewCoordinateMap(scenarioSettings(), RegionKey{})
		z, err := m.CarveZone(def, rand.New(rand.NewSource(99)))
		require.NoError(t, err)
		return z.Anchor()
	}
	a, b := carve(), carve()
	assert.Equal(t, a, b)

	m := NewCoordinateMap(scenarioSettings(), RegionKey{})
	_, err := m.CarveZone(def, nil)
	assert.ErrorIs(t, err, ErrConfiguration, "случайное размещение без rng")
}

func TestRandomAnchorWithoutRoom(t *testing.T) {
	m := NewCoordinateMap(scenarioSettings(), RegionKey{})
	_, err := m.CarveZone(rectZone("all", TypeWater, 3, 3, 5, 5), nil)
	require.NoError(t, err)

	_, err = m.CarveZone(ZoneDefinition{Name: "late", Type: TypeForest, RandomAnchor: true, Shape: ShapeRect, Width: 1, Height: 1}, rand.New(rand.NewSource(1)))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRandomAnchorExhaustsCandidates(t *testing.T) {
	m := NewCoordinateMap(scenarioSettings(), RegionKey{})
	_, err := m.CarveZone(rectZone("well", TypeWater, 3, 3, 1, 1), nil)
	require.NoError(t, err)

	// любой якорь внутренней области накрывает (3,3)
	wide := ZoneDefinition{Name: "field", Type: TypeForest, RandomAnchor: true, Shape: ShapeRect, Width: 5, Height: 5}
	_, err = m.CarveZone(wide, rand.New(rand.NewSource(7)))
	require.Error(t, err)

	var placement *ZonePlacementError
	require.True(t, errors.As(err, &placement))
	assert.Equal(t, "field", placement.Zone)
	assert.Equal(t, 24, placement.Attempts, "все свободные клетки перебраны")

	var overlap *ZoneOverlapError
	require.True(t, errors.As(err, &overlap))
	assert.Equal(t, "well", overlap.Other)
	assert.ErrorIs(t, err, ErrZoneOverlap)
	assert.NotContains(t, err.Error(), `zone ""`)

	_, ok := m.Zone("field")
	assert.False(t, ok)
	assert.Zero(t, m.CountOfType(TypeForest))
}

func TestZoneDefinitionValidation(t *testing.T) {
	m := NewCoordinateMap(scenarioSettings(), RegionKey{})

	for name, def := range map[string]ZoneDefinition{
		"пустое имя":       rectZone("", TypeForest, 3, 3, 1, 1),
		"не тип зоны":      rectZone("x", TypeObstacle, 3, 3, 1, 1),
		"нулевой размер":   rectZone("x", TypeForest, 3, 3, 0, 2),
		"якорь вне карты":  rectZone("x", TypeForest, 10, 3, 1, 1),
		"отрицательный r":  {Name: "x", Type: TypeForest, Shape: ShapeRadius, Radius: -1},
		"только угол":      rectZone("x", TypeForest, 0, 0, 1, 1),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := m.CarveZone(def, nil)
			assert.ErrorIs(t, err, ErrConfiguration)
		})
	}

	_, err := m.CarveZone(rectZone("dup", TypeForest, 2, 2, 1, 1), nil)
	require.NoError(t, err)
	_, err = m.CarveZone(rectZone("dup", TypeForest, 4, 4, 1, 1), nil)
	assert.ErrorIs(t, err, ErrConfiguration, "то же имя с другим описанием")
}

func TestParseColor(t *testing.T) {
	c, err := ParseColor("#336699")
	require.NoError(t, err)
	assert.Equal(t, Color{R: 0x33, G: 0x66, B: 0x99, A: 0xff}, c)
	assert.Equal(t, "#336699ff", c.String())

	c, err = ParseColor("10203040")
	require.NoError(t, err)
	assert.Equal(t, uint8(0x40), c.A)

	_, err = ParseColor("#12")
	assert.Error(t, err)
}
