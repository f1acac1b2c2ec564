package world

import (
	"fmt"
	"math/rand"

	"github.com/annel0/worldgen/internal/vec"
)

// neighborOffsets задаёт 4-связность и фиксированный порядок обхода: +x, -x, +y, -y
var neighborOffsets = [4]vec.Vec2{
	{X: 1, Y: 0},
	{X: -1, Y: 0},
	{X: 0, Y: 1},
	{X: 0, Y: -1},
}

// CoordinateMap владеет всеми клетками одного региона.
// Клетки хранятся построчно (индекс y*width+x), зоны: в порядке вырезания.
//
// Карта не потокобезопасна: изменяется только до публикации региона,
// после публикации используется только на чтение.
type CoordinateMap struct {
	settings GenerationSettings
	region   RegionKey
	offset   vec.Vec3Float
	width    int
	coords   []Coordinate
	zones    []*Zone
}

// NewCoordinateMap создаёт клетки региона и сразу классифицирует их
func NewCoordinateMap(settings GenerationSettings, region RegionKey) *CoordinateMap {
	width := settings.RegionWidth
	m := &CoordinateMap{
		settings: settings,
		region:   region,
		offset:   settings.RegionOffset(region),
		width:    width,
		coords:   make([]Coordinate, width*width),
	}

	foot := settings.ChunkFootprint()
	denom := float64(width - 1)

	for y := 0; y < width; y++ {
		for x := 0; x < width; x++ {
			key := vec.Vec2{X: x, Y: y}
			var normalized vec.Vec2Float
			if width > 1 {
				normalized = vec.Vec2Float{X: float64(x) / denom, Y: float64(y) / denom}
			}
			m.coords[y*width+x] = Coordinate{
				Key:        key,
				Normalized: normalized,
				WorldPosition: m.offset.Add(vec.Vec3Float{
					X: float64(x) * foot.X,
					Z: float64(y) * foot.Y,
				}),
				zoneIndex: -1,
			}
		}
	}

	m.Reclassify()
	return m
}

// Reclassify заново вычисляет структурный слой (Null/Border/Corner).
// Зоны, override и маршруты не трогает.
func (m *CoordinateMap) Reclassify() {
	offset := m.settings.RegionBoundaryOffset
	last := m.width - 1

	for i := range m.coords {
		c := &m.coords[i]
		c.base = classify(c.Key, m.width, offset)
	}

	if offset > 0 {
		for _, k := range []vec.Vec2{{X: 0, Y: 0}, {X: last, Y: 0}, {X: 0, Y: last}, {X: last, Y: last}} {
			m.coords[m.index(k)].base = TypeCorner
		}
	}
}

// classify: чистая функция ключа и размеров сетки
func classify(key vec.Vec2, width, offset int) CoordinateType {
	last := width - 1
	edge := min(key.X, key.Y, last-key.X, last-key.Y)
	if edge < offset {
		return TypeBorder
	}
	return TypeNull
}

func (m *CoordinateMap) index(key vec.Vec2) int {
	return key.Y*m.width + key.X
}

// Region возвращает ключ региона-владельца
func (m *CoordinateMap) Region() RegionKey { return m.region }

// Settings возвращает настройки, с которыми построена карта
func (m *CoordinateMap) Settings() GenerationSettings { return m.settings }

// Width возвращает длину стороны сетки
func (m *CoordinateMap) Width() int { return m.width }

// Len возвращает количество клеток
func (m *CoordinateMap) Len() int { return len(m.coords) }

// Contains проверяет, что ключ лежит в сетке
func (m *CoordinateMap) Contains(key vec.Vec2) bool {
	return key.X >= 0 && key.Y >= 0 && key.X < m.width && key.Y < m.width
}

// Get возвращает копию клетки
func (m *CoordinateMap) Get(key vec.Vec2) (Coordinate, bool) {
	if !m.Contains(key) {
		return Coordinate{}, false
	}
	return m.coords[m.index(key)], true
}

// TypeAt возвращает итоговый тип клетки
func (m *CoordinateMap) TypeAt(key vec.Vec2) (CoordinateType, error) {
	c, ok := m.Get(key)
	if !ok {
		return TypeNull, fmt.Errorf("coordinate %s: %w", key, ErrNotFound)
	}
	return c.Type(), nil
}

// Coordinates возвращает копии всех клеток в построчном порядке
func (m *CoordinateMap) Coordinates() []Coordinate {
	out := make([]Coordinate, len(m.coords))
	copy(out, m.coords)
	return out
}

// Neighbors возвращает соседей по 4-связности в порядке +x, -x, +y, -y
func (m *CoordinateMap) Neighbors(key vec.Vec2) []vec.Vec2 {
	out := make([]vec.Vec2, 0, len(neighborOffsets))
	for _, d := range neighborOffsets {
		n := key.Add(d)
		if m.Contains(n) {
			out = append(out, n)
		}
	}
	return out
}

// CountOfType считает клетки заданного типа
func (m *CoordinateMap) CountOfType(t CoordinateType) int {
	n := 0
	for i := range m.coords {
		if m.coords[i].Type() == t {
			n++
		}
	}
	return n
}

// Counts возвращает количество клеток по каждому встречающемуся типу
func (m *CoordinateMap) Counts() map[CoordinateType]int {
	counts := make(map[CoordinateType]int)
	for i := range m.coords {
		counts[m.coords[i].Type()]++
	}
	return counts
}

// KeysOfType возвращает ключи клеток заданного типа в построчном порядке
func (m *CoordinateMap) KeysOfType(t CoordinateType) []vec.Vec2 {
	var keys []vec.Vec2
	for i := range m.coords {
		if m.coords[i].Type() == t {
			keys = append(keys, m.coords[i].Key)
		}
	}
	return keys
}

// TypeSnapshot возвращает итоговые типы всех клеток в построчном порядке
func (m *CoordinateMap) TypeSnapshot() []CoordinateType {
	out := make([]CoordinateType, len(m.coords))
	for i := range m.coords {
		out[i] = m.coords[i].Type()
	}
	return out
}

// RandomCoordinateOfType равномерно выбирает клетку заданного типа.
// Кандидаты перебираются построчно, поэтому при одинаковом rng результат один и тот же.
func (m *CoordinateMap) RandomCoordinateOfType(rng *rand.Rand, t CoordinateType) (vec.Vec2, error) {
	keys := m.KeysOfType(t)
	if len(keys) == 0 {
		return vec.Vec2{}, fmt.Errorf("no coordinate of type %s in region %s: %w", t, m.region, ErrNotFound)
	}
	return keys[rng.Intn(len(keys))], nil
}

// SetOverride задаёт явный тип клетки (Obstacle, SpawnPoint) или снимает его (TypeNull)
func (m *CoordinateMap) SetOverride(key vec.Vec2, t CoordinateType) error {
	if t != TypeNull && !t.IsOverride() {
		return configErrorf("override", "type %s cannot be set explicitly", t)
	}
	if !m.Contains(key) {
		return fmt.Errorf("coordinate %s: %w", key, ErrNotFound)
	}
	m.coords[m.index(key)].override = t
	return nil
}

// ClearOverrides снимает все явные типы
func (m *CoordinateMap) ClearOverrides() {
	for i := range m.coords {
		m.coords[i].override = TypeNull
	}
}

// MarkPath отмечает клетки маршрута типом Path.
// Поиск маршрута карту не меняет, это отдельный явный шаг.
func (m *CoordinateMap) MarkPath(p *Path) error {
	for _, k := range p.keys {
		if !m.Contains(k) {
			return fmt.Errorf("path coordinate %s: %w", k, ErrNotFound)
		}
	}
	for _, k := range p.keys {
		m.coords[m.index(k)].onPath = true
	}
	return nil
}

// ClearPaths снимает отметки маршрутов
func (m *CoordinateMap) ClearPaths() {
	for i := range m.coords {
		m.coords[i].onPath = false
	}
}

// SetGroundHeight заполняет слот высоты земли клетки
func (m *CoordinateMap) SetGroundHeight(key vec.Vec2, h float64) error {
	if !m.Contains(key) {
		return fmt.Errorf("coordinate %s: %w", key, ErrNotFound)
	}
	c := &m.coords[m.index(key)]
	c.groundHeight = h
	c.hasGround = true
	return nil
}

// Clone возвращает независимую копию карты вместе с зонами
func (m *CoordinateMap) Clone() *CoordinateMap {
	cp := *m
	cp.coords = make([]Coordinate, len(m.coords))
	copy(cp.coords, m.coords)
	cp.zones = make([]*Zone, len(m.zones))
	for i, z := range m.zones {
		cp.zones[i] = z.clone()
	}
	return &cp
}
