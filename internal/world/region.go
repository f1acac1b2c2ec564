package world

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"

	"github.com/annel0/worldgen/internal/vec"
)

// RegionKey: координаты региона в сетке мира
type RegionKey struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
}

func (k RegionKey) String() string {
	return fmt.Sprintf("%d,%d", k.X, k.Y)
}

// Less задаёт построчный порядок регионов
func (k RegionKey) Less(other RegionKey) bool {
	if k.Y != other.Y {
		return k.Y < other.Y
	}
	return k.X < other.X
}

// ParseRegionKey разбирает ключ вида "x,y"
func ParseRegionKey(s string) (RegionKey, error) {
	parts := strings.Split(strings.TrimSpace(s), ",")
	if len(parts) != 2 {
		return RegionKey{}, fmt.Errorf("invalid region key %q: expected x,y", s)
	}
	x, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return RegionKey{}, fmt.Errorf("invalid region key %q: %w", s, err)
	}
	y, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return RegionKey{}, fmt.Errorf("invalid region key %q: %w", s, err)
	}
	return RegionKey{X: x, Y: y}, nil
}

// MarshalText нужен, чтобы RegionKey можно было использовать ключом JSON-объекта
func (k RegionKey) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *RegionKey) UnmarshalText(text []byte) error {
	parsed, err := ParseRegionKey(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Rect: прямоугольник на плоскости земли в мировых единицах (X, Z)
type Rect struct {
	Min vec.Vec2Float `json:"min"`
	Max vec.Vec2Float `json:"max"`
}

// Size возвращает размеры прямоугольника
func (r Rect) Size() vec.Vec2Float {
	return vec.Vec2Float{X: r.Max.X - r.Min.X, Y: r.Max.Y - r.Min.Y}
}

// Contains проверяет точку (полуинтервал [Min, Max))
func (r Rect) Contains(p vec.Vec2Float) bool {
	return p.X >= r.Min.X && p.Y >= r.Min.Y && p.X < r.Max.X && p.Y < r.Max.Y
}

// Region: единица процедурной генерации: карта клеток, чанки и зоны.
// После публикации регион используется только на чтение.
type Region struct {
	key      RegionKey
	settings GenerationSettings
	offset   vec.Vec3Float
	coords   *CoordinateMap
	chunks   *ChunkMap
}

// Key возвращает ключ региона в сетке мира
func (r *Region) Key() RegionKey { return r.key }

// Settings возвращает настройки генерации
func (r *Region) Settings() GenerationSettings { return r.settings }

// Offset возвращает мировое смещение начала региона
func (r *Region) Offset() vec.Vec3Float { return r.offset }

// Coordinates возвращает карту клеток. Вызывающий не должен её изменять.
func (r *Region) Coordinates() *CoordinateMap { return r.coords }

// Chunks возвращает чанки региона
func (r *Region) Chunks() *ChunkMap { return r.chunks }

// Zones возвращает зоны региона в порядке вырезания
func (r *Region) Zones() []*Zone { return r.coords.Zones() }

// Zone ищет зону по имени
func (r *Region) Zone(name string) (*Zone, bool) { return r.coords.Zone(name) }

// ChunkAt возвращает чанк по ключу клетки
func (r *Region) ChunkAt(key vec.Vec2) (Chunk, error) { return r.chunks.At(key) }

// ComputePath ищет маршрут внутри региона
func (r *Region) ComputePath(start, end vec.Vec2, excluded TypeSet) (*Path, error) {
	return ComputePath(r.coords, start, end, excluded)
}

// GetRandomCoordinateValueOfType выбирает случайную клетку заданного типа
func (r *Region) GetRandomCoordinateValueOfType(rng *rand.Rand, t CoordinateType) (vec.Vec2, error) {
	return r.coords.RandomCoordinateOfType(rng, t)
}

// Bounds возвращает прямоугольник региона в мировых единицах
func (r *Region) Bounds() Rect {
	span := r.settings.RegionSpan()
	origin := r.offset.Ground()
	return Rect{Min: origin, Max: origin.Add(span)}
}

// Clone возвращает копию региона с независимой картой клеток.
// Чанки после построения не меняются и используются совместно.
func (r *Region) Clone() *Region {
	cp := *r
	cp.coords = r.coords.Clone()
	return &cp
}
