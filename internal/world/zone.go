package world

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"

	"github.com/annel0/worldgen/internal/vec"
)

// MaxPlacementAttempts: сколько случайных якорей пробуется для зоны со случайным размещением
const MaxPlacementAttempts = 32

// ZoneShape: политика заполнения зоны
type ZoneShape uint8

const (
	ShapeRect   ZoneShape = iota // прямоугольник с центром в якоре (по умолчанию)
	ShapeRadius                  // круг радиуса Radius вокруг якоря
)

func (s ZoneShape) String() string {
	switch s {
	case ShapeRect:
		return "rect"
	case ShapeRadius:
		return "radius"
	default:
		return fmt.Sprintf("ZoneShape(%d)", uint8(s))
	}
}

// ParseZoneShape разбирает имя политики; пустая строка: прямоугольник
func ParseZoneShape(s string) (ZoneShape, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "rect", "rectangle":
		return ShapeRect, nil
	case "radius", "circle":
		return ShapeRadius, nil
	}
	return ShapeRect, configErrorf("zone.shape", "unknown shape %q", s)
}

// Color: цвет зоны для визуализации, в логике не участвует
type Color struct {
	R, G, B, A uint8
}

// ParseColor разбирает "#rrggbb" или "#rrggbbaa"
func ParseColor(s string) (Color, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) != 6 && len(hex) != 8 {
		return Color{}, configErrorf("zone.color", "expected #rrggbb or #rrggbbaa, got %q", s)
	}
	if len(hex) == 6 {
		hex += "ff"
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return Color{}, configErrorf("zone.color", "invalid hex %q", s)
	}
	return Color{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}

func (c Color) String() string {
	return fmt.Sprintf("#%02x%02x%02x%02x", c.R, c.G, c.B, c.A)
}

func (c Color) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

func (c *Color) UnmarshalText(text []byte) error {
	parsed, err := ParseColor(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ZoneDefinition: авторское описание зоны
type ZoneDefinition struct {
	Name         string         `json:"name"`
	Type         CoordinateType `json:"type"`
	Anchor       vec.Vec2       `json:"anchor"`
	RandomAnchor bool           `json:"random_anchor,omitempty"`
	Shape        ZoneShape      `json:"shape"`
	Width        int            `json:"width,omitempty"`
	Height       int            `json:"height,omitempty"`
	Radius       int            `json:"radius,omitempty"`
	Color        Color          `json:"color"`
}

// Validate проверяет описание без привязки к карте
func (d ZoneDefinition) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return configErrorf("zone.name", "must not be empty")
	}
	if !d.Type.IsZoneType() {
		return configErrorf("zone.type", "zone %q: %s is not a zone type", d.Name, d.Type)
	}
	switch d.Shape {
	case ShapeRect:
		if d.Width <= 0 || d.Height <= 0 {
			return configErrorf("zone.size", "zone %q: width and height must be > 0, got %dx%d", d.Name, d.Width, d.Height)
		}
	case ShapeRadius:
		if d.Radius < 0 {
			return configErrorf("zone.radius", "zone %q: radius must be >= 0, got %d", d.Name, d.Radius)
		}
	default:
		return configErrorf("zone.shape", "zone %q: unknown shape %s", d.Name, d.Shape)
	}
	return nil
}

// footprint возвращает клетки зоны вокруг якоря без отсечения, построчно.
// Для чётных размеров прямоугольник смещается в сторону +x/+y.
func (d ZoneDefinition) footprint(anchor vec.Vec2) []vec.Vec2 {
	var keys []vec.Vec2
	switch d.Shape {
	case ShapeRadius:
		r := d.Radius
		for dy := -r; dy <= r; dy++ {
			for dx := -r; dx <= r; dx++ {
				if dx*dx+dy*dy <= r*r {
					keys = append(keys, vec.Vec2{X: anchor.X + dx, Y: anchor.Y + dy})
				}
			}
		}
	default:
		x0 := anchor.X - (d.Width-1)/2
		y0 := anchor.Y - (d.Height-1)/2
		for y := y0; y < y0+d.Height; y++ {
			for x := x0; x < x0+d.Width; x++ {
				keys = append(keys, vec.Vec2{X: x, Y: y})
			}
		}
	}
	return keys
}

// Zone: именованная типизированная область карты
type Zone struct {
	def     ZoneDefinition
	anchor  vec.Vec2
	order   int
	members []vec.Vec2
	set     map[vec.Vec2]struct{}
}

// Name возвращает имя зоны
func (z *Zone) Name() string { return z.def.Name }

// Type возвращает тип, который зона назначает своим клеткам
func (z *Zone) Type() CoordinateType { return z.def.Type }

// Anchor возвращает фактический якорь (для случайного размещения выбранный)
func (z *Zone) Anchor() vec.Vec2 { return z.anchor }

// Color возвращает цвет зоны
func (z *Zone) Color() Color { return z.def.Color }

// Order возвращает порядковый номер вырезания
func (z *Zone) Order() int { return z.order }

// Definition возвращает исходное описание
func (z *Zone) Definition() ZoneDefinition { return z.def }

// Members возвращает клетки зоны в построчном порядке
func (z *Zone) Members() []vec.Vec2 {
	out := make([]vec.Vec2, len(z.members))
	copy(out, z.members)
	return out
}

// Len возвращает количество клеток зоны
func (z *Zone) Len() int { return len(z.members) }

// Contains проверяет принадлежность клетки зоне
func (z *Zone) Contains(key vec.Vec2) bool {
	_, ok := z.set[key]
	return ok
}

func (z *Zone) clone() *Zone {
	cp := *z
	cp.members = z.Members()
	cp.set = make(map[vec.Vec2]struct{}, len(z.set))
	for k := range z.set {
		cp.set[k] = struct{}{}
	}
	return &cp
}

// Zones возвращает зоны карты в порядке вырезания
func (m *CoordinateMap) Zones() []*Zone {
	out := make([]*Zone, len(m.zones))
	copy(out, m.zones)
	return out
}

// Zone ищет зону по имени
func (m *CoordinateMap) Zone(name string) (*Zone, bool) {
	for _, z := range m.zones {
		if z.def.Name == name {
			return z, true
		}
	}
	return nil, false
}

// ZoneAt возвращает зону, которой принадлежит клетка
func (m *CoordinateMap) ZoneAt(key vec.Vec2) (*Zone, bool) {
	c, ok := m.Get(key)
	if !ok || c.zoneIndex < 0 {
		return nil, false
	}
	return m.zones[c.zoneIndex], true
}

// ClearZones снимает все зоны с карты
func (m *CoordinateMap) ClearZones() {
	for i := range m.coords {
		m.coords[i].zoneIndex = -1
		m.coords[i].zoneType = TypeNull
	}
	m.zones = nil
}

// CarveZones вырезает зоны заново в порядке объявления.
// При ошибке карта остаётся без зон.
func (m *CoordinateMap) CarveZones(defs []ZoneDefinition, rng *rand.Rand) error {
	m.ClearZones()
	for _, def := range defs {
		if _, err := m.CarveZone(def, rng); err != nil {
			m.ClearZones()
			return err
		}
	}
	return nil
}

// CarveZone вырезает одну зону.
//
// Клетки вне карты отсекаются, угловые клетки не занимаются никогда.
// Если хоть одна клетка уже принадлежит другой зоне: ZoneOverlapError,
// и от вырезаемой зоны ничего не остаётся. Повторное вырезание того же
// описания возвращает уже существующую зону. Если случайный якорь так
// и не нашёлся: ZonePlacementError с причиной последней попытки.
func (m *CoordinateMap) CarveZone(def ZoneDefinition, rng *rand.Rand) (*Zone, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}

	if existing, ok := m.Zone(def.Name); ok {
		if existing.def == def {
			return existing, nil
		}
		return nil, configErrorf("zone.name", "zone %q already carved with a different definition", def.Name)
	}

	if !def.RandomAnchor {
		if !m.Contains(def.Anchor) {
			return nil, configErrorf("zone.anchor", "zone %q: anchor %s outside region of width %d", def.Name, def.Anchor, m.width)
		}
		targets, err := m.claim(def, def.Anchor)
		if err != nil {
			return nil, err
		}
		return m.commitZone(def, def.Anchor, targets), nil
	}

	if rng == nil {
		return nil, configErrorf("zone.random_anchor", "zone %q: random placement requires a random source", def.Name)
	}

	candidates := m.KeysOfType(TypeNull)
	if len(candidates) == 0 {
		return nil, fmt.Errorf("zone %q: no free anchor: %w", def.Name, ErrNotFound)
	}

	var lastErr error
	attempts := 0
	for ; attempts < MaxPlacementAttempts && len(candidates) > 0; attempts++ {
		i := rng.Intn(len(candidates))
		anchor := candidates[i]
		candidates[i] = candidates[len(candidates)-1]
		candidates = candidates[:len(candidates)-1]

		targets, err := m.claim(def, anchor)
		if err != nil {
			lastErr = err
			continue
		}
		return m.commitZone(def, anchor, targets), nil
	}
	return nil, &ZonePlacementError{Zone: def.Name, Attempts: attempts, Cause: lastErr}
}

// claim собирает клетки, которые зона займёт вокруг якоря, не меняя карту
func (m *CoordinateMap) claim(def ZoneDefinition, anchor vec.Vec2) ([]int, error) {
	var targets []int
	for _, key := range def.footprint(anchor) {
		if !m.Contains(key) {
			continue
		}
		idx := m.index(key)
		c := &m.coords[idx]
		if c.base == TypeCorner {
			continue
		}
		if c.zoneIndex >= 0 {
			return nil, &ZoneOverlapError{Zone: def.Name, Other: m.zones[c.zoneIndex].def.Name, Key: key}
		}
		targets = append(targets, idx)
	}
	if len(targets) == 0 {
		return nil, configErrorf("zone.size", "zone %q claims no cells around %s", def.Name, anchor)
	}
	return targets, nil
}

func (m *CoordinateMap) commitZone(def ZoneDefinition, anchor vec.Vec2, targets []int) *Zone {
	z := &Zone{
		def:     def,
		anchor:  anchor,
		order:   len(m.zones),
		members: make([]vec.Vec2, 0, len(targets)),
		set:     make(map[vec.Vec2]struct{}, len(targets)),
	}
	for _, idx := range targets {
		c := &m.coords[idx]
		c.zoneIndex = z.order
		c.zoneType = def.Type
		z.members = append(z.members, c.Key)
		z.set[c.Key] = struct{}{}
	}
	m.zones = append(m.zones, z)
	return z
}
