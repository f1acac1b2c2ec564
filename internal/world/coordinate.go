package world

import (
	"fmt"
	"strings"

	"github.com/annel0/worldgen/internal/vec"
)

// CoordinateType: роль клетки в сетке региона.
// Закрытое перечисление: новые типы добавляются только новыми константами.
type CoordinateType uint8

const (
	TypeNull       CoordinateType = iota // неклассифицированная внутренняя клетка
	TypeBorder                           // граничная полоса региона
	TypeCorner                           // угол граничной полосы
	TypeObstacle                         // явное препятствие
	TypeSpawnPoint                       // точка появления
	TypePath                             // клетка проложенного маршрута

	// Типы зон
	TypeSettlement
	TypeForest
	TypeWater
	TypeArena
	TypePlayZone

	typeCount // всегда последний
)

var typeNames = [typeCount]string{
	TypeNull:       "Null",
	TypeBorder:     "Border",
	TypeCorner:     "Corner",
	TypeObstacle:   "Obstacle",
	TypeSpawnPoint: "SpawnPoint",
	TypePath:       "Path",
	TypeSettlement: "Settlement",
	TypeForest:     "Forest",
	TypeWater:      "Water",
	TypeArena:      "Arena",
	TypePlayZone:   "PlayZone",
}

// AllTypes возвращает все типы в порядке объявления
func AllTypes() []CoordinateType {
	types := make([]CoordinateType, 0, typeCount)
	for t := CoordinateType(0); t < typeCount; t++ {
		types = append(types, t)
	}
	return types
}

func (t CoordinateType) String() string {
	if t < typeCount {
		return typeNames[t]
	}
	return fmt.Sprintf("CoordinateType(%d)", uint8(t))
}

// ParseCoordinateType разбирает имя типа (регистр не важен).
// "Edge" принимается как синоним Border.
func ParseCoordinateType(s string) (CoordinateType, error) {
	name := strings.TrimSpace(s)
	if strings.EqualFold(name, "edge") {
		return TypeBorder, nil
	}
	for t, n := range typeNames {
		if strings.EqualFold(n, name) {
			return CoordinateType(t), nil
		}
	}
	return TypeNull, configErrorf("coordinate_type", "unknown type %q", s)
}

// IsZoneType сообщает, может ли тип назначаться зоной
func (t CoordinateType) IsZoneType() bool {
	return t >= TypeSettlement && t < typeCount
}

// IsOverride сообщает, может ли тип задаваться явно поверх классификации
func (t CoordinateType) IsOverride() bool {
	return t == TypeObstacle || t == TypeSpawnPoint
}

func (t CoordinateType) MarshalText() ([]byte, error) {
	if t >= typeCount {
		return nil, fmt.Errorf("invalid coordinate type %d", uint8(t))
	}
	return []byte(t.String()), nil
}

func (t *CoordinateType) UnmarshalText(text []byte) error {
	parsed, err := ParseCoordinateType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// TypeSet: множество типов клеток (битовая маска, значение неизменяемо)
type TypeSet uint32

// NewTypeSet собирает множество из перечисленных типов
func NewTypeSet(types ...CoordinateType) TypeSet {
	var s TypeSet
	for _, t := range types {
		s = s.With(t)
	}
	return s
}

// With возвращает множество с добавленным типом
func (s TypeSet) With(t CoordinateType) TypeSet {
	if t >= typeCount {
		return s
	}
	return s | 1<<t
}

// Has проверяет принадлежность типа множеству
func (s TypeSet) Has(t CoordinateType) bool {
	return t < typeCount && s&(1<<t) != 0
}

// Types возвращает типы множества в порядке объявления
func (s TypeSet) Types() []CoordinateType {
	var types []CoordinateType
	for t := CoordinateType(0); t < typeCount; t++ {
		if s.Has(t) {
			types = append(types, t)
		}
	}
	return types
}

func (s TypeSet) String() string {
	types := s.Types()
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = t.String()
	}
	return "{" + strings.Join(names, ",") + "}"
}

// Coordinate: одна клетка сетки региона.
//
// Итоговый тип вычисляется из слоёв по приоритету:
// Corner > тип зоны > явный override > Border > Path > Null.
type Coordinate struct {
	Key           vec.Vec2      `json:"key"`
	Normalized    vec.Vec2Float `json:"normalized"`
	WorldPosition vec.Vec3Float `json:"world_position"`

	base      CoordinateType // Null, Border или Corner
	zoneType  CoordinateType
	zoneIndex int // -1: клетка не занята зоной
	override  CoordinateType
	onPath    bool

	groundHeight float64
	hasGround    bool
}

// Type возвращает итоговый тип клетки
func (c Coordinate) Type() CoordinateType {
	switch {
	case c.base == TypeCorner:
		return TypeCorner
	case c.zoneIndex >= 0:
		return c.zoneType
	case c.override != TypeNull:
		return c.override
	case c.base == TypeBorder:
		return TypeBorder
	case c.onPath:
		return TypePath
	}
	return TypeNull
}

// BaseType: результат структурной классификации (Null, Border, Corner)
func (c Coordinate) BaseType() CoordinateType { return c.base }

// ZoneIndex возвращает порядковый номер зоны, занявшей клетку
func (c Coordinate) ZoneIndex() (int, bool) { return c.zoneIndex, c.zoneIndex >= 0 }

// Override возвращает явно заданный тип (TypeNull, если не задан)
func (c Coordinate) Override() CoordinateType { return c.override }

// OnPath сообщает, отмечена ли клетка как часть маршрута
func (c Coordinate) OnPath() bool { return c.onPath }

// GroundHeight возвращает высоту земли, если она уже вычислена
func (c Coordinate) GroundHeight() (float64, bool) { return c.groundHeight, c.hasGround }
