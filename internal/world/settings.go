package world

import "github.com/annel0/worldgen/internal/vec"

// GenerationSettings: неизменяемые параметры генерации мира.
// Передаются по значению; одинаковые настройки дают одинаковый мир.
type GenerationSettings struct {
	Seed                 string `json:"seed" yaml:"seed"`
	CellSize             int    `json:"cell_size" yaml:"cell_size"`                           // мировых единиц на клетку
	ChunkWidth           int    `json:"chunk_width" yaml:"chunk_width"`                       // клеток в чанке по X
	ChunkDepth           int    `json:"chunk_depth" yaml:"chunk_depth"`                       // клеток в чанке по Z
	ChunkMaxHeight       int    `json:"chunk_max_height" yaml:"chunk_max_height"`             // максимальная высота чанка
	RegionWidth          int    `json:"region_width" yaml:"region_width"`                     // чанков по стороне региона
	RegionBoundaryOffset int    `json:"region_boundary_offset" yaml:"region_boundary_offset"` // ширина граничной полосы в чанках
	WorldWidth           int    `json:"world_width" yaml:"world_width"`                       // регионов по стороне мира
}

// Верхние границы размеров: карта региона хранит RegionWidth² клеток,
// мир держит WorldWidth² регионов.
const (
	MaxRegionWidth = 1024
	MaxWorldWidth  = 1024
)

// DefaultSettings возвращает небольшой мир для локального запуска
func DefaultSettings() GenerationSettings {
	return GenerationSettings{
		Seed:                 "worldgen",
		CellSize:             2,
		ChunkWidth:           10,
		ChunkDepth:           10,
		ChunkMaxHeight:       8,
		RegionWidth:          16,
		RegionBoundaryOffset: 1,
		WorldWidth:           2,
	}
}

// Validate проверяет инварианты настроек
func (s GenerationSettings) Validate() error {
	switch {
	case s.CellSize <= 0:
		return configErrorf("cell_size", "must be > 0, got %d", s.CellSize)
	case s.ChunkWidth <= 0:
		return configErrorf("chunk_width", "must be > 0, got %d", s.ChunkWidth)
	case s.ChunkDepth <= 0:
		return configErrorf("chunk_depth", "must be > 0, got %d", s.ChunkDepth)
	case s.ChunkMaxHeight < 0:
		return configErrorf("chunk_max_height", "must be >= 0, got %d", s.ChunkMaxHeight)
	case s.RegionWidth <= 0:
		return configErrorf("region_width", "must be > 0, got %d", s.RegionWidth)
	case s.RegionWidth > MaxRegionWidth:
		return configErrorf("region_width", "must be <= %d, got %d", MaxRegionWidth, s.RegionWidth)
	case s.RegionBoundaryOffset < 0:
		return configErrorf("region_boundary_offset", "must be >= 0, got %d", s.RegionBoundaryOffset)
	case s.WorldWidth <= 0:
		return configErrorf("world_width", "must be > 0, got %d", s.WorldWidth)
	case s.WorldWidth > MaxWorldWidth:
		return configErrorf("world_width", "must be <= %d, got %d", MaxWorldWidth, s.WorldWidth)
	case s.RegionWidth <= 2*s.RegionBoundaryOffset:
		return configErrorf("region_width", "must be > 2*region_boundary_offset (%d), no interior left", 2*s.RegionBoundaryOffset)
	}
	return nil
}

// ChunkFootprint: размер одного чанка (одной координаты) в мировых единицах:
// X по ширине, Y по глубине.
func (s GenerationSettings) ChunkFootprint() vec.Vec2Float {
	return vec.Vec2Float{
		X: float64(s.ChunkWidth * s.CellSize),
		Y: float64(s.ChunkDepth * s.CellSize),
	}
}

// RegionSpan: размер региона в мировых единицах
func (s GenerationSettings) RegionSpan() vec.Vec2Float {
	return s.ChunkFootprint().Mul(float64(s.RegionWidth))
}

// RegionOffset: мировое смещение начала региона
func (s GenerationSettings) RegionOffset(key RegionKey) vec.Vec3Float {
	span := s.RegionSpan()
	return vec.Vec3Float{X: float64(key.X) * span.X, Z: float64(key.Y) * span.Y}
}

// RegionCount: количество регионов в мире
func (s GenerationSettings) RegionCount() int {
	return s.WorldWidth * s.WorldWidth
}
