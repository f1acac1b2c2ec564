package world

import (
	"fmt"

	"github.com/annel0/worldgen/internal/util"
	"github.com/annel0/worldgen/internal/vec"
)

// Chunk: мировое представление одной клетки региона
type Chunk struct {
	Key            vec.Vec2      `json:"key"`             // Ключ клетки в CoordinateMap региона
	Region         RegionKey     `json:"region"`          // Регион-владелец (ссылка по ключу)
	GroundPosition vec.Vec3Float `json:"ground_position"` // Начало чанка в мире, Y: высота земли
	Height         float64       `json:"height"`          // Высота земли, [0, ChunkMaxHeight]
}

// ChunkMap: набор чанков региона, индексированный так же, как CoordinateMap
type ChunkMap struct {
	region RegionKey
	width  int
	chunks []Chunk
}

// BuildChunkMap строит по чанку на каждую клетку карты.
// Высота берётся из сэмплера по глобальным координатам сетки, чтобы рельеф
// был непрерывным на стыках регионов, и записывается в слот высоты клетки.
func BuildChunkMap(m *CoordinateMap, sampler *util.HeightSampler) *ChunkMap {
	cm := &ChunkMap{
		region: m.region,
		width:  m.width,
		chunks: make([]Chunk, len(m.coords)),
	}

	globalX := m.region.X * m.width
	globalY := m.region.Y * m.width

	for i := range m.coords {
		c := &m.coords[i]
		var h float64
		if sampler != nil {
			h = sampler.Height(float64(globalX+c.Key.X), float64(globalY+c.Key.Y))
		}
		c.groundHeight = h
		c.hasGround = true

		cm.chunks[i] = Chunk{
			Key:            c.Key,
			Region:         m.region,
			GroundPosition: c.WorldPosition.WithY(h),
			Height:         h,
		}
	}
	return cm
}

// Region возвращает ключ региона-владельца
func (cm *ChunkMap) Region() RegionKey { return cm.region }

// Len возвращает количество чанков
func (cm *ChunkMap) Len() int { return len(cm.chunks) }

// At возвращает чанк по ключу клетки
func (cm *ChunkMap) At(key vec.Vec2) (Chunk, error) {
	if key.X < 0 || key.Y < 0 || key.X >= cm.width || key.Y >= cm.width {
		return Chunk{}, fmt.Errorf("chunk %s in region %s: %w", key, cm.region, ErrNotFound)
	}
	return cm.chunks[key.Y*cm.width+key.X], nil
}

// All возвращает копии всех чанков в построчном порядке
func (cm *ChunkMap) All() []Chunk {
	out := make([]Chunk, len(cm.chunks))
	copy(out, cm.chunks)
	return out
}
