package world

import (
	"time"

	"github.com/annel0/worldgen/internal/vec"
)

// Типы событий жизненного цикла мира, публикуемых в шину
const (
	EventWorldGenerated = "world.generated"     // Опубликована новая сетка регионов
	EventRegionFailed   = "world.region_failed" // Регион не построен
	EventWorldReset     = "world.reset"         // Сетка сброшена
	EventPathCommitted  = "world.path_committed"
)

// EventSource: значение Envelope.Source для событий генератора
const EventSource = "worldgen"

// WorldGeneratedEvent публикуется после атомарной замены сетки
type WorldGeneratedEvent struct {
	GenerationID string        `json:"generation_id"`
	Seed         string        `json:"seed"`
	Regions      int           `json:"regions"`
	Failed       []RegionKey   `json:"failed,omitempty"`
	Duration     time.Duration `json:"duration"`
	Regenerated  bool          `json:"regenerated"`
}

// RegionFailedEvent публикуется для каждого региона, который не удалось построить
type RegionFailedEvent struct {
	GenerationID string    `json:"generation_id"`
	Region       RegionKey `json:"region"`
	Reason       string    `json:"reason"`
	Error        string    `json:"error"`
}

// WorldResetEvent публикуется при ResetGeneration
type WorldResetEvent struct {
	GenerationID string `json:"generation_id"`
}

// PathCommittedEvent публикуется, когда маршрут отмечен на опубликованном регионе
type PathCommittedEvent struct {
	GenerationID string    `json:"generation_id"`
	Region       RegionKey `json:"region"`
	From         vec.Vec2  `json:"from"`
	To           vec.Vec2  `json:"to"`
	Length       int       `json:"length"`
}
