package world

import (
	"io"

	"github.com/annel0/worldgen/internal/logging"
)

// scenarioSettings: регион 7×7 с граничной полосой в одну клетку
func scenarioSettings() GenerationSettings {
	return GenerationSettings{
		Seed:                 "scenario",
		CellSize:             2,
		ChunkWidth:           10,
		ChunkDepth:           10,
		ChunkMaxHeight:       8,
		RegionWidth:          7,
		RegionBoundaryOffset: 1,
		WorldWidth:           1,
	}
}

func quietLogger() *logging.Logger {
	return logging.NewWriterLogger("world-test", io.Discard, logging.ERROR)
}

func rectZone(name string, t CoordinateType, x, y, w, h int) ZoneDefinition {
	return ZoneDefinition{
		Name:   name,
		Type:   t,
		Anchor: vecKey(x, y),
		Shape:  ShapeRect,
		Width:  w,
		Height: h,
	}
}
