package api

import (
	"strings"

	"github.com/annel0/worldgen/internal/vec"
	"github.com/annel0/worldgen/internal/world"
)

var glyphs = map[world.CoordinateType]byte{
	world.TypeNull:       '.',
	world.TypeBorder:     '#',
	world.TypeCorner:     '+',
	world.TypeObstacle:   'X',
	world.TypeSpawnPoint: 'S',
	world.TypePath:       '*',
	world.TypeSettlement: 'H',
	world.TypeForest:     'F',
	world.TypeWater:      '~',
	world.TypeArena:      'A',
	world.TypePlayZone:   'P',
}

// Glyph возвращает символ клетки для ASCII-карты
func Glyph(t world.CoordinateType) byte {
	if g, found := glyphs[t]; found {
		return g
	}
	return '?'
}

// Legend возвращает соответствие символов типам в порядке объявления типов
func Legend() map[string]string {
	legend := make(map[string]string, len(glyphs))
	for _, t := range world.AllTypes() {
		legend[string(Glyph(t))] = t.String()
	}
	return legend
}

// RenderRegion рисует регион построчно: строка 0 соответствует y = 0
func RenderRegion(r *world.Region) []string {
	m := r.Coordinates()
	width := m.Width()
	rows := make([]string, 0, width)
	var sb strings.Builder
	for y := 0; y < width; y++ {
		sb.Reset()
		for x := 0; x < width; x++ {
			t, err := m.TypeAt(vec.Vec2{X: x, Y: y})
			if err != nil {
				sb.WriteByte('?')
				continue
			}
			sb.WriteByte(Glyph(t))
		}
		rows = append(rows, sb.String())
	}
	return rows
}
