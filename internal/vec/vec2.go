package vec

import (
	"fmt"
	"math"
)

// Vec2 представляет целочисленные 2D координаты (ключ ячейки в сетке)
type Vec2 struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
}

// Add складывает два вектора
func (v Vec2) Add(other Vec2) Vec2 {
	return Vec2{X: v.X + other.X, Y: v.Y + other.Y}
}

// Sub вычитает вектор
func (v Vec2) Sub(other Vec2) Vec2 {
	return Vec2{X: v.X - other.X, Y: v.Y - other.Y}
}

// Less задаёт построчный порядок (сначала Y, затем X)
func (v Vec2) Less(other Vec2) bool {
	if v.Y != other.Y {
		return v.Y < other.Y
	}
	return v.X < other.X
}

// ManhattanTo возвращает манхэттенское расстояние до другой точки
func (v Vec2) ManhattanTo(other Vec2) int {
	return abs(v.X-other.X) + abs(v.Y-other.Y)
}

// ChebyshevTo возвращает расстояние Чебышёва до другой точки
func (v Vec2) ChebyshevTo(other Vec2) int {
	dx := abs(v.X - other.X)
	dy := abs(v.Y - other.Y)
	if dx > dy {
		return dx
	}
	return dy
}

// DistanceTo вычисляет расстояние до другой точки
func (v Vec2) DistanceTo(other Vec2) float64 {
	dx := float64(v.X - other.X)
	dy := float64(v.Y - other.Y)
	return math.Sqrt(dx*dx + dy*dy)
}

func (v Vec2) String() string {
	return fmt.Sprintf("(%d,%d)", v.X, v.Y)
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
