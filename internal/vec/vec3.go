package vec

// Vec3Float представляет точку в мировом пространстве.
// Y: высота, X/Z: плоскость земли.
type Vec3Float struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Add складывает два вектора
func (v Vec3Float) Add(other Vec3Float) Vec3Float {
	return Vec3Float{X: v.X + other.X, Y: v.Y + other.Y, Z: v.Z + other.Z}
}

// WithY возвращает копию вектора с заменённой высотой
func (v Vec3Float) WithY(y float64) Vec3Float {
	v.Y = y
	return v
}

// Ground проецирует точку на плоскость земли (X, Z)
func (v Vec3Float) Ground() Vec2Float {
	return Vec2Float{X: v.X, Y: v.Z}
}
