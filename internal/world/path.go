package world

import (
	"fmt"

	"github.com/annel0/worldgen/internal/vec"
)

// Path: кратчайший маршрут по клеткам одной карты.
// Неизменяем: при смене карты или исключений строится новый Path.
type Path struct {
	region   RegionKey
	keys     []vec.Vec2
	excluded TypeSet
}

// ComputePath ищет кратчайший 4-связный маршрут поиском в ширину.
//
// Клетки, тип которых входит в excluded, непроходимы. Соседи обходятся
// в порядке +x, -x, +y, -y, поэтому среди равных по длине маршрутов
// результат всегда один и тот же. Карта при поиске не меняется.
func ComputePath(m *CoordinateMap, start, end vec.Vec2, excluded TypeSet) (*Path, error) {
	if !m.Contains(start) {
		return nil, fmt.Errorf("path start %s: %w", start, ErrNotFound)
	}
	if !m.Contains(end) {
		return nil, fmt.Errorf("path end %s: %w", end, ErrNotFound)
	}

	if t := m.coords[m.index(start)].Type(); excluded.Has(t) {
		return nil, &NoPathError{From: start, To: end, Reason: fmt.Sprintf("start is %s", t)}
	}
	if t := m.coords[m.index(end)].Type(); excluded.Has(t) {
		return nil, &NoPathError{From: start, To: end, Reason: fmt.Sprintf("end is %s", t)}
	}

	if start == end {
		return &Path{region: m.region, keys: []vec.Vec2{start}, excluded: excluded}, nil
	}

	// prev[i]: индекс клетки, из которой пришли в i; -1: не посещена
	prev := make([]int, len(m.coords))
	for i := range prev {
		prev[i] = -1
	}

	startIdx := m.index(start)
	endIdx := m.index(end)
	prev[startIdx] = startIdx

	queue := make([]int, 0, len(m.coords))
	queue = append(queue, startIdx)

	for head := 0; head < len(queue); head++ {
		cur := queue[head]
		if cur == endIdx {
			break
		}
		curKey := m.coords[cur].Key

		for _, d := range neighborOffsets {
			n := curKey.Add(d)
			if !m.Contains(n) {
				continue
			}
			ni := m.index(n)
			if prev[ni] != -1 || excluded.Has(m.coords[ni].Type()) {
				continue
			}
			prev[ni] = cur
			queue = append(queue, ni)
		}
	}

	if prev[endIdx] == -1 {
		return nil, &NoPathError{From: start, To: end, Reason: "unreachable under exclusions " + excluded.String()}
	}

	// Восстанавливаем маршрут с конца
	var keys []vec.Vec2
	for i := endIdx; ; i = prev[i] {
		keys = append(keys, m.coords[i].Key)
		if i == startIdx {
			break
		}
	}
	for i, j := 0, len(keys)-1; i < j; i, j = i+1, j-1 {
		keys[i], keys[j] = keys[j], keys[i]
	}

	return &Path{region: m.region, keys: keys, excluded: excluded}, nil
}

// Region возвращает регион, в котором построен маршрут
func (p *Path) Region() RegionKey { return p.region }

// Keys возвращает копию клеток маршрута от начала до конца включительно
func (p *Path) Keys() []vec.Vec2 {
	out := make([]vec.Vec2, len(p.keys))
	copy(out, p.keys)
	return out
}

// Len возвращает количество клеток маршрута (не меньше 1)
func (p *Path) Len() int { return len(p.keys) }

// Start возвращает первую клетку
func (p *Path) Start() vec.Vec2 { return p.keys[0] }

// End возвращает последнюю клетку
func (p *Path) End() vec.Vec2 { return p.keys[len(p.keys)-1] }

// Excluded возвращает множество непроходимых типов, с которым строился маршрут
func (p *Path) Excluded() TypeSet { return p.excluded }

// CheckAgainst проверяет, что маршрут всё ещё проходим по карте m.
// Клетка, ставшая после поиска одного из исключённых типов, делает
// маршрут устаревшим: ErrInvalidState.
func (p *Path) CheckAgainst(m *CoordinateMap) error {
	if m.region != p.region {
		return fmt.Errorf("path built in region %s, map is %s: %w", p.region, m.region, ErrInvalidState)
	}
	for _, k := range p.keys {
		if !m.Contains(k) {
			return fmt.Errorf("path coordinate %s: %w", k, ErrNotFound)
		}
		if t := m.coords[m.index(k)].Type(); p.excluded.Has(t) {
			return fmt.Errorf("stale path: %s is now %s: %w", k, t, ErrInvalidState)
		}
	}
	return nil
}
