package world

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/annel0/worldgen/internal/vec"
)

// Базовые категории ошибок генерации и запросов.
// Проверяются через errors.Is.
var (
	ErrConfiguration = errors.New("configuration error")
	ErrZoneOverlap   = errors.New("zone overlap")
	ErrNotFound      = errors.New("not found")
	ErrNoPath        = errors.New("no path")
	ErrInvalidState  = errors.New("invalid state")
)

// ConfigurationError: неверные настройки или описание зоны.
// Генерация с такой ошибкой не продолжается.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

func (e *ConfigurationError) Unwrap() error { return ErrConfiguration }

func configErrorf(field, format string, args ...interface{}) error {
	return &ConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// ZoneOverlapError: зона пытается занять клетку, уже принадлежащую другой зоне.
type ZoneOverlapError struct {
	Zone  string   // зона, которую вырезали
	Other string   // зона, владеющая клеткой
	Key   vec.Vec2 // первая конфликтная клетка
}

func (e *ZoneOverlapError) Error() string {
	return fmt.Sprintf("zone %q overlaps zone %q at %s", e.Zone, e.Other, e.Key)
}

func (e *ZoneOverlapError) Unwrap() error { return ErrZoneOverlap }

// ZonePlacementError: ни один случайный якорь не подошёл.
// Cause хранит ошибку последней попытки, по ней работают errors.Is/As.
type ZonePlacementError struct {
	Zone     string
	Attempts int
	Cause    error
}

func (e *ZonePlacementError) Error() string {
	return fmt.Sprintf("zone %q: no placement after %d attempt(s), last: %v", e.Zone, e.Attempts, e.Cause)
}

func (e *ZonePlacementError) Unwrap() error { return e.Cause }

// NoPathError: маршрута между клетками нет при текущих исключениях.
type NoPathError struct {
	From   vec.Vec2
	To     vec.Vec2
	Reason string
}

func (e *NoPathError) Error() string {
	return fmt.Sprintf("no path %s -> %s: %s", e.From, e.To, e.Reason)
}

func (e *NoPathError) Unwrap() error { return ErrNoPath }

// GenerationError собирает ошибки отдельных регионов.
type GenerationError struct {
	Failed map[RegionKey]error
}

func (e *GenerationError) Error() string {
	keys := e.Keys()
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %v", k, e.Failed[k]))
	}
	return fmt.Sprintf("%d region(s) failed: %s", len(keys), strings.Join(parts, "; "))
}

// Unwrap позволяет errors.Is/As добраться до причины любого региона
func (e *GenerationError) Unwrap() []error {
	keys := e.Keys()
	errs := make([]error, 0, len(keys))
	for _, k := range keys {
		errs = append(errs, e.Failed[k])
	}
	return errs
}

// Keys возвращает ключи упавших регионов в построчном порядке
func (e *GenerationError) Keys() []RegionKey {
	keys := make([]RegionKey, 0, len(e.Failed))
	for k := range e.Failed {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
	return keys
}

func invalidState(op string, s State) error {
	return fmt.Errorf("%s in state %s: %w", op, s, ErrInvalidState)
}

// errorReason: короткая метка причины для метрик и событий
func errorReason(err error) string {
	switch {
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrZoneOverlap):
		return "zone_overlap"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrNoPath):
		return "no_path"
	default:
		return "other"
	}
}
