package world

import (
	"context"
	"encoding/binary"
	"fmt"
	"math/rand"

	"github.com/annel0/worldgen/internal/util"
	"github.com/annel0/worldgen/internal/vec"
	"github.com/cespare/xxhash/v2"
)

// Потоки случайных чисел региона. Разные шаги генерации не делят rng,
// поэтому изменение одного шага не сдвигает последовательность другого.
const (
	streamZones  = "zones"
	streamSpawns = "spawns"
	streamQuery  = "query"
)

// WorldSeed переводит строковый сид мира в int64
func WorldSeed(seed string) int64 {
	return int64(xxhash.Sum64String(seed))
}

// RegionSeed выводит сид региона из сида мира, ключа региона и имени потока.
// Результат не зависит от порядка генерации регионов.
func RegionSeed(seed string, key RegionKey, stream string) int64 {
	d := xxhash.New()
	_, _ = d.WriteString(seed)

	var buf [17]byte
	binary.LittleEndian.PutUint64(buf[1:9], uint64(int64(key.X)))
	binary.LittleEndian.PutUint64(buf[9:17], uint64(int64(key.Y)))
	_, _ = d.Write(buf[:])

	_, _ = d.WriteString(stream)
	return int64(d.Sum64())
}

// NewRegionRand создаёт детерминированный генератор для региона и потока
func NewRegionRand(seed string, key RegionKey, stream string) *rand.Rand {
	return rand.New(rand.NewSource(RegionSeed(seed, key, stream)))
}

// RegionPlan: авторские данные одного региона
type RegionPlan struct {
	Zones       []ZoneDefinition `json:"zones,omitempty"`
	Obstacles   []vec.Vec2       `json:"obstacles,omitempty"`
	SpawnPoints int              `json:"spawn_points,omitempty"`
}

// Blueprint поставляет план для каждого региона мира
type Blueprint interface {
	PlanFor(key RegionKey) RegionPlan
}

// StaticBlueprint: план по умолчанию плюс дополнения для отдельных регионов.
// Зоны по умолчанию вырезаются раньше зон региона.
type StaticBlueprint struct {
	Default RegionPlan               `json:"default"`
	Regions map[RegionKey]RegionPlan `json:"regions,omitempty"`
}

// PlanFor объединяет план по умолчанию с планом региона
func (b StaticBlueprint) PlanFor(key RegionKey) RegionPlan {
	plan := RegionPlan{
		Zones:       append([]ZoneDefinition(nil), b.Default.Zones...),
		Obstacles:   append([]vec.Vec2(nil), b.Default.Obstacles...),
		SpawnPoints: b.Default.SpawnPoints,
	}
	extra, ok := b.Regions[key]
	if !ok {
		return plan
	}
	plan.Zones = append(plan.Zones, extra.Zones...)
	plan.Obstacles = append(plan.Obstacles, extra.Obstacles...)
	if extra.SpawnPoints > 0 {
		plan.SpawnPoints = extra.SpawnPoints
	}
	return plan
}

// RegionBuilder строит один регион целиком: классификация, зоны,
// явные препятствия, точки появления и чанки. Пока Build не вернул
// результат, регион никому не виден.
type RegionBuilder struct {
	settings GenerationSettings
	key      RegionKey
	plan     RegionPlan
	sampler  *util.HeightSampler
}

// NewRegionBuilder проверяет настройки и ключ региона.
// sampler может быть nil, тогда он создаётся из сида мира.
func NewRegionBuilder(settings GenerationSettings, key RegionKey, plan RegionPlan, sampler *util.HeightSampler) (*RegionBuilder, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if key.X < 0 || key.Y < 0 || key.X >= settings.WorldWidth || key.Y >= settings.WorldWidth {
		return nil, configErrorf("region", "key %s outside world of width %d", key, settings.WorldWidth)
	}
	if plan.SpawnPoints < 0 {
		return nil, configErrorf("spawn_points", "must be >= 0, got %d", plan.SpawnPoints)
	}
	if sampler == nil {
		sampler = util.NewHeightSampler(WorldSeed(settings.Seed), 0, settings.ChunkMaxHeight)
	}
	return &RegionBuilder{settings: settings, key: key, plan: plan, sampler: sampler}, nil
}

// Build выполняет генерацию. При любой ошибке регион не возвращается.
func (b *RegionBuilder) Build(ctx context.Context) (*Region, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	coords := NewCoordinateMap(b.settings, b.key)

	zoneRng := NewRegionRand(b.settings.Seed, b.key, streamZones)
	if err := coords.CarveZones(b.plan.Zones, zoneRng); err != nil {
		return nil, fmt.Errorf("carve zones: %w", err)
	}

	for _, k := range b.plan.Obstacles {
		// зона и угол перекрывают явный тип, такое препятствие было бы невидимым
		if z, ok := coords.ZoneAt(k); ok {
			return nil, configErrorf("obstacles", "obstacle %s lies inside zone %q", k, z.Name())
		}
		if c, ok := coords.Get(k); ok && c.BaseType() == TypeCorner {
			return nil, configErrorf("obstacles", "obstacle %s lies on a corner", k)
		}
		if err := coords.SetOverride(k, TypeObstacle); err != nil {
			return nil, configErrorf("obstacles", "obstacle %s: %v", k, err)
		}
	}

	spawnRng := NewRegionRand(b.settings.Seed, b.key, streamSpawns)
	for i := 0; i < b.plan.SpawnPoints; i++ {
		k, err := coords.RandomCoordinateOfType(spawnRng, TypeNull)
		if err != nil {
			return nil, fmt.Errorf("spawn point %d: %w", i, err)
		}
		if err := coords.SetOverride(k, TypeSpawnPoint); err != nil {
			return nil, fmt.Errorf("spawn point %d: %w", i, err)
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return &Region{
		key:      b.key,
		settings: b.settings,
		offset:   b.settings.RegionOffset(b.key),
		coords:   coords,
		chunks:   BuildChunkMap(coords, b.sampler),
	}, nil
}
