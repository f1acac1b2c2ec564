package world

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/annel0/worldgen/internal/eventbus"
	"github.com/annel0/worldgen/internal/logging"
	"github.com/annel0/worldgen/internal/util"
	"github.com/annel0/worldgen/internal/vec"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const tracerName = "github.com/annel0/worldgen/internal/world"

// State: состояние жизненного цикла WorldBuilder
type State int32

const (
	StateUninitialized State = iota
	StateGenerating
	StateGenerated
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "Uninitialized"
	case StateGenerating:
		return "Generating"
	case StateGenerated:
		return "Generated"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// FailurePolicy определяет, что делать с ошибкой отдельного региона
type FailurePolicy uint8

const (
	// ContinueOnError публикует успешные регионы и возвращает GenerationError
	ContinueOnError FailurePolicy = iota
	// FailFast прерывает генерацию на первой ошибке и ничего не публикует
	FailFast
)

func (p FailurePolicy) String() string {
	if p == FailFast {
		return "fail_fast"
	}
	return "continue"
}

// ParseFailurePolicy разбирает политику из конфигурации
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "continue", "continue_on_error":
		return ContinueOnError, nil
	case "fail_fast", "failfast", "abort":
		return FailFast, nil
	}
	return ContinueOnError, configErrorf("on_region_error", "unknown failure policy %q", s)
}

// grid: неизменяемый снимок опубликованного мира
type grid struct {
	id        string
	createdAt time.Time
	regions   map[RegionKey]*Region
	failures  map[RegionKey]error

	// rng запросов общий для всех версий одной генерации (CommitPath его не сбрасывает)
	rngMu *sync.Mutex
	rngs  map[RegionKey]*rand.Rand
}

// Option настраивает WorldBuilder
type Option func(*WorldBuilder)

// WithBlueprint задаёт поставщика планов регионов
func WithBlueprint(b Blueprint) Option {
	return func(w *WorldBuilder) {
		if b != nil {
			w.blueprint = b
		}
	}
}

// WithFailurePolicy задаёт политику обработки ошибок регионов
func WithFailurePolicy(p FailurePolicy) Option {
	return func(w *WorldBuilder) { w.policy = p }
}

// WithWorkers ограничивает число параллельно строящихся регионов
func WithWorkers(n int) Option {
	return func(w *WorldBuilder) {
		if n > 0 {
			w.workers = n
		}
	}
}

// WithEventBus включает публикацию событий жизненного цикла
func WithEventBus(bus eventbus.EventBus) Option {
	return func(w *WorldBuilder) { w.bus = bus }
}

// WithLogger задаёт логгер компонента
func WithLogger(l *logging.Logger) Option {
	return func(w *WorldBuilder) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithNoiseScale задаёт масштаб шума высот (0: значение по умолчанию)
func WithNoiseScale(scale float64) Option {
	return func(w *WorldBuilder) { w.noiseScale = scale }
}

// WorldBuilder управляет генерацией сетки регионов и отвечает на запросы к ней.
//
// Опубликованная сетка неизменяема и хранится за atomic.Pointer: читатели
// никогда не видят частично построенный мир. Переходы жизненного цикла
// сериализуются мьютексом.
type WorldBuilder struct {
	settings   GenerationSettings
	blueprint  Blueprint
	policy     FailurePolicy
	workers    int
	bus        eventbus.EventBus
	logger     *logging.Logger
	noiseScale float64
	tracer     trace.Tracer

	mu      sync.Mutex // сериализует Generate/Regenerate/Reset/CommitPath
	state   atomic.Int32
	current atomic.Pointer[grid]
}

// NewWorldBuilder создаёт построитель в состоянии Uninitialized.
// Настройки проверяются при вызове Generate.
func NewWorldBuilder(settings GenerationSettings, opts ...Option) *WorldBuilder {
	w := &WorldBuilder{
		settings:  settings,
		blueprint: StaticBlueprint{},
		policy:    ContinueOnError,
		workers:   runtime.NumCPU(),
		logger:    logging.GetWorldLogger(),
		tracer:    otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Settings возвращает настройки генерации
func (w *WorldBuilder) Settings() GenerationSettings { return w.settings }

// Blueprint возвращает поставщика планов
func (w *WorldBuilder) Blueprint() Blueprint { return w.blueprint }

// State возвращает текущее состояние
func (w *WorldBuilder) State() State { return State(w.state.Load()) }

func (w *WorldBuilder) setState(s State) {
	w.state.Store(int32(s))
	worldState.Set(float64(s))
}

// GenerationID возвращает идентификатор опубликованной генерации
func (w *WorldBuilder) GenerationID() (string, error) {
	g, err := w.published("GenerationID")
	if err != nil {
		return "", err
	}
	return g.id, nil
}

// Generate строит мир. Допустим только из Uninitialized.
//
// Неверные настройки прерывают генерацию целиком. Ошибки отдельных регионов
// обрабатываются согласно FailurePolicy: при ContinueOnError успешные регионы
// публикуются, а вызывающий получает *GenerationError со всеми упавшими ключами.
func (w *WorldBuilder) Generate(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if s := w.State(); s != StateUninitialized {
		return invalidState("Generate", s)
	}
	w.setState(StateGenerating)

	g, err := w.build(ctx, false)
	if g == nil {
		w.setState(StateUninitialized)
		return err
	}

	w.current.Store(g)
	w.setState(StateGenerated)
	w.announce(ctx, g, time.Since(g.createdAt), false)
	return err
}

// Regenerate строит новую сетку, пока старая остаётся доступной для чтения,
// и атомарно подменяет её. При ошибке, не оставившей ни одного региона,
// старая сетка сохраняется.
func (w *WorldBuilder) Regenerate(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	prev := w.State()
	if prev == StateUninitialized {
		w.setState(StateGenerating)
	}

	g, err := w.build(ctx, true)
	if g == nil {
		w.setState(prev)
		return err
	}

	w.current.Store(g)
	w.setState(StateGenerated)
	w.announce(ctx, g, time.Since(g.createdAt), true)
	return err
}

// ResetGeneration сбрасывает сетку и возвращает построитель в Uninitialized
func (w *WorldBuilder) ResetGeneration(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()

	old := w.current.Swap(nil)
	w.setState(StateUninitialized)
	if old == nil {
		return
	}
	w.logger.Info("🧹 Мир %s сброшен", old.id)
	w.publish(ctx, EventWorldReset, old.id, WorldResetEvent{GenerationID: old.id})
}

// RegionKeys возвращает ключи всех регионов мира в построчном порядке
func (w *WorldBuilder) RegionKeys() []RegionKey {
	n := w.settings.WorldWidth
	keys := make([]RegionKey, 0, n*n)
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			keys = append(keys, RegionKey{X: x, Y: y})
		}
	}
	return keys
}

// build строит сетку в стороне от опубликованной.
// Возвращает nil-сетку, если публиковать нечего.
func (w *WorldBuilder) build(ctx context.Context, regenerate bool) (*grid, error) {
	if err := w.settings.Validate(); err != nil {
		w.logger.Error("❌ Неверные настройки генерации: %v", err)
		return nil, err
	}

	keys := w.RegionKeys()
	ctx, span := w.tracer.Start(ctx, "world.generate", trace.WithAttributes(
		attribute.String("worldgen.seed", w.settings.Seed),
		attribute.Int("worldgen.regions", len(keys)),
		attribute.Bool("worldgen.regenerate", regenerate),
		attribute.String("worldgen.policy", w.policy.String()),
	))
	defer span.End()

	start := time.Now()
	id := uuid.NewString()
	w.logger.Info("🌍 Генерация мира %s: seed=%q, регионов=%d, воркеров=%d", id, w.settings.Seed, len(keys), w.workers)

	sampler := util.NewHeightSampler(WorldSeed(w.settings.Seed), w.noiseScale, w.settings.ChunkMaxHeight)

	regions := make([]*Region, len(keys))
	errs := make([]error, len(keys))

	eg, egctx := errgroup.WithContext(ctx)
	eg.SetLimit(w.workers)
	for i, key := range keys {
		i, key := i, key
		eg.Go(func() error {
			r, err := w.buildRegion(egctx, key, sampler)
			if err != nil {
				errs[i] = err
				if w.policy == FailFast {
					return err
				}
				return nil
			}
			regions[i] = r
			return nil
		})
	}
	groupErr := eg.Wait()
	generationSeconds.Observe(time.Since(start).Seconds())

	if err := ctx.Err(); err != nil {
		span.SetStatus(codes.Error, "cancelled")
		return nil, err
	}

	failed := make(map[RegionKey]error)
	for i, err := range errs {
		// При FailFast соседи отменяются через egctx, это не их собственная ошибка
		if err == nil || (groupErr != nil && errors.Is(err, context.Canceled)) {
			continue
		}
		failed[keys[i]] = err
	}

	for _, key := range sortedKeys(failed) {
		err := failed[key]
		w.logger.Warn("⚠️ Регион %s не построен: %v", key, err)
		w.publish(ctx, EventRegionFailed, id, RegionFailedEvent{
			GenerationID: id,
			Region:       key,
			Reason:       errorReason(err),
			Error:        err.Error(),
		})
	}

	var genErr error
	if len(failed) > 0 {
		genErr = &GenerationError{Failed: failed}
		span.RecordError(genErr)
		span.SetStatus(codes.Error, genErr.Error())
	}

	if w.policy == FailFast && groupErr != nil {
		w.logger.Error("❌ Генерация %s прервана (fail_fast): %v", id, genErr)
		return nil, genErr
	}

	published := make(map[RegionKey]*Region, len(keys))
	for _, r := range regions {
		if r != nil {
			published[r.key] = r
		}
	}
	if len(published) == 0 {
		w.logger.Error("❌ Генерация %s: ни один регион не построен", id)
		return nil, genErr
	}

	return &grid{
		id:        id,
		createdAt: start,
		regions:   published,
		failures:  failed,
		rngMu:     &sync.Mutex{},
		rngs:      make(map[RegionKey]*rand.Rand),
	}, genErr
}

func (w *WorldBuilder) buildRegion(ctx context.Context, key RegionKey, sampler *util.HeightSampler) (*Region, error) {
	ctx, span := w.tracer.Start(ctx, "world.region", trace.WithAttributes(
		attribute.Int("worldgen.region.x", key.X),
		attribute.Int("worldgen.region.y", key.Y),
	))
	defer span.End()

	start := time.Now()
	builder, err := NewRegionBuilder(w.settings, key, w.blueprint.PlanFor(key), sampler)
	if err == nil {
		var r *Region
		r, err = builder.Build(ctx)
		if err == nil {
			regionBuildSeconds.Observe(time.Since(start).Seconds())
			regionsBuilt.WithLabelValues("ok").Inc()
			w.logger.Debug("Регион %s построен за %s, зон=%d", key, time.Since(start), len(r.Zones()))
			return r, nil
		}
	}

	if !errors.Is(err, context.Canceled) {
		regionsBuilt.WithLabelValues("failed").Inc()
		regionFailures.WithLabelValues(errorReason(err)).Inc()
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return nil, fmt.Errorf("region %s: %w", key, err)
}

func (w *WorldBuilder) announce(ctx context.Context, g *grid, took time.Duration, regenerated bool) {
	w.logger.Info("✅ Мир %s опубликован: регионов=%d, ошибок=%d, за %s", g.id, len(g.regions), len(g.failures), took)
	w.publish(ctx, EventWorldGenerated, g.id, WorldGeneratedEvent{
		GenerationID: g.id,
		Seed:         w.settings.Seed,
		Regions:      len(g.regions),
		Failed:       sortedKeys(g.failures),
		Duration:     took,
		Regenerated:  regenerated,
	})
}

// publish отправляет событие в шину; ошибки шины только логируются
func (w *WorldBuilder) publish(ctx context.Context, eventType, generationID string, payload interface{}) {
	if w.bus == nil {
		return
	}
	ev, err := eventbus.NewEnvelope(EventSource, eventType, payload)
	if err != nil {
		w.logger.Warn("Не удалось подготовить событие %s: %v", eventType, err)
		return
	}
	ev.CorrelationID = generationID
	if err := w.bus.Publish(ctx, ev); err != nil {
		w.logger.Warn("Не удалось опубликовать событие %s: %v", eventType, err)
	}
}

func (w *WorldBuilder) published(op string) (*grid, error) {
	if s := w.State(); s != StateGenerated {
		return nil, invalidState(op, s)
	}
	g := w.current.Load()
	if g == nil {
		return nil, invalidState(op, StateUninitialized)
	}
	return g, nil
}

func (w *WorldBuilder) inWorld(key RegionKey) bool {
	n := w.settings.WorldWidth
	return key.X >= 0 && key.Y >= 0 && key.X < n && key.Y < n
}

func (g *grid) region(key RegionKey) (*Region, error) {
	if r, ok := g.regions[key]; ok {
		return r, nil
	}
	if err, ok := g.failures[key]; ok {
		return nil, fmt.Errorf("region %s failed to generate (%v): %w", key, err, ErrNotFound)
	}
	return nil, fmt.Errorf("region %s: %w", key, ErrNotFound)
}

// Region возвращает опубликованный регион
func (w *WorldBuilder) Region(key RegionKey) (*Region, error) {
	g, err := w.published("Region")
	if err != nil {
		return nil, err
	}
	return g.region(key)
}

// Regions возвращает опубликованные регионы в построчном порядке
func (w *WorldBuilder) Regions() ([]*Region, error) {
	g, err := w.published("Regions")
	if err != nil {
		return nil, err
	}
	out := make([]*Region, 0, len(g.regions))
	for _, r := range g.regions {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].key.Less(out[j].key) })
	return out, nil
}

// Failures возвращает ошибки регионов последней генерации
func (w *WorldBuilder) Failures() (map[RegionKey]error, error) {
	g, err := w.published("Failures")
	if err != nil {
		return nil, err
	}
	out := make(map[RegionKey]error, len(g.failures))
	for k, v := range g.failures {
		out[k] = v
	}
	return out, nil
}

// GetChunkAt возвращает чанк по ключу региона и ключу клетки
func (w *WorldBuilder) GetChunkAt(region RegionKey, key vec.Vec2) (Chunk, error) {
	g, err := w.published("GetChunkAt")
	if err != nil {
		return Chunk{}, err
	}
	r, err := g.region(region)
	if err != nil {
		return Chunk{}, err
	}
	return r.ChunkAt(key)
}

// ChunkAtWorldPosition находит чанк, в который попадает мировая точка (по X и Z)
func (w *WorldBuilder) ChunkAtWorldPosition(pos vec.Vec3Float) (Chunk, error) {
	g, err := w.published("ChunkAtWorldPosition")
	if err != nil {
		return Chunk{}, err
	}

	span := w.settings.RegionSpan()
	rk := RegionKey{
		X: int(math.Floor(pos.X / span.X)),
		Y: int(math.Floor(pos.Z / span.Y)),
	}
	if !w.inWorld(rk) {
		return Chunk{}, fmt.Errorf("world position (%.2f, %.2f) outside world: %w", pos.X, pos.Z, ErrNotFound)
	}

	r, err := g.region(rk)
	if err != nil {
		return Chunk{}, err
	}

	foot := w.settings.ChunkFootprint()
	local := vec.Vec2Float{
		X: (pos.X - r.offset.X) / foot.X,
		Y: (pos.Z - r.offset.Z) / foot.Y,
	}
	key := local.ToVec2()
	// Точка ровно на дальней границе региона может округлиться за сетку
	key.X = min(key.X, w.settings.RegionWidth-1)
	key.Y = min(key.Y, w.settings.RegionWidth-1)
	return r.ChunkAt(key)
}

// GetRandomCoordinateValueOfType выбирает случайную клетку типа t в регионе.
// Последовательность результатов воспроизводима для одного сида и ключа региона.
func (w *WorldBuilder) GetRandomCoordinateValueOfType(region RegionKey, t CoordinateType) (vec.Vec2, error) {
	g, err := w.published("GetRandomCoordinateValueOfType")
	if err != nil {
		return vec.Vec2{}, err
	}
	r, err := g.region(region)
	if err != nil {
		return vec.Vec2{}, err
	}

	g.rngMu.Lock()
	defer g.rngMu.Unlock()
	rng, ok := g.rngs[region]
	if !ok {
		rng = NewRegionRand(w.settings.Seed, region, streamQuery)
		g.rngs[region] = rng
	}
	return r.GetRandomCoordinateValueOfType(rng, t)
}

// ComputePath ищет маршрут внутри опубликованного региона. Регион не меняется.
func (w *WorldBuilder) ComputePath(region RegionKey, start, end vec.Vec2, excluded TypeSet) (*Path, error) {
	g, err := w.published("ComputePath")
	if err != nil {
		return nil, err
	}
	r, err := g.region(region)
	if err != nil {
		return nil, err
	}
	p, err := r.ComputePath(start, end, excluded)
	if err != nil {
		return nil, err
	}
	pathLength.Observe(float64(p.Len()))
	return p, nil
}

// CommitPath отмечает маршрут на копии региона и атомарно публикует её.
// Читатели, получившие регион раньше, продолжают видеть старую версию.
// Маршрут, который после поиска пересёк клетку исключённого типа
// (например, чужой уже отмеченный путь), отклоняется с ErrInvalidState.
func (w *WorldBuilder) CommitPath(ctx context.Context, p *Path) error {
	if p == nil {
		return configErrorf("path", "must not be nil")
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	g, err := w.published("CommitPath")
	if err != nil {
		return err
	}
	r, err := g.region(p.Region())
	if err != nil {
		return err
	}

	if err := p.CheckAgainst(r.coords); err != nil {
		return err
	}

	staged := r.Clone()
	if err := staged.coords.MarkPath(p); err != nil {
		return err
	}

	next := *g
	next.regions = make(map[RegionKey]*Region, len(g.regions))
	for k, v := range g.regions {
		next.regions[k] = v
	}
	next.regions[staged.key] = staged
	w.current.Store(&next)

	w.logger.Debug("Маршрут %s -> %s (%d клеток) отмечен в регионе %s", p.Start(), p.End(), p.Len(), staged.key)
	w.publish(ctx, EventPathCommitted, g.id, PathCommittedEvent{
		GenerationID: g.id,
		Region:       staged.key,
		From:         p.Start(),
		To:           p.End(),
		Length:       p.Len(),
	})
	return nil
}

// Zones возвращает зоны региона в порядке вырезания
func (w *WorldBuilder) Zones(region RegionKey) ([]*Zone, error) {
	g, err := w.published("Zones")
	if err != nil {
		return nil, err
	}
	r, err := g.region(region)
	if err != nil {
		return nil, err
	}
	return r.Zones(), nil
}

// Bounds возвращает прямоугольник всего мира в мировых единицах
func (w *WorldBuilder) Bounds() (Rect, error) {
	if _, err := w.published("Bounds"); err != nil {
		return Rect{}, err
	}
	span := w.settings.RegionSpan().Mul(float64(w.settings.WorldWidth))
	return Rect{Max: span}, nil
}

// PlayArea возвращает мир без внешней граничной полосы
func (w *WorldBuilder) PlayArea() (Rect, error) {
	bounds, err := w.Bounds()
	if err != nil {
		return Rect{}, err
	}
	inset := w.settings.ChunkFootprint().Mul(float64(w.settings.RegionBoundaryOffset))
	return Rect{
		Min: bounds.Min.Add(inset),
		Max: bounds.Max.Add(inset.Mul(-1)),
	}, nil
}

func sortedKeys(m map[RegionKey]error) []RegionKey {
	keys := make([]RegionKey, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
	return keys
}
