package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"time"

	"github.com/annel0/worldgen/internal/vec"
	"github.com/annel0/worldgen/internal/world"
	"gopkg.in/yaml.v3"
)

// Config корневая структура конфигурации генератора.
type Config struct {
	World      world.GenerationSettings `yaml:"world"`
	Generation GenerationConfig         `yaml:"generation"`
	Zones      ZonesConfig              `yaml:"zones"`
	Server     ServerConfig             `yaml:"server"`
	Storage    StorageConfig            `yaml:"storage"`
	EventBus   EventBusConfig           `yaml:"eventbus"`
	Telemetry  TelemetryConfig          `yaml:"telemetry"`
}

type GenerationConfig struct {
	Workers       int     `yaml:"workers"`
	OnRegionError string  `yaml:"on_region_error"` // continue | fail_fast
	NoiseScale    float64 `yaml:"noise_scale"`
}

// ZonesConfig: авторские планы: общий для всех регионов и дополнения к отдельным
type ZonesConfig struct {
	Default PlanConfig         `yaml:"default"`
	Regions []RegionPlanConfig `yaml:"regions"`
}

type PlanConfig struct {
	Zones       []ZoneConfig `yaml:"zones"`
	Obstacles   []vec.Vec2   `yaml:"obstacles"`
	SpawnPoints int          `yaml:"spawn_points"`
}

type RegionPlanConfig struct {
	Region     world.RegionKey `yaml:"region"`
	PlanConfig `yaml:",inline"`
}

type ZoneConfig struct {
	Name         string   `yaml:"name"`
	Type         string   `yaml:"type"`
	Anchor       vec.Vec2 `yaml:"anchor"`
	RandomAnchor bool     `yaml:"random_anchor"`
	Shape        string   `yaml:"shape"` // rect | radius
	Width        int      `yaml:"width"`
	Height       int      `yaml:"height"`
	Radius       int      `yaml:"radius"`
	Color        string   `yaml:"color"` // #rrggbb[aa]
}

type ServerConfig struct {
	RESTPort    int    `yaml:"rest_port"`
	AdminSecret string `yaml:"admin_secret"` // base64, пусто: админ-эндпоинты без токена
}

type StorageConfig struct {
	Driver    string `yaml:"driver"` // memory | badger | redis
	Path      string `yaml:"path"`
	RedisAddr string `yaml:"redis_addr"`
	RedisDB   int    `yaml:"redis_db"`
	KeyPrefix string `yaml:"key_prefix"`
}

type EventBusConfig struct {
	URL       string `yaml:"url"` // пусто: in-memory шина
	Stream    string `yaml:"stream"`
	Retention int    `yaml:"retention_hours"`
}

type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"service_name"`
	Endpoint    string `yaml:"endpoint"` // host:port OTLP/HTTP, пусто: localhost:4318
}

// defaultZoneColor используется, если цвет зоны не задан
const defaultZoneColor = "#ffffff"

// Default возвращает конфигурацию для локального запуска
func Default() *Config {
	return &Config{
		World: world.DefaultSettings(),
		Generation: GenerationConfig{
			OnRegionError: "continue",
		},
		Storage: StorageConfig{
			Driver:    "memory",
			Path:      "data",
			KeyPrefix: "worldgen:",
		},
		EventBus: EventBusConfig{
			Stream:    "WORLDGEN",
			Retention: 24,
		},
		Telemetry: TelemetryConfig{
			ServiceName: "worldgen",
		},
	}
}

// GetRESTPort возвращает REST API порт с поддержкой fallback значений
func (s *ServerConfig) GetRESTPort() int {
	return getIntWithEnvFallback(s.RESTPort, "WORLDGEN_REST_PORT", 8088)
}

// GetAdminSecret возвращает секрет админ-токенов: config -> WORLDGEN_ADMIN_SECRET
func (s *ServerConfig) GetAdminSecret() string {
	if s.AdminSecret != "" {
		return s.AdminSecret
	}
	return os.Getenv("WORLDGEN_ADMIN_SECRET")
}

// GetWorkers возвращает число воркеров генерации: config -> env -> NumCPU
func (g *GenerationConfig) GetWorkers() int {
	return getIntWithEnvFallback(g.Workers, "WORLDGEN_WORKERS", runtime.NumCPU())
}

// FailurePolicy разбирает политику обработки ошибок регионов
func (g *GenerationConfig) FailurePolicy() (world.FailurePolicy, error) {
	return world.ParseFailurePolicy(g.OnRegionError)
}

// RetentionDuration возвращает срок хранения событий в стриме
func (e *EventBusConfig) RetentionDuration() time.Duration {
	return time.Duration(e.Retention) * time.Hour
}

// getIntWithEnvFallback возвращает значение с приоритетом: config -> env -> default
func getIntWithEnvFallback(configValue int, envVar string, defaultValue int) int {
	// Если значение задано в конфиге и больше 0, используем его
	if configValue > 0 {
		return configValue
	}

	// Пробуем прочитать из environment variable
	if envVal := os.Getenv(envVar); envVal != "" {
		if v, err := strconv.Atoi(envVal); err == nil && v > 0 {
			return v
		}
	}

	return defaultValue
}

// ToDefinition переводит описание зоны из YAML в доменный тип
func (z ZoneConfig) ToDefinition() (world.ZoneDefinition, error) {
	typ, err := world.ParseCoordinateType(z.Type)
	if err != nil {
		return world.ZoneDefinition{}, fmt.Errorf("zone %q: %w", z.Name, err)
	}
	shape, err := world.ParseZoneShape(z.Shape)
	if err != nil {
		return world.ZoneDefinition{}, fmt.Errorf("zone %q: %w", z.Name, err)
	}
	colorText := z.Color
	if colorText == "" {
		colorText = defaultZoneColor
	}
	color, err := world.ParseColor(colorText)
	if err != nil {
		return world.ZoneDefinition{}, fmt.Errorf("zone %q: %w", z.Name, err)
	}

	def := world.ZoneDefinition{
		Name:         z.Name,
		Type:         typ,
		Anchor:       z.Anchor,
		RandomAnchor: z.RandomAnchor,
		Shape:        shape,
		Width:        z.Width,
		Height:       z.Height,
		Radius:       z.Radius,
		Color:        color,
	}
	if err := def.Validate(); err != nil {
		return world.ZoneDefinition{}, err
	}
	return def, nil
}

// ToPlan переводит план региона в доменный тип
func (p PlanConfig) ToPlan() (world.RegionPlan, error) {
	plan := world.RegionPlan{
		Obstacles:   append([]vec.Vec2(nil), p.Obstacles...),
		SpawnPoints: p.SpawnPoints,
	}
	for _, z := range p.Zones {
		def, err := z.ToDefinition()
		if err != nil {
			return world.RegionPlan{}, err
		}
		plan.Zones = append(plan.Zones, def)
	}
	return plan, nil
}

// Blueprint собирает статический план мира
func (c *Config) Blueprint() (world.StaticBlueprint, error) {
	def, err := c.Zones.Default.ToPlan()
	if err != nil {
		return world.StaticBlueprint{}, fmt.Errorf("zones.default: %w", err)
	}

	bp := world.StaticBlueprint{Default: def}
	for _, rp := range c.Zones.Regions {
		plan, err := rp.ToPlan()
		if err != nil {
			return world.StaticBlueprint{}, fmt.Errorf("zones.regions[%s]: %w", rp.Region, err)
		}
		if bp.Regions == nil {
			bp.Regions = make(map[world.RegionKey]world.RegionPlan)
		}
		if _, dup := bp.Regions[rp.Region]; dup {
			return world.StaticBlueprint{}, fmt.Errorf("zones.regions: region %s declared twice", rp.Region)
		}
		bp.Regions[rp.Region] = plan
	}
	return bp, nil
}

// Validate проверяет настройки мира, политику и планы зон
func (c *Config) Validate() error {
	if err := c.World.Validate(); err != nil {
		return err
	}
	if _, err := c.Generation.FailurePolicy(); err != nil {
		return err
	}
	_, err := c.Blueprint()
	return err
}

// Load читает YAML файл конфигурации поверх значений по умолчанию.
// Если path == "", пытается прочитать из ENV WORLDGEN_CONFIG или возвращает Default().
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("WORLDGEN_CONFIG")
		if path == "" {
			return Default(), nil // конфиг не задан, используем дефолты
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}
