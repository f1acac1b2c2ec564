package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/annel0/worldgen/internal/vec"
	"github.com/annel0/worldgen/internal/world"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
world:
  seed: "valley"
  cell_size: 2
  chunk_width: 10
  chunk_depth: 10
  chunk_max_height: 12
  region_width: 7
  region_boundary_offset: 1
  world_width: 2
generation:
  workers: 3
  on_region_error: fail_fast
server:
  rest_port: 9000
storage:
  driver: badger
  path: /tmp/worldgen
zones:
  default:
    spawn_points: 1
    zones:
      - name: village
        type: Settlement
        anchor: {x: 3, y: 3}
        width: 3
        height: 3
        color: "#aa5500"
  regions:
    - region: {x: 1, y: 0}
      obstacles:
        - {x: 0, y: 2}
      zones:
        - name: pond
          type: water
          shape: radius
          random_anchor: true
          radius: 0
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "worldgen.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "valley", cfg.World.Seed)
	assert.Equal(t, 12, cfg.World.ChunkMaxHeight)
	assert.Equal(t, 2, cfg.World.WorldWidth)
	assert.Equal(t, 3, cfg.Generation.GetWorkers())
	assert.Equal(t, 9000, cfg.Server.GetRESTPort())
	assert.Equal(t, "badger", cfg.Storage.Driver)
	// не заданное в файле берётся из Default()
	assert.Equal(t, "WORLDGEN", cfg.EventBus.Stream)

	policy, err := cfg.Generation.FailurePolicy()
	require.NoError(t, err)
	assert.Equal(t, world.FailFast, policy)

	bp, err := cfg.Blueprint()
	require.NoError(t, err)
	require.Len(t, bp.Default.Zones, 1)
	village := bp.Default.Zones[0]
	assert.Equal(t, world.TypeSettlement, village.Type)
	assert.Equal(t, vec.Vec2{X: 3, Y: 3}, village.Anchor)
	assert.Equal(t, "#aa5500ff", village.Color.String())

	plan := bp.PlanFor(world.RegionKey{X: 1, Y: 0})
	require.Len(t, plan.Zones, 2)
	assert.Equal(t, world.ShapeRadius, plan.Zones[1].Shape)
	assert.True(t, plan.Zones[1].RandomAnchor)
	assert.Equal(t, []vec.Vec2{{X: 0, Y: 2}}, plan.Obstacles)
	assert.Equal(t, 1, plan.SpawnPoints)
}

func TestLoadWithoutPath(t *testing.T) {
	t.Setenv("WORLDGEN_CONFIG", "")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, world.DefaultSettings(), cfg.World)

	t.Setenv("WORLDGEN_CONFIG", writeConfig(t, sampleYAML))
	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, "valley", cfg.World.Seed)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	for name, body := range map[string]string{
		"ширина региона":  "world:\n  region_width: 2\n  region_boundary_offset: 1\n",
		"политика":        "generation:\n  on_region_error: retry\n",
		"тип зоны":        "zones:\n  default:\n    zones:\n      - {name: a, type: lava, width: 1, height: 1}\n",
		"цвет":            "zones:\n  default:\n    zones:\n      - {name: a, type: forest, width: 1, height: 1, color: red}\n",
		"повтор региона":  "zones:\n  regions:\n    - region: {x: 0, y: 0}\n    - region: {x: 0, y: 0}\n",
		"битый yaml":      "world: [",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestEnvFallbacks(t *testing.T) {
	var g GenerationConfig
	var s ServerConfig

	t.Setenv("WORLDGEN_WORKERS", "")
	t.Setenv("WORLDGEN_REST_PORT", "")
	assert.Equal(t, runtime.NumCPU(), g.GetWorkers())
	assert.Equal(t, 8088, s.GetRESTPort())

	t.Setenv("WORLDGEN_WORKERS", "6")
	t.Setenv("WORLDGEN_REST_PORT", "not-a-port")
	assert.Equal(t, 6, g.GetWorkers())
	assert.Equal(t, 8088, s.GetRESTPort())
}

func TestAdminSecretFallback(t *testing.T) {
	t.Setenv("WORLDGEN_ADMIN_SECRET", "from-env")

	var s ServerConfig
	assert.Equal(t, "from-env", s.GetAdminSecret())

	s.AdminSecret = "from-config"
	assert.Equal(t, "from-config", s.GetAdminSecret())
}
