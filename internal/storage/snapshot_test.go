package storage

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/annel0/worldgen/internal/vec"
	"github.com/annel0/worldgen/internal/world"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSnapshot(t *testing.T) *Snapshot {
	t.Helper()
	settings := world.DefaultSettings()
	settings.RegionWidth = 9
	settings.WorldWidth = 1

	color, err := world.ParseColor("#22aa44")
	require.NoError(t, err)

	bp := world.StaticBlueprint{
		Default: world.RegionPlan{
			Zones: []world.ZoneDefinition{{
				Name:   "grove",
				Type:   world.TypeForest,
				Anchor: vec.Vec2{X: 4, Y: 4},
				Shape:  world.ShapeRadius,
				Radius: 2,
				Color:  color,
			}},
			Obstacles:   []vec.Vec2{{X: 0, Y: 3}},
			SpawnPoints: 2,
		},
		Regions: map[world.RegionKey]world.RegionPlan{
			{X: 0, Y: 0}: {SpawnPoints: 3},
		},
	}
	return NewSnapshot(settings, bp)
}

// storeContract проверяет поведение, общее для всех реализаций
func storeContract(t *testing.T, store SnapshotStore) {
	ctx := context.Background()

	_, err := store.Latest(ctx)
	assert.ErrorIs(t, err, ErrSnapshotNotFound)
	_, err = store.Load(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrSnapshotNotFound)

	first := testSnapshot(t)
	second := testSnapshot(t)
	second.CreatedAt = first.CreatedAt.Add(time.Second)
	second.Note = "after edit"

	require.NoError(t, store.Save(ctx, first))
	require.NoError(t, store.Save(ctx, second))

	loaded, err := store.Load(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.Settings, loaded.Settings)
	assert.Equal(t, first.Blueprint, loaded.Blueprint)
	assert.True(t, first.CreatedAt.Equal(loaded.CreatedAt))

	latest, err := store.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID)
	assert.Equal(t, "after edit", latest.Note)

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{first.ID, second.ID}, ids)
}

func TestMemorySnapshotStore(t *testing.T) {
	store, err := NewMemorySnapshotStore()
	require.NoError(t, err)
	defer store.Close()

	storeContract(t, store)
}

func TestBadgerSnapshotStore(t *testing.T) {
	dir := t.TempDir()
	store, err := NewBadgerSnapshotStore(dir)
	require.NoError(t, err)

	storeContract(t, store)
	require.NoError(t, store.Close())
	require.NoError(t, store.Close(), "повторное закрытие")

	t.Run("данные переживают переоткрытие", func(t *testing.T) {
		reopened, err := NewBadgerSnapshotStore(dir)
		require.NoError(t, err)
		defer reopened.Close()

		ids, err := reopened.List(context.Background())
		require.NoError(t, err)
		assert.Len(t, ids, 2)
	})
}

func TestRedisSnapshotStore(t *testing.T) {
	addr := os.Getenv("WORLDGEN_REDIS_ADDR")
	if addr == "" {
		t.Skip("WORLDGEN_REDIS_ADDR не задан")
	}

	ctx := context.Background()
	store, err := NewRedisSnapshotStore(ctx, &RedisConfig{Addr: addr, KeyPrefix: "worldgen-test:" + uuid.NewString() + ":"})
	require.NoError(t, err)
	defer store.Close()

	storeContract(t, store)
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), Options{Driver: "mongo"})
	assert.Error(t, err)

	store, err := Open(context.Background(), Options{})
	require.NoError(t, err)
	assert.IsType(t, &MemorySnapshotStore{}, store)
	require.NoError(t, store.Close())
}

func TestSnapshotRestoreRegeneratesIdenticalWorld(t *testing.T) {
	ctx := context.Background()
	snap := testSnapshot(t)

	store, err := NewMemorySnapshotStore()
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.Save(ctx, snap))

	original := snap.Restore()
	require.NoError(t, original.Generate(ctx))

	loaded, err := store.Load(ctx, snap.ID)
	require.NoError(t, err)
	restored := loaded.Restore()
	require.NoError(t, restored.Generate(ctx))

	a, err := original.Region(world.RegionKey{})
	require.NoError(t, err)
	b, err := restored.Region(world.RegionKey{})
	require.NoError(t, err)

	assert.Equal(t, a.Coordinates().TypeSnapshot(), b.Coordinates().TypeSnapshot())
	assert.Equal(t, a.Chunks().All(), b.Chunks().All())
	assert.Equal(t, 3, b.Coordinates().CountOfType(world.TypeSpawnPoint))
}
