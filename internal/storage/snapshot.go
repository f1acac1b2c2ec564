package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/annel0/worldgen/internal/world"
	"github.com/google/uuid"
)

// ErrSnapshotNotFound возвращается, когда снимка с таким ID нет
var ErrSnapshotNotFound = errors.New("snapshot not found")

// Snapshot: всё, что нужно для повторной генерации идентичного мира:
// настройки и планы регионов. Сами регионы не сохраняются, они
// детерминированно выводятся из этих данных.
type Snapshot struct {
	ID           uuid.UUID                `json:"id"`
	CreatedAt    time.Time                `json:"created_at"`
	GenerationID string                   `json:"generation_id,omitempty"`
	Settings     world.GenerationSettings `json:"settings"`
	Blueprint    world.StaticBlueprint    `json:"blueprint"`
	Note         string                   `json:"note,omitempty"`
}

// NewSnapshot создаёт снимок с новым ID
func NewSnapshot(settings world.GenerationSettings, blueprint world.StaticBlueprint) *Snapshot {
	return &Snapshot{
		ID:        uuid.New(),
		CreatedAt: time.Now().UTC(),
		Settings:  settings,
		Blueprint: blueprint,
	}
}

// SnapshotStore хранит снимки мира
type SnapshotStore interface {
	Save(ctx context.Context, s *Snapshot) error
	Load(ctx context.Context, id uuid.UUID) (*Snapshot, error)
	// Latest возвращает последний сохранённый снимок
	Latest(ctx context.Context) (*Snapshot, error)
	// List возвращает ID снимков от старых к новым
	List(ctx context.Context) ([]uuid.UUID, error)
	Close() error
}

// Options описывает, какое хранилище открыть
type Options struct {
	Driver    string // memory | badger | redis
	Path      string // каталог BadgerDB
	RedisAddr string
	RedisDB   int
	KeyPrefix string
}

// Open открывает хранилище по имени драйвера
func Open(ctx context.Context, opts Options) (SnapshotStore, error) {
	switch strings.ToLower(opts.Driver) {
	case "", "memory":
		return NewMemorySnapshotStore()
	case "badger":
		return NewBadgerSnapshotStore(opts.Path)
	case "redis":
		return NewRedisSnapshotStore(ctx, &RedisConfig{
			Addr:      opts.RedisAddr,
			DB:        opts.RedisDB,
			KeyPrefix: opts.KeyPrefix,
		})
	}
	return nil, fmt.Errorf("unknown storage driver %q", opts.Driver)
}

// Restore создаёт построитель мира из снимка. Генерация не запускается.
func (s *Snapshot) Restore(opts ...world.Option) *world.WorldBuilder {
	opts = append(opts, world.WithBlueprint(s.Blueprint))
	return world.NewWorldBuilder(s.Settings, opts...)
}
