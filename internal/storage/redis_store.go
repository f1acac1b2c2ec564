package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/annel0/worldgen/internal/logging"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// RedisConfig содержит настройки подключения к Redis
type RedisConfig struct {
	Addr      string        // Адрес Redis сервера
	Password  string        // Пароль (пустой если не требуется)
	DB        int           // Номер базы данных
	KeyPrefix string        // Префикс для ключей
	TTL       time.Duration // Время жизни снимков (0: бессрочно)
}

// DefaultRedisConfig возвращает конфигурацию по умолчанию
func DefaultRedisConfig() *RedisConfig {
	return &RedisConfig{
		Addr:      "localhost:6379",
		KeyPrefix: "worldgen:",
	}
}

// RedisSnapshotStore хранит снимки в Redis, чтобы ими могли пользоваться
// несколько процессов. Снимок лежит в строке <prefix>snapshot:<id>,
// порядок: в sorted set <prefix>snapshots со временем создания в score.
type RedisSnapshotStore struct {
	client    *redis.Client
	codec     *codec
	keyPrefix string
	ttl       time.Duration
	logger    *logging.Logger
}

// NewRedisSnapshotStore подключается к Redis и проверяет соединение
func NewRedisSnapshotStore(ctx context.Context, config *RedisConfig) (*RedisSnapshotStore, error) {
	defaults := DefaultRedisConfig()
	if config == nil {
		config = defaults
	}
	if config.Addr == "" {
		config.Addr = defaults.Addr
	}
	if config.KeyPrefix == "" {
		config.KeyPrefix = defaults.KeyPrefix
	}

	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	c, err := newCodec()
	if err != nil {
		_ = client.Close()
		return nil, err
	}

	logger := logging.GetStorageLogger()
	logger.Info("🔴 Connected to Redis at %s", config.Addr)

	return &RedisSnapshotStore{
		client:    client,
		codec:     c,
		keyPrefix: config.KeyPrefix,
		ttl:       config.TTL,
		logger:    logger,
	}, nil
}

func (rs *RedisSnapshotStore) dataKey(id uuid.UUID) string {
	return rs.keyPrefix + "snapshot:" + id.String()
}

func (rs *RedisSnapshotStore) indexKey() string {
	return rs.keyPrefix + "snapshots"
}

// Save пишет снимок и индекс одним пайплайном
func (rs *RedisSnapshotStore) Save(ctx context.Context, s *Snapshot) error {
	data, err := rs.codec.encode(s)
	if err != nil {
		return err
	}

	pipe := rs.client.TxPipeline()
	pipe.Set(ctx, rs.dataKey(s.ID), data, rs.ttl)
	pipe.ZAdd(ctx, rs.indexKey(), &redis.Z{Score: float64(s.CreatedAt.UnixNano()), Member: s.ID.String()})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// Load получает снимок по ID
func (rs *RedisSnapshotStore) Load(ctx context.Context, id uuid.UUID) (*Snapshot, error) {
	data, err := rs.client.Get(ctx, rs.dataKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("snapshot %s: %w", id, ErrSnapshotNotFound)
	} else if err != nil {
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}
	return rs.codec.decode(data)
}

// Latest берёт снимок с наибольшим временем создания
func (rs *RedisSnapshotStore) Latest(ctx context.Context) (*Snapshot, error) {
	ids, err := rs.client.ZRevRange(ctx, rs.indexKey(), 0, 0).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot index: %w", err)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("latest snapshot: %w", ErrSnapshotNotFound)
	}
	id, err := uuid.Parse(ids[0])
	if err != nil {
		return nil, fmt.Errorf("invalid snapshot id %q in index: %w", ids[0], err)
	}
	return rs.Load(ctx, id)
}

// List возвращает ID из индекса; истёкшие по TTL снимки пропускаются
func (rs *RedisSnapshotStore) List(ctx context.Context) ([]uuid.UUID, error) {
	members, err := rs.client.ZRange(ctx, rs.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot index: %w", err)
	}

	ids := make([]uuid.UUID, 0, len(members))
	for _, m := range members {
		id, err := uuid.Parse(m)
		if err != nil {
			rs.logger.Warn("⚠️ Invalid snapshot id %q in index: %v", m, err)
			continue
		}
		if rs.ttl > 0 {
			n, err := rs.client.Exists(ctx, rs.dataKey(id)).Result()
			if err != nil {
				return nil, fmt.Errorf("failed to check snapshot %s: %w", id, err)
			}
			if n == 0 {
				continue
			}
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Close закрывает соединение с Redis
func (rs *RedisSnapshotStore) Close() error {
	rs.codec.close()
	return rs.client.Close()
}
