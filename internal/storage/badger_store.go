package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/annel0/worldgen/internal/logging"
	"github.com/dgraph-io/badger/v3"
	"github.com/google/uuid"
)

const (
	snapshotPrefix = "snapshot:"
	latestKey      = "meta:latest"
)

// BadgerSnapshotStore хранит снимки во встроенной BadgerDB.
// Ключи: snapshot:<id> → сжатый снимок, meta:latest → ID последнего.
type BadgerSnapshotStore struct {
	db      *badger.DB
	dbPath  string
	codec   *codec
	mutex   sync.RWMutex
	isReady bool
	logger  *logging.Logger
}

// NewBadgerSnapshotStore открывает (или создаёт) базу в каталоге dataPath/snapshots
func NewBadgerSnapshotStore(dataPath string) (*BadgerSnapshotStore, error) {
	if dataPath == "" {
		return nil, fmt.Errorf("badger: путь к данным не задан")
	}
	dbPath := filepath.Join(dataPath, "snapshots")
	opts := badger.DefaultOptions(dbPath)
	opts.Logger = nil // Отключаем логирование BadgerDB

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть BadgerDB: %w", err)
	}

	c, err := newCodec()
	if err != nil {
		db.Close()
		return nil, err
	}

	logger := logging.GetStorageLogger()
	logger.Info("💾 BadgerDB снимков открыта: %s", dbPath)

	return &BadgerSnapshotStore{
		db:      db,
		dbPath:  dbPath,
		codec:   c,
		isReady: true,
		logger:  logger,
	}, nil
}

func snapshotKey(id uuid.UUID) []byte {
	return []byte(snapshotPrefix + id.String())
}

// Save записывает снимок и обновляет указатель на последний в одной транзакции
func (bs *BadgerSnapshotStore) Save(ctx context.Context, s *Snapshot) error {
	bs.mutex.RLock()
	defer bs.mutex.RUnlock()
	if !bs.isReady {
		return fmt.Errorf("хранилище не готово")
	}

	data, err := bs.codec.encode(s)
	if err != nil {
		return err
	}

	err = bs.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(snapshotKey(s.ID), data); err != nil {
			return err
		}
		return txn.Set([]byte(latestKey), []byte(s.ID.String()))
	})
	if err != nil {
		return fmt.Errorf("ошибка сохранения в BadgerDB: %w", err)
	}

	bs.logger.Debug("Снимок %s сохранён (%d байт)", s.ID, len(data))
	return nil
}

// Load читает снимок по ID
func (bs *BadgerSnapshotStore) Load(ctx context.Context, id uuid.UUID) (*Snapshot, error) {
	bs.mutex.RLock()
	defer bs.mutex.RUnlock()
	if !bs.isReady {
		return nil, fmt.Errorf("хранилище не готово")
	}

	var data []byte
	err := bs.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(snapshotKey(id))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("snapshot %s: %w", id, ErrSnapshotNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения из BadgerDB: %w", err)
	}
	return bs.codec.decode(data)
}

// Latest возвращает последний сохранённый снимок
func (bs *BadgerSnapshotStore) Latest(ctx context.Context) (*Snapshot, error) {
	var raw []byte
	bs.mutex.RLock()
	err := bs.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(latestKey))
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	bs.mutex.RUnlock()

	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("latest snapshot: %w", ErrSnapshotNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения из BadgerDB: %w", err)
	}

	id, err := uuid.ParseBytes(raw)
	if err != nil {
		return nil, fmt.Errorf("повреждён указатель на последний снимок: %w", err)
	}
	return bs.Load(ctx, id)
}

// List перебирает все снимки и сортирует их по времени создания
func (bs *BadgerSnapshotStore) List(ctx context.Context) ([]uuid.UUID, error) {
	bs.mutex.RLock()
	defer bs.mutex.RUnlock()

	type entry struct {
		id        uuid.UUID
		createdAt time.Time
	}
	var entries []entry

	err := bs.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(snapshotPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			data, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			s, err := bs.codec.decode(data)
			if err != nil {
				bs.logger.Warn("⚠️ Пропущен повреждённый снимок %s: %v", it.Item().Key(), err)
				continue
			}
			entries = append(entries, entry{id: s.ID, createdAt: s.CreatedAt})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения из BadgerDB: %w", err)
	}

	sort.SliceStable(entries, func(i, j int) bool { return entries[i].createdAt.Before(entries[j].createdAt) })
	ids := make([]uuid.UUID, len(entries))
	for i, e := range entries {
		ids[i] = e.id
	}
	return ids, nil
}

// Close закрывает хранилище данных
func (bs *BadgerSnapshotStore) Close() error {
	bs.mutex.Lock()
	defer bs.mutex.Unlock()

	if !bs.isReady {
		return nil
	}

	bs.isReady = false
	bs.codec.close()
	return bs.db.Close()
}
