package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// MemorySnapshotStore хранит сжатые снимки в памяти процесса.
// Используется по умолчанию и в тестах.
type MemorySnapshotStore struct {
	mu    sync.RWMutex
	codec *codec
	data  map[uuid.UUID][]byte
	order []uuid.UUID
}

// NewMemorySnapshotStore создаёт пустое хранилище
func NewMemorySnapshotStore() (*MemorySnapshotStore, error) {
	c, err := newCodec()
	if err != nil {
		return nil, err
	}
	return &MemorySnapshotStore{codec: c, data: make(map[uuid.UUID][]byte)}, nil
}

func (ms *MemorySnapshotStore) Save(ctx context.Context, s *Snapshot) error {
	data, err := ms.codec.encode(s)
	if err != nil {
		return err
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if _, exists := ms.data[s.ID]; !exists {
		ms.order = append(ms.order, s.ID)
	}
	ms.data[s.ID] = data
	return nil
}

func (ms *MemorySnapshotStore) Load(ctx context.Context, id uuid.UUID) (*Snapshot, error) {
	ms.mu.RLock()
	data, ok := ms.data[id]
	ms.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("snapshot %s: %w", id, ErrSnapshotNotFound)
	}
	return ms.codec.decode(data)
}

func (ms *MemorySnapshotStore) Latest(ctx context.Context) (*Snapshot, error) {
	ms.mu.RLock()
	if len(ms.order) == 0 {
		ms.mu.RUnlock()
		return nil, fmt.Errorf("latest snapshot: %w", ErrSnapshotNotFound)
	}
	id := ms.order[len(ms.order)-1]
	ms.mu.RUnlock()
	return ms.Load(ctx, id)
}

func (ms *MemorySnapshotStore) List(ctx context.Context) ([]uuid.UUID, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	out := make([]uuid.UUID, len(ms.order))
	copy(out, ms.order)
	return out, nil
}

func (ms *MemorySnapshotStore) Close() error {
	ms.codec.close()
	return nil
}
