package storage

import (
	"context"
	"sync"

	"github.com/rl1809/vending-machine/internal/port"
)

// MemoryAdapter keeps state in process. Used by tests, the stress tool and
// single-node deployments that do not need durability.
type MemoryAdapter struct {
	mu      sync.RWMutex
	version uint64
	values  map[string][]byte
}

func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{values: make(map[string][]byte)}
}

func (m *MemoryAdapter) Load(ctx context.Context, keys []string) (port.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return port.Snapshot{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := port.Snapshot{Version: m.version, Values: make(map[string][]byte, len(keys))}
	for _, k := range keys {
		if v, ok := m.values[k]; ok {
			snap.Values[k] = append([]byte(nil), v...)
		}
	}
	return snap, nil
}

func (m *MemoryAdapter) Commit(ctx context.Context, version uint64, values map[string][]byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if version != m.version {
		return port.ErrVersionConflict
	}
	for k, v := range values {
		m.values[k] = append([]byte(nil), v...)
	}
	m.version++
	return nil
}
