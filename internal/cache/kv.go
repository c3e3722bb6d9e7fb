package cache

//go:generate mockgen -source=kv.go -package=mock -destination=./mock/mock_kv.go

import (
	"context"
	"strings"
	"sync"
)

// KV is the passive byte store behind Store. Writes replace the whole value.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	// Clear removes every key starting with prefix.
	Clear(ctx context.Context, prefix string) error
}

// MemoryKV is a session scoped KV. Values are copied in and out.
type MemoryKV struct {
	lock sync.RWMutex
	data map[string][]byte
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: map[string][]byte{}}
}

func (m *MemoryKV) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()

	value, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}

	return append([]byte(nil), value...), true, nil
}

func (m *MemoryKV) Set(_ context.Context, key string, value []byte) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.data[key] = append([]byte(nil), value...)

	return nil
}

func (m *MemoryKV) Delete(_ context.Context, key string) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	delete(m.data, key)

	return nil
}

func (m *MemoryKV) Clear(_ context.Context, prefix string) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	for key := range m.data {
		if strings.HasPrefix(key, prefix) {
			delete(m.data, key)
		}
	}

	return nil
}
