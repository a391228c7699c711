package kvstore

import (
	"context"
	"encoding/json"
	"sync"
)

type MemoryStore struct {
	mu   sync.Mutex
	data map[string]json.RawMessage
}

func NewMemory() *MemoryStore {
	return &MemoryStore{data: make(map[string]json.RawMessage)}
}

func (m *MemoryStore) GetRaw(_ context.Context, key string) (json.RawMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append(json.RawMessage(nil), v...), nil
}

func (m *MemoryStore) SetRaw(_ context.Context, key string, value json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append(json.RawMessage(nil), value...)
	return nil
}

func (m *MemoryStore) Update(_ context.Context, key string, fn UpdateFunc) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	next, err := fn(m.data[key])
	if err != nil {
		return err
	}
	m.data[key] = append(json.RawMessage(nil), next...)
	return nil
}

func (m *MemoryStore) Close() error { return nil }
