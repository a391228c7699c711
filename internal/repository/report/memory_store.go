package report

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

func (s *MemoryStore) Put(_ context.Context, name string, content []byte) error {
	if s == nil {
		return fmt.Errorf("store is nil")
	}
	name, err := cleanName(name)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[name] = append([]byte(nil), content...)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, name string) ([]byte, error) {
	if s == nil {
		return nil, fmt.Errorf("store is nil")
	}
	name, err := cleanName(name)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	raw, ok := s.data[name]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), raw...), nil
}

func (s *MemoryStore) List(_ context.Context) ([]string, error) {
	if s == nil {
		return nil, fmt.Errorf("store is nil")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.data))
	for name := range s.data {
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

// URL is always empty; memory reports are served through the API only.
func (s *MemoryStore) URL(context.Context, string) (string, error) {
	return "", nil
}
