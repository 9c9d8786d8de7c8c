package cache

import (
	"context"
	"sync"
)

// Memory is a process-local Cache. Entries live until EvictAll.
type Memory struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{entries: make(map[string][]byte)}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	return clone(value), true, nil
}

func (m *Memory) Put(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[key] = clone(value)
	return nil
}

func (m *Memory) EvictAll(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	clear(m.entries)
	return nil
}

// Len returns the number of entries.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

func clone(b []byte) []byte {
	return append([]byte(nil), b...)
}
