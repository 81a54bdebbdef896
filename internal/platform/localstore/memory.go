package localstore

import (
	"context"
	"sync"
)

// Memory keeps blobs in process memory. A positive quota caps the total
// size of stored keys and values in bytes.
type Memory struct {
	mu    sync.Mutex
	data  map[string][]byte
	used  int
	quota int
}

// NewMemory returns an empty in-memory backend. quota <= 0 is unlimited.
func NewMemory(quota int) *Memory {
	return &Memory{data: make(map[string][]byte), quota: quota}
}

// Get implements Backend.
func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), value...), nil
}

// Put implements Backend.
func (m *Memory) Put(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	used := m.used
	if prev, ok := m.data[key]; ok {
		used -= len(key) + len(prev)
	}
	used += len(key) + len(value)
	if m.quota > 0 && used > m.quota {
		return ErrQuotaExceeded
	}
	m.data[key] = append([]byte(nil), value...)
	m.used = used
	return nil
}

// Delete implements Backend.
func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if prev, ok := m.data[key]; ok {
		m.used -= len(key) + len(prev)
		delete(m.data, key)
	}
	return nil
}

// Len returns the number of stored keys.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}
