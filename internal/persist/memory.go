package persist

import (
	"context"
	"sync"
)

// Memory is a process-local Backend.
type Memory struct {
	mu     sync.Mutex
	data   []byte
	ok     bool
	writes int
}

// NewMemory returns an empty in-memory backend.
func NewMemory() *Memory { return &Memory{} }

func (m *Memory) Driver() Driver { return DriverMemory }

func (m *Memory) Read(_ context.Context) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.ok {
		return nil, false, nil
	}
	return append([]byte(nil), m.data...), true, nil
}

func (m *Memory) Write(_ context.Context, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = append([]byte(nil), data...)
	m.ok = true
	m.writes++
	return nil
}

// Writes reports how many times Write was called.
func (m *Memory) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

func (m *Memory) Close() error { return nil }
