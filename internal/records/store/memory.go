package store

import (
	"context"
	"sync"
)

// MemoryObjects holds the ledger object in process memory. Used by tests
// and by dry runs that should leave no trace behind.
type MemoryObjects struct {
	mu     sync.RWMutex
	body   []byte
	exists bool
}

var _ ObjectStore = (*MemoryObjects)(nil)

func NewMemoryObjects() *MemoryObjects {
	return &MemoryObjects{}
}

func (m *MemoryObjects) Get(_ context.Context) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.exists {
		return nil, ErrNotExist
	}
	body := make([]byte, len(m.body))
	copy(body, m.body)
	return body, nil
}

func (m *MemoryObjects) Put(_ context.Context, body []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.body = make([]byte, len(body))
	copy(m.body, body)
	m.exists = true
	return nil
}
