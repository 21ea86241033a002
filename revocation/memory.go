package revocation

import (
	"context"
	"sync"
)

// Memory is an in-process Registry guarded by a read/write mutex.
type Memory struct {
	mu  sync.RWMutex
	set map[string]struct{}
}

// NewMemory returns an empty in-process registry.
func NewMemory() *Memory {
	return &Memory{set: make(map[string]struct{})}
}

func (m *Memory) Revoke(_ context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.set[jti]; ok {
		return false, nil
	}
	m.set[jti] = struct{}{}
	return true, nil
}

func (m *Memory) IsRevoked(_ context.Context, jti string) (bool, error) {
	m.mu.RLock()
	_, ok := m.set[jti]
	m.mu.RUnlock()
	return ok, nil
}

func (m *Memory) Clear(context.Context) error {
	m.mu.Lock()
	m.set = make(map[string]struct{})
	m.mu.Unlock()
	return nil
}

// Len returns the number of revoked identities.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.set)
}
