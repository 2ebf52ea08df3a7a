package session

import (
	"context"
	"sync"
)

type memoryStore struct {
	mu       sync.RWMutex
	sessions map[string]Session
}

// NewMemoryStore constructs an in-memory store for tests and dev mode.
func NewMemoryStore() Store {
	return &memoryStore{sessions: make(map[string]Session)}
}

func (m *memoryStore) Get(_ context.Context, deviceID string) (Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[deviceID]
	if !ok {
		return Session{}, ErrSessionMissing
	}
	return s, nil
}

func (m *memoryStore) Put(_ context.Context, deviceID string, s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[deviceID] = s
	return nil
}

func (m *memoryStore) Clear(_ context.Context, deviceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, deviceID)
	return nil
}
