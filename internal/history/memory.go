package history

import (
	"context"
	"errors"
	"sync"
	"time"
)

type memoryRecorder struct {
	mu       sync.Mutex
	attempts map[string]Attempt
}

// NewMemoryRecorder constructs an in-memory recorder for tests and dev mode.
func NewMemoryRecorder() Recorder {
	return &memoryRecorder{attempts: make(map[string]Attempt)}
}

func (m *memoryRecorder) Created(_ context.Context, a Attempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.attempts[a.ID]; exists {
		return errors.New("attempt exists")
	}
	m.attempts[a.ID] = a
	return nil
}

func (m *memoryRecorder) Settled(_ context.Context, id, status, errMsg string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.attempts[id]
	if !ok {
		return errors.New("attempt not found")
	}
	a.Status = status
	a.Error = errMsg
	a.SettledAt = &at
	m.attempts[id] = a
	return nil
}

// Snapshot returns a copy of an attempt, for tests.
func Snapshot(r Recorder, id string) (Attempt, bool) {
	mem, ok := r.(*memoryRecorder)
	if !ok {
		return Attempt{}, false
	}
	mem.mu.Lock()
	defer mem.mu.Unlock()
	a, found := mem.attempts[id]
	return a, found
}
