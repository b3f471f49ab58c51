package store

import (
	"context"
	"sync"
)

// Memory is a map-backed KV for dev/testing.
type Memory struct {
	mu     sync.Mutex
	values map[Slot]string
	writes map[Slot]int

	// SetErr, when non-nil, is returned by every Set and nothing is stored.
	SetErr error
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{values: make(map[Slot]string), writes: make(map[Slot]int)}
}

// Get returns the value stored in slot.
func (m *Memory) Get(_ context.Context, slot Slot) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[slot]
	if !ok || v == "" {
		return "", false, nil
	}
	return v, true, nil
}

// Set stores value in slot.
func (m *Memory) Set(_ context.Context, slot Slot, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SetErr != nil {
		return m.SetErr
	}
	m.values[slot] = value
	m.writes[slot]++
	return nil
}

// Writes returns how many successful Set calls hit slot.
func (m *Memory) Writes(slot Slot) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes[slot]
}

// Healthy always reports true.
func (m *Memory) Healthy(context.Context) bool { return true }

// Close is a no-op.
func (m *Memory) Close() error { return nil }
