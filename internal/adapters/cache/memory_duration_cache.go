package cache

import (
	"context"
	"stop-route-service/internal/domain"
	"stop-route-service/internal/ports"
	"sync"
)

type durationKey struct {
	session string
	mode    domain.TravelMode
}

// MemoryDurationCache keeps last known durations in process memory.
type MemoryDurationCache struct {
	mu      sync.RWMutex
	entries map[durationKey]ports.DurationEntry
}

func NewMemoryDurationCache() *MemoryDurationCache {
	return &MemoryDurationCache{entries: make(map[durationKey]ports.DurationEntry)}
}

func (m *MemoryDurationCache) Get(_ context.Context, session string, mode domain.TravelMode) (ports.DurationEntry, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.entries[durationKey{session: session, mode: mode}]
	return e, ok, nil
}

func (m *MemoryDurationCache) Put(_ context.Context, session string, mode domain.TravelMode, entry ports.DurationEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[durationKey{session: session, mode: mode}] = entry
	return nil
}
