package cache

import (
	"context"
	"sync"
	"time"

	"ChipSentinel/internal/model"
)

type memoryEntry struct {
	series    *model.Series
	expiresAt time.Time
}

// Memory is an in-process TTL cache.
type Memory struct {
	mu    sync.RWMutex
	items map[string]memoryEntry
	now   func() time.Time
}

// NewMemory creates an empty in-process cache.
func NewMemory() *Memory {
	return &Memory{
		items: make(map[string]memoryEntry),
		now:   time.Now,
	}
}

func (m *Memory) GetOrCompute(ctx context.Context, key Key, ttl time.Duration, produce Producer) (*model.Series, error) {
	k := key.String()

	m.mu.RLock()
	e, ok := m.items[k]
	m.mu.RUnlock()
	if ok && m.now().Before(e.expiresAt) {
		return e.series, nil
	}

	s, err := produce(ctx)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.items[k] = memoryEntry{series: s, expiresAt: m.now().Add(ttl)}
	m.evictExpiredLocked()
	m.mu.Unlock()
	return s, nil
}

func (m *Memory) evictExpiredLocked() {
	now := m.now()
	for k, e := range m.items {
		if !now.Before(e.expiresAt) {
			delete(m.items, k)
		}
	}
}

// Len returns the number of stored entries, expired or not.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

func (m *Memory) Name() string { return "memory" }
func (m *Memory) Close() error { return nil }
