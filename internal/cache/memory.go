package cache

import (
	"context"
	"sync"
	"time"
)

// Memory is an in-process Cache with TTL and periodic cleanup. It is safe for
// concurrent use within one process; it does not share state across processes.
type Memory struct {
	mu           sync.Mutex
	items        map[string]memoryItem
	stopCleanup  chan struct{}
	shutdownOnce sync.Once
}

type memoryItem struct {
	value     string
	expiresAt time.Time
}

// NewMemory creates an in-memory cache and starts its cleanup goroutine.
func NewMemory() *Memory {
	m := &Memory{
		items:       make(map[string]memoryItem),
		stopCleanup: make(chan struct{}),
	}
	go m.startCleanup()
	return m
}

// Get implements Cache.
func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, exists := m.items[key]
	if !exists {
		return "", false, nil
	}
	if time.Now().After(item.expiresAt) {
		delete(m.items, key)
		return "", false, nil
	}
	return item.value, true, nil
}

// SetTTL implements Cache.
func (m *Memory) SetTTL(_ context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.items[key] = memoryItem{value: value, expiresAt: time.Now().Add(ttl)}
	return nil
}

// Delete implements Cache.
func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.items, key)
	return nil
}

// Clear implements Cache.
func (m *Memory) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.items = make(map[string]memoryItem)
	return nil
}

// Size returns the current number of stored keys, expired or not.
func (m *Memory) Size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

// CleanExpired removes all expired entries and returns how many were removed.
func (m *Memory) CleanExpired() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	removed := 0
	for key, item := range m.items {
		if now.After(item.expiresAt) {
			delete(m.items, key)
			removed++
		}
	}
	return removed
}

// Stop shuts down the cleanup goroutine.
func (m *Memory) Stop() {
	m.shutdownOnce.Do(func() {
		close(m.stopCleanup)
	})
}

func (m *Memory) startCleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.CleanExpired()
		case <-m.stopCleanup:
			return
		}
	}
}
