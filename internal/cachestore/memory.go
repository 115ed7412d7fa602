package cachestore

import (
	"context"
	"sync"
	"time"

	"github.com/marco741/prof-backend/internal/globaltime"
)

// Memory is an in-process Store. Writes to the same key are last-writer-wins.
type Memory struct {
	mu      sync.RWMutex
	entries map[Key]Result
}

func NewMemory() *Memory {
	return &Memory{entries: make(map[Key]Result)}
}

func (m *Memory) Retrieve(ctx context.Context, key Key, maxAge time.Duration, providerPin string) (*Result, bool) {
	_ = ctx
	if m == nil {
		return nil, false
	}

	m.mu.RLock()
	entry, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}

	if globaltime.Now().Sub(entry.CreatedAt) > maxAge {
		return nil, false
	}
	if !matchesPin(&entry, providerPin) {
		return nil, false
	}
	return &entry, true
}

func (m *Memory) Add(ctx context.Context, key Key, result Result) {
	_ = ctx
	if m == nil {
		return
	}

	m.mu.Lock()
	m.entries[key] = result
	m.mu.Unlock()
}

// Len reports the number of stored entries, stale ones included.
func (m *Memory) Len() int {
	if m == nil {
		return 0
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
