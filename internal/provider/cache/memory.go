package cache

import (
	"context"
	"sync"
	"time"

	"stockscreener/internal/provider"
)

// entry stores cached records with expiry.
type entry struct {
	expiresAt time.Time
	records   []provider.SymbolRecord
}

// MemoryStore is an in-process Store with a best-effort size cap.
type MemoryStore struct {
	MaxItems int

	mu    sync.RWMutex
	items map[string]entry
	now   func() time.Time
}

func NewMemoryStore(maxItems int) *MemoryStore {
	return &MemoryStore{MaxItems: maxItems, items: make(map[string]entry), now: time.Now}
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]provider.SymbolRecord, bool, error) {
	m.mu.RLock()
	e, ok := m.items[key]
	m.mu.RUnlock()
	if !ok || !m.now().Before(e.expiresAt) {
		return nil, false, nil
	}
	return e.records, true, nil
}

func (m *MemoryStore) Set(_ context.Context, key string, records []provider.SymbolRecord, ttl time.Duration) error {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = entry{expiresAt: now.Add(ttl), records: records}

	if m.MaxItems <= 0 || len(m.items) <= m.MaxItems {
		return nil
	}
	// remove expired first, then arbitrary keys until under the cap
	for k, v := range m.items {
		if !now.Before(v.expiresAt) {
			delete(m.items, k)
		}
	}
	for k := range m.items {
		if len(m.items) <= m.MaxItems {
			break
		}
		if k == key {
			continue
		}
		delete(m.items, k)
	}
	return nil
}

// Len reports the number of stored entries, expired or not.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}
