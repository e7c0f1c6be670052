package tracking

import (
	"context"
	"sync"
)

type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]*Entry)}
}

func (ms *MemoryStore) Put(ctx context.Context, e *Entry) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	cp := *e
	cp.History = append([]HistoryEntry(nil), e.History...)
	ms.entries[e.TrackingNumber] = &cp
	return nil
}

func (ms *MemoryStore) Get(ctx context.Context, trackingNumber string) (*Entry, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	e, ok := ms.entries[trackingNumber]
	if !ok {
		return nil, ErrEntryNotFound
	}
	cp := *e
	cp.History = append([]HistoryEntry(nil), e.History...)
	return &cp, nil
}
