package seedguard

import (
	"context"
	"sync"
	"time"
)

type memEntry struct {
	status   SeedStatus
	expireAt time.Time
}

// MemorySeedStore 本地模拟与测试用，TTL 语义同 Redis
type MemorySeedStore struct {
	mu      sync.Mutex
	entries map[uint64]memEntry
	now     func() time.Time
}

func NewMemorySeedStore() *MemorySeedStore {
	return &MemorySeedStore{
		entries: make(map[uint64]memEntry),
		now:     time.Now,
	}
}

func (m *MemorySeedStore) getUnsafe(seed uint64) SeedStatus {
	e, ok := m.entries[seed]
	if !ok {
		return SeedUnknown
	}
	if !m.now().Before(e.expireAt) {
		delete(m.entries, seed)
		return SeedUnknown
	}
	return e.status
}

func (m *MemorySeedStore) Status(_ context.Context, seed uint64) (SeedStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getUnsafe(seed), nil
}

func (m *MemorySeedStore) Reserve(_ context.Context, seed uint64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch m.getUnsafe(seed) {
	case SeedUnknown, SeedFailed:
		m.entries[seed] = memEntry{status: SeedReserved, expireAt: m.now().Add(reservedTTL)}
		return true, nil
	default:
		return false, nil
	}
}

func (m *MemorySeedStore) Mark(_ context.Context, seed uint64, status SeedStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[seed] = memEntry{status: status, expireAt: m.now().Add(ttlOf(status))}
	return nil
}
