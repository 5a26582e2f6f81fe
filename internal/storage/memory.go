package storage

import (
	"context"
	"sync"
	"time"
)

// MemoryStorage is an in-memory Storage implementation, useful for tests
// and single-process deployments that can afford to refetch after restart.
type MemoryStorage struct {
	mu    sync.RWMutex
	snaps map[string]RateSnapshot
}

func NewMemory() *MemoryStorage {
	return &MemoryStorage{snaps: make(map[string]RateSnapshot)}
}

func (m *MemoryStorage) Close() error                   { return nil }
func (m *MemoryStorage) Ping(ctx context.Context) error { return nil }

// GetSnapshot returns the snapshot covering exactly the given date, if any.
func (m *MemoryStorage) GetSnapshot(ctx context.Context, date string) (*RateSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.snaps[date]
	if !ok {
		return nil, nil
	}
	cp := s
	return &cp, nil
}

// LatestSnapshotBefore scans for the most recent snapshot at or before date.
func (m *MemoryStorage) LatestSnapshotBefore(ctx context.Context, date string) (*RateSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var best string
	for d := range m.snaps {
		if d <= date && d > best {
			best = d
		}
	}
	if best == "" {
		return nil, nil
	}
	cp := m.snaps[best]
	return &cp, nil
}

// SaveSnapshot stores a snapshot under its covered date.
func (m *MemoryStorage) SaveSnapshot(ctx context.Context, snap RateSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if snap.FetchedAt.IsZero() {
		snap.FetchedAt = time.Now()
	}
	m.snaps[snap.Date] = snap
	return nil
}
