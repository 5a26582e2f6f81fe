package storage

import "context"

// Storage abstracts the persistent cache tier: one snapshot per covered
// date, surviving process restarts. Lookups that miss return (nil, nil).
type Storage interface {
	// GetSnapshot returns the snapshot whose covered date equals date
	// (formatted 2006-01-02).
	GetSnapshot(ctx context.Context, date string) (*RateSnapshot, error)

	// LatestSnapshotBefore returns the most recent snapshot covering date
	// or any earlier day. Used for the stale-read fallback.
	LatestSnapshotBefore(ctx context.Context, date string) (*RateSnapshot, error)

	// SaveSnapshot inserts or overwrites the snapshot for its covered date.
	// The write is atomic per date entry.
	SaveSnapshot(ctx context.Context, snap RateSnapshot) error

	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases any resources (no-op for in-memory).
	Close() error
}
