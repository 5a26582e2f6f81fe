package rates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"cnbrates/internal/metrics"
	"cnbrates/internal/storage"
)

// DefaultValidMaxDays bounds how old a persistent snapshot may be, relative
// to the requested date, and still be served when the live fetch fails.
const DefaultValidMaxDays = 60

// Cache is the two-tier rate-table store: an in-memory map checked first
// and a persistent snapshot store that survives restarts. Misses fetch from
// the Source, with at most one in-flight fetch per date.
type Cache struct {
	source       Source
	store        storage.Storage // may be nil for memory-only operation
	validMaxDays int
	now          func() time.Time
	loc          *time.Location // zone "today" is judged in; nil means the clock's own

	mu     sync.RWMutex
	tables map[string]*RateTable // keyed by covered date
	alias  map[string]string     // requested date -> covered date
	group  singleflight.Group
}

// NewCache builds a Cache over a Source and an optional persistent store.
// validMaxDays <= 0 selects DefaultValidMaxDays.
func NewCache(source Source, store storage.Storage, validMaxDays int) *Cache {
	if validMaxDays <= 0 {
		validMaxDays = DefaultValidMaxDays
	}
	return &Cache{
		source:       source,
		store:        store,
		validMaxDays: validMaxDays,
		now:          time.Now,
		tables:       make(map[string]*RateTable),
		alias:        make(map[string]string),
	}
}

type fetchResult struct {
	table *RateTable
	stale bool
}

// Table returns the published list covering the requested date. The
// returned table may cover an earlier date when the source resolves
// unpublished days itself. fromCache reports a hit in either tier; stale is
// set only when a failed fetch fell back to an old persistent snapshot.
func (c *Cache) Table(ctx context.Context, date time.Time) (table *RateTable, fromCache, stale bool, err error) {
	key := DateKey(date)

	if t := c.memoryLookup(key); t != nil {
		metrics.CacheHitsTotal.WithLabelValues("memory").Inc()
		return t, true, false, nil
	}

	if t, err := c.persistentLookup(ctx, key); err == nil && t != nil {
		metrics.CacheHitsTotal.WithLabelValues("persistent").Inc()
		c.remember(key, t)
		return t, true, false, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		return c.fetch(ctx, date, key)
	})
	if err != nil {
		return nil, false, false, err
	}
	res := v.(fetchResult)
	if res.stale {
		metrics.StaleServesTotal.Inc()
		return res.table, true, true, nil
	}
	return res.table, false, false, nil
}

// InvalidateToday drops today's entry and any aliases pointing at it, so
// the next lookup refetches. Used once the publication cutoff passes.
// "Today" is judged in the configured zone, same as the resolver's cutoff.
func (c *Cache) InvalidateToday() {
	now := c.now()
	if c.loc != nil {
		now = now.In(c.loc)
	}
	today := DateKey(midnight(now))

	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.tables, today)
	for req, covered := range c.alias {
		if covered == today || req == today {
			delete(c.alias, req)
		}
	}
}

func (c *Cache) memoryLookup(key string) *RateTable {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if t, ok := c.tables[key]; ok {
		return t
	}
	if covered, ok := c.alias[key]; ok {
		return c.tables[covered]
	}
	return nil
}

func (c *Cache) persistentLookup(ctx context.Context, key string) (*RateTable, error) {
	if c.store == nil {
		return nil, nil
	}
	snap, err := c.store.GetSnapshot(ctx, key)
	if err != nil || snap == nil {
		return nil, err
	}
	return decodeSnapshot(snap)
}

// fetch asks the source for the date and falls back to the persistent tier
// when the source is unreachable. ErrNotPublished passes through untouched
// so the resolver can walk backward.
func (c *Cache) fetch(ctx context.Context, date time.Time, key string) (fetchResult, error) {
	table, err := c.source.Fetch(ctx, date)
	if err == nil {
		metrics.FetchesTotal.WithLabelValues("ok").Inc()
		c.remember(key, table)
		c.persist(ctx, table)
		return fetchResult{table: table}, nil
	}
	if errors.Is(err, ErrNotPublished) {
		metrics.FetchesTotal.WithLabelValues("not_published").Inc()
		return fetchResult{}, err
	}
	metrics.FetchesTotal.WithLabelValues("error").Inc()

	table, ferr := c.staleFallback(ctx, date, key)
	if ferr != nil {
		return fetchResult{}, fmt.Errorf("%w: %s (fetch: %v)", ErrSourceUnavailable, ferr, err)
	}
	return fetchResult{table: table, stale: true}, nil
}

// staleFallback serves the newest persistent snapshot at or before the
// requested date, provided its covered date is within validMaxDays.
func (c *Cache) staleFallback(ctx context.Context, date time.Time, key string) (*RateTable, error) {
	if c.store == nil {
		return nil, errors.New("no persistent tier configured")
	}
	snap, err := c.store.LatestSnapshotBefore(ctx, key)
	if err != nil {
		return nil, err
	}
	if snap == nil {
		return nil, errors.New("no cached snapshot for date")
	}
	covered, err := time.Parse("2006-01-02", snap.Date)
	if err != nil {
		return nil, fmt.Errorf("corrupt snapshot date %q: %w", snap.Date, err)
	}
	age := int(midnight(date).Sub(covered).Hours() / 24)
	if age < 0 {
		age = -age
	}
	if age > c.validMaxDays {
		return nil, fmt.Errorf("cached snapshot from %s exceeds valid_max_days=%d", snap.Date, c.validMaxDays)
	}
	table, err := decodeSnapshot(snap)
	if err != nil {
		return nil, err
	}
	c.remember(key, table)
	return table, nil
}

// remember stores a table under its covered date and, when the requested
// date differs, records the alias so repeated lookups hit in memory.
func (c *Cache) remember(requested string, table *RateTable) {
	covered := DateKey(table.Date)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.tables[covered] = table
	if requested != covered {
		c.alias[requested] = covered
	}
}

// persist writes the table under its covered date, best-effort.
func (c *Cache) persist(ctx context.Context, table *RateTable) {
	if c.store == nil {
		return
	}
	payload, err := json.Marshal(table)
	if err != nil {
		return
	}
	_ = c.store.SaveSnapshot(ctx, storage.RateSnapshot{
		Date:      DateKey(table.Date),
		Payload:   payload,
		FetchedAt: c.now(),
	})
}

func decodeSnapshot(snap *storage.RateSnapshot) (*RateTable, error) {
	var table RateTable
	if err := json.Unmarshal(snap.Payload, &table); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", snap.Date, err)
	}
	return &table, nil
}
