package rates

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Defaults matching the CNB publication schedule: the daily list appears at
// 14:30 Prague time, and roughly 500 days of history stay reachable.
const (
	DefaultTimeZone     = "Europe/Prague"
	DefaultCutoffHour   = 14
	DefaultCutoffMinute = 30
	DefaultLookbackDays = 500
)

// ResolverConfig tunes the resolution policy. Zero values select the
// defaults above.
type ResolverConfig struct {
	TimeZone     string
	CutoffHour   int
	CutoffMinute int
	LookbackDays int

	// Now overrides the wall clock, for tests.
	Now func() time.Time
}

// Resolver decides which calendar date's published list is authoritative
// for a request: it applies the publication cutoff and walks backward over
// unpublished days, bounded by LookbackDays.
type Resolver struct {
	cache        *Cache
	loc          *time.Location
	cutoffHour   int
	cutoffMinute int
	lookbackDays int
	now          func() time.Time
}

func NewResolver(cache *Cache, cfg ResolverConfig) (*Resolver, error) {
	tz := cfg.TimeZone
	if tz == "" {
		tz = DefaultTimeZone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", tz, err)
	}

	r := &Resolver{
		cache:        cache,
		loc:          loc,
		cutoffHour:   cfg.CutoffHour,
		cutoffMinute: cfg.CutoffMinute,
		lookbackDays: cfg.LookbackDays,
		now:          cfg.Now,
	}
	if r.cutoffHour == 0 && r.cutoffMinute == 0 {
		r.cutoffHour, r.cutoffMinute = DefaultCutoffHour, DefaultCutoffMinute
	}
	if r.lookbackDays <= 0 {
		r.lookbackDays = DefaultLookbackDays
	}
	if r.now == nil {
		r.now = time.Now
	}
	return r, nil
}

// Resolve returns the published rate for a currency. A nil date means
// "today" per the wall clock. The covered date in the result is the date of
// the list actually used, which may be earlier than requested.
func (r *Resolver) Resolve(ctx context.Context, currency string, date *time.Time) (ResolvedRate, error) {
	code, err := NormalizeCurrency(currency)
	if err != nil {
		return ResolvedRate{}, fmt.Errorf("%w: %v", ErrRateNotFound, err)
	}

	if code == HomeCurrency {
		d := r.candidate(date)
		one := decimal.NewFromInt(1)
		return ResolvedRate{Rate: one, Amount: one, Date: d}, nil
	}

	table, fromCache, stale, err := r.ResolveTable(ctx, date)
	if err != nil {
		return ResolvedRate{}, err
	}

	entry, ok := table.Entry(code)
	if !ok {
		return ResolvedRate{}, fmt.Errorf("%w: %s in list of %s", ErrRateNotFound, code, DateKey(table.Date))
	}
	return ResolvedRate{
		Rate:      entry.Rate,
		Amount:    entry.Amount,
		Date:      table.Date,
		FromCache: fromCache,
		Stale:     stale,
	}, nil
}

// ResolveTable resolves the authoritative list for a requested date (nil
// means today), walking backward over unpublished days.
func (r *Resolver) ResolveTable(ctx context.Context, date *time.Time) (table *RateTable, fromCache, stale bool, err error) {
	start := r.candidate(date)

	for i := 0; i <= r.lookbackDays; i++ {
		d := start.AddDate(0, 0, -i)
		table, fromCache, stale, err = r.cache.Table(ctx, d)
		if errors.Is(err, ErrNotPublished) {
			continue
		}
		if err != nil {
			return nil, false, false, err
		}
		return table, fromCache, stale, nil
	}
	return nil, false, false, fmt.Errorf("%w: searched %d days back from %s",
		ErrDateNotResolvable, r.lookbackDays, DateKey(start))
}

// candidate applies the publication-cutoff rule: a request for today made
// before the cutoff rolls back to yesterday, because today's list does not
// exist yet.
func (r *Resolver) candidate(date *time.Time) time.Time {
	now := r.now().In(r.loc)
	today := midnight(now)

	c := today
	if date != nil {
		c = midnight(date.In(r.loc))
	}
	if sameDay(c, today) && r.beforeCutoff(now) {
		c = c.AddDate(0, 0, -1)
	}
	return c
}

func (r *Resolver) beforeCutoff(now time.Time) bool {
	cutoff := time.Date(now.Year(), now.Month(), now.Day(), r.cutoffHour, r.cutoffMinute, 0, 0, now.Location())
	return now.Before(cutoff)
}
