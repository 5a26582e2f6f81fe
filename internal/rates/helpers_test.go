package rates

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// fakeSource serves pre-built tables for exact dates and reports
// ErrNotPublished for anything else. With carryBack set it behaves like the
// live endpoint instead, answering with the nearest earlier list.
type fakeSource struct {
	mu        sync.Mutex
	tables    map[string]*RateTable
	err       error
	delay     time.Duration
	carryBack bool
	calls     int
}

func newFakeSource(tables ...*RateTable) *fakeSource {
	m := make(map[string]*RateTable)
	for _, t := range tables {
		m[DateKey(t.Date)] = t
	}
	return &fakeSource{tables: m}
}

func (f *fakeSource) Fetch(ctx context.Context, date time.Time) (*RateTable, error) {
	f.mu.Lock()
	f.calls++
	err := f.err
	table, ok := f.tables[DateKey(date)]
	if !ok && f.carryBack {
		for i := 1; i <= 30 && !ok; i++ {
			table, ok = f.tables[DateKey(date.AddDate(0, 0, -i))]
		}
	}
	delay := f.delay
	f.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotPublished
	}
	return table, nil
}

func (f *fakeSource) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func testEntry(rate string, amount int64) RateEntry {
	return RateEntry{
		Rate:   decimal.RequireFromString(rate),
		Amount: decimal.NewFromInt(amount),
	}
}

func testTable(year int, month time.Month, day int, entries map[string]RateEntry) *RateTable {
	return &RateTable{
		Date:    time.Date(year, month, day, 0, 0, 0, 0, time.UTC),
		Entries: entries,
	}
}

// wednesdayTable is the baseline list most tests resolve against:
// Wednesday 2023-01-04.
func wednesdayTable() *RateTable {
	return testTable(2023, time.January, 4, map[string]RateEntry{
		"USD": testEntry("24.688", 1),
		"EUR": testEntry("24.5", 1),
		"PLN": testEntry("6.224", 1),
		"HUF": testEntry("8.629", 100),
	})
}

func clockAt(year int, month time.Month, day, hour, minute, sec int) func() time.Time {
	loc, err := time.LoadLocation(DefaultTimeZone)
	if err != nil {
		panic(err)
	}
	at := time.Date(year, month, day, hour, minute, sec, 0, loc)
	return func() time.Time { return at }
}

func dateOf(year int, month time.Month, day int) *time.Time {
	d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return &d
}
