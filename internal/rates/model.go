package rates

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// HomeCurrency is the currency every published rate is quoted in. Its
// implicit rate is always (1, 1) and it is never fetched.
const HomeCurrency = "CZK"

// Rounding places used across the engine. Real rates carry the published
// precision (raw figures have 3 decimals, unit amounts are powers of ten),
// converted amounts round to currency precision.
const (
	realRatePlaces = 5
	homePlaces     = 2
	foreignPlaces  = 4
	rawAvgPlaces   = 3
)

// RateEntry is one row of a published daily list: Rate is the price of
// Amount units of the foreign currency in CZK (e.g. 100 HUF = 8.629 CZK).
type RateEntry struct {
	Rate   decimal.Decimal `json:"rate"`
	Amount decimal.Decimal `json:"amount"`
}

// Real returns the rate for exactly one unit of the foreign currency.
func (e RateEntry) Real() decimal.Decimal {
	if e.Amount.Equal(decimal.NewFromInt(1)) {
		return e.Rate
	}
	return e.Rate.DivRound(e.Amount, realRatePlaces)
}

// RateTable is one day's published list, keyed by currency code.
// Immutable after parse.
type RateTable struct {
	Date    time.Time            `json:"date"`
	Entries map[string]RateEntry `json:"entries"`
}

// Entry looks up the published entry for an (already normalized) code.
func (t *RateTable) Entry(code string) (RateEntry, bool) {
	e, ok := t.Entries[code]
	return e, ok
}

// ResolvedRate is the outcome of a lookup: the published figures, the date
// the list actually covers (may differ from the requested date), and
// provenance flags.
type ResolvedRate struct {
	Rate      decimal.Decimal `json:"rate"`
	Amount    decimal.Decimal `json:"amount"`
	Date      time.Time       `json:"date"`
	FromCache bool            `json:"from_cache"`
	Stale     bool            `json:"stale"`
}

// Real returns the rate for one unit of the foreign currency.
func (r ResolvedRate) Real() decimal.Decimal {
	return RateEntry{Rate: r.Rate, Amount: r.Amount}.Real()
}

// NormalizeCurrency uppercases and validates a 3-letter currency code.
func NormalizeCurrency(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != 3 {
		return "", fmt.Errorf("invalid currency code %q", code)
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return "", fmt.Errorf("invalid currency code %q", code)
		}
	}
	return code, nil
}

// DateKey formats a date the way cache and storage tiers key it.
func DateKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// midnight truncates a timestamp to its calendar date in its own location.
func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}
