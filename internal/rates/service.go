package rates

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"cnbrates/internal/storage"
)

// Config controls resolution and caching behaviour. Zero values select the
// CNB defaults.
type Config struct {
	TimeZone     string
	CutoffHour   int
	CutoffMinute int
	LookbackDays int
	ValidMaxDays int

	// Now overrides the wall clock, for tests.
	Now func() time.Time
}

// Service is the public surface: rate lookups, conversion arithmetic and
// period averages over resolved daily lists. Safe for concurrent use.
type Service struct {
	resolver *Resolver
	cache    *Cache

	mu         sync.RWMutex
	lastResult map[string]ResolvedRate
}

// NewService wires the cache and resolver over a Source and an optional
// persistent store.
func NewService(source Source, store storage.Storage, cfg Config) (*Service, error) {
	cache := NewCache(source, store, cfg.ValidMaxDays)
	if cfg.Now != nil {
		cache.now = cfg.Now
	}
	resolver, err := NewResolver(cache, ResolverConfig{
		TimeZone:     cfg.TimeZone,
		CutoffHour:   cfg.CutoffHour,
		CutoffMinute: cfg.CutoffMinute,
		LookbackDays: cfg.LookbackDays,
		Now:          cfg.Now,
	})
	if err != nil {
		return nil, err
	}
	cache.loc = resolver.loc
	return &Service{
		resolver:   resolver,
		cache:      cache,
		lastResult: make(map[string]ResolvedRate),
	}, nil
}

// resolve runs the resolution policy and records the outcome for
// ResultInfo.
func (s *Service) resolve(ctx context.Context, currency string, date *time.Time) (ResolvedRate, error) {
	res, err := s.resolver.Resolve(ctx, currency, date)
	if err != nil {
		return ResolvedRate{}, err
	}
	code, _ := NormalizeCurrency(currency)
	s.mu.Lock()
	s.lastResult[code] = res
	s.mu.Unlock()
	return res, nil
}

// Rate returns the real rate (price of one unit of the currency in CZK)
// for today or the given date, rounded to the published precision.
func (s *Service) Rate(ctx context.Context, currency string, date *time.Time) (decimal.Decimal, error) {
	res, err := s.resolve(ctx, currency, date)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return res.Real(), nil
}

// RateTuple returns the full resolved rate: published figures, covered
// date and provenance flags.
func (s *Service) RateTuple(ctx context.Context, currency string, date *time.Time) (ResolvedRate, error) {
	return s.resolve(ctx, currency, date)
}

// ResultInfo returns the outcome of the most recent resolution for a
// currency, from any operation that resolved it.
func (s *Service) ResultInfo(currency string) (ResolvedRate, bool) {
	code, err := NormalizeCurrency(currency)
	if err != nil {
		return ResolvedRate{}, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	res, ok := s.lastResult[code]
	return res, ok
}

// Convert converts an amount of the source currency into the target
// currency (CZK when target is empty), rounded to currency precision.
func (s *Service) Convert(ctx context.Context, amount decimal.Decimal, from, to string, date *time.Time) (decimal.Decimal, error) {
	home, err := s.homeValue(ctx, amount, from, date)
	if err != nil {
		return decimal.Decimal{}, err
	}
	result, err := s.fromHome(ctx, home, to, date)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return result.Round(homePlaces), nil
}

// ConvertTo converts an amount of CZK into the target currency, rounded to
// foreign-amount precision.
func (s *Service) ConvertTo(ctx context.Context, target string, amountHome decimal.Decimal, date *time.Time) (decimal.Decimal, error) {
	result, err := s.fromHome(ctx, amountHome, target, date)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return result.Round(foreignPlaces), nil
}

// Modified applies a percentage margin to a number: n * (100+percent)/100.
func Modified(n, percent decimal.Decimal) decimal.Decimal {
	if percent.IsZero() {
		return n
	}
	hundred := decimal.NewFromInt(100)
	return n.Mul(hundred.Add(percent)).Div(hundred)
}

// WorseResult compares the home-currency value of what was given against
// what was obtained in a cross transaction. Negative values mean the
// obtained side was worth less than the given side.
type WorseResult struct {
	Percent      decimal.Decimal `json:"percent"`       // 2 decimal places
	HomeDelta    decimal.Decimal `json:"home_delta"`    // in the given currency's home value, 2 places
	ForeignDelta decimal.Decimal `json:"foreign_delta"` // in the obtained currency, 4 places
}

// Worse computes the signed difference triple for a transaction where
// amountGiven of curGiven was exchanged for amountObtained of curObtained.
// Intermediate arithmetic is unrounded; only the result fields round.
func (s *Service) Worse(ctx context.Context, amountGiven decimal.Decimal, curGiven string, amountObtained decimal.Decimal, curObtained string, date *time.Time) (WorseResult, error) {
	givenHome, err := s.homeValue(ctx, amountGiven, curGiven, date)
	if err != nil {
		return WorseResult{}, err
	}
	if givenHome.IsZero() {
		if amountObtained.IsZero() {
			return WorseResult{}, nil
		}
		return WorseResult{}, fmt.Errorf("%w: cannot compare against %s %s", ErrZeroBase, amountObtained, curObtained)
	}

	obtainedRate, err := s.realRate(ctx, curObtained, date)
	if err != nil {
		return WorseResult{}, err
	}

	// What the given side should have bought in the obtained currency.
	expected := givenHome.DivRound(obtainedRate, 10)
	foreignDelta := amountObtained.Sub(expected)
	homeDelta := foreignDelta.Mul(obtainedRate)
	percent := homeDelta.DivRound(givenHome, 10).Mul(decimal.NewFromInt(100))

	return WorseResult{
		Percent:      percent.Round(homePlaces),
		HomeDelta:    homeDelta.Round(homePlaces),
		ForeignDelta: foreignDelta.Round(foreignPlaces),
	}, nil
}

// Refresh invalidates today's cached list and resolves the current
// authoritative table, returning the date it covers. Used by the cron
// worker and the internal refresh endpoint.
func (s *Service) Refresh(ctx context.Context) (time.Time, error) {
	s.cache.InvalidateToday()
	table, _, _, err := s.resolver.ResolveTable(ctx, nil)
	if err != nil {
		return time.Time{}, err
	}
	return table.Date, nil
}

// homeValue converts an amount of a currency into CZK, unrounded.
func (s *Service) homeValue(ctx context.Context, amount decimal.Decimal, currency string, date *time.Time) (decimal.Decimal, error) {
	code, err := NormalizeCurrency(currency)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: %v", ErrRateNotFound, err)
	}
	if code == HomeCurrency {
		return amount, nil
	}
	rate, err := s.realRate(ctx, code, date)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return amount.Mul(rate), nil
}

// fromHome converts a CZK amount into a currency, unrounded. Empty or home
// target returns the amount unchanged.
func (s *Service) fromHome(ctx context.Context, amountHome decimal.Decimal, currency string, date *time.Time) (decimal.Decimal, error) {
	if currency == "" {
		return amountHome, nil
	}
	code, err := NormalizeCurrency(currency)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: %v", ErrRateNotFound, err)
	}
	if code == HomeCurrency {
		return amountHome, nil
	}
	rate, err := s.realRate(ctx, code, date)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return amountHome.DivRound(rate, 10), nil
}

func (s *Service) realRate(ctx context.Context, code string, date *time.Time) (decimal.Decimal, error) {
	res, err := s.resolve(ctx, code, date)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return res.Real(), nil
}

// --- period averages ---

// MonthlyRate averages the raw published figures for a currency over the
// days of a month that have a published list, at published precision.
func (s *Service) MonthlyRate(ctx context.Context, currency string, year int, month time.Month) (decimal.Decimal, error) {
	from, to := monthRange(year, month)
	return s.averageRaw(ctx, currency, from, to)
}

// Monthly averages unit-normalized real rates over the month, so unit
// amounts that vary by currency (100 HUF vs 1 USD) cannot skew the mean.
func (s *Service) Monthly(ctx context.Context, currency string, year int, month time.Month) (decimal.Decimal, error) {
	from, to := monthRange(year, month)
	return s.averageReal(ctx, currency, from, to)
}

// MonthlyCumulativeRate averages raw figures from January 1 through the end
// of the given month, mirroring the CNB cumulative-average table.
func (s *Service) MonthlyCumulativeRate(ctx context.Context, currency string, year int, month time.Month) (decimal.Decimal, error) {
	_, to := monthRange(year, month)
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	return s.averageRaw(ctx, currency, from, to)
}

// MonthlyCumulative is the unit-normalized variant of
// MonthlyCumulativeRate.
func (s *Service) MonthlyCumulative(ctx context.Context, currency string, year int, month time.Month) (decimal.Decimal, error) {
	_, to := monthRange(year, month)
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	return s.averageReal(ctx, currency, from, to)
}

// QuarterlyRate averages raw published figures over a calendar quarter.
func (s *Service) QuarterlyRate(ctx context.Context, currency string, year, quarter int) (decimal.Decimal, error) {
	from, to, err := quarterRange(year, quarter)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return s.averageRaw(ctx, currency, from, to)
}

// Quarterly is the unit-normalized variant of QuarterlyRate.
func (s *Service) Quarterly(ctx context.Context, currency string, year, quarter int) (decimal.Decimal, error) {
	from, to, err := quarterRange(year, quarter)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return s.averageReal(ctx, currency, from, to)
}

func (s *Service) averageRaw(ctx context.Context, currency string, from, to time.Time) (decimal.Decimal, error) {
	return s.average(ctx, currency, from, to, func(e RateEntry) decimal.Decimal {
		return e.Rate
	}, rawAvgPlaces)
}

func (s *Service) averageReal(ctx context.Context, currency string, from, to time.Time) (decimal.Decimal, error) {
	return s.average(ctx, currency, from, to, func(e RateEntry) decimal.Decimal {
		return e.Real()
	}, realRatePlaces)
}

// average walks every day of [from, to] and averages value(entry) over days
// whose resolved list covers exactly that day. Unpublished days are
// skipped, never zero-filled, and a carried-forward earlier list is never
// counted twice.
func (s *Service) average(ctx context.Context, currency string, from, to time.Time, value func(RateEntry) decimal.Decimal, places int32) (decimal.Decimal, error) {
	code, err := NormalizeCurrency(currency)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: %v", ErrRateNotFound, err)
	}

	sum := decimal.Zero
	days := 0
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		table, _, _, err := s.cache.Table(ctx, d)
		if errors.Is(err, ErrNotPublished) {
			continue
		}
		if err != nil {
			return decimal.Decimal{}, err
		}
		if !sameDay(table.Date, d) {
			// The source answered with an earlier list: no list exists
			// for this exact day.
			continue
		}
		entry, ok := table.Entry(code)
		if !ok {
			continue
		}
		sum = sum.Add(value(entry))
		days++
	}

	if days == 0 {
		return decimal.Decimal{}, fmt.Errorf("%w: %s between %s and %s",
			ErrRateNotFound, code, DateKey(from), DateKey(to))
	}
	return sum.DivRound(decimal.NewFromInt(int64(days)), places), nil
}

func monthRange(year int, month time.Month) (from, to time.Time) {
	from = time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	to = from.AddDate(0, 1, -1)
	return from, to
}

func quarterRange(year, quarter int) (from, to time.Time, err error) {
	if quarter < 1 || quarter > 4 {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid quarter %d", quarter)
	}
	first := time.Month((quarter-1)*3 + 1)
	from = time.Date(year, first, 1, 0, 0, 0, 0, time.UTC)
	to = from.AddDate(0, 3, -1)
	return from, to, nil
}
