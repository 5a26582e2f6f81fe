package rates

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, source Source, cfg Config) *Service {
	t.Helper()
	svc, err := NewService(source, nil, cfg)
	require.NoError(t, err)
	return svc
}

func TestResolveTodayBeforeCutoff(t *testing.T) {
	src := newFakeSource(
		testTable(2023, time.January, 3, map[string]RateEntry{"USD": testEntry("24.5", 1)}),
		wednesdayTable(),
	)
	// 13:59:59 Prague on Wednesday: today's list is not out yet.
	svc := newTestService(t, src, Config{Now: clockAt(2023, time.January, 4, 13, 59, 59)})

	res, err := svc.RateTuple(context.Background(), "USD", nil)
	require.NoError(t, err)
	require.Equal(t, "2023-01-03", DateKey(res.Date))
}

func TestResolveTodayAfterCutoff(t *testing.T) {
	src := newFakeSource(
		testTable(2023, time.January, 3, map[string]RateEntry{"USD": testEntry("24.5", 1)}),
		wednesdayTable(),
	)
	svc := newTestService(t, src, Config{Now: clockAt(2023, time.January, 4, 14, 30, 1)})

	res, err := svc.RateTuple(context.Background(), "USD", nil)
	require.NoError(t, err)
	require.Equal(t, "2023-01-04", DateKey(res.Date))
	require.Equal(t, "24.688", res.Real().String())
}

func TestResolveCutoffBoundaryIsInclusive(t *testing.T) {
	// Exactly 14:30:00 counts as published.
	src := newFakeSource(wednesdayTable())
	svc := newTestService(t, src, Config{Now: clockAt(2023, time.January, 4, 14, 30, 0)})

	res, err := svc.RateTuple(context.Background(), "USD", nil)
	require.NoError(t, err)
	require.Equal(t, "2023-01-04", DateKey(res.Date))
}

func TestResolveExplicitPastDateIgnoresCutoff(t *testing.T) {
	src := newFakeSource(
		testTable(2023, time.January, 3, map[string]RateEntry{"USD": testEntry("24.5", 1)}),
	)
	svc := newTestService(t, src, Config{Now: clockAt(2023, time.January, 4, 9, 0, 0)})

	res, err := svc.RateTuple(context.Background(), "USD", dateOf(2023, time.January, 3))
	require.NoError(t, err)
	require.Equal(t, "2023-01-03", DateKey(res.Date))
}

func TestResolveExplicitTodayBeforeCutoffRollsBack(t *testing.T) {
	src := newFakeSource(
		testTable(2023, time.January, 3, map[string]RateEntry{"USD": testEntry("24.5", 1)}),
		wednesdayTable(),
	)
	svc := newTestService(t, src, Config{Now: clockAt(2023, time.January, 4, 9, 0, 0)})

	res, err := svc.RateTuple(context.Background(), "USD", dateOf(2023, time.January, 4))
	require.NoError(t, err)
	require.Equal(t, "2023-01-03", DateKey(res.Date))
}

func TestResolveWeekendWalksBackToFriday(t *testing.T) {
	friday := testTable(2023, time.January, 6, map[string]RateEntry{"USD": testEntry("24.7", 1)})
	src := newFakeSource(friday)
	svc := newTestService(t, src, Config{Now: clockAt(2023, time.January, 9, 16, 0, 0)})

	// Sunday request: Sunday and Saturday are unpublished.
	res, err := svc.RateTuple(context.Background(), "USD", dateOf(2023, time.January, 8))
	require.NoError(t, err)
	require.Equal(t, "2023-01-06", DateKey(res.Date))
	require.Equal(t, 3, src.callCount())
}

func TestResolveExhaustsLookback(t *testing.T) {
	src := newFakeSource()
	svc := newTestService(t, src, Config{
		LookbackDays: 10,
		Now:          clockAt(2023, time.January, 4, 16, 0, 0),
	})

	_, err := svc.RateTuple(context.Background(), "USD", nil)
	require.ErrorIs(t, err, ErrDateNotResolvable)
	require.Equal(t, 11, src.callCount())
}

func TestResolveHomeCurrencyShortcut(t *testing.T) {
	src := newFakeSource()
	svc := newTestService(t, src, Config{Now: clockAt(2023, time.January, 4, 16, 0, 0)})

	res, err := svc.RateTuple(context.Background(), "czk", nil)
	require.NoError(t, err)
	require.Equal(t, "1", res.Rate.String())
	require.Equal(t, "1", res.Amount.String())
	require.Equal(t, "2023-01-04", DateKey(res.Date))
	require.Equal(t, 0, src.callCount(), "home currency must not hit the source")
}

func TestResolveCurrencyMissingFromList(t *testing.T) {
	src := newFakeSource(wednesdayTable())
	svc := newTestService(t, src, Config{Now: clockAt(2023, time.January, 4, 16, 0, 0)})

	_, err := svc.RateTuple(context.Background(), "GBP", nil)
	require.ErrorIs(t, err, ErrRateNotFound)
}

func TestResolveInvalidCurrencyCode(t *testing.T) {
	src := newFakeSource(wednesdayTable())
	svc := newTestService(t, src, Config{Now: clockAt(2023, time.January, 4, 16, 0, 0)})

	_, err := svc.RateTuple(context.Background(), "dollars", nil)
	require.ErrorIs(t, err, ErrRateNotFound)
	require.Equal(t, 0, src.callCount())
}
