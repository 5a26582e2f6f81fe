package rates

import "errors"

var (
	// ErrRateNotFound means the resolved list has no entry for the currency.
	ErrRateNotFound = errors.New("rate not found for currency")

	// ErrDateNotResolvable means no published list exists within the
	// lookback window.
	ErrDateNotResolvable = errors.New("no published rate list within lookback window")

	// ErrSourceUnavailable means the live fetch failed and no cached list
	// was usable as a fallback.
	ErrSourceUnavailable = errors.New("rate source unavailable and no usable cached list")

	// ErrNotPublished is reported by a Source or cache tier when the exact
	// date has no published list (weekend, holiday, future date).
	ErrNotPublished = errors.New("no rate list published for date")

	// ErrZeroBase is returned by Worse when the given side has zero value
	// but the obtained side does not.
	ErrZeroBase = errors.New("given amount has zero value")
)
