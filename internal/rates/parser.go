package rates

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// The CNB publishes its daily list as pipe-delimited text with a dated
// header and one row per currency:
//
//	03.01.2023 #1
//	země|měna|množství|kód|kurz
//	Austrálie|dolar|1|AUD|15,346
//	Maďarsko|forint|100|HUF|8,629
//
// The header date is the date the list covers, which for weekend and
// holiday requests is earlier than the requested date. Decimals use commas.

const headerDateFormat = "02.01.2006"

// ParseDailyList parses the published daily list text into a RateTable.
func ParseDailyList(text string) (*RateTable, error) {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(text, "\n")
	if len(lines) < 2 {
		return nil, fmt.Errorf("daily list too short (%d lines)", len(lines))
	}

	date, err := parseHeaderDate(lines[0])
	if err != nil {
		return nil, err
	}

	entries := make(map[string]RateEntry)
	for i, line := range lines[1:] {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Split(line, "|")
		if len(fields) != 5 {
			return nil, fmt.Errorf("line %d: expected 5 fields, got %d", i+2, len(fields))
		}
		if i == 0 && isColumnHeader(fields) {
			continue
		}

		code, err := NormalizeCurrency(fields[3])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+2, err)
		}
		amount, err := parseCzechDecimal(fields[2])
		if err != nil {
			return nil, fmt.Errorf("line %d: amount: %w", i+2, err)
		}
		if !amount.IsPositive() {
			return nil, fmt.Errorf("line %d: non-positive amount %s for %s", i+2, amount, code)
		}
		rate, err := parseCzechDecimal(fields[4])
		if err != nil {
			return nil, fmt.Errorf("line %d: rate: %w", i+2, err)
		}
		if !rate.IsPositive() {
			return nil, fmt.Errorf("line %d: non-positive rate %s for %s", i+2, rate, code)
		}

		entries[code] = RateEntry{Rate: rate, Amount: amount}
	}

	if len(entries) == 0 {
		return nil, fmt.Errorf("daily list for %s has no currency rows", date.Format(headerDateFormat))
	}

	return &RateTable{Date: date, Entries: entries}, nil
}

// parseHeaderDate extracts the covered date from a header such as
// "03.01.2023 #1" ("#1" is the list's ordinal within the year).
func parseHeaderDate(line string) (time.Time, error) {
	raw := strings.TrimSpace(line)
	if i := strings.IndexByte(raw, ' '); i > 0 {
		raw = raw[:i]
	}
	date, err := time.Parse(headerDateFormat, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("daily list header %q: %w", line, err)
	}
	return date, nil
}

// isColumnHeader recognizes the column-name row, which the CNB serves in
// Czech or English depending on the endpoint locale.
func isColumnHeader(fields []string) bool {
	last := strings.ToLower(strings.TrimSpace(fields[4]))
	return last == "kurz" || last == "rate"
}

func parseCzechDecimal(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ",", ".")
	return decimal.NewFromString(s)
}
