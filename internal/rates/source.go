package rates

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// DefaultSourceURL is the CNB daily list endpoint; a date query parameter
// selects the published list for a given day.
const DefaultSourceURL = "https://www.cnb.cz/cs/financni_trhy/devizovy_trh/kurzy_devizoveho_trhu/denni_kurz.txt"

// Source provides the published rate list covering a date.
//
// The live CNB endpoint answers a request for an unpublished date (weekend,
// holiday, future) with the nearest prior list; the returned table's Date
// tells the truth. Implementations that only answer exact dates report
// ErrNotPublished instead, and the resolver walks backward itself.
type Source interface {
	Fetch(ctx context.Context, date time.Time) (*RateTable, error)
}

// HTTPSource fetches and parses the CNB daily list over HTTP.
type HTTPSource struct {
	rawURL string
	client *http.Client
}

// NewHTTPSource builds an HTTPSource. Empty rawURL selects the CNB
// endpoint; nil client selects the default 30s-timeout client.
func NewHTTPSource(rawURL string, client *http.Client) *HTTPSource {
	if rawURL == "" {
		rawURL = DefaultSourceURL
	}
	if client == nil {
		client = DefaultHTTPClient()
	}
	return &HTTPSource{rawURL: rawURL, client: client}
}

// Fetch downloads the list for the given date and parses it.
func (s *HTTPSource) Fetch(ctx context.Context, date time.Time) (*RateTable, error) {
	const op = "rates.HTTPSource.Fetch"

	u, err := url.Parse(s.rawURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	q := u.Query()
	q.Set("date", date.Format(headerDateFormat))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: unexpected status %s", op, resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	table, err := ParseDailyList(string(body))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return table, nil
}
