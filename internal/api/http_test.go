package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"cnbrates/internal/rates"
	"cnbrates/internal/storage"
)

// tableSource serves one fixed daily list for its covered date.
type tableSource struct {
	table *rates.RateTable
}

func (s *tableSource) Fetch(ctx context.Context, date time.Time) (*rates.RateTable, error) {
	if rates.DateKey(date) != rates.DateKey(s.table.Date) {
		return nil, rates.ErrNotPublished
	}
	return s.table, nil
}

func newTestMux(t *testing.T) *http.ServeMux {
	t.Helper()
	source := &tableSource{table: &rates.RateTable{
		Date: time.Date(2023, time.January, 4, 0, 0, 0, 0, time.UTC),
		Entries: map[string]rates.RateEntry{
			"USD": {Rate: decimal.RequireFromString("24.688"), Amount: decimal.NewFromInt(1)},
			"HUF": {Rate: decimal.RequireFromString("8.629"), Amount: decimal.NewFromInt(100)},
		},
	}}
	svc, err := rates.NewService(source, storage.NewMemory(), rates.Config{
		Now: func() time.Time {
			return time.Date(2023, time.January, 4, 16, 0, 0, 0, time.UTC)
		},
	})
	require.NoError(t, err)
	return NewMux(svc, storage.NewMemory())
}

func doGet(t *testing.T, mux *http.ServeMux, path string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	var body map[string]any
	if rec.Body.Len() > 0 && rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec.Code, body
}

func TestHandleRate(t *testing.T) {
	mux := newTestMux(t)

	code, body := doGet(t, mux, "/rates/usd?date=2023-01-04")
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "USD", body["currency"])
	require.Equal(t, "24.688", body["real_rate"])
	require.Equal(t, "2023-01-04", body["date"])

	// Unit-amount currency reports both the published pair and the real rate.
	code, body = doGet(t, mux, "/rates/HUF?date=2023-01-04")
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "0.08629", body["real_rate"])
	require.Equal(t, "100", body["amount"])
}

func TestHandleRateErrors(t *testing.T) {
	mux := newTestMux(t)

	code, _ := doGet(t, mux, "/rates/GBP?date=2023-01-04")
	require.Equal(t, http.StatusNotFound, code)

	code, _ = doGet(t, mux, "/rates/USD?date=not-a-date")
	require.Equal(t, http.StatusBadRequest, code)

	code, _ = doGet(t, mux, "/rates/")
	require.Equal(t, http.StatusBadRequest, code)
}

func TestHandleConvert(t *testing.T) {
	mux := newTestMux(t)

	code, body := doGet(t, mux, "/convert?amount=1000&from=USD&date=2023-01-04")
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "24688", body["result"])
	require.Equal(t, "CZK", body["to"])

	code, body = doGet(t, mux, "/convert?amount=100&from=USD&to=HUF&date=2023-01-04")
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "HUF", body["to"])

	code, _ = doGet(t, mux, "/convert?from=USD&date=2023-01-04")
	require.Equal(t, http.StatusBadRequest, code)
}

func TestHandleWorse(t *testing.T) {
	mux := newTestMux(t)

	code, body := doGet(t, mux, "/worse?amount_given=100&currency_given=CZK&amount_obtained=4&currency_obtained=USD&date=2023-01-04")
	require.Equal(t, http.StatusOK, code)
	require.NotEmpty(t, body["percent"])

	code, _ = doGet(t, mux, "/worse?amount_given=0&currency_given=CZK&amount_obtained=4&currency_obtained=USD&date=2023-01-04")
	require.Equal(t, http.StatusBadRequest, code)
}

func TestHandleAverages(t *testing.T) {
	mux := newTestMux(t)

	code, body := doGet(t, mux, "/averages/USD?year=2023&month=1")
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "24.688", body["average"])

	code, _ = doGet(t, mux, "/averages/USD?year=2023&month=3")
	require.Equal(t, http.StatusNotFound, code)

	code, _ = doGet(t, mux, "/averages/USD?year=2023")
	require.Equal(t, http.StatusBadRequest, code)
}

func TestRefreshEndpoint(t *testing.T) {
	mux := newTestMux(t)

	req := httptest.NewRequest(http.MethodPost, "/internal/refresh", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "refreshed", body["status"])
	require.Equal(t, "2023-01-04", body["covered_date"])

	code, _ := doGet(t, mux, "/internal/refresh")
	require.Equal(t, http.StatusMethodNotAllowed, code)
}

func TestHealthEndpoints(t *testing.T) {
	mux := newTestMux(t)

	for _, path := range []string{"/healthz", "/readyz", "/livez"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, path)
	}
}
