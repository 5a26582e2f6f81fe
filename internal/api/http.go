package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"

	"cnbrates/internal/rates"
	"cnbrates/internal/storage"
)

// NewMux constructs the HTTP mux, wiring in the rates service, metrics and
// health endpoints.
func NewMux(svc *rates.Service, st storage.Storage) *http.ServeMux {
	mux := http.NewServeMux()

	// Metrics endpoint.
	mux.Handle("/metrics", promhttp.Handler())

	// Health / readiness / liveness.
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if st != nil {
			if err := st.Ping(r.Context()); err != nil {
				slog.Error("readyz: storage ping failed", "error", err)
				http.Error(w, "storage not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})
	mux.HandleFunc("/livez", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("live"))
	})

	// Rates API.
	mux.HandleFunc("/rates/", withRequestLog("/rates", handleRate(svc)))
	mux.HandleFunc("/convert", withRequestLog("/convert", handleConvert(svc)))
	mux.HandleFunc("/worse", withRequestLog("/worse", handleWorse(svc)))
	mux.HandleFunc("/averages/", withRequestLog("/averages", handleAverages(svc)))

	// Internal refresh endpoint for cron jobs / manual refresh.
	RegisterRefreshHandler(mux, svc)

	return mux
}

type rateResponse struct {
	Currency  string          `json:"currency"`
	RealRate  decimal.Decimal `json:"real_rate"`
	Rate      decimal.Decimal `json:"rate"`
	Amount    decimal.Decimal `json:"amount"`
	Date      string          `json:"date"`
	FromCache bool            `json:"from_cache"`
	Stale     bool            `json:"stale"`
}

// handleRate serves GET /rates/{currency}?date=2006-01-02.
func handleRate(svc *rates.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		currency := strings.Trim(strings.TrimPrefix(r.URL.Path, "/rates/"), "/")
		if currency == "" {
			respondError(w, http.StatusBadRequest, "missing currency")
			return
		}
		date, err := parseDateParam(r)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}

		res, err := svc.RateTuple(r.Context(), currency, date)
		if err != nil {
			respondDomainError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, rateResponse{
			Currency:  strings.ToUpper(currency),
			RealRate:  res.Real(),
			Rate:      res.Rate,
			Amount:    res.Amount,
			Date:      rates.DateKey(res.Date),
			FromCache: res.FromCache,
			Stale:     res.Stale,
		})
	}
}

// handleConvert serves GET /convert?amount=&from=&to=&date=&percent=.
func handleConvert(svc *rates.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		amount, err := decimal.NewFromString(q.Get("amount"))
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid amount")
			return
		}
		from := q.Get("from")
		if from == "" {
			respondError(w, http.StatusBadRequest, "missing from currency")
			return
		}
		date, err := parseDateParam(r)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}

		result, err := svc.Convert(r.Context(), amount, from, q.Get("to"), date)
		if err != nil {
			respondDomainError(w, err)
			return
		}
		if raw := q.Get("percent"); raw != "" {
			percent, err := decimal.NewFromString(raw)
			if err != nil {
				respondError(w, http.StatusBadRequest, "invalid percent")
				return
			}
			result = rates.Modified(result, percent).Round(2)
		}

		to := q.Get("to")
		if to == "" {
			to = rates.HomeCurrency
		}
		respondJSON(w, http.StatusOK, map[string]any{
			"amount": amount,
			"from":   strings.ToUpper(from),
			"to":     strings.ToUpper(to),
			"result": result,
		})
	}
}

// handleWorse serves GET /worse?amount_given=&currency_given=&amount_obtained=&currency_obtained=&date=.
func handleWorse(svc *rates.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		amountGiven, err := decimal.NewFromString(q.Get("amount_given"))
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid amount_given")
			return
		}
		amountObtained, err := decimal.NewFromString(q.Get("amount_obtained"))
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid amount_obtained")
			return
		}
		date, err := parseDateParam(r)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}

		res, err := svc.Worse(r.Context(), amountGiven, q.Get("currency_given"), amountObtained, q.Get("currency_obtained"), date)
		if err != nil {
			respondDomainError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, res)
	}
}

// handleAverages serves GET /averages/{currency}?year=&month=|quarter=&cumulative=&normalized=.
func handleAverages(svc *rates.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		currency := strings.Trim(strings.TrimPrefix(r.URL.Path, "/averages/"), "/")
		if currency == "" {
			respondError(w, http.StatusBadRequest, "missing currency")
			return
		}
		q := r.URL.Query()
		year, err := strconv.Atoi(q.Get("year"))
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid year")
			return
		}
		normalized := q.Get("normalized") == "true"
		cumulative := q.Get("cumulative") == "true"

		var value decimal.Decimal
		switch {
		case q.Get("quarter") != "":
			quarter, err := strconv.Atoi(q.Get("quarter"))
			if err != nil {
				respondError(w, http.StatusBadRequest, "invalid quarter")
				return
			}
			if normalized {
				value, err = svc.Quarterly(r.Context(), currency, year, quarter)
			} else {
				value, err = svc.QuarterlyRate(r.Context(), currency, year, quarter)
			}
			if err != nil {
				respondDomainError(w, err)
				return
			}

		case q.Get("month") != "":
			m, err := strconv.Atoi(q.Get("month"))
			if err != nil || m < 1 || m > 12 {
				respondError(w, http.StatusBadRequest, "invalid month")
				return
			}
			month := time.Month(m)
			switch {
			case cumulative && normalized:
				value, err = svc.MonthlyCumulative(r.Context(), currency, year, month)
			case cumulative:
				value, err = svc.MonthlyCumulativeRate(r.Context(), currency, year, month)
			case normalized:
				value, err = svc.Monthly(r.Context(), currency, year, month)
			default:
				value, err = svc.MonthlyRate(r.Context(), currency, year, month)
			}
			if err != nil {
				respondDomainError(w, err)
				return
			}

		default:
			respondError(w, http.StatusBadRequest, "month or quarter required")
			return
		}

		respondJSON(w, http.StatusOK, map[string]any{
			"currency": strings.ToUpper(currency),
			"year":     year,
			"average":  value,
		})
	}
}

func parseDateParam(r *http.Request) (*time.Time, error) {
	raw := r.URL.Query().Get("date")
	if raw == "" {
		return nil, nil
	}
	d, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, errors.New("invalid date, expected YYYY-MM-DD")
	}
	return &d, nil
}

// respondDomainError maps the rate taxonomy onto HTTP status codes, so a
// caller can tell "currency unknown" from "service down" from "no data
// that far back".
func respondDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, rates.ErrRateNotFound), errors.Is(err, rates.ErrDateNotResolvable):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, rates.ErrSourceUnavailable):
		respondError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, rates.ErrZeroBase):
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}

func respondJSON(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, code int, message string) {
	respondJSON(w, code, map[string]string{"error": message})
}
