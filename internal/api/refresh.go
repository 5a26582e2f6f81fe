package api

import (
	"net/http"

	"cnbrates/internal/rates"
)

// RegisterRefreshHandler wires the internal refresh endpoint used by cron
// jobs and manual operations. It invalidates today's cached list and
// refetches the current authoritative one.
func RegisterRefreshHandler(mux *http.ServeMux, svc *rates.Service) {
	mux.HandleFunc("/internal/refresh", withRequestLog("/internal/refresh", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			respondError(w, http.StatusMethodNotAllowed, "POST required")
			return
		}
		date, err := svc.Refresh(r.Context())
		if err != nil {
			respondDomainError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]string{
			"status":       "refreshed",
			"covered_date": rates.DateKey(date),
		})
	}))
}
