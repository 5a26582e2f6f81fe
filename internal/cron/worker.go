package cron

import (
	"context"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"cnbrates/internal/alerting"
	"cnbrates/internal/metrics"
	"cnbrates/internal/rates"
)

const jobName = "refresh_rates"

// Run starts the refresh worker: it warms the cache with the current
// authoritative list on the given schedule (by default just after the CNB
// publication cutoff) and alerts on failure streaks. Blocks until the
// context is cancelled. Lookups stay demand-driven; the worker only keeps
// the common "today" path hot.
func Run(ctx context.Context, svc *rates.Service, notifier *alerting.Notifier, schedule string, loc *time.Location) error {
	var failures atomic.Int64

	job := func() {
		started := time.Now()
		date, err := svc.Refresh(ctx)
		metrics.UpdateJobMetrics(jobName, started, err)

		if err != nil {
			streak := failures.Add(1)
			slog.Error("cron: refresh failed", "error", err, "streak", streak)
			if notifier != nil {
				notifier.SourceFailure(ctx, int(streak), err)
			}
			return
		}
		failures.Store(0)
		slog.Info("cron: refreshed rate list", "covered_date", rates.DateKey(date))
	}

	c := cron.New(cron.WithLocation(loc))
	if _, err := c.AddFunc(normalizeSchedule(schedule), job); err != nil {
		return err
	}

	slog.Info("cron worker starting", "schedule", schedule)
	job() // warm the cache immediately

	c.Start()
	<-ctx.Done()

	stopCtx := c.Stop()
	<-stopCtx.Done()
	return ctx.Err()
}

// normalizeSchedule accepts either a cron expression or plain integer
// seconds ("300" -> "@every 300s").
func normalizeSchedule(s string) string {
	if v, err := strconv.Atoi(s); err == nil && v > 0 {
		return "@every " + strconv.Itoa(v) + "s"
	}
	if s == "" {
		return "35 14 * * 1-5"
	}
	return s
}
