package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"cnbrates/internal/config"
	"cnbrates/internal/migrate"
	"cnbrates/internal/rates"
	"cnbrates/internal/storage"
)

var rootCmd = &cobra.Command{
	Use:   "cnbrates",
	Short: "Czech National Bank daily exchange rates: lookups, conversions and a caching rate server",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
		slog.SetDefault(logger)
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openStorage opens the configured persistent tier, running goose
// migrations first when auto-migrate is enabled. A failure degrades to
// cache-less operation instead of aborting: the service still works, it
// just refetches after restarts and loses the stale-read fallback.
func openStorage(ctx context.Context, cfg *config.Config) storage.Storage {
	if cfg.Storage.AutoMigrate {
		if err := migrate.Up(ctx, cfg.Storage.Driver, cfg.Storage.DSN); err != nil {
			slog.Error("auto-migration failed", "error", err)
		}
	}

	st, err := storage.Open(ctx, storage.Config{Driver: cfg.Storage.Driver, DSN: cfg.Storage.DSN})
	if err != nil {
		slog.Error("storage open failed, continuing without persistent tier",
			"driver", cfg.Storage.Driver, "error", err)
		return nil
	}
	return st
}

// newService builds the rates service from configuration.
func newService(cfg *config.Config, st storage.Storage) (*rates.Service, error) {
	client := rates.NewHTTPClient(cfg.Source.Timeout, cfg.Source.InsecureTLS)
	source := rates.NewHTTPSource(cfg.Source.URL, client)

	return rates.NewService(source, st, rates.Config{
		TimeZone:     cfg.Rates.TimeZone,
		CutoffHour:   cfg.Rates.CutoffHour,
		CutoffMinute: cfg.Rates.CutoffMinute,
		LookbackDays: cfg.Rates.LookbackDays,
		ValidMaxDays: cfg.Rates.ValidMaxDays,
	})
}

// parseDateFlag turns an optional --date value into the lookup argument.
func parseDateFlag(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	d, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, fmt.Errorf("invalid --date %q, expected YYYY-MM-DD", raw)
	}
	return &d, nil
}
