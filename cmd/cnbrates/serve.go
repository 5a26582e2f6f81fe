package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"cnbrates/internal/alerting"
	"cnbrates/internal/api"
	"cnbrates/internal/config"
	cronworker "cnbrates/internal/cron"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP rate server with the scheduled refresh worker",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.New()
		if err != nil {
			return err
		}

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		st := openStorage(ctx, cfg)
		if st != nil {
			defer st.Close()
		}

		svc, err := newService(cfg, st)
		if err != nil {
			return err
		}

		mux := api.NewMux(svc, st)
		server := &http.Server{
			Addr:         ":" + cfg.HTTPServer.Port,
			Handler:      mux,
			ReadTimeout:  cfg.HTTPServer.Timeout,
			WriteTimeout: cfg.HTTPServer.Timeout,
			IdleTimeout:  cfg.HTTPServer.IdleTimeout,
		}

		if cfg.Cron.Enabled {
			loc, err := time.LoadLocation(cfg.Rates.TimeZone)
			if err != nil {
				return err
			}
			notifier := alerting.New(alerting.Config{
				WebhookURL:     cfg.Alerting.WebhookURL,
				WebhookType:    cfg.Alerting.WebhookType,
				SendgridAPIKey: cfg.Alerting.SendgridAPIKey,
				EmailFrom:      cfg.Alerting.EmailFrom,
				EmailTo:        cfg.Alerting.EmailTo,
				MinFailures:    cfg.Alerting.MinFailures,
			})
			go func() {
				if err := cronworker.Run(ctx, svc, notifier, cfg.Cron.Schedule, loc); err != nil && !errors.Is(err, context.Canceled) {
					slog.Error("cron worker stopped", "error", err)
				}
			}()
		}

		go func() {
			slog.Info("cnbrates listening", "addr", server.Addr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("server failed", "error", err)
				cancel()
			}
		}()

		done := make(chan os.Signal, 1)
		signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-done:
		case <-ctx.Done():
		}
		cancel()

		slog.Info("stopping server")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("failed to stop server", "error", err)
		}
		slog.Info("server stopped")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
