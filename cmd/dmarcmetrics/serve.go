package main

import (
	"database/sql"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/mailwatch/dmarcmetrics/internal/cache"
	"github.com/mailwatch/dmarcmetrics/internal/catalog"
	"github.com/mailwatch/dmarcmetrics/internal/dbconn"
	"github.com/mailwatch/dmarcmetrics/internal/exporter"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Prometheus exporter",
	Long: `Serves the most recently aggregated metrics row as gauges on /metrics.
The exporter survives database outages: scrapes keep answering from cache
while the connection supervisor reconnects in the background of the next
refresh.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		cfg, err := setup("exporter")
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		dsn := cfg.DB.DSN()
		sup := dbconn.New(func() (*sql.DB, error) {
			return sql.Open("mysql", dsn)
		}, cfg.RetryInterval)
		defer sup.Close()

		fields := catalog.Fields()
		store := cache.NewMetricsStore(sup, fields)
		metricsCache := cache.New(store, cfg.CacheTTL, nil)

		reg := prometheus.NewRegistry()
		reg.MustRegister(exporter.NewCollector(metricsCache, fields, cfg.DayOffset, nil))

		log.Info().
			Int("day_offset", cfg.DayOffset).
			Dur("cache_ttl", cfg.CacheTTL).
			Msg("Starting exporter")
		return exporter.Serve(ctx, cfg.Listen, reg)
	},
}
