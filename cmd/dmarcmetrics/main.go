package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/spf13/cobra"

	"github.com/mailwatch/dmarcmetrics/internal/config"
	apperrors "github.com/mailwatch/dmarcmetrics/internal/errors"
	"github.com/mailwatch/dmarcmetrics/internal/logging"
)

// Version information (set at build time with -ldflags)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

var rootCmd = &cobra.Command{
	Use:     "dmarcmetrics",
	Short:   "Daily DMARC report aggregation and Prometheus exporter",
	Long:    `dmarcmetrics condenses ingested DMARC aggregate reports into one metrics row per day and serves the latest row to Prometheus.`,
	Version: Version,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("dmarcmetrics %s\n", Version)
		if BuildTime != "unknown" {
			fmt.Printf("Built: %s\n", BuildTime)
		}
		if GitCommit != "unknown" {
			fmt.Printf("Commit: %s\n", GitCommit)
		}
	},
}

func init() {
	rootCmd.AddCommand(aggregateCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(purgeCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup loads configuration and brings up logging for one command run.
func setup(component string) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		logging.Init(logging.Config{Format: "auto", Level: "info", Component: component})
		return nil, err
	}
	logging.Init(logging.Config{
		Format:    cfg.LogFormat,
		Level:     cfg.LogLevel,
		Component: component,
	})
	return cfg, nil
}

// openDatabase connects for a batch run. Batch commands fail fast on a
// dead database instead of retrying; resilience belongs to the exporter.
func openDatabase(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open("mysql", cfg.DB.DSN())
	if err != nil {
		return nil, apperrors.WrapConnection("open_database", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, apperrors.WrapConnection("ping_database", err)
	}
	return db, nil
}
