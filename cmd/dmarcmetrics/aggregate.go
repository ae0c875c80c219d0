package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/mailwatch/dmarcmetrics/internal/aggregate"
	apperrors "github.com/mailwatch/dmarcmetrics/internal/errors"
	"github.com/mailwatch/dmarcmetrics/internal/query"
)

var (
	aggregateDate    string
	aggregateDaysAgo int
)

var aggregateCmd = &cobra.Command{
	Use:   "aggregate",
	Short: "Compute and store the metrics row for one day",
	Long: `Reads all report records whose report mindate falls on the target day and
replaces that day's row in the metrics table. Supply the day either as an
explicit date or as an offset from today, but not both.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		target, err := resolveTargetDate(cmd)
		if err != nil {
			return err
		}
		cmd.SilenceUsage = true

		cfg, err := setup("aggregate")
		if err != nil {
			return err
		}

		ctx := context.Background()
		db, err := openDatabase(ctx, cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		return aggregate.NewRunner(db).Aggregate(ctx, target)
	},
}

func init() {
	aggregateCmd.Flags().StringVar(&aggregateDate, "date", "", "target day as YYYY-MM-DD")
	aggregateCmd.Flags().IntVar(&aggregateDaysAgo, "days-ago", 0, "target day as an offset from today")
}

func resolveTargetDate(cmd *cobra.Command) (time.Time, error) {
	hasDate := cmd.Flags().Changed("date")
	hasOffset := cmd.Flags().Changed("days-ago")
	switch {
	case hasDate == hasOffset:
		return time.Time{}, apperrors.Validationf("parse_flags",
			"exactly one of --date or --days-ago must be given")
	case hasDate:
		t, err := time.ParseInLocation(query.DateLayout, aggregateDate, time.UTC)
		if err != nil {
			return time.Time{}, apperrors.Validationf("parse_flags",
				"--date must look like 2025-01-10, got %q", aggregateDate)
		}
		return t, nil
	default:
		if aggregateDaysAgo < 0 {
			return time.Time{}, apperrors.Validationf("parse_flags",
				"--days-ago must not be negative")
		}
		return time.Now().UTC().AddDate(0, 0, -aggregateDaysAgo), nil
	}
}
