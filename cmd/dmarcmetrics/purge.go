package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	apperrors "github.com/mailwatch/dmarcmetrics/internal/errors"
	"github.com/mailwatch/dmarcmetrics/internal/purge"
	"github.com/mailwatch/dmarcmetrics/internal/query"
)

var (
	purgeKeepDays int
	purgeBefore   string
)

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete raw reports older than a retention cutoff",
	Long: `Deletes reports (and their records) whose mindate lies before the cutoff.
Aggregated metrics rows are never touched. Supply the cutoff either as a
retention window in days or as an explicit date, but not both.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cutoff, err := resolveCutoff(cmd)
		if err != nil {
			return err
		}
		cmd.SilenceUsage = true

		cfg, err := setup("purge")
		if err != nil {
			return err
		}

		ctx := context.Background()
		db, err := openDatabase(ctx, cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		_, err = purge.Run(ctx, db, cutoff)
		return err
	},
}

func init() {
	purgeCmd.Flags().IntVar(&purgeKeepDays, "keep-days", 0, "delete reports older than this many days")
	purgeCmd.Flags().StringVar(&purgeBefore, "before", "", "delete reports with mindate before this YYYY-MM-DD date")
}

func resolveCutoff(cmd *cobra.Command) (time.Time, error) {
	hasDays := cmd.Flags().Changed("keep-days")
	hasBefore := cmd.Flags().Changed("before")
	switch {
	case hasDays == hasBefore:
		return time.Time{}, apperrors.Validationf("parse_flags",
			"exactly one of --keep-days or --before must be given")
	case hasBefore:
		t, err := time.ParseInLocation(query.DateLayout, purgeBefore, time.UTC)
		if err != nil {
			return time.Time{}, apperrors.Validationf("parse_flags",
				"--before must look like 2025-01-10, got %q", purgeBefore)
		}
		return t, nil
	default:
		if purgeKeepDays < 1 {
			return time.Time{}, apperrors.Validationf("parse_flags",
				"--keep-days must be at least 1")
		}
		return time.Now().UTC().AddDate(0, 0, -purgeKeepDays), nil
	}
}
