// Package purge deletes report data older than a retention cutoff. Report
// records go first, then the reports themselves, in one transaction, so a
// failure never strands orphaned records.
package purge

import (
	"context"
	"database/sql"
	"time"

	"github.com/rs/zerolog/log"

	apperrors "github.com/mailwatch/dmarcmetrics/internal/errors"
	"github.com/mailwatch/dmarcmetrics/internal/query"
)

const (
	deleteRecords = "DELETE FROM reportRecords WHERE serial IN " +
		"(SELECT serial FROM reports WHERE mindate < ?)"
	deleteReports = "DELETE FROM reports WHERE mindate < ?"
)

// Result reports how many rows one purge removed.
type Result struct {
	Records int64
	Reports int64
}

// Run removes all reports with mindate before the cutoff day, and their
// records. Aggregated metrics rows are kept; they are the compact history
// the raw data is purged in favor of.
func Run(ctx context.Context, db *sql.DB, before time.Time) (Result, error) {
	cutoff := query.FormatDate(before)

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return Result{}, apperrors.WrapConnection("begin_transaction", err)
	}

	var res Result
	r, err := tx.ExecContext(ctx, deleteRecords, cutoff)
	if err != nil {
		tx.Rollback()
		return Result{}, apperrors.WrapQuery("purge_records", err)
	}
	res.Records, _ = r.RowsAffected()

	r, err = tx.ExecContext(ctx, deleteReports, cutoff)
	if err != nil {
		tx.Rollback()
		return Result{}, apperrors.WrapQuery("purge_reports", err)
	}
	res.Reports, _ = r.RowsAffected()

	if err := tx.Commit(); err != nil {
		return Result{}, apperrors.WrapQuery("commit", err)
	}

	log.Info().
		Str("cutoff", cutoff).
		Int64("reports", res.Reports).
		Int64("records", res.Records).
		Msg("Purged reports older than cutoff")
	return res, nil
}
