// Package aggregate computes one metrics row per calendar day from raw
// DMARC report records and writes it transactionally. Re-running a day
// replaces its row, so aggregation is idempotent.
package aggregate

import (
	"context"
	"database/sql"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mailwatch/dmarcmetrics/internal/catalog"
	apperrors "github.com/mailwatch/dmarcmetrics/internal/errors"
	"github.com/mailwatch/dmarcmetrics/internal/query"
)

// Runner executes the compiled aggregation statement. It is a batch
// component: callers open the database, run one or more days, and exit.
type Runner struct {
	db   *sql.DB
	stmt query.Compiled
}

// NewRunner compiles the catalog once and binds it to db.
func NewRunner(db *sql.DB) *Runner {
	return &Runner{db: db, stmt: query.Compile(catalog.Fields())}
}

// Aggregate writes the metrics row for target's calendar day. The whole
// row is computed and replaced inside one transaction; readers never see
// a partially written day.
func (r *Runner) Aggregate(ctx context.Context, target time.Time) error {
	if err := r.checkSchema(ctx); err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.WrapConnection("begin_transaction", err)
	}

	if _, err := tx.ExecContext(ctx, r.stmt.SQL, r.stmt.Args(target)...); err != nil {
		tx.Rollback()
		return apperrors.WrapQuery("aggregate", err)
	}
	if err := tx.Commit(); err != nil {
		return apperrors.WrapQuery("commit", err)
	}

	log.Info().Str("date", query.FormatDate(target)).Msg("Metrics row written")
	return nil
}

// checkSchema verifies the metrics table exists before any work is done.
// Its absence means the ingester's schema setup never ran, which is an
// operator problem, not a SQL one.
func (r *Runner) checkSchema(ctx context.Context) error {
	var one int
	err := r.db.QueryRowContext(ctx, "SELECT 1 FROM metrics LIMIT 1").Scan(&one)
	if err == nil || err == sql.ErrNoRows {
		return nil
	}
	return apperrors.Configf("check_schema",
		"metrics table not available (run the report ingester schema setup first): %v", err)
}
