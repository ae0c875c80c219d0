package cache

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/mailwatch/dmarcmetrics/internal/catalog"
	"github.com/mailwatch/dmarcmetrics/internal/dbconn"
	apperrors "github.com/mailwatch/dmarcmetrics/internal/errors"
)

// MetricsStore reads daily metrics rows through the connection
// supervisor. It is the exporter's only database access path.
type MetricsStore struct {
	sup    *dbconn.Supervisor
	fields []catalog.Field
	query  string
}

// NewMetricsStore builds a store selecting every catalog field by exact
// date match.
func NewMetricsStore(sup *dbconn.Supervisor, fields []catalog.Field) *MetricsStore {
	cols := make([]string, len(fields))
	for i, f := range fields {
		cols[i] = f.Name
	}
	return &MetricsStore{
		sup:    sup,
		fields: fields,
		query:  "SELECT " + strings.Join(cols, ", ") + " FROM metrics WHERE `date` = ?",
	}
}

// FetchRow implements RowFetcher. A NULL column is simply absent from the
// returned map.
func (s *MetricsStore) FetchRow(ctx context.Context, day string) (map[string]int64, bool, error) {
	db, err := s.sup.Get(ctx)
	if err != nil {
		return nil, false, err
	}

	dest := make([]sql.NullInt64, len(s.fields))
	scan := make([]any, len(s.fields))
	for i := range dest {
		scan[i] = &dest[i]
	}

	err = db.QueryRowContext(ctx, s.query, day).Scan(scan...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, apperrors.WrapQuery("fetch_row", err)
	}

	row := make(map[string]int64, len(s.fields))
	for i, f := range s.fields {
		if dest[i].Valid {
			row[f.Name] = dest[i].Int64
		}
	}
	return row, true, nil
}
