// Package query compiles the field catalog into the single SQL statement
// the aggregator executes: one REPLACE of the day's metrics row, computing
// every field with its own scalar subquery in a single round trip.
package query

import (
	"fmt"
	"strings"
	"time"

	"github.com/mailwatch/dmarcmetrics/internal/catalog"
)

// DateLayout is the wire format for date parameters and the metrics
// primary key. Dates are always bound as parameters, never spliced into
// the statement text.
const DateLayout = "2006-01-02"

// baseCount counts report-record messages inside a half-open mindate
// window. A full report's counts attribute to its mindate even when the
// report spans several days.
const baseCount = "SELECT COALESCE(SUM(rr.count), 0) " +
	"FROM reportRecords rr JOIN reports r ON r.serial = rr.serial " +
	"WHERE r.mindate >= ? AND r.mindate < ?"

// Compiled is the aggregation statement for a fixed catalog. It is pure
// given the catalog, built once at startup and reused for the process
// lifetime.
type Compiled struct {
	SQL        string
	FieldCount int
	ParamCount int // always 1 + 2*FieldCount
}

// Compile builds the statement. Column and subquery order follow catalog
// order; Args flattens parameters in that same order, so the two must
// never diverge.
func Compile(fields []catalog.Field) Compiled {
	cols := make([]string, 0, len(fields)+1)
	vals := make([]string, 0, len(fields)+1)
	cols = append(cols, "`date`")
	vals = append(vals, "?")
	for _, f := range fields {
		cols = append(cols, f.Name)
		vals = append(vals, "("+fieldCount(f)+")")
	}
	sql := fmt.Sprintf("REPLACE INTO metrics (%s) VALUES (%s)",
		strings.Join(cols, ", "), strings.Join(vals, ", "))
	return Compiled{
		SQL:        sql,
		FieldCount: len(fields),
		ParamCount: 1 + 2*len(fields),
	}
}

// Args flattens the positional parameters for one target day: the date
// being written, then the [target, target+1d) window once per field.
func (c Compiled) Args(target time.Time) []any {
	start := FormatDate(target)
	end := FormatDate(target.AddDate(0, 0, 1))
	args := make([]any, 0, c.ParamCount)
	args = append(args, start)
	for i := 0; i < c.FieldCount; i++ {
		args = append(args, start, end)
	}
	return args
}

// FormatDate renders a calendar date for parameter binding.
func FormatDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

func fieldCount(f catalog.Field) string {
	if !f.HasFilter() {
		return baseCount
	}
	conds := make([]string, 0, len(f.Filter))
	for _, c := range f.Filter {
		conds = append(conds, fmt.Sprintf("rr.%s %s '%s'", c.Column, c.Op, c.Value))
	}
	return baseCount + " AND (" + strings.Join(conds, " AND ") + ")"
}
