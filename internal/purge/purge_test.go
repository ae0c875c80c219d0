package purge

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "reports.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
CREATE TABLE reports (serial INTEGER PRIMARY KEY, mindate TEXT NOT NULL, maxdate TEXT);
CREATE TABLE reportRecords (serial INTEGER NOT NULL, count INTEGER NOT NULL,
	disposition TEXT, spfResult TEXT, dkimResult TEXT, spfAlignment TEXT, dkimAlignment TEXT);`)
	require.NoError(t, err)
	return db
}

func addReport(t *testing.T, db *sql.DB, serial int, mindate string, records int) {
	t.Helper()
	_, err := db.Exec("INSERT INTO reports (serial, mindate, maxdate) VALUES (?, ?, ?)", serial, mindate, mindate)
	require.NoError(t, err)
	for i := 0; i < records; i++ {
		_, err := db.Exec("INSERT INTO reportRecords (serial, count, disposition) VALUES (?, 1, 'none')", serial)
		require.NoError(t, err)
	}
}

func count(t *testing.T, db *sql.DB, table string) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}

func TestRunDeletesOnlyOlderReports(t *testing.T) {
	db := openTestDB(t)
	addReport(t, db, 1, "2025-01-01", 3)
	addReport(t, db, 2, "2025-01-14", 2)
	addReport(t, db, 3, "2025-02-01", 1)

	cutoff := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	res, err := Run(context.Background(), db, cutoff)
	require.NoError(t, err)

	assert.Equal(t, int64(2), res.Reports)
	assert.Equal(t, int64(5), res.Records)
	assert.Equal(t, 1, count(t, db, "reports"))
	assert.Equal(t, 1, count(t, db, "reportRecords"))

	var remaining string
	require.NoError(t, db.QueryRow("SELECT mindate FROM reports").Scan(&remaining))
	assert.Equal(t, "2025-02-01", remaining)
}

func TestRunOnCutoffDayIsKept(t *testing.T) {
	db := openTestDB(t)
	addReport(t, db, 1, "2025-01-15", 1)

	res, err := Run(context.Background(), db, time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.Zero(t, res.Reports, "mindate equal to the cutoff is inside retention")
	assert.Equal(t, 1, count(t, db, "reports"))
}

func TestRunEmptyDatabase(t *testing.T) {
	db := openTestDB(t)

	res, err := Run(context.Background(), db, time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Zero(t, res.Reports)
	assert.Zero(t, res.Records)
}
