package dbconn

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	apperrors "github.com/mailwatch/dmarcmetrics/internal/errors"
)

func sqliteOpener(t *testing.T) Opener {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	return func() (*sql.DB, error) {
		return sql.Open("sqlite", path)
	}
}

func TestGetReturnsUsableConnection(t *testing.T) {
	sup := New(sqliteOpener(t), 10*time.Millisecond)
	defer sup.Close()

	db, err := sup.Get(context.Background())
	require.NoError(t, err)
	require.NoError(t, db.Ping())
}

func TestGetReusesLiveConnection(t *testing.T) {
	var opens atomic.Int32
	inner := sqliteOpener(t)
	sup := New(func() (*sql.DB, error) {
		opens.Add(1)
		return inner()
	}, 10*time.Millisecond)
	defer sup.Close()

	first, err := sup.Get(context.Background())
	require.NoError(t, err)
	second, err := sup.Get(context.Background())
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, int32(1), opens.Load())
}

func TestGetRecoversAfterFailures(t *testing.T) {
	var attempts atomic.Int32
	inner := sqliteOpener(t)
	sup := New(func() (*sql.DB, error) {
		if attempts.Add(1) <= 2 {
			return nil, errors.New("connection refused")
		}
		return inner()
	}, 5*time.Millisecond)
	defer sup.Close()

	start := time.Now()
	db, err := sup.Get(context.Background())
	require.NoError(t, err)
	require.NoError(t, db.Ping())

	assert.Equal(t, int32(3), attempts.Load(), "two failures then success")
	assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond,
		"retries must wait out the configured interval")
}

func TestGetStopsWhenContextEnds(t *testing.T) {
	sup := New(func() (*sql.DB, error) {
		return nil, errors.New("connection refused")
	}, 5*time.Millisecond)
	defer sup.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := sup.Get(ctx)
	require.Error(t, err)
	assert.True(t, apperrors.IsTransientError(err))
}

func TestGetReplacesDeadConnection(t *testing.T) {
	inner := sqliteOpener(t)
	sup := New(inner, 5*time.Millisecond)
	defer sup.Close()

	db, err := sup.Get(context.Background())
	require.NoError(t, err)

	// Kill the handle behind the supervisor's back; the next Get must
	// notice the failed probe and hand out a fresh one.
	require.NoError(t, db.Close())

	replacement, err := sup.Get(context.Background())
	require.NoError(t, err)
	require.NoError(t, replacement.Ping())
	assert.NotSame(t, db, replacement)
}

func TestCloseIsIdempotent(t *testing.T) {
	sup := New(sqliteOpener(t), 5*time.Millisecond)
	_, err := sup.Get(context.Background())
	require.NoError(t, err)

	require.NoError(t, sup.Close())
	require.NoError(t, sup.Close())
}
