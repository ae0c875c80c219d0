// Package dbconn owns the exporter's database handle. It hands out only
// connections that just passed a liveness probe, reconnecting behind a
// fixed retry delay when the server drops us.
package dbconn

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	apperrors "github.com/mailwatch/dmarcmetrics/internal/errors"
)

// DefaultRetryInterval is the pause between failed connection attempts.
const DefaultRetryInterval = 5 * time.Second

// Opener establishes a database handle. sql.Open defers real I/O, so the
// supervisor always follows an open with a ping before trusting the handle.
type Opener func() (*sql.DB, error)

// Supervisor keeps at most one live connection and replaces it when the
// liveness probe fails. Writers in this system manage transactions
// explicitly; the MySQL opener disables autocommit through the DSN.
type Supervisor struct {
	open     Opener
	interval time.Duration

	mu sync.Mutex
	db *sql.DB
}

// New builds a supervisor around opener. interval <= 0 selects the default.
func New(opener Opener, interval time.Duration) *Supervisor {
	if interval <= 0 {
		interval = DefaultRetryInterval
	}
	return &Supervisor{open: opener, interval: interval}
}

// Get returns a connection that passed a ping immediately before return.
// On failure it retries until a connection is obtained or ctx is done; a
// server-side drop after return is the caller's to retry. Callers that
// must not hang a scrape forever bound ctx with a deadline.
func (s *Supervisor) Get(ctx context.Context) (*sql.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		if err := s.db.PingContext(ctx); err == nil {
			return s.db, nil
		}
		log.Warn().Msg("Database connection lost, reconnecting")
		s.db.Close()
		s.db = nil
	}

	for attempt := 1; ; attempt++ {
		db, err := s.connect(ctx)
		if err == nil {
			if attempt > 1 {
				log.Info().Int("attempts", attempt).Msg("Database connection established")
			}
			s.db = db
			return db, nil
		}
		log.Warn().Err(err).
			Dur("retry_in", s.interval).
			Msg("Database connection attempt failed")

		select {
		case <-ctx.Done():
			return nil, apperrors.WrapConnection("connect", ctx.Err())
		case <-time.After(s.interval):
		}
	}
}

// Close releases the current connection, if any.
func (s *Supervisor) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *Supervisor) connect(ctx context.Context) (*sql.DB, error) {
	db, err := s.open()
	if err != nil {
		return nil, err
	}
	// Single connection shared by all scrapes; a pool would reintroduce
	// per-connection session state drift.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
