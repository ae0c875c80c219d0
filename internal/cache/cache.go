// Package cache buffers the most recent daily metrics row between the
// database and the exporter, so scrapes inside the TTL window never touch
// the database and a database outage degrades to stale answers instead of
// failed scrapes.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultTTL is how long a fetched row (or a "no row yet" result) is
// served before the next read refreshes it.
const DefaultTTL = 10 * time.Second

// RowFetcher loads the metrics row for one calendar day. found is false
// when no row exists for that day, which is not an error: aggregation may
// simply not have run yet.
type RowFetcher interface {
	FetchRow(ctx context.Context, day string) (row map[string]int64, found bool, err error)
}

type entry struct {
	fetchedAt time.Time
	row       map[string]int64
	found     bool
}

// Cache holds one entry per distinct day requested; in practice a single
// day, since the exporter runs with a fixed day offset.
type Cache struct {
	fetcher RowFetcher
	ttl     time.Duration
	now     func() time.Time

	mu      sync.Mutex
	entries map[string]entry
}

// New builds a cache. ttl <= 0 selects the default; now == nil uses the
// wall clock. The clock parameter exists so tests can step time directly.
func New(fetcher RowFetcher, ttl time.Duration, now func() time.Time) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if now == nil {
		now = time.Now
	}
	return &Cache{
		fetcher: fetcher,
		ttl:     ttl,
		now:     now,
		entries: make(map[string]entry),
	}
}

// GetField returns the named field of day's metrics row. ok is false when
// no row exists for the day or the row lacks the field: "not yet measured"
// must stay distinguishable from "measured as zero".
func (c *Cache) GetField(ctx context.Context, name, day string) (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[day]
	if !ok || c.now().Sub(e.fetchedAt) >= c.ttl {
		e = c.refreshLocked(ctx, day, e, ok)
	}
	if !e.found {
		return 0, false
	}
	v, ok := e.row[name]
	return v, ok
}

// refreshLocked replaces the entry for day. The fetch time is recorded
// whether or not a row was found, so an empty day is not re-queried on
// every scrape. A failed fetch keeps the previous entry and its fetch
// time: the next scrape retries, and stale data keeps being served in the
// meantime.
func (c *Cache) refreshLocked(ctx context.Context, day string, prev entry, had bool) entry {
	row, found, err := c.fetcher.FetchRow(ctx, day)
	if err != nil {
		log.Warn().Err(err).Str("date", day).Msg("Metrics row refresh failed, serving previous data")
		if had {
			return prev
		}
		return entry{found: false}
	}
	e := entry{fetchedAt: c.now(), row: row, found: found}
	c.entries[day] = e
	return e
}
