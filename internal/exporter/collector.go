// Package exporter exposes the cached daily metrics to Prometheus. Each
// catalog field becomes one gauge; a day with no aggregated row yields no
// samples at all, so "not yet measured" never shows up as zero.
package exporter

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mailwatch/dmarcmetrics/internal/cache"
	"github.com/mailwatch/dmarcmetrics/internal/catalog"
	"github.com/mailwatch/dmarcmetrics/internal/query"
)

const namespace = "dmarc"

// Collector maps catalog fields to gauges backed by the metrics cache.
// The reported day is resolved per scrape from a fixed offset, so a
// long-running exporter follows the calendar without restarts.
type Collector struct {
	cache  *cache.Cache
	day    func() string
	fields []catalog.Field
	descs  []*prometheus.Desc
}

// NewCollector builds a collector for the given catalog. dayOffset is the
// number of days before today the exporter reports on; now == nil uses
// the wall clock.
func NewCollector(c *cache.Cache, fields []catalog.Field, dayOffset int, now func() time.Time) *Collector {
	if now == nil {
		now = time.Now
	}
	descs := make([]*prometheus.Desc, len(fields))
	for i, f := range fields {
		descs[i] = prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", f.Name),
			f.Help, nil, nil,
		)
	}
	return &Collector{
		cache:  c,
		day:    func() string { return query.FormatDate(now().AddDate(0, 0, -dayOffset)) },
		fields: fields,
		descs:  descs,
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range c.descs {
		ch <- d
	}
}

// Collect implements prometheus.Collector. Fields without a value are
// skipped rather than reported as zero.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	day := c.day()
	for i, f := range c.fields {
		v, ok := c.cache.GetField(context.Background(), f.Name, day)
		if !ok {
			continue
		}
		ch <- prometheus.MustNewConstMetric(c.descs[i], prometheus.GaugeValue, float64(v))
	}
}
