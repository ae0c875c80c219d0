package exporter

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mailwatch/dmarcmetrics/internal/cache"
	"github.com/mailwatch/dmarcmetrics/internal/catalog"
)

type fixedFetcher struct {
	day   string
	row   map[string]int64
	found bool
}

func (f *fixedFetcher) FetchRow(ctx context.Context, day string) (map[string]int64, bool, error) {
	f.day = day
	return f.row, f.found, nil
}

func gatherNames(t *testing.T, reg *prometheus.Registry) map[string]*dto.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	byName := make(map[string]*dto.MetricFamily, len(families))
	for _, mf := range families {
		byName[mf.GetName()] = mf
	}
	return byName
}

func TestCollectEmitsOneGaugePerField(t *testing.T) {
	fetcher := &fixedFetcher{
		row: map[string]int64{
			"num_total":           8,
			"num_rejected":        5,
			"num_quarantined":     0,
			"num_align_failed":    0,
			"num_dkim_failed":     0,
			"num_spf_failed":      3,
			"num_spf_dkim_failed": 0,
			"num_dkim_permerror":  0,
			"num_spf_permerror":   0,
		},
		found: true,
	}
	c := cache.New(fetcher, time.Minute, nil)

	reg := prometheus.NewRegistry()
	reg.MustRegister(NewCollector(c, catalog.Fields(), 1, nil))

	byName := gatherNames(t, reg)
	require.Len(t, byName, len(catalog.Fields()))

	total := byName["dmarc_num_total"]
	require.NotNil(t, total)
	assert.Equal(t, dto.MetricType_GAUGE, total.GetType())
	assert.Equal(t, float64(8), total.GetMetric()[0].GetGauge().GetValue())
	assert.Equal(t, float64(3), byName["dmarc_num_spf_failed"].GetMetric()[0].GetGauge().GetValue())
	assert.Equal(t, float64(0), byName["dmarc_num_quarantined"].GetMetric()[0].GetGauge().GetValue(),
		"a measured zero is a real sample")
}

func TestCollectEmitsNothingWithoutARow(t *testing.T) {
	c := cache.New(&fixedFetcher{found: false}, time.Minute, nil)

	reg := prometheus.NewRegistry()
	reg.MustRegister(NewCollector(c, catalog.Fields(), 1, nil))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.Empty(t, families, "an unaggregated day must yield absent samples, not zeros")
}

func TestCollectSkipsFieldsWithoutValues(t *testing.T) {
	fetcher := &fixedFetcher{row: map[string]int64{"num_total": 8}, found: true}
	c := cache.New(fetcher, time.Minute, nil)

	reg := prometheus.NewRegistry()
	reg.MustRegister(NewCollector(c, catalog.Fields(), 1, nil))

	byName := gatherNames(t, reg)
	require.Len(t, byName, 1)
	assert.Contains(t, byName, "dmarc_num_total")
}

func TestCollectorResolvesDayFromOffsetPerScrape(t *testing.T) {
	fetcher := &fixedFetcher{found: false}
	c := cache.New(fetcher, time.Nanosecond, nil)

	now := time.Date(2025, 1, 12, 15, 0, 0, 0, time.UTC)
	col := NewCollector(c, catalog.Fields(), 2, func() time.Time { return now })

	reg := prometheus.NewRegistry()
	reg.MustRegister(col)

	_, err := reg.Gather()
	require.NoError(t, err)
	assert.Equal(t, "2025-01-10", fetcher.day)

	now = now.AddDate(0, 0, 1)
	_, err = reg.Gather()
	require.NoError(t, err)
	assert.Equal(t, "2025-01-11", fetcher.day, "the reported day follows the calendar")
}

func TestDescribeCoversEveryField(t *testing.T) {
	c := cache.New(&fixedFetcher{}, time.Minute, nil)
	col := NewCollector(c, catalog.Fields(), 1, nil)

	ch := make(chan *prometheus.Desc, len(catalog.Fields())+1)
	col.Describe(ch)
	close(ch)

	var n int
	for range ch {
		n++
	}
	assert.Equal(t, len(catalog.Fields()), n)
}
