package metrics_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/jonesrussell/listing-crawler/internal/metrics"
)

func TestMetrics_Record(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	m.RecordSeen()
	m.RecordSeen()
	m.RecordAccepted()
	m.RecordDuplicate()
	m.RecordSkipped()
	m.RecordRetry()
	m.RecordPhaseCompleted()
	m.SetPosition(2, 3)

	assert.InDelta(t, 2, testutil.ToFloat64(m.ItemsSeen), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.ItemsAccepted), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.ItemsDuplicate), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.ItemsSkipped), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.NavigationRetries), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.PhasesCompleted), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.CurrentPhase), 0)
	assert.InDelta(t, 3, testutil.ToFloat64(m.CurrentPage), 0)

	count, err := testutil.GatherAndCount(reg, "listing_crawler_items_seen_total")
	assert.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestMetrics_NilIsNoOp(t *testing.T) {
	t.Parallel()

	var m *metrics.Metrics
	assert.NotPanics(t, func() {
		m.RecordSeen()
		m.RecordAccepted()
		m.SetPosition(1, 1)
		m.ObserveItem(0.5)
	})
}
