// Package metrics mirrors crawl progress into Prometheus collectors. The
// collectors are for observation only; the crawl state remains the source of
// truth for every counter.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	// Namespace is the namespace for all crawler metrics.
	Namespace = "listing_crawler"
)

// Metrics holds the crawl collectors. A nil *Metrics records nothing.
type Metrics struct {
	ItemsSeen         prometheus.Counter
	ItemsAccepted     prometheus.Counter
	ItemsDuplicate    prometheus.Counter
	ItemsSkipped      prometheus.Counter
	PagesSkipped      prometheus.Counter
	PhasesCompleted   prometheus.Counter
	PhasesOversized   prometheus.Counter
	NavigationRetries prometheus.Counter
	CurrentPhase      prometheus.Gauge
	CurrentPage       prometheus.Gauge
	ItemDuration      prometheus.Histogram
}

// New creates and registers the collectors on reg, or on the default
// registerer when reg is nil.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	factory := promauto.With(reg)
	counter := func(name, help string) prometheus.Counter {
		return factory.NewCounter(prometheus.CounterOpts{Namespace: Namespace, Name: name, Help: help})
	}
	gauge := func(name, help string) prometheus.Gauge {
		return factory.NewGauge(prometheus.GaugeOpts{Namespace: Namespace, Name: name, Help: help})
	}

	return &Metrics{
		ItemsSeen:         counter("items_seen_total", "Total number of listings visited"),
		ItemsAccepted:     counter("items_accepted_total", "Total number of listings that passed the predicate"),
		ItemsDuplicate:    counter("items_duplicate_total", "Total number of accepted listings skipped as duplicates"),
		ItemsSkipped:      counter("items_skipped_total", "Total number of listings skipped after navigation failures"),
		PagesSkipped:      counter("pages_skipped_total", "Total number of result pages skipped after navigation failures"),
		PhasesCompleted:   counter("phases_completed_total", "Total number of completed range phases"),
		PhasesOversized:   counter("phases_oversized_total", "Total number of phases whose count exceeds the target maximum"),
		NavigationRetries: counter("navigation_retries_total", "Total number of retried navigations"),
		CurrentPhase:      gauge("current_phase", "Index of the phase being crawled"),
		CurrentPage:       gauge("current_page", "Result page being crawled"),

		ItemDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "item_duration_seconds",
			Help:      "Time spent extracting and storing one listing",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
		}),
	}
}

// RecordSeen counts a visited listing.
func (m *Metrics) RecordSeen() {
	if m == nil {
		return
	}
	m.ItemsSeen.Inc()
}

// RecordAccepted counts a listing that passed the predicate.
func (m *Metrics) RecordAccepted() {
	if m == nil {
		return
	}
	m.ItemsAccepted.Inc()
}

// RecordDuplicate counts a duplicate submission.
func (m *Metrics) RecordDuplicate() {
	if m == nil {
		return
	}
	m.ItemsDuplicate.Inc()
}

// RecordSkipped counts a listing lost to navigation failures.
func (m *Metrics) RecordSkipped() {
	if m == nil {
		return
	}
	m.ItemsSkipped.Inc()
}

// RecordPageSkipped counts a result page lost to navigation failures.
func (m *Metrics) RecordPageSkipped() {
	if m == nil {
		return
	}
	m.PagesSkipped.Inc()
}

// RecordPhaseCompleted counts a finished phase.
func (m *Metrics) RecordPhaseCompleted() {
	if m == nil {
		return
	}
	m.PhasesCompleted.Inc()
}

// RecordOversized counts an oversized phase.
func (m *Metrics) RecordOversized() {
	if m == nil {
		return
	}
	m.PhasesOversized.Inc()
}

// RecordRetry counts one navigation retry.
func (m *Metrics) RecordRetry() {
	if m == nil {
		return
	}
	m.NavigationRetries.Inc()
}

// SetPosition records the phase and page being crawled.
func (m *Metrics) SetPosition(phase, page int) {
	if m == nil {
		return
	}
	m.CurrentPhase.Set(float64(phase))
	m.CurrentPage.Set(float64(page))
}

// ObserveItem records the duration of one item in seconds.
func (m *Metrics) ObserveItem(seconds float64) {
	if m == nil {
		return
	}
	m.ItemDuration.Observe(seconds)
}
