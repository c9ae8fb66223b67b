// Package metrics holds the Prometheus collectors for rate fetches,
// allocations and shares.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Rate fetch outcomes.
const (
	OutcomeOK       = "ok"
	OutcomeIdentity = "identity"
	OutcomeOffline  = "offline"
	OutcomeNotFound = "not_found"
	OutcomeError    = "error"
)

// Metrics groups every collector the service exports.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	rateFetches      *prometheus.CounterVec
	rateFetchSeconds prometheus.Histogram
	staleRates       prometheus.Counter
	allocations      *prometheus.CounterVec
	shares           *prometheus.CounterVec
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// Default returns collectors registered with the global Prometheus registry.
func Default() *Metrics {
	defaultOnce.Do(func() {
		defaultMetrics = New(prometheus.DefaultRegisterer)
	})
	return defaultMetrics
}

// New creates collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		rateFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "flicksplit_rate_fetch_total",
			Help: "Exchange rate lookups by outcome.",
		}, []string{"outcome"}),
		rateFetchSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "flicksplit_rate_fetch_duration_seconds",
			Help:    "Latency of remote exchange rate requests.",
			Buckets: prometheus.DefBuckets,
		}),
		staleRates: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "flicksplit_rate_result_discarded_total",
			Help: "Rate fetch results dropped because the session moved on.",
		}),
		allocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "flicksplit_allocations_total",
			Help: "Bill allocations by result.",
		}, []string{"result"}),
		shares: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "flicksplit_share_total",
			Help: "Share attempts by outcome.",
		}, []string{"outcome"}),
	}
	reg.MustRegister(m.rateFetches, m.rateFetchSeconds, m.staleRates, m.allocations, m.shares)
	return m
}

// ObserveRateFetch records one rate lookup. Identity lookups pass a zero duration
// and are not added to the latency histogram.
func (m *Metrics) ObserveRateFetch(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.rateFetches.WithLabelValues(outcome).Inc()
	if outcome != OutcomeIdentity {
		m.rateFetchSeconds.Observe(d.Seconds())
	}
}

// ObserveDiscardedRate records a late rate result that was ignored.
func (m *Metrics) ObserveDiscardedRate() {
	if m == nil {
		return
	}
	m.staleRates.Inc()
}

// ObserveAllocation records an allocation; result is "ok", "unassigned" or "invalid".
func (m *Metrics) ObserveAllocation(result string) {
	if m == nil {
		return
	}
	m.allocations.WithLabelValues(result).Inc()
}

// ObserveShare records a share attempt outcome.
func (m *Metrics) ObserveShare(outcome string) {
	if m == nil {
		return
	}
	if outcome == "" {
		outcome = "unknown"
	}
	m.shares.WithLabelValues(outcome).Inc()
}
