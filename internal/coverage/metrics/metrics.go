package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for coverage resolution.
type Metrics struct {
	Lookups         prometheus.Counter
	CacheHits       prometheus.Counter
	ResolveDuration prometheus.Histogram
}

// New creates a new Metrics instance with all coverage metrics registered.
func New() *Metrics {
	return &Metrics{
		Lookups: promauto.NewCounter(prometheus.CounterOpts{
			Name: "zonegrid_coverage_lookups_total",
			Help: "Total number of point-in-zone lookups",
		}),
		CacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "zonegrid_coverage_cache_hits_total",
			Help: "Total number of lookups answered from cache",
		}),
		ResolveDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "zonegrid_coverage_resolve_duration_seconds",
			Help:    "Duration of point-in-zone resolution (hot path)",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// IncrementLookups records a lookup attempt.
func (m *Metrics) IncrementLookups() {
	m.Lookups.Inc()
}

// IncrementCacheHits records a lookup answered from cache.
func (m *Metrics) IncrementCacheHits() {
	m.CacheHits.Inc()
}

// ObserveResolve records the duration of a resolution.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveResolve(start time.Time) {
	m.ResolveDuration.Observe(time.Since(start).Seconds())
}
