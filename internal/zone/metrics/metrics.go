package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the zone module.
type Metrics struct {
	ZonesCreated prometheus.Counter
	ZonesDeleted prometheus.Counter
	ListDuration prometheus.Histogram
}

// New creates a new Metrics instance with all zone module metrics registered.
func New() *Metrics {
	return &Metrics{
		ZonesCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "zonegrid_zones_created_total",
			Help: "Total number of zones created",
		}),
		ZonesDeleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "zonegrid_zones_deleted_total",
			Help: "Total number of zones soft-deleted",
		}),
		ListDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "zonegrid_zone_list_duration_seconds",
			Help:    "Duration of paginated zone listings",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// IncrementZonesCreated records a successful zone creation.
func (m *Metrics) IncrementZonesCreated() {
	m.ZonesCreated.Inc()
}

// IncrementZonesDeleted records a successful soft delete.
func (m *Metrics) IncrementZonesDeleted() {
	m.ZonesDeleted.Inc()
}

// ObserveList records the duration of a paginated listing.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveList(start time.Time) {
	m.ListDuration.Observe(time.Since(start).Seconds())
}
