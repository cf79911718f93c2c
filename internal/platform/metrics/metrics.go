package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds process-level Prometheus metrics shared across modules.
type Metrics struct {
	OutboxEventsAppended prometheus.Counter
}

// New creates and registers all process-level metrics.
func New() *Metrics {
	return &Metrics{
		OutboxEventsAppended: promauto.NewCounter(prometheus.CounterOpts{
			Name: "zonegrid_outbox_events_appended_total",
			Help: "Total number of outbox events appended with committed mutations",
		}),
	}
}

// IncrementOutboxEventsAppended records one appended outbox event.
func (m *Metrics) IncrementOutboxEventsAppended() {
	m.OutboxEventsAppended.Inc()
}
