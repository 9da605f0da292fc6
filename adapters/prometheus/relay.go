package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
)

// RelayMetrics observes the outbox relay using Prometheus. It satisfies
// the relay's metrics contract in adapters/nats.
type RelayMetrics struct {
	entriesDelivered prometheus.Counter
	drainFailures    prometheus.Counter
}

// NewRelayMetrics creates Prometheus relay metrics registered on reg.
func NewRelayMetrics(reg prometheus.Registerer) *RelayMetrics {
	m := &RelayMetrics{
		entriesDelivered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "iam_relay_entries_delivered_total",
			Help: "Total number of outbox entries published and marked processed",
		}),

		drainFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "iam_relay_drain_failures_total",
			Help: "Total number of failed drain polls",
		}),
	}

	reg.MustRegister(
		m.entriesDelivered,
		m.drainFailures,
	)
	return m
}

func (m *RelayMetrics) EntriesDelivered(count int) {
	m.entriesDelivered.Add(float64(count))
}

func (m *RelayMetrics) DrainFailure() {
	m.drainFailures.Inc()
}
