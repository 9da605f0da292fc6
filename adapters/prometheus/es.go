package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Migorithm/IAM/core/es"
	"github.com/Migorithm/IAM/core/metrics"
)

// esMetrics implements es.ESMetrics using Prometheus.
type esMetrics struct {
	storeAppendDuration  prometheus.Histogram
	storeLoadDuration    prometheus.Histogram
	eventsAppended       prometheus.Counter
	concurrencyConflicts prometheus.Counter
	outboxStaged         prometheus.Counter
}

// NewESMetrics creates a new Prometheus implementation of ESMetrics.
func NewESMetrics(reg prometheus.Registerer) es.ESMetrics {
	m := &esMetrics{
		storeAppendDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "iam_es_store_append_duration_seconds",
			Help:    "Event store append latency in seconds",
			Buckets: defaultBuckets,
		}),

		storeLoadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "iam_es_store_load_duration_seconds",
			Help:    "Event store load latency in seconds",
			Buckets: defaultBuckets,
		}),

		eventsAppended: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "iam_es_events_appended_total",
			Help: "Total number of events appended",
		}),

		concurrencyConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "iam_es_concurrency_conflicts_total",
			Help: "Total number of optimistic concurrency losses",
		}),

		outboxStaged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "iam_es_outbox_staged_total",
			Help: "Total number of outbox entries staged",
		}),
	}

	reg.MustRegister(
		m.storeAppendDuration,
		m.storeLoadDuration,
		m.eventsAppended,
		m.concurrencyConflicts,
		m.outboxStaged,
	)
	return m
}

func (m *esMetrics) StoreAppendDuration() metrics.Timer {
	return newTimer(m.storeAppendDuration)
}

func (m *esMetrics) StoreLoadDuration() metrics.Timer {
	return newTimer(m.storeLoadDuration)
}

func (m *esMetrics) EventsAppended(count int) {
	m.eventsAppended.Add(float64(count))
}

func (m *esMetrics) ConcurrencyConflict() {
	m.concurrencyConflicts.Inc()
}

func (m *esMetrics) OutboxStaged(count int) {
	m.outboxStaged.Add(float64(count))
}
