package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Migorithm/IAM/core/bus"
	"github.com/Migorithm/IAM/core/metrics"
)

// busMetrics implements bus.BusMetrics using Prometheus.
type busMetrics struct {
	messageDuration   *prometheus.HistogramVec
	messagesProcessed *prometheus.CounterVec
	handlerFailures   *prometheus.CounterVec
}

// NewBusMetrics creates a new Prometheus implementation of BusMetrics.
func NewBusMetrics(reg prometheus.Registerer) bus.BusMetrics {
	m := &busMetrics{
		messageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "iam_bus_message_duration_seconds",
			Help:    "Message handling latency in seconds",
			Buckets: defaultBuckets,
		}, []string{"kind", "message_type"}),

		messagesProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "iam_bus_messages_processed_total",
			Help: "Total number of messages processed",
		}, []string{"kind", "message_type", "success"}),

		handlerFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "iam_bus_handler_failures_total",
			Help: "Total number of isolated event handler failures",
		}, []string{"message_type"}),
	}

	reg.MustRegister(
		m.messageDuration,
		m.messagesProcessed,
		m.handlerFailures,
	)
	return m
}

func (m *busMetrics) MessageDuration(kind, msgType string) metrics.Timer {
	return newTimer(m.messageDuration.WithLabelValues(kind, msgType))
}

func (m *busMetrics) MessageProcessed(kind, msgType string, success bool) {
	s := "false"
	if success {
		s = "true"
	}
	m.messagesProcessed.WithLabelValues(kind, msgType, s).Inc()
}

func (m *busMetrics) HandlerFailure(msgType string) {
	m.handlerFailures.WithLabelValues(msgType).Inc()
}
