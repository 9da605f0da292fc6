// Package prometheus provides Prometheus implementations of the core
// metrics interfaces for the event store and the message bus.
package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Migorithm/IAM/core/metrics"
)

// timer wraps a Prometheus histogram to implement the Timer interface.
type timer struct {
	h     prometheus.Observer
	start time.Time
}

func newTimer(h prometheus.Observer) metrics.Timer {
	return &timer{h: h, start: time.Now()}
}

func (t *timer) ObserveDuration() {
	t.h.Observe(time.Since(t.start).Seconds())
}

// Default histogram buckets for latency metrics (in seconds).
var defaultBuckets = []float64{
	.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10,
}

// AllMetrics holds Prometheus implementations for every pillar.
type AllMetrics struct {
	ES    *esMetrics
	Bus   *busMetrics
	Relay *RelayMetrics
}

// NewAllMetrics creates Prometheus metrics for the event store, the bus
// and the outbox relay, registered on reg.
func NewAllMetrics(reg prometheus.Registerer) *AllMetrics {
	return &AllMetrics{
		ES:    NewESMetrics(reg).(*esMetrics),
		Bus:   NewBusMetrics(reg).(*busMetrics),
		Relay: NewRelayMetrics(reg),
	}
}
