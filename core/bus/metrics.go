package bus

import "github.com/Migorithm/IAM/core/metrics"

// BusMetrics defines the instrumentation points of the dispatch loop.
// Implementations must be thread-safe.
type BusMetrics interface {
	MessageDuration(kind, msgType string) metrics.Timer
	MessageProcessed(kind, msgType string, success bool)
	HandlerFailure(msgType string)
}

type nopBusMetrics struct{}

func (nopBusMetrics) MessageDuration(string, string) metrics.Timer { return metrics.NopTimer() }
func (nopBusMetrics) MessageProcessed(string, string, bool)        {}
func (nopBusMetrics) HandlerFailure(string)                        {}

// NopBusMetrics returns a no-op BusMetrics implementation.
func NopBusMetrics() BusMetrics { return nopBusMetrics{} }
