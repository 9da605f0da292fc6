package es

import "github.com/Migorithm/IAM/core/metrics"

// ESMetrics defines the instrumentation points of the event sourcing core.
// Implementations must be thread-safe.
type ESMetrics interface {
	StoreAppendDuration() metrics.Timer
	StoreLoadDuration() metrics.Timer
	EventsAppended(count int)
	ConcurrencyConflict()
	OutboxStaged(count int)
}

type nopESMetrics struct{}

func (nopESMetrics) StoreAppendDuration() metrics.Timer { return metrics.NopTimer() }
func (nopESMetrics) StoreLoadDuration() metrics.Timer   { return metrics.NopTimer() }
func (nopESMetrics) EventsAppended(int)                 {}
func (nopESMetrics) ConcurrencyConflict()               {}
func (nopESMetrics) OutboxStaged(int)                   {}

// NopESMetrics returns a no-op ESMetrics implementation.
func NopESMetrics() ESMetrics { return nopESMetrics{} }
