// Package bus routes commands and events through the system.
//
// A command has exactly one registered handler and produces a result; its
// failure propagates to the caller. An event has zero or more handlers and
// no expected result; each handler runs in its own fresh unit of work and a
// handler failure is logged and isolated so it cannot break the others.
//
// Handle drains a FIFO work queue seeded with one message. Internal backlog
// events emitted during handling are appended to the back of the queue and
// dispatched in turn, so side effects produced inside one bounded context
// propagate within the same call. A handler may raise a [StopSentinel] to
// skip the remaining handlers for the current event and optionally chain a
// failover event, which is enqueued as a brand-new message with full handler
// resolution.
//
// The dispatch loop is single-threaded and cooperative: one Handle call
// fully drains its queue before returning. Independent Handle calls may run
// concurrently; they share nothing but the process-wide mapper registry and
// the durable store.
package bus
