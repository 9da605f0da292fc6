// Package es provides the event sourcing engine shared by all aggregate types:
// the versioned aggregate/event state machine, the transcoding mapper that turns
// typed domain events into a storable byte form and back, the append-only event
// store and outbox abstractions, the repository that rehydrates aggregates and
// classifies emitted events into internal/external backlogs, and the unit of
// work that binds all of it to one transaction.
//
// # Aggregates and events
//
// An aggregate embeds [AggregateRoot] and exposes it via Root():
//
//	type User struct {
//	    es.AggregateRoot
//	    Name string
//	}
//
// Domain events embed [EventMeta] and implement [Event]: a stable Topic for
// polymorphic reconstruction and an Apply projection hook that mutates the
// aggregate in place. A [CreationEvent] additionally constructs the aggregate
// from nothing via New().
//
// State changes go through a single verification path: [Create] builds an
// aggregate at version 1, [Trigger] applies an event at version N+1 and
// queues it as pending, and [Mutate] performs the shared version and
// timestamp bookkeeping before invoking the event's Apply hook. Replay uses
// the exact same path, so a rehydrated aggregate is equivalent to one built
// by live triggering.
//
// # Persistence
//
// [Collect] drains the pending queue; the [Repository] converts pending
// events to [StoredEvent] rows and appends them atomically. Optimistic
// concurrency is realized by the store's contiguous-version invariant: two
// writers computing the same next version race, exactly one append succeeds
// and the other fails with [ErrIntegrity]. Externally notifiable events are
// co-written to the outbox as [OutboxEntry] rows inside the same transaction
// when the [UnitOfWork] commits.
//
// # Transcoding
//
// The [Transcoder] serializes event payloads to a self-describing JSON form.
// Value types without a native JSON representation are covered by registered
// [Transcoding] pairs and appear as {"__type__": name, "__data__": ...}
// nodes; unregistered types fail with [ErrUnserializableType] on encode and
// unknown tags fail with [ErrUnknownTranscoding] on decode. The [Mapper]
// layers optional compression and encryption on top.
package es
