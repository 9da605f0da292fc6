package es

import (
	"context"

	"github.com/google/uuid"
)

// StoredEvent is the durable form of a domain event. For a given aggregate
// id, stored events form a contiguous version sequence starting at 1 with no
// gaps or duplicates; that order is also the replay order.
type StoredEvent struct {
	AggregateID uuid.UUID
	Version     Version
	Topic       string
	State       []byte
}

// OutboxEntry is the version-less, delivery-oriented copy of an externally
// notifiable event, written transactionally alongside its StoredEvent.
type OutboxEntry struct {
	ID          string
	AggregateID uuid.UUID
	Topic       string
	State       []byte
}

// EventStore is the append-only persistence contract keyed by aggregate id.
type EventStore interface {
	// Append inserts all rows in one atomic batch. A violation of the
	// contiguous-version invariant fails with [ErrIntegrity]; this is the
	// optimistic-concurrency detection point.
	Append(ctx context.Context, events []StoredEvent) error

	// LoadAll returns every stored event for the id in ascending version
	// order. An unknown id yields an empty slice, not an error.
	LoadAll(ctx context.Context, aggregateID uuid.UUID) ([]StoredEvent, error)
}

// OutboxStore is the append-only outbox table. Add runs in the same
// transaction as the triggering event appends; Pending and MarkProcessed
// serve the external relay.
type OutboxStore interface {
	Add(ctx context.Context, entries []OutboxEntry) error
	Pending(ctx context.Context, limit int) ([]OutboxEntry, error)
	MarkProcessed(ctx context.Context, ids ...string) error
}

// Session is a transaction-bound view of the durable store. Events and
// Outbox share one transaction: an event is never stored without its
// externally-notifiable copy also being durable, and vice versa.
//
// A session is exclusively owned by the one logical operation using it.
// Rollback after Commit is a no-op, so closing a session on every exit path
// is always safe.
type Session interface {
	Events() EventStore
	Outbox() OutboxStore
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// SessionFactory opens transaction-bound sessions.
type SessionFactory interface {
	Begin(ctx context.Context) (Session, error)
}
