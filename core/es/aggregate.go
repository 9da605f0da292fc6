package es

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Aggregate is the transactional unit of consistency: identity, version and
// current field state. Concrete aggregates embed [AggregateRoot], which
// satisfies this interface.
//
// An aggregate is owned exclusively by the caller that loaded or created it
// until it is handed to the repository for persistence; it is never shared
// across concurrent mutations.
type Aggregate interface {
	Root() *AggregateRoot
}

// AggregateRoot is the embeddable base tracking identity, version,
// timestamps and the queue of pending (uncommitted) events.
type AggregateRoot struct {
	ID        uuid.UUID `json:"id"`
	Version   Version   `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	pending []Event
}

func (r *AggregateRoot) Root() *AggregateRoot { return r }

// PendingCount returns the number of events triggered but not yet collected.
func (r *AggregateRoot) PendingCount() int { return len(r.pending) }

// Mutate is the core state-transition function. For a creation event, agg
// must be nil: the event constructs a fresh aggregate at version 1 from its
// payload. For any other event, agg must be a live aggregate whose version
// the event extends by exactly one; Mutate advances version and update
// timestamp, then invokes the event's Apply projection hook.
//
// Live triggering and replay both run through Mutate, so a rehydrated
// aggregate is equivalent to one built by triggering the same events.
func Mutate(ev Event, agg Aggregate) (Aggregate, error) {
	meta := ev.Meta()

	if creation, ok := ev.(CreationEvent); ok {
		if agg != nil {
			return nil, fmt.Errorf("%w: creation event %s applied to a live aggregate", ErrNotAnAggregate, ev.Topic())
		}
		if meta.Version != 1 {
			return nil, fmt.Errorf("%w: creation event %s declares version %d, want 1", ErrVersionConflict, ev.Topic(), meta.Version)
		}
		fresh := creation.New()
		root := fresh.Root()
		root.ID = meta.AggregateID
		root.Version = meta.Version
		root.CreatedAt = meta.Timestamp
		root.UpdatedAt = meta.Timestamp
		if err := ev.Apply(fresh); err != nil {
			return nil, err
		}
		return fresh, nil
	}

	if agg == nil {
		return nil, fmt.Errorf("%w: event %s requires a live aggregate", ErrNotAnAggregate, ev.Topic())
	}
	root := agg.Root()
	if next := root.Version.Next(); meta.Version != next {
		return nil, fmt.Errorf("%w: event %s declares version %d, want %d", ErrVersionConflict, ev.Topic(), meta.Version, next)
	}
	root.Version = meta.Version
	root.UpdatedAt = meta.Timestamp
	if err := ev.Apply(agg); err != nil {
		return nil, err
	}
	return agg, nil
}

// Trigger applies ev to agg at version N+1 and appends it to the aggregate's
// pending queue. The event's meta is stamped here; callers construct only the
// payload fields.
func Trigger(agg Aggregate, ev Event) error {
	if agg == nil || agg.Root() == nil {
		return ErrNotAnAggregate
	}
	if _, ok := ev.(CreationEvent); ok {
		return fmt.Errorf("%w: creation event %s cannot be triggered, use Create", ErrNotAnAggregate, ev.Topic())
	}

	root := agg.Root()
	meta := ev.Meta()
	meta.AggregateID = root.ID
	meta.Version = root.Version.Next()
	meta.Timestamp = time.Now().UTC()

	if _, err := Mutate(ev, agg); err != nil {
		return err
	}
	root.pending = append(root.pending, ev)
	return nil
}

// Create builds a new aggregate from a creation event: version 1, a freshly
// generated id unless the event already carries one, and the event queued as
// pending.
func Create(ev CreationEvent) (Aggregate, error) {
	meta := ev.Meta()
	if meta.AggregateID == uuid.Nil {
		meta.AggregateID = uuid.New()
	}
	meta.Version = 1
	meta.Timestamp = time.Now().UTC()

	agg, err := Mutate(ev, nil)
	if err != nil {
		return nil, err
	}
	root := agg.Root()
	root.pending = append(root.pending, ev)
	return agg, nil
}

// Collect drains and returns the aggregate's pending events in FIFO order.
// After Collect the queue is empty.
func Collect(agg Aggregate) []Event {
	root := agg.Root()
	out := root.pending
	root.pending = nil
	return out
}
