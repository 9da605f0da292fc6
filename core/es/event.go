package es

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventMeta is the embeddable header shared by every domain event: the
// identity of the aggregate it belongs to, the version the aggregate will
// have after applying it, and the time it was accepted. Id and version are
// excluded from the encoded payload; the store carries them as columns.
type EventMeta struct {
	AggregateID uuid.UUID `json:"-"`
	Version     Version   `json:"-"`
	Timestamp   time.Time `json:"timestamp"`
}

func (m *EventMeta) Meta() *EventMeta { return m }

func (m *EventMeta) SlogAttr() slog.Attr {
	return slog.Group(
		"event",
		slog.String("aggregate_id", m.AggregateID.String()),
		m.Version.SlogAttr(),
		slog.Time("timestamp", m.Timestamp),
	)
}

// Event is an immutable record of one accepted state transition.
//
// Topic returns the stable type identifier used for polymorphic
// reconstruction from the store. Apply is the type-specific projection hook
// invoked by [Mutate] after the shared version bookkeeping; it mutates the
// aggregate in place and must be pure in its inputs.
type Event interface {
	Meta() *EventMeta
	Topic() string
	Apply(agg Aggregate) error
}

// CreationEvent constructs an aggregate from nothing. It always declares
// version 1; New returns the empty aggregate value the payload is projected
// onto.
type CreationEvent interface {
	Event
	New() Aggregate
}

// Events may opt into downstream routing by implementing either of these.
// Both flags are advisory metadata, not mutation inputs.
type (
	internallyNotifiable interface{ InternallyNotifiable() bool }
	externallyNotifiable interface{ ExternallyNotifiable() bool }
)

// IsInternallyNotifiable reports whether ev should be requeued for further
// dispatch inside the bounded context after persistence.
func IsInternallyNotifiable(ev Event) bool {
	if n, ok := ev.(internallyNotifiable); ok {
		return n.InternallyNotifiable()
	}
	return false
}

// IsExternallyNotifiable reports whether ev should be co-written to the
// outbox for delivery to external consumers.
func IsExternallyNotifiable(ev Event) bool {
	if n, ok := ev.(externallyNotifiable); ok {
		return n.ExternallyNotifiable()
	}
	return false
}

// TopicRegistry maps event topics to constructors so stored events can be
// reconstructed as fully-typed values. It is populated once at startup and
// read thereafter.
type TopicRegistry struct {
	mu    sync.RWMutex
	ctors map[string]func() Event
}

func NewTopicRegistry() *TopicRegistry {
	return &TopicRegistry{ctors: map[string]func() Event{}}
}

// Register binds topic to ctor. Re-registering the same topic is a
// programming error and fails.
func (r *TopicRegistry) Register(topic string, ctor func() Event) error {
	if topic == "" {
		return fmt.Errorf("event topic is empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.ctors[topic]; ok {
		return fmt.Errorf("topic %q already registered", topic)
	}
	r.ctors[topic] = ctor
	return nil
}

// MustRegister is Register, panicking on error. Intended for startup wiring.
func (r *TopicRegistry) MustRegister(topic string, ctor func() Event) {
	if err := r.Register(topic, ctor); err != nil {
		panic(err)
	}
}

// New returns a fresh, empty event value for the given topic.
func (r *TopicRegistry) New(topic string) (Event, error) {
	r.mu.RLock()
	ctor, ok := r.ctors[topic]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTopic, topic)
	}
	return ctor(), nil
}

// RegisterEventFor registers the event type T under its own declared topic.
func RegisterEventFor[T any, PT interface {
	*T
	Event
}](r *TopicRegistry) error {
	ctor := func() Event { return PT(new(T)) }
	return r.Register(ctor().Topic(), ctor)
}

// MustRegisterEventFor is RegisterEventFor, panicking on error.
func MustRegisterEventFor[T any, PT interface {
	*T
	Event
}](r *TopicRegistry) {
	ctor := func() Event { return PT(new(T)) }
	r.MustRegister(ctor().Topic(), ctor)
}
