package es

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// BacklogKind selects one of the repository's backlog queues.
type BacklogKind string

const (
	// InternalBacklog holds events requeued for further dispatch inside this
	// bounded context.
	InternalBacklog BacklogKind = "internal"
	// ExternalBacklog holds events destined for the outbox.
	ExternalBacklog BacklogKind = "external"
)

// Repository loads and saves whole aggregates against a transaction-bound
// store, and classifies emitted events into internal and external backlogs
// by their notifiability flags. It lives for exactly one unit of work.
type Repository struct {
	log     *slog.Logger
	mapper  *Mapper
	events  EventStore
	metrics ESMetrics

	internal []Event
	external []Event
}

func NewRepository(log *slog.Logger, mapper *Mapper, events EventStore, metrics ESMetrics) *Repository {
	if metrics == nil {
		metrics = NopESMetrics()
	}
	return &Repository{
		log:     log.With(slog.String("component", "repository")),
		mapper:  mapper,
		events:  events,
		metrics: metrics,
	}
}

// Save drains every aggregate's pending events, partitions them into the
// backlogs, and appends their stored forms in one atomic batch. A lost
// optimistic race surfaces as [ErrIntegrity].
func (r *Repository) Save(ctx context.Context, aggs ...Aggregate) error {
	batch := make([]StoredEvent, 0)
	var internal, external []Event
	for _, agg := range aggs {
		if agg == nil || agg.Root() == nil {
			return ErrNotAnAggregate
		}
		for _, ev := range Collect(agg) {
			if IsInternallyNotifiable(ev) {
				internal = append(internal, ev)
			}
			if IsExternallyNotifiable(ev) {
				external = append(external, ev)
			}
			se, err := r.mapper.ToStoredEvent(ev)
			if err != nil {
				return err
			}
			batch = append(batch, se)
		}
	}
	if len(batch) == 0 {
		return nil
	}

	timer := r.metrics.StoreAppendDuration()
	err := r.events.Append(ctx, batch)
	timer.ObserveDuration()
	if err != nil {
		if errors.Is(err, ErrIntegrity) {
			r.metrics.ConcurrencyConflict()
		}
		return err
	}
	r.metrics.EventsAppended(len(batch))

	// events from a failed append never reach the backlogs
	r.internal = append(r.internal, internal...)
	r.external = append(r.external, external...)

	r.log.Debug(
		"saved",
		slog.Int("num_events", len(batch)),
		slog.Int("num_aggregates", len(aggs)),
		slog.Int("backlog_internal", len(r.internal)),
		slog.Int("backlog_external", len(r.external)),
	)
	return nil
}

// Load rehydrates the aggregate by folding its full stored event sequence
// through [Mutate] in ascending version order, starting from nothing.
func (r *Repository) Load(ctx context.Context, aggregateID uuid.UUID) (Aggregate, error) {
	timer := r.metrics.StoreLoadDuration()
	stored, err := r.events.LoadAll(ctx, aggregateID)
	timer.ObserveDuration()
	if err != nil {
		return nil, err
	}
	if len(stored) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrAggregateNotFound, aggregateID)
	}

	var agg Aggregate
	for i, se := range stored {
		if want := Version(i + 1); se.Version != want {
			return nil, fmt.Errorf("%w: aggregate %s has version %d at position %d, want %d",
				ErrCorruptedLog, aggregateID, se.Version, i, want)
		}
		ev, err := r.mapper.FromStoredEvent(se)
		if err != nil {
			return nil, err
		}
		agg, err = Mutate(ev, agg)
		if err != nil {
			return nil, err
		}
	}
	return agg, nil
}

// CollectBacklog drains and returns the selected backlog queue in FIFO order.
func (r *Repository) CollectBacklog(kind BacklogKind) []Event {
	switch kind {
	case InternalBacklog:
		out := r.internal
		r.internal = nil
		return out
	case ExternalBacklog:
		out := r.external
		r.external = nil
		return out
	}
	return nil
}
