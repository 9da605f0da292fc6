package es

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// InMemoryStore is a simple, correct (optimistic) store for tests/dev. It
// implements both sides of the durable store contract and hands out staged
// sessions whose writes become visible only on commit, under the same
// contiguity check a relational unique constraint would enforce.
type InMemoryStore struct {
	mu     sync.Mutex
	log    *slog.Logger
	events map[uuid.UUID][]StoredEvent
	outbox []OutboxEntry
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		log:    slog.Default().With(slog.String("store", "memory")),
		events: map[uuid.UUID][]StoredEvent{},
	}
}

var (
	_ EventStore     = (*InMemoryStore)(nil)
	_ OutboxStore    = (*InMemoryStore)(nil)
	_ SessionFactory = (*InMemoryStore)(nil)
)

func (s *InMemoryStore) Append(_ context.Context, events []StoredEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendLocked(events)
}

// appendLocked validates the whole batch against the contiguity invariant
// before writing anything, so a failed batch leaves no partial rows.
func (s *InMemoryStore) appendLocked(events []StoredEvent) error {
	next := map[uuid.UUID]Version{}
	for _, e := range events {
		want, ok := next[e.AggregateID]
		if !ok {
			want = Version(len(s.events[e.AggregateID])).Next()
		}
		if e.Version != want {
			return fmt.Errorf("%w: aggregate %s version %d, want %d", ErrIntegrity, e.AggregateID, e.Version, want)
		}
		next[e.AggregateID] = want.Next()
	}
	for _, e := range events {
		s.events[e.AggregateID] = append(s.events[e.AggregateID], e)
	}
	s.log.Debug("append", slog.Int("num_events", len(events)))
	return nil
}

func (s *InMemoryStore) LoadAll(_ context.Context, aggregateID uuid.UUID) ([]StoredEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := s.events[aggregateID]
	out := make([]StoredEvent, len(stored))
	copy(out, stored)
	return out, nil
}

func (s *InMemoryStore) Add(_ context.Context, entries []OutboxEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outbox = append(s.outbox, entries...)
	return nil
}

// Pending returns pending entries in insertion order. A non-positive limit
// returns everything.
func (s *InMemoryStore) Pending(_ context.Context, limit int) ([]OutboxEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit <= 0 || limit > len(s.outbox) {
		limit = len(s.outbox)
	}
	out := make([]OutboxEntry, 0, limit)
	for _, e := range s.outbox {
		if len(out) >= limit {
			break
		}
		out = append(out, e)
	}
	return out, nil
}

func (s *InMemoryStore) MarkProcessed(_ context.Context, ids ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	drop := map[string]bool{}
	for _, id := range ids {
		drop[id] = true
	}
	kept := s.outbox[:0]
	for _, e := range s.outbox {
		if !drop[e.ID] {
			kept = append(kept, e)
		}
	}
	s.outbox = kept
	return nil
}

// Begin opens a staged session. Writes are buffered and applied atomically
// on Commit; a commit losing the optimistic race fails with [ErrIntegrity].
func (s *InMemoryStore) Begin(_ context.Context) (Session, error) {
	return &memorySession{store: s}, nil
}

type memorySession struct {
	mu           sync.Mutex
	store        *InMemoryStore
	stagedEvents []StoredEvent
	stagedOutbox []OutboxEntry
	done         bool
}

func (s *memorySession) Events() EventStore { return (*memorySessionEvents)(s) }
func (s *memorySession) Outbox() OutboxStore {
	return (*memorySessionOutbox)(s)
}

func (s *memorySession) Commit(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return fmt.Errorf("session already closed")
	}

	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	if err := s.store.appendLocked(s.stagedEvents); err != nil {
		return err
	}
	s.store.outbox = append(s.store.outbox, s.stagedOutbox...)

	s.stagedEvents, s.stagedOutbox = nil, nil
	s.done = true
	return nil
}

func (s *memorySession) Rollback(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stagedEvents, s.stagedOutbox = nil, nil
	s.done = true
	return nil
}

// memorySessionEvents stages appends and reads through to committed state.
type memorySessionEvents memorySession

func (s *memorySessionEvents) Append(_ context.Context, events []StoredEvent) error {
	sess := (*memorySession)(s)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.done {
		return fmt.Errorf("session already closed")
	}
	sess.stagedEvents = append(sess.stagedEvents, events...)
	return nil
}

func (s *memorySessionEvents) LoadAll(ctx context.Context, aggregateID uuid.UUID) ([]StoredEvent, error) {
	return (*memorySession)(s).store.LoadAll(ctx, aggregateID)
}

type memorySessionOutbox memorySession

func (s *memorySessionOutbox) Add(_ context.Context, entries []OutboxEntry) error {
	sess := (*memorySession)(s)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.done {
		return fmt.Errorf("session already closed")
	}
	sess.stagedOutbox = append(sess.stagedOutbox, entries...)
	return nil
}

func (s *memorySessionOutbox) Pending(ctx context.Context, limit int) ([]OutboxEntry, error) {
	return (*memorySession)(s).store.Pending(ctx, limit)
}

func (s *memorySessionOutbox) MarkProcessed(ctx context.Context, ids ...string) error {
	return (*memorySession)(s).store.MarkProcessed(ctx, ids...)
}
