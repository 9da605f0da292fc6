package bus

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Migorithm/IAM/core/es"
)

// Fixtures: a counter aggregate plus the commands and events driving it.

type counter struct {
	es.AggregateRoot
	Count int
}

type counterStarted struct {
	es.EventMeta
}

func (*counterStarted) Topic() string              { return "counter.started" }
func (*counterStarted) New() es.Aggregate          { return &counter{} }
func (*counterStarted) InternallyNotifiable() bool { return true }

func (e *counterStarted) Apply(agg es.Aggregate) error { return nil }

type counterFailedOver struct {
	es.EventMeta
	Reason string `json:"reason"`
}

func (*counterFailedOver) Topic() string { return "counter.failed_over" }

func (e *counterFailedOver) Apply(agg es.Aggregate) error { return nil }

type startCounter struct {
	BaseCommand
}

type unknownCommand struct {
	BaseCommand
}

func testTopics() *es.TopicRegistry {
	topics := es.NewTopicRegistry()
	es.MustRegisterEventFor[counterStarted](topics)
	es.MustRegisterEventFor[counterFailedOver](topics)
	return topics
}

// countingFactory counts how many units of work were opened.
type countingFactory struct {
	store  *es.InMemoryStore
	begins int
}

func (f *countingFactory) Begin(ctx context.Context) (es.Session, error) {
	f.begins++
	return f.store.Begin(ctx)
}

func newTestBus(t *testing.T, registry *Registry) (*Bus, *countingFactory) {
	t.Helper()
	factory := &countingFactory{store: es.NewInMemoryStore()}
	mapper := es.NewMapper(es.NewTranscoder(), testTopics())
	return New(registry, factory, mapper), factory
}

func startHandler(ctx context.Context, cmd startCounter, uow *es.UnitOfWork) (any, error) {
	agg, err := es.Create(&counterStarted{})
	if err != nil {
		return nil, err
	}
	if err := uow.Repo().Save(ctx, agg); err != nil {
		return nil, err
	}
	if err := uow.Commit(ctx); err != nil {
		return nil, err
	}
	return agg.Root().ID, nil
}

func TestBus_CommandReturnsResult(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, HandleCommand(registry, func(ctx context.Context, cmd startCounter) (any, error) {
		return "done", nil
	}))
	b, _ := newTestBus(t, registry)

	results, err := b.Handle(t.Context(), startCounter{})
	require.NoError(t, err)
	require.Equal(t, []any{"done"}, results)
}

// A command with no registered handler fails before any unit of work is
// opened.
func TestBus_UnregisteredCommand(t *testing.T) {
	b, factory := newTestBus(t, NewRegistry())

	_, err := b.Handle(t.Context(), unknownCommand{})
	require.ErrorIs(t, err, ErrUnregisteredCommand)
	require.Equal(t, 0, factory.begins)
}

func TestBus_UnrecognizedMessage(t *testing.T) {
	b, _ := newTestBus(t, NewRegistry())

	_, err := b.Handle(t.Context(), 42)
	require.ErrorIs(t, err, ErrUnrecognizedMessage)
}

func TestBus_CommandErrorPropagates(t *testing.T) {
	boom := errors.New("boom")
	registry := NewRegistry()
	require.NoError(t, HandleCommand(registry, func(ctx context.Context, cmd startCounter) (any, error) {
		return nil, boom
	}))
	b, _ := newTestBus(t, registry)

	_, err := b.Handle(t.Context(), startCounter{})
	require.ErrorIs(t, err, boom)
}

func TestBus_DuplicateCommandHandler(t *testing.T) {
	registry := NewRegistry()
	fn := func(ctx context.Context, cmd startCounter) (any, error) { return nil, nil }
	require.NoError(t, HandleCommand(registry, fn))
	require.Error(t, HandleCommand(registry, fn))
}

// The command's internal backlog is requeued and dispatched to the event's
// handlers, each in its own fresh unit of work.
func TestBus_InternalBacklogChaining(t *testing.T) {
	var received []*counterStarted

	registry := NewRegistry()
	require.NoError(t, HandleCommandUoW(registry, startHandler))
	SubscribeEvent(registry, func(ctx context.Context, ev *counterStarted) error {
		received = append(received, ev)
		return nil
	})
	b, factory := newTestBus(t, registry)

	results, err := b.Handle(t.Context(), startCounter{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Len(t, received, 1)
	require.Equal(t, results[0], received[0].Meta().AggregateID)

	// one unit of work for the command, one for the event handler
	require.Equal(t, 2, factory.begins)
}

func TestBus_EventWithoutHandlersIsIgnored(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, HandleCommandUoW(registry, startHandler))
	b, _ := newTestBus(t, registry)

	_, err := b.Handle(t.Context(), startCounter{})
	require.NoError(t, err)
}

// One subscriber's failure must not break the others or the loop.
func TestBus_EventHandlerFailureIsIsolated(t *testing.T) {
	var secondRan bool

	registry := NewRegistry()
	require.NoError(t, HandleCommandUoW(registry, startHandler))
	SubscribeEvent(registry, func(ctx context.Context, ev *counterStarted) error {
		return errors.New("subscriber one broke")
	})
	SubscribeEvent(registry, func(ctx context.Context, ev *counterStarted) error {
		secondRan = true
		return nil
	})
	b, _ := newTestBus(t, registry)

	_, err := b.Handle(t.Context(), startCounter{})
	require.NoError(t, err)
	require.True(t, secondRan)
}

// A stop sentinel skips the remaining handlers and pushes the failover
// event as a brand-new message with full handler resolution.
func TestBus_StopSentinelWithFailover(t *testing.T) {
	var secondRan bool
	var failovers []*counterFailedOver

	registry := NewRegistry()
	require.NoError(t, HandleCommandUoW(registry, startHandler))
	SubscribeEvent(registry, func(ctx context.Context, ev *counterStarted) error {
		return StopWith("shutting down", &counterFailedOver{Reason: "stopped"})
	})
	SubscribeEvent(registry, func(ctx context.Context, ev *counterStarted) error {
		secondRan = true
		return nil
	})
	SubscribeEvent(registry, func(ctx context.Context, ev *counterFailedOver) error {
		failovers = append(failovers, ev)
		return nil
	})
	b, _ := newTestBus(t, registry)

	_, err := b.Handle(t.Context(), startCounter{})
	require.NoError(t, err)
	require.False(t, secondRan)
	require.Len(t, failovers, 1)
	require.Equal(t, "stopped", failovers[0].Reason)
}

func TestBus_StopSentinelWithoutFailover(t *testing.T) {
	var secondRan bool

	registry := NewRegistry()
	require.NoError(t, HandleCommandUoW(registry, startHandler))
	SubscribeEvent(registry, func(ctx context.Context, ev *counterStarted) error {
		return Stop("enough")
	})
	SubscribeEvent(registry, func(ctx context.Context, ev *counterStarted) error {
		secondRan = true
		return nil
	})
	b, _ := newTestBus(t, registry)

	_, err := b.Handle(t.Context(), startCounter{})
	require.NoError(t, err)
	require.False(t, secondRan)
}

// An event handler that needs its unit of work gets a fresh one whose
// internal backlog is chained as well.
func TestBus_EventHandlerBacklog(t *testing.T) {
	var chained int

	registry := NewRegistry()
	require.NoError(t, HandleCommandUoW(registry, startHandler))
	SubscribeEventUoW(registry, func(ctx context.Context, ev *counterStarted, uow *es.UnitOfWork) error {
		if chained > 0 {
			return nil // only chain once
		}
		chained++
		agg, err := es.Create(&counterStarted{})
		if err != nil {
			return err
		}
		if err := uow.Repo().Save(ctx, agg); err != nil {
			return err
		}
		return uow.Commit(ctx)
	})
	b, _ := newTestBus(t, registry)

	_, err := b.Handle(t.Context(), startCounter{})
	require.NoError(t, err)
	require.Equal(t, 1, chained)
}
