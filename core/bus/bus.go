package bus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"

	"github.com/Migorithm/IAM/core/es"
	"github.com/Migorithm/IAM/internal/reflector"
)

// Bus is the message-dispatch loop. It is stateless across Handle calls;
// all mutable state lives in the per-call queue and in the unit of work
// opened per handler invocation.
type Bus struct {
	log      *slog.Logger
	registry *Registry
	sessions es.SessionFactory
	mapper   *es.Mapper
	metrics  BusMetrics
	uowOpts  []es.UnitOfWorkOption
}

type (
	busOptions struct {
		log     *slog.Logger
		metrics BusMetrics
		uowOpts []es.UnitOfWorkOption
	}
	Option interface{ applyToBus(*busOptions) }

	logOption        struct{ l *slog.Logger }
	metricsOption    struct{ m BusMetrics }
	uowOptionsOption struct{ opts []es.UnitOfWorkOption }
)

func (o logOption) applyToBus(b *busOptions)     { b.log = o.l }
func (o metricsOption) applyToBus(b *busOptions) { b.metrics = o.m }
func (o uowOptionsOption) applyToBus(b *busOptions) {
	b.uowOpts = append(b.uowOpts, o.opts...)
}

func WithLog(l *slog.Logger) Option                  { return logOption{l: l} }
func WithMetrics(m BusMetrics) Option                { return metricsOption{m: m} }
func WithUoWOpts(opts ...es.UnitOfWorkOption) Option { return uowOptionsOption{opts: opts} }

func New(registry *Registry, sessions es.SessionFactory, mapper *es.Mapper, opts ...Option) *Bus {
	options := busOptions{}
	for _, opt := range opts {
		opt.applyToBus(&options)
	}
	log := options.log
	if log == nil {
		log = slog.Default()
	}
	m := options.metrics
	if m == nil {
		m = NopBusMetrics()
	}
	return &Bus{
		log:      log.With(slog.String("component", "bus")),
		registry: registry,
		sessions: sessions,
		mapper:   mapper,
		metrics:  m,
		uowOpts:  options.uowOpts,
	}
}

// Handle seeds the work queue with msg and runs the dispatch loop to
// completion. It returns the results recorded by command handlers, in
// dispatch order. A command handler's error aborts the loop and propagates;
// event handler errors are isolated.
//
// Termination is guaranteed only if handlers do not produce an unbounded
// chain of internal backlog events; that is the caller's responsibility.
func (b *Bus) Handle(ctx context.Context, msg Message) ([]any, error) {
	queue := []Message{msg}
	var results []any

	for len(queue) > 0 {
		m := queue[0]
		queue = queue[1:]

		switch v := m.(type) {
		case Command:
			res, backlog, err := b.handleCommand(ctx, v)
			if err != nil {
				return results, err
			}
			results = append(results, res)
			queue = append(queue, backlog...)

		case es.Event:
			queue = append(queue, b.handleEvent(ctx, v)...)

		default:
			return results, fmt.Errorf("%w: %s", ErrUnrecognizedMessage, reflector.TypeInfoOf(m).Short)
		}
	}
	return results, nil
}

func (b *Bus) handleCommand(ctx context.Context, cmd Command) (any, []Message, error) {
	name := reflector.TypeInfoOf(cmd).Short
	h, ok := b.registry.commandFor(reflect.TypeOf(cmd))
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrUnregisteredCommand, name)
	}

	log := b.log.With(slog.String("command", name))
	log.Debug("handling command")
	timer := b.metrics.MessageDuration("command", name)
	defer timer.ObserveDuration()

	uow, err := es.Begin(ctx, b.sessions, b.mapper, b.uowOpts...)
	if err != nil {
		return nil, nil, err
	}
	defer uow.Close(ctx)

	res, err := h.invoke(ctx, cmd, uow)
	if err != nil {
		// commands are the synchronous, result-bearing path: failure must be visible
		b.metrics.MessageProcessed("command", name, false)
		return nil, nil, err
	}
	b.metrics.MessageProcessed("command", name, true)

	return res, asMessages(uow.CollectBacklog(es.InternalBacklog)), nil
}

func (b *Bus) handleEvent(ctx context.Context, ev es.Event) []Message {
	name := reflector.TypeInfoOf(ev).Short
	log := b.log.With(slog.String("event", name))

	var followups []Message
	for _, h := range b.registry.eventsFor(reflect.TypeOf(ev)) {
		backlog, stopped := b.invokeEventHandler(ctx, log, name, ev, h)
		followups = append(followups, backlog...)
		if stopped != nil {
			if stopped.Failover != nil {
				followups = append(followups, Message(stopped.Failover))
			}
			break
		}
	}
	return followups
}

// invokeEventHandler runs one handler in its own fresh unit of work. An
// ordinary error is logged and swallowed; a StopSentinel is returned to the
// caller to short-circuit the remaining handlers.
func (b *Bus) invokeEventHandler(
	ctx context.Context,
	log *slog.Logger,
	name string,
	ev es.Event,
	h eventHandler,
) (backlog []Message, stopped *StopSentinel) {
	log.Debug("handling event", slog.String("handler", h.name))
	timer := b.metrics.MessageDuration("event", name)
	defer timer.ObserveDuration()

	uow, err := es.Begin(ctx, b.sessions, b.mapper, b.uowOpts...)
	if err != nil {
		log.Error("failed to open unit of work", slog.Any("error", err))
		b.metrics.HandlerFailure(name)
		return nil, nil
	}
	defer uow.Close(ctx)

	if err := h.invoke(ctx, ev, uow); err != nil {
		var sentinel *StopSentinel
		if errors.As(err, &sentinel) {
			log.Info("handler raised stop sentinel",
				slog.String("reason", sentinel.Reason),
				slog.Bool("failover", sentinel.Failover != nil),
			)
			b.metrics.MessageProcessed("event", name, false)
			return nil, sentinel
		}
		// one subscriber's failure must not break the others
		log.Error("event handler failed", slog.String("handler", h.name), slog.Any("error", err))
		b.metrics.HandlerFailure(name)
		b.metrics.MessageProcessed("event", name, false)
		return nil, nil
	}
	b.metrics.MessageProcessed("event", name, true)

	return asMessages(uow.CollectBacklog(es.InternalBacklog)), nil
}

func asMessages(events []es.Event) []Message {
	if len(events) == 0 {
		return nil
	}
	out := make([]Message, len(events))
	for i, ev := range events {
		out[i] = ev
	}
	return out
}
