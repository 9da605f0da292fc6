package bus

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"github.com/Migorithm/IAM/core/es"
	"github.com/Migorithm/IAM/internal/reflector"
)

// Message is either a Command or an es.Event.
type Message = any

// Command is the marker interface for the synchronous, result-bearing
// message variant. Concrete commands embed [BaseCommand].
type Command interface{ isCommand() }

// BaseCommand is the embeddable marker making a struct a Command.
type BaseCommand struct{}

func (BaseCommand) isCommand() {}

type (
	commandHandler struct {
		name   string
		invoke func(ctx context.Context, cmd Command, uow *es.UnitOfWork) (any, error)
	}
	eventHandler struct {
		name   string
		invoke func(ctx context.Context, ev es.Event, uow *es.UnitOfWork) error
	}
)

// Registry maps command types to exactly one handler and event types to an
// ordered list of handlers. It is supplied externally by the composition
// layer and read-only once dispatch starts.
type Registry struct {
	mu       sync.RWMutex
	commands map[reflect.Type]commandHandler
	events   map[reflect.Type][]eventHandler
}

func NewRegistry() *Registry {
	return &Registry{
		commands: map[reflect.Type]commandHandler{},
		events:   map[reflect.Type][]eventHandler{},
	}
}

func (r *Registry) commandFor(t reflect.Type) (commandHandler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.commands[t]
	return h, ok
}

func (r *Registry) eventsFor(t reflect.Type) []eventHandler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.events[t]
}

func (r *Registry) registerCommand(t reflect.Type, h commandHandler) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.commands[t]; ok {
		return fmt.Errorf("command %s already has a handler", h.name)
	}
	r.commands[t] = h
	return nil
}

func (r *Registry) registerEvent(t reflect.Type, h eventHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events[t] = append(r.events[t], h)
}

// HandleCommand registers fn as the single handler for the command type C.
// The handler does not receive the unit of work; use this for handlers that
// only compute or delegate.
func HandleCommand[C Command](r *Registry, fn func(ctx context.Context, cmd C) (any, error)) error {
	ti := reflector.TypeInfoFor[C]()
	return r.registerCommand(reflect.TypeOf((*C)(nil)).Elem(), commandHandler{
		name: ti.Short,
		invoke: func(ctx context.Context, cmd Command, _ *es.UnitOfWork) (any, error) {
			return fn(ctx, cmd.(C))
		},
	})
}

// HandleCommandUoW registers fn as the single handler for the command type
// C, declaring that it needs the unit of work the bus opened for it.
func HandleCommandUoW[C Command](r *Registry, fn func(ctx context.Context, cmd C, uow *es.UnitOfWork) (any, error)) error {
	ti := reflector.TypeInfoFor[C]()
	return r.registerCommand(reflect.TypeOf((*C)(nil)).Elem(), commandHandler{
		name: ti.Short,
		invoke: func(ctx context.Context, cmd Command, uow *es.UnitOfWork) (any, error) {
			return fn(ctx, cmd.(C), uow)
		},
	})
}

// SubscribeEvent appends fn to the ordered handler list for the event type E.
func SubscribeEvent[E es.Event](r *Registry, fn func(ctx context.Context, ev E) error) {
	ti := reflector.TypeInfoFor[E]()
	r.registerEvent(reflect.TypeOf((*E)(nil)).Elem(), eventHandler{
		name: ti.Short,
		invoke: func(ctx context.Context, ev es.Event, _ *es.UnitOfWork) error {
			return fn(ctx, ev.(E))
		},
	})
}

// SubscribeEventUoW appends fn to the ordered handler list for the event
// type E, declaring that it needs its unit of work.
func SubscribeEventUoW[E es.Event](r *Registry, fn func(ctx context.Context, ev E, uow *es.UnitOfWork) error) {
	ti := reflector.TypeInfoFor[E]()
	r.registerEvent(reflect.TypeOf((*E)(nil)).Elem(), eventHandler{
		name: ti.Short,
		invoke: func(ctx context.Context, ev es.Event, uow *es.UnitOfWork) error {
			return fn(ctx, ev.(E), uow)
		},
	})
}
