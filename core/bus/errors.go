package bus

import (
	"errors"
	"fmt"

	"github.com/Migorithm/IAM/core/es"
)

var (
	// ErrUnregisteredCommand reports a command with no registered handler.
	// Raised before any unit of work is opened.
	ErrUnregisteredCommand = errors.New("no handler registered for command")

	// ErrUnrecognizedMessage reports a message that is neither a Command nor
	// an event. Programming error.
	ErrUnrecognizedMessage = errors.New("message is neither a command nor an event")
)

// StopSentinel is a control-flow signal, not a failure: an event handler
// returns it to halt the remaining handlers for the current event. The
// optional Failover event is pushed onto the work queue as a brand-new
// message.
type StopSentinel struct {
	Reason   string
	Failover es.Event
}

func (s *StopSentinel) Error() string {
	if s.Reason == "" {
		return "stop sentinel"
	}
	return fmt.Sprintf("stop sentinel: %s", s.Reason)
}

// Stop builds a StopSentinel without a failover event.
func Stop(reason string) *StopSentinel { return &StopSentinel{Reason: reason} }

// StopWith builds a StopSentinel chaining a failover event.
func StopWith(reason string, failover es.Event) *StopSentinel {
	return &StopSentinel{Reason: reason, Failover: failover}
}
