package iam

import "errors"

var (
	// ErrInvalidOperation reports a command applied to the wrong aggregate
	// kind, such as a non-group purchase executed against a group.
	ErrInvalidOperation = errors.New("operation not valid for this aggregate")

	// ErrWrongAggregateType reports a loaded aggregate whose concrete type
	// does not match what the handler expected for the id.
	ErrWrongAggregateType = errors.New("aggregate has unexpected type")
)
