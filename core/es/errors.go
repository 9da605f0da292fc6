package es

import "errors"

var (
	// ErrNotAnAggregate reports a mutation attempted against something that is
	// not a live aggregate. Programming error, not retryable.
	ErrNotAnAggregate = errors.New("not an aggregate")

	// ErrVersionConflict reports an event whose declared version does not
	// extend the aggregate's current version by exactly one. Retryable by
	// reloading the aggregate and re-triggering.
	ErrVersionConflict = errors.New("version conflict")

	// ErrAggregateNotFound reports that no stored events exist for an id.
	ErrAggregateNotFound = errors.New("aggregate not found")

	// ErrUnserializableType reports a value type with neither a native
	// encoding nor a registered transcoding.
	ErrUnserializableType = errors.New("type is not serializable")

	// ErrUnknownTranscoding reports a type tag with no registered decoder.
	ErrUnknownTranscoding = errors.New("unknown transcoding")

	// ErrUnknownTopic reports a stored topic with no registered event type.
	ErrUnknownTopic = errors.New("unknown topic")

	// ErrIntegrity reports a store-level constraint violation. It surfaces
	// optimistic-concurrency losses and schema violations.
	ErrIntegrity = errors.New("integrity error")

	// ErrOperational reports a transport or connectivity failure against the
	// durable store. Retryable with backoff by the caller.
	ErrOperational = errors.New("operational error")

	// ErrCorruptedLog reports a stored event sequence that is not contiguous
	// from version 1. Fatal; must not be retried silently.
	ErrCorruptedLog = errors.New("corrupted event log")
)
