// Package postgres implements the durable store contract on PostgreSQL via
// pgx: a session factory over a connection pool, transaction-bound event
// and outbox stores, and the schema they need.
//
// Optimistic concurrency is realized by the primary key on
// (aggregate_id, version): of two writers appending the same next version,
// exactly one insert succeeds and the other surfaces es.ErrIntegrity.
package postgres
