package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Migorithm/IAM/core/es"
)

// session binds the event and outbox stores to one pgx transaction.
type session struct {
	tx pgx.Tx
}

var _ es.Session = (*session)(nil)

func (s *session) Events() es.EventStore  { return (*txEventStore)(s) }
func (s *session) Outbox() es.OutboxStore { return (*txOutboxStore)(s) }

func (s *session) Commit(ctx context.Context) error {
	if err := s.tx.Commit(ctx); err != nil {
		return mapError(err)
	}
	return nil
}

func (s *session) Rollback(ctx context.Context) error {
	err := s.tx.Rollback(ctx)
	if err == nil || errors.Is(err, pgx.ErrTxClosed) {
		return nil
	}
	return mapError(err)
}

type txEventStore session

func (s *txEventStore) Append(ctx context.Context, events []es.StoredEvent) error {
	batch := &pgx.Batch{}
	for _, se := range events {
		batch.Queue(
			`INSERT INTO events (aggregate_id, version, topic, state) VALUES ($1, $2, $3, $4)`,
			se.AggregateID, se.Version.Uint64(), se.Topic, se.State,
		)
	}
	if err := s.tx.SendBatch(ctx, batch).Close(); err != nil {
		return mapError(err)
	}
	return nil
}

func (s *txEventStore) LoadAll(ctx context.Context, aggregateID uuid.UUID) ([]es.StoredEvent, error) {
	rows, err := s.tx.Query(ctx,
		`SELECT aggregate_id, version, topic, state FROM events WHERE aggregate_id = $1 ORDER BY version ASC`,
		aggregateID,
	)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var out []es.StoredEvent
	for rows.Next() {
		var se es.StoredEvent
		var version uint64
		if err := rows.Scan(&se.AggregateID, &version, &se.Topic, &se.State); err != nil {
			return nil, mapError(err)
		}
		se.Version = es.Version(version)
		out = append(out, se)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return out, nil
}

type txOutboxStore session

func (s *txOutboxStore) Add(ctx context.Context, entries []es.OutboxEntry) error {
	batch := &pgx.Batch{}
	for _, e := range entries {
		batch.Queue(
			`INSERT INTO outbox (id, aggregate_id, topic, state) VALUES ($1, $2, $3, $4)`,
			e.ID, e.AggregateID, e.Topic, e.State,
		)
	}
	if err := s.tx.SendBatch(ctx, batch).Close(); err != nil {
		return mapError(err)
	}
	return nil
}

// Pending locks the returned rows for this transaction so concurrent relay
// instances never deliver the same entry twice.
func (s *txOutboxStore) Pending(ctx context.Context, limit int) ([]es.OutboxEntry, error) {
	rows, err := s.tx.Query(ctx,
		`SELECT id, aggregate_id, topic, state FROM outbox
		 WHERE processed_at IS NULL
		 ORDER BY created_at ASC
		 LIMIT $1
		 FOR UPDATE SKIP LOCKED`,
		limit,
	)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var out []es.OutboxEntry
	for rows.Next() {
		var e es.OutboxEntry
		if err := rows.Scan(&e.ID, &e.AggregateID, &e.Topic, &e.State); err != nil {
			return nil, mapError(err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return out, nil
}

func (s *txOutboxStore) MarkProcessed(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.tx.Exec(ctx,
		`UPDATE outbox SET processed_at = now() WHERE id = ANY($1)`,
		ids,
	)
	return mapError(err)
}
