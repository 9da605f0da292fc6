package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS events (
	aggregate_id UUID        NOT NULL,
	version      BIGINT      NOT NULL CHECK (version > 0),
	topic        TEXT        NOT NULL,
	state        BYTEA       NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (aggregate_id, version)
);

CREATE TABLE IF NOT EXISTS outbox (
	id           TEXT        PRIMARY KEY,
	aggregate_id UUID        NOT NULL,
	topic        TEXT        NOT NULL,
	state        BYTEA       NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	processed_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS outbox_pending_idx
	ON outbox (created_at) WHERE processed_at IS NULL;
`

// EnsureSchema creates the event and outbox tables if they do not exist.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, schema)
	return mapError(err)
}
