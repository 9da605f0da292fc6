package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Migorithm/IAM/core/es"
)

// Store is the pool-backed session factory. One Store serves the whole
// process; each unit of work gets its own transaction-bound session.
type Store struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

var _ es.SessionFactory = (*Store)(nil)

// Open connects the pool, verifies connectivity and ensures the schema.
func Open(ctx context.Context, cfg Config, log *slog.Logger) (*Store, error) {
	if log == nil {
		log = slog.Default()
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse postgres url: %w", err)
	}
	poolCfg.MaxConns = cfg.MaxConns

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, mapError(err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, mapError(err)
	}
	if err := EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &Store{
		pool: pool,
		log:  log.With(slog.String("component", "postgres")),
	}, nil
}

// NewStore wraps an already-connected pool without touching the schema.
func NewStore(pool *pgxpool.Pool, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{
		pool: pool,
		log:  log.With(slog.String("component", "postgres")),
	}
}

func (s *Store) Pool() *pgxpool.Pool { return s.pool }

func (s *Store) Close() { s.pool.Close() }

// Begin opens a transaction-bound session.
func (s *Store) Begin(ctx context.Context) (es.Session, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, mapError(err)
	}
	return &session{tx: tx}, nil
}
