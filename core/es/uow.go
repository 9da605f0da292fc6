package es

import (
	"context"
	"log/slog"
)

// UnitOfWork is a scoped transaction boundary: Begin opens a session and
// binds a repository to it, Commit drains the external backlog into the
// outbox and ends the transaction, Close rolls back whatever was not
// committed and releases the session. Always defer Close; rollback after
// commit is a no-op, so no exit path leaves a transaction open.
//
// One unit of work is active per logical operation; nesting is not
// supported.
type UnitOfWork struct {
	log     *slog.Logger
	session Session
	repo    *Repository
	metrics ESMetrics
	mapper  *Mapper
	closed  bool
}

// Begin opens a transaction-bound session and constructs the repository on
// top of it.
func Begin(ctx context.Context, factory SessionFactory, mapper *Mapper, opts ...UnitOfWorkOption) (*UnitOfWork, error) {
	options := uowOptions{}
	for _, opt := range opts {
		opt.applyToUoW(&options)
	}
	log := options.log
	if log == nil {
		log = slog.Default()
	}
	m := options.metrics
	if m == nil {
		m = NopESMetrics()
	}

	session, err := factory.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &UnitOfWork{
		log:     log.With(slog.String("component", "uow")),
		session: session,
		repo:    NewRepository(log, mapper, session.Events(), m),
		metrics: m,
		mapper:  mapper,
	}, nil
}

// Repo returns the repository bound to this unit of work's transaction.
func (u *UnitOfWork) Repo() *Repository { return u.repo }

// CollectBacklog drains the selected backlog queue accumulated since the
// unit of work began.
func (u *UnitOfWork) CollectBacklog(kind BacklogKind) []Event {
	return u.repo.CollectBacklog(kind)
}

// Commit writes the external backlog to the outbox inside the same
// transaction, then ends the transaction successfully.
func (u *UnitOfWork) Commit(ctx context.Context) error {
	external := u.repo.CollectBacklog(ExternalBacklog)
	if len(external) > 0 {
		entries := make([]OutboxEntry, 0, len(external))
		for _, ev := range external {
			entry, err := u.mapper.ToOutboxEntry(ev)
			if err != nil {
				return err
			}
			entries = append(entries, entry)
		}
		if err := u.session.Outbox().Add(ctx, entries); err != nil {
			return err
		}
		u.metrics.OutboxStaged(len(entries))
		u.log.Debug("outbox staged", slog.Int("num_entries", len(entries)))
	}

	if err := u.session.Commit(ctx); err != nil {
		return err
	}
	u.closed = true
	return nil
}

// Close rolls back anything uncommitted and releases the session. It is
// idempotent and safe after Commit.
func (u *UnitOfWork) Close(ctx context.Context) error {
	if u.closed {
		return nil
	}
	u.closed = true
	return u.session.Rollback(ctx)
}
