package postgres

import (
	"fmt"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/Migorithm/IAM/core/es"
	"github.com/Migorithm/IAM/core/iam"
)

func newTestStore(t *testing.T) *Store {
	cfg := NewTestContainer(t)
	store, err := Open(t.Context(), cfg, slog.Default())
	require.NoError(t, err)
	require.NotNil(t, store)
	t.Cleanup(store.Close)
	return store
}

func storedEvent(id uuid.UUID, version uint64, topic string) es.StoredEvent {
	return es.StoredEvent{
		AggregateID: id,
		Version:     es.Version(version),
		Topic:       topic,
		State:       []byte(fmt.Sprintf(`{"v":%d}`, version)),
	}
}

func TestStore_AppendAndLoad(t *testing.T) {
	store := newTestStore(t)
	ctx := t.Context()
	aggID := uuid.New()

	s, err := store.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, s.Events().Append(ctx, []es.StoredEvent{
		storedEvent(aggID, 1, "account.opened"),
		storedEvent(aggID, 2, "account.deposited"),
	}))
	require.NoError(t, s.Commit(ctx))

	s, err = store.Begin(ctx)
	require.NoError(t, err)
	defer s.Rollback(ctx)

	events, err := s.Events().LoadAll(ctx, aggID)
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, es.Version(1), events[0].Version)
	require.Equal(t, es.Version(2), events[1].Version)
	require.Equal(t, "account.opened", events[0].Topic)
	require.Equal(t, []byte(`{"v":2}`), events[1].State)

	// unknown aggregate loads empty
	events, err = s.Events().LoadAll(ctx, uuid.New())
	require.NoError(t, err)
	require.Empty(t, events)
}

func TestStore_VersionConflict(t *testing.T) {
	store := newTestStore(t)
	ctx := t.Context()
	aggID := uuid.New()

	s, err := store.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, s.Events().Append(ctx, []es.StoredEvent{storedEvent(aggID, 1, "account.opened")}))
	require.NoError(t, s.Commit(ctx))

	// a second writer with a stale view hits the primary key
	s, err = store.Begin(ctx)
	require.NoError(t, err)
	defer s.Rollback(ctx)

	err = s.Events().Append(ctx, []es.StoredEvent{storedEvent(aggID, 1, "account.opened")})
	require.ErrorIs(t, err, es.ErrIntegrity)
}

func TestStore_RollbackDiscardsWrites(t *testing.T) {
	store := newTestStore(t)
	ctx := t.Context()
	aggID := uuid.New()

	s, err := store.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, s.Events().Append(ctx, []es.StoredEvent{storedEvent(aggID, 1, "account.opened")}))
	require.NoError(t, s.Rollback(ctx))

	s, err = store.Begin(ctx)
	require.NoError(t, err)
	defer s.Rollback(ctx)

	events, err := s.Events().LoadAll(ctx, aggID)
	require.NoError(t, err)
	require.Empty(t, events)
}

func TestStore_Outbox(t *testing.T) {
	store := newTestStore(t)
	ctx := t.Context()
	aggID := uuid.New()

	s, err := store.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, s.Outbox().Add(ctx, []es.OutboxEntry{
		{ID: "ob-1", AggregateID: aggID, Topic: "account.opened", State: []byte(`{}`)},
		{ID: "ob-2", AggregateID: aggID, Topic: "account.deposited", State: []byte(`{}`)},
	}))
	require.NoError(t, s.Commit(ctx))

	s, err = store.Begin(ctx)
	require.NoError(t, err)
	pending, err := s.Outbox().Pending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)

	require.NoError(t, s.Outbox().MarkProcessed(ctx, "ob-1"))
	require.NoError(t, s.Commit(ctx))

	s, err = store.Begin(ctx)
	require.NoError(t, err)
	defer s.Rollback(ctx)

	pending, err = s.Outbox().Pending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, "ob-2", pending[0].ID)
}

// a pending row locked by one relay transaction is skipped by the next
func TestStore_PendingSkipsLockedRows(t *testing.T) {
	store := newTestStore(t)
	ctx := t.Context()

	s, err := store.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, s.Outbox().Add(ctx, []es.OutboxEntry{
		{ID: "ob-1", AggregateID: uuid.New(), Topic: "account.opened", State: []byte(`{}`)},
	}))
	require.NoError(t, s.Commit(ctx))

	s1, err := store.Begin(ctx)
	require.NoError(t, err)
	defer s1.Rollback(ctx)
	pending, err := s1.Outbox().Pending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	s2, err := store.Begin(ctx)
	require.NoError(t, err)
	defer s2.Rollback(ctx)
	pending, err = s2.Outbox().Pending(ctx, 10)
	require.NoError(t, err)
	require.Empty(t, pending)
}

// the full unit-of-work path against a real database
func TestStore_RepositoryRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := t.Context()

	transcoder, err := iam.NewTranscoder()
	require.NoError(t, err)
	topics, err := iam.NewTopicRegistry()
	require.NoError(t, err)
	mapper := es.NewMapper(transcoder, topics)

	user, err := iam.NewUser(iam.CreateUser{Name: "Migo", Email: "migo@mail.com"})
	require.NoError(t, err)

	uow, err := es.Begin(ctx, store, mapper)
	require.NoError(t, err)
	require.NoError(t, uow.Repo().Save(ctx, user))
	require.NoError(t, uow.Commit(ctx))
	require.NoError(t, uow.Close(ctx))

	uow, err = es.Begin(ctx, store, mapper)
	require.NoError(t, err)
	defer uow.Close(ctx)

	agg, err := uow.Repo().Load(ctx, user.ID)
	require.NoError(t, err)
	loaded := agg.(*iam.User)
	require.Equal(t, "Migo", loaded.Name)
	require.Equal(t, "migo@mail.com", loaded.Email)
	require.Equal(t, es.Version(1), loaded.Version)

	// the creation event is externally notifiable and lands in the outbox
	s, err := store.Begin(ctx)
	require.NoError(t, err)
	defer s.Rollback(ctx)
	pending, err := s.Outbox().Pending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
}
