package es

import (
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func testRepo(store EventStore) *Repository {
	return NewRepository(slog.Default(), testMapper(), store, nil)
}

func TestRepository_SaveAndLoad(t *testing.T) {
	store := NewInMemoryStore()
	repo := testRepo(store)
	ctx := t.Context()

	live := openAccount("migo")
	require.NoError(t, Trigger(live, &moneyDeposited{Amount: 100}))
	require.NoError(t, Trigger(live, &moneyWithdrawn{Amount: 30}))
	require.NoError(t, repo.Save(ctx, live))

	// pending queue is drained by save
	require.Equal(t, 0, live.PendingCount())

	stored, err := store.LoadAll(ctx, live.ID)
	require.NoError(t, err)
	require.Len(t, stored, 3)
	require.Equal(t, "account.opened", stored[0].Topic)
	require.Equal(t, "account.deposited", stored[1].Topic)
	require.Equal(t, "account.withdrawn", stored[2].Topic)

	agg, err := repo.Load(ctx, live.ID)
	require.NoError(t, err)
	acc := agg.(*account)
	require.Equal(t, live.ID, acc.ID)
	require.Equal(t, Version(3), acc.Version)
	require.Equal(t, "migo", acc.Owner)
	require.Equal(t, 70, acc.Balance)
}

func TestRepository_SaveMultipleAggregates(t *testing.T) {
	store := NewInMemoryStore()
	repo := testRepo(store)
	ctx := t.Context()

	a := openAccount("a")
	b := openAccount("b")
	require.NoError(t, repo.Save(ctx, a, b))

	for _, id := range []uuid.UUID{a.ID, b.ID} {
		stored, err := store.LoadAll(ctx, id)
		require.NoError(t, err)
		require.Len(t, stored, 1)
	}
}

func TestRepository_LoadNotFound(t *testing.T) {
	repo := testRepo(NewInMemoryStore())
	_, err := repo.Load(t.Context(), uuid.New())
	require.ErrorIs(t, err, ErrAggregateNotFound)
}

func TestRepository_LoadCorruptedLog(t *testing.T) {
	store := NewInMemoryStore()
	repo := testRepo(store)
	ctx := t.Context()

	acc := openAccount("migo")
	require.NoError(t, repo.Save(ctx, acc))

	// Simulate a gap: a row claiming version 3 directly after 1.
	se, err := testMapper().ToStoredEvent(&moneyDeposited{
		EventMeta: EventMeta{AggregateID: acc.ID, Version: 3, Timestamp: acc.UpdatedAt},
		Amount:    1,
	})
	require.NoError(t, err)
	store.events[acc.ID] = append(store.events[acc.ID], se)

	_, err = repo.Load(ctx, acc.ID)
	require.ErrorIs(t, err, ErrCorruptedLog)
}

func TestRepository_BacklogClassification(t *testing.T) {
	repo := testRepo(NewInMemoryStore())
	ctx := t.Context()

	acc := openAccount("migo") // externally notifiable creation
	require.NoError(t, Trigger(acc, &moneyDeposited{Amount: 1})) // internally notifiable
	require.NoError(t, Trigger(acc, &moneyWithdrawn{Amount: 1})) // neither
	require.NoError(t, repo.Save(ctx, acc))

	internal := repo.CollectBacklog(InternalBacklog)
	require.Len(t, internal, 1)
	require.IsType(t, &moneyDeposited{}, internal[0])

	external := repo.CollectBacklog(ExternalBacklog)
	require.Len(t, external, 1)
	require.IsType(t, &accountOpened{}, external[0])

	// drained
	require.Empty(t, repo.CollectBacklog(InternalBacklog))
	require.Empty(t, repo.CollectBacklog(ExternalBacklog))
}

func TestRepository_SaveConflict(t *testing.T) {
	store := NewInMemoryStore()
	ctx := t.Context()

	first := openAccount("migo")
	require.NoError(t, testRepo(store).Save(ctx, first))

	// Two repositories load the same aggregate and race on version 2.
	repoA, repoB := testRepo(store), testRepo(store)
	aggA, err := repoA.Load(ctx, first.ID)
	require.NoError(t, err)
	aggB, err := repoB.Load(ctx, first.ID)
	require.NoError(t, err)

	require.NoError(t, Trigger(aggA, &moneyDeposited{Amount: 1}))
	require.NoError(t, Trigger(aggB, &moneyDeposited{Amount: 2}))

	require.NoError(t, repoA.Save(ctx, aggA))
	require.ErrorIs(t, repoB.Save(ctx, aggB), ErrIntegrity)

	// the losing save leaves no trace in the backlogs
	require.Empty(t, repoB.CollectBacklog(InternalBacklog))
	require.Empty(t, repoB.CollectBacklog(ExternalBacklog))
}

func TestRepository_SaveNothingPending(t *testing.T) {
	store := NewInMemoryStore()
	repo := testRepo(store)
	ctx := t.Context()

	acc := openAccount("migo")
	require.NoError(t, repo.Save(ctx, acc))
	require.NoError(t, repo.Save(ctx, acc)) // nothing pending, no-op

	stored, err := store.LoadAll(ctx, acc.ID)
	require.NoError(t, err)
	require.Len(t, stored, 1)
}

func TestRepository_SaveNilAggregate(t *testing.T) {
	repo := testRepo(NewInMemoryStore())
	require.ErrorIs(t, repo.Save(t.Context(), nil), ErrNotAnAggregate)
}
