package postgres

import (
	"context"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

type Testing interface {
	require.TestingT
	Context() context.Context
	Logf(format string, args ...any)
	Cleanup(func())
}

// NewTestContainer starts a disposable PostgreSQL container and returns a
// Config pointing at it. The container is terminated on test cleanup.
func NewTestContainer(t Testing) Config {
	ctx := t.Context()
	pgC, err := tcpostgres.Run(
		ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("iam"),
		tcpostgres.WithUsername("iam"),
		tcpostgres.WithPassword("iam"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
		),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(pgC); err != nil {
			t.Errorf("failed to terminate container: %s", err.Error())
		}
	})

	url, err := pgC.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	t.Logf("postgres url: %s", url)
	return Config{URL: url, MaxConns: 4}
}
