//go:build integration

// Package testsupport starts the containers integration tests run against.
package testsupport

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	postgrescontainer "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"example.com/lazywalker/internal/persistence/postgres"
)

// StartPostgres launches a PostgreSQL container, applies the embedded
// migrations and returns a pool that is closed when the test ends.
func StartPostgres(ctx context.Context, t *testing.T) *pgxpool.Pool {
	t.Helper()

	pg, err := postgrescontainer.Run(ctx, "postgres:16-alpine",
		postgrescontainer.WithDatabase("lazywalker"),
		postgrescontainer.WithUsername("lazywalker"),
		postgrescontainer.WithPassword("lazywalker"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Terminate(context.Background()) })

	connStr, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.Eventually(t, func() bool {
		return pool.Ping(ctx) == nil
	}, 30*time.Second, time.Second, "postgres did not become reachable")

	require.NoError(t, postgres.Migrate(ctx, pool))
	return pool
}
