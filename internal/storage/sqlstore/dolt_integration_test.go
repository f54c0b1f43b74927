//go:build integration

package sqlstore

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/dolt"
)

func TestDoltRepositoryContract(t *testing.T) {
	ctx := context.Background()

	ctr, err := dolt.Run(ctx, "dolthub/dolt-sql-server:1.32.4",
		dolt.WithDatabase("onboardbuddy"),
		dolt.WithUsername("buddy"),
		dolt.WithPassword("buddy"),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	dsn, err := ctr.ConnectionString(ctx)
	require.NoError(t, err)

	db, err := sql.Open("mysql", dsn)
	require.NoError(t, err)

	s, err := OpenDB(ctx, db, "mysql")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	runRepositoryContract(t, s)
}
