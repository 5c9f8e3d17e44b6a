package testing

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/2beens/runlog/internal/db"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

// GetDBPool connects to the postgres at POSTGRES_HOST (default localhost), database
// runlog_test, and applies the schema. Both tables are emptied before returning.
func GetDBPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	host := os.Getenv("POSTGRES_HOST")
	if host == "" {
		host = "localhost"
	}
	dbName := os.Getenv("POSTGRES_DB")
	if dbName == "" {
		dbName = "runlog_test"
	}
	t.Logf("using postgres host: %s, db: %s", host, dbName)

	dbPool, err := db.NewDBPool(ctx, db.NewDBPoolParams{
		DBHost: host,
		DBPort: "5432",
		DBName: dbName,
	})
	require.NoError(t, err)
	t.Cleanup(dbPool.Close)

	require.NoError(t, db.Migrate(ctx, dbPool))
	_, err = dbPool.Exec(ctx, `TRUNCATE run, route RESTART IDENTITY`)
	require.NoError(t, err)

	return dbPool
}
