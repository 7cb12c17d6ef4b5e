package testutil

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresURLEnv names the variable holding the test database URL.
const PostgresURLEnv = "TEST_DATABASE_URL"

// PostgresPool connects to TEST_DATABASE_URL and skips the test when the
// variable is unset or the database does not answer. The pool is closed on
// test cleanup.
func PostgresPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	url := os.Getenv(PostgresURLEnv)
	if url == "" {
		t.Skip(PostgresURLEnv + " not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		t.Skipf("PostgreSQL not available: %v", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		t.Skipf("PostgreSQL not available: %v", err)
	}

	t.Cleanup(pool.Close)
	return pool
}
