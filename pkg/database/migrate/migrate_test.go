//go:build integration

package migrate

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func tableExists(t *testing.T, db *sql.DB, table string) bool {
	t.Helper()
	var exists bool
	err := db.QueryRow(`
		SELECT EXISTS (
			SELECT FROM information_schema.tables
			WHERE table_name = $1
		)
	`, table).Scan(&exists)
	require.NoError(t, err)
	return exists
}

func TestMigrations(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx, "postgres:15",
		postgres.WithDatabase("wdk"),
		postgres.WithUsername("wdk"),
		postgres.WithPassword("wdk"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	defer func() { _ = pgContainer.Terminate(ctx) }()

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := sql.Open("postgres", connStr)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	t.Run("Run creates the answers and audit tables", func(t *testing.T) {
		require.NoError(t, Run(db))
		require.True(t, tableExists(t, db, "answers"))
		require.True(t, tableExists(t, db, "audit_events"))

		version, dirty, err := Version(db)
		require.NoError(t, err)
		require.False(t, dirty)
		require.Equal(t, uint(3), version)
	})

	t.Run("Run is idempotent", func(t *testing.T) {
		require.NoError(t, Run(db))
		version, _, err := Version(db)
		require.NoError(t, err)
		require.Equal(t, uint(3), version)
	})

	t.Run("checksum is unique", func(t *testing.T) {
		_, err := db.Exec(`INSERT INTO answers (id, checksum, question_name) VALUES (gen_random_uuid(), 'abc', 'Q.A')`)
		require.NoError(t, err)
		_, err = db.Exec(`INSERT INTO answers (id, checksum, question_name) VALUES (gen_random_uuid(), 'abc', 'Q.B')`)
		require.Error(t, err)
	})

	t.Run("Down drops the answers and audit tables", func(t *testing.T) {
		require.NoError(t, Down(db))
		require.False(t, tableExists(t, db, "answers"))
		require.False(t, tableExists(t, db, "audit_events"))
	})

	t.Run("Steps applies one migration at a time", func(t *testing.T) {
		require.NoError(t, Steps(db, 1))
		version, _, err := Version(db)
		require.NoError(t, err)
		require.Equal(t, uint(1), version)

		require.NoError(t, Steps(db, 1))
		version, _, err = Version(db)
		require.NoError(t, err)
		require.Equal(t, uint(2), version)
	})
}
