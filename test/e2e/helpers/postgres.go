//go:build integration

package helpers

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// geneFixture is the schema and rows the genes model queries.
var geneFixture = []string{
	`DROP TABLE IF EXISTS genes, gene_products`,
	`CREATE TABLE genes (gene_id TEXT, project_id TEXT, organism TEXT)`,
	`CREATE TABLE gene_products (gene_id TEXT, project_id TEXT, product TEXT)`,
	`INSERT INTO genes VALUES ('PF2', 'PlasmoDB', 'pfal'), ('TG1', 'ToxoDB', 'tgon'), ('PF1', 'PlasmoDB', 'pfal')`,
	`INSERT INTO gene_products VALUES ('PF1', 'PlasmoDB', 'kinase'), ('PF2', 'PlasmoDB', 'transporter'), ('TG1', 'ToxoDB', 'protease')`,
}

// StartPostgres returns the DSN of a PostgreSQL server seeded with the
// genes fixture. Without E2E_POSTGRES_DSN a container is started and
// terminated when the test ends.
func StartPostgres(t *testing.T, cfg *E2EConfig) string {
	t.Helper()
	ctx := context.Background()

	dsn := cfg.PostgresDSN
	if dsn == "" {
		container, err := postgres.Run(ctx, cfg.PostgresImage,
			postgres.WithDatabase("apidb"),
			postgres.WithUsername("wdk"),
			postgres.WithPassword("wdk"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(60*time.Second),
			),
		)
		require.NoError(t, err)
		t.Cleanup(func() { _ = container.Terminate(ctx) })

		dsn, err = container.ConnectionString(ctx, "sslmode=disable")
		require.NoError(t, err)
	}

	db, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()
	require.NoError(t, WaitForPostgres(ctx, db, cfg.Timeout))
	for _, stmt := range geneFixture {
		_, err := db.ExecContext(ctx, stmt)
		require.NoError(t, err, stmt)
	}
	return dsn
}

// WaitForPostgres pings db until it answers or timeout passes.
func WaitForPostgres(ctx context.Context, db *sql.DB, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	for {
		err := db.PingContext(ctx)
		if err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return err
		case <-ticker.C:
		}
	}
}
