package migrate

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	migrateTestFileCount    = 6
	migrateTestSuccess      = "success"
	migrateTestFactoryError = "factory error"
)

// mockMigrator implements the migrator interface for testing.
type mockMigrator struct {
	upErr      error
	downErr    error
	stepsErr   error
	versionVal uint
	dirty      bool
	versionErr error
}

func (m *mockMigrator) Up() error         { return m.upErr }
func (m *mockMigrator) Down() error       { return m.downErr }
func (m *mockMigrator) Steps(_ int) error { return m.stepsErr }
func (m *mockMigrator) Version() (version uint, dirty bool, err error) {
	return m.versionVal, m.dirty, m.versionErr
}

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := migrations.ReadDir("migrations")
	require.NoError(t, err)
	assert.Len(t, entries, migrateTestFileCount)

	expectedFiles := []string{
		"000001_answers.up.sql",
		"000001_answers.down.sql",
		"000002_answers_created_at.up.sql",
		"000002_answers_created_at.down.sql",
		"000003_audit_events.up.sql",
		"000003_audit_events.down.sql",
	}

	fileNames := make(map[string]bool)
	for _, e := range entries {
		fileNames[e.Name()] = true
	}
	for _, expected := range expectedFiles {
		assert.True(t, fileNames[expected], "expected migration file %s to exist", expected)
	}
}

func TestMigrationFilesNotEmpty(t *testing.T) {
	entries, err := migrations.ReadDir("migrations")
	require.NoError(t, err)
	for _, e := range entries {
		content, err := migrations.ReadFile("migrations/" + e.Name())
		assert.NoError(t, err, "failed to read %s", e.Name())
		assert.NotEmpty(t, content, "migration file %s should not be empty", e.Name())
	}
}

func TestMigration001_UpContent(t *testing.T) {
	content, err := migrations.ReadFile("migrations/000001_answers.up.sql")
	require.NoError(t, err)
	migrationSQL := string(content)

	assert.Contains(t, migrationSQL, "CREATE TABLE")
	assert.Contains(t, migrationSQL, "answers")

	expectedColumns := []string{
		"id", "checksum", "question_name", "params", "result_size", "created_at",
	}
	for _, col := range expectedColumns {
		assert.Contains(t, migrationSQL, col, "up migration should contain column %s", col)
	}

	// ON CONFLICT (checksum) in the store needs a unique index to infer.
	assert.Contains(t, migrationSQL, "CREATE UNIQUE INDEX IF NOT EXISTS idx_answers_checksum")
}

func TestMigration001_DownContent(t *testing.T) {
	content, err := migrations.ReadFile("migrations/000001_answers.down.sql")
	require.NoError(t, err)
	migrationSQL := string(content)

	assert.Contains(t, migrationSQL, "DROP TABLE")
	assert.Contains(t, migrationSQL, "answers")
	assert.Contains(t, migrationSQL, "idx_answers_checksum")
}

func TestMigration002_Content(t *testing.T) {
	up, err := migrations.ReadFile("migrations/000002_answers_created_at.up.sql")
	require.NoError(t, err)
	assert.Contains(t, string(up), "CREATE INDEX IF NOT EXISTS idx_answers_created_at")

	down, err := migrations.ReadFile("migrations/000002_answers_created_at.down.sql")
	require.NoError(t, err)
	assert.Contains(t, string(down), "DROP INDEX IF EXISTS idx_answers_created_at")
}

func TestMigration003_Content(t *testing.T) {
	up, err := migrations.ReadFile("migrations/000003_audit_events.up.sql")
	require.NoError(t, err)
	assert.Contains(t, string(up), "CREATE TABLE IF NOT EXISTS audit_events")
	assert.Contains(t, string(up), "idx_audit_events_timestamp")

	down, err := migrations.ReadFile("migrations/000003_audit_events.down.sql")
	require.NoError(t, err)
	assert.Contains(t, string(down), "DROP TABLE IF EXISTS audit_events")
}

func TestRun(t *testing.T) {
	origFactory := migratorFactory
	defer func() { migratorFactory = origFactory }()

	t.Run(migrateTestSuccess, func(t *testing.T) {
		migratorFactory = func(_ *sql.DB) (migrator, error) {
			return &mockMigrator{versionVal: 2}, nil
		}

		err := Run(nil)
		assert.NoError(t, err)
	})

	t.Run("no change is not an error", func(t *testing.T) {
		migratorFactory = func(_ *sql.DB) (migrator, error) {
			return &mockMigrator{upErr: migrate.ErrNoChange, versionVal: 2}, nil
		}

		err := Run(nil)
		assert.NoError(t, err)
	})

	t.Run("up error", func(t *testing.T) {
		migratorFactory = func(_ *sql.DB) (migrator, error) {
			return &mockMigrator{upErr: errors.New("up failed")}, nil
		}

		err := Run(nil)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "running migrations")
	})

	t.Run(migrateTestFactoryError, func(t *testing.T) {
		migratorFactory = func(_ *sql.DB) (migrator, error) {
			return nil, errors.New("factory failed")
		}

		err := Run(nil)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "factory failed")
	})

	t.Run("version error", func(t *testing.T) {
		migratorFactory = func(_ *sql.DB) (migrator, error) {
			return &mockMigrator{versionErr: errors.New("version failed")}, nil
		}

		err := Run(nil)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "getting migration version")
	})

	t.Run("nil version is not an error", func(t *testing.T) {
		migratorFactory = func(_ *sql.DB) (migrator, error) {
			return &mockMigrator{versionErr: migrate.ErrNilVersion}, nil
		}

		err := Run(nil)
		assert.NoError(t, err)
	})

	t.Run("dirty state logs warning", func(t *testing.T) {
		migratorFactory = func(_ *sql.DB) (migrator, error) {
			return &mockMigrator{versionVal: 2, dirty: true}, nil
		}

		err := Run(nil)
		assert.NoError(t, err)
	})
}

func TestVersion(t *testing.T) {
	origFactory := migratorFactory
	defer func() { migratorFactory = origFactory }()

	t.Run(migrateTestSuccess, func(t *testing.T) {
		migratorFactory = func(_ *sql.DB) (migrator, error) {
			return &mockMigrator{versionVal: 5, dirty: false}, nil
		}

		version, dirty, err := Version(nil)
		assert.NoError(t, err)
		assert.Equal(t, uint(5), version)
		assert.False(t, dirty)
	})

	t.Run(migrateTestFactoryError, func(t *testing.T) {
		migratorFactory = func(_ *sql.DB) (migrator, error) {
			return nil, errors.New("factory failed")
		}

		_, _, err := Version(nil)
		assert.Error(t, err)
	})
}

func TestDown(t *testing.T) {
	origFactory := migratorFactory
	defer func() { migratorFactory = origFactory }()

	t.Run(migrateTestSuccess, func(t *testing.T) {
		migratorFactory = func(_ *sql.DB) (migrator, error) {
			return &mockMigrator{}, nil
		}

		err := Down(nil)
		assert.NoError(t, err)
	})

	t.Run("no change is not an error", func(t *testing.T) {
		migratorFactory = func(_ *sql.DB) (migrator, error) {
			return &mockMigrator{downErr: migrate.ErrNoChange}, nil
		}

		err := Down(nil)
		assert.NoError(t, err)
	})

	t.Run("down error", func(t *testing.T) {
		migratorFactory = func(_ *sql.DB) (migrator, error) {
			return &mockMigrator{downErr: errors.New("down failed")}, nil
		}

		err := Down(nil)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "rolling back migrations")
	})

	t.Run(migrateTestFactoryError, func(t *testing.T) {
		migratorFactory = func(_ *sql.DB) (migrator, error) {
			return nil, errors.New("factory failed")
		}

		err := Down(nil)
		assert.Error(t, err)
	})
}

func TestSteps(t *testing.T) {
	origFactory := migratorFactory
	defer func() { migratorFactory = origFactory }()

	t.Run(migrateTestSuccess, func(t *testing.T) {
		migratorFactory = func(_ *sql.DB) (migrator, error) {
			return &mockMigrator{}, nil
		}

		err := Steps(nil, 1)
		assert.NoError(t, err)
	})

	t.Run("no change is not an error", func(t *testing.T) {
		migratorFactory = func(_ *sql.DB) (migrator, error) {
			return &mockMigrator{stepsErr: migrate.ErrNoChange}, nil
		}

		err := Steps(nil, 1)
		assert.NoError(t, err)
	})

	t.Run("steps error", func(t *testing.T) {
		migratorFactory = func(_ *sql.DB) (migrator, error) {
			return &mockMigrator{stepsErr: errors.New("steps failed")}, nil
		}

		err := Steps(nil, 1)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "stepping migrations")
	})

	t.Run(migrateTestFactoryError, func(t *testing.T) {
		migratorFactory = func(_ *sql.DB) (migrator, error) {
			return nil, errors.New("factory failed")
		}

		err := Steps(nil, 1)
		assert.Error(t, err)
	})
}

// TestMigrationTablesHaveConsumers verifies that every table created by a
// migration is actually referenced (INSERT, SELECT, UPDATE, or DELETE) in
// non-test, non-migration Go source code. This prevents "vaporware" tables
// that exist in the database but are never used by the running application.
//
// If this test fails, one of two things is true:
//  1. A migration creates a table that no Go code uses: delete the migration.
//  2. Go code exists but isn't wired up: wire it into the platform or delete it.
func TestMigrationTablesHaveConsumers(t *testing.T) {
	// 1. Extract all table names from CREATE TABLE statements in up migrations.
	entries, err := migrations.ReadDir("migrations")
	require.NoError(t, err)

	createTableRe := regexp.MustCompile(`(?i)CREATE TABLE\s+(?:IF NOT EXISTS\s+)?(\w+)`)

	var tables []string
	for _, entry := range entries {
		if !strings.HasSuffix(entry.Name(), ".up.sql") {
			continue
		}
		content, readErr := migrations.ReadFile("migrations/" + entry.Name())
		require.NoError(t, readErr)

		matches := createTableRe.FindAllStringSubmatch(string(content), -1)
		for _, m := range matches {
			table := m[1]
			// Skip partition definitions (e.g. "audit_logs_default PARTITION OF audit_logs")
			if strings.HasSuffix(table, "_default") {
				continue
			}
			tables = append(tables, table)
		}
	}
	require.NotEmpty(t, tables, "migrations should contain CREATE TABLE statements")

	// 2. Collect all non-test, non-migration Go source files under pkg/.
	pkgRoot := "../../.."
	var goFiles []string
	collectErr := collectGoSourceFiles(pkgRoot+"/pkg", &goFiles)
	require.NoError(t, collectErr, "failed to walk pkg/ directory")
	require.NotEmpty(t, goFiles, "should find Go source files under pkg/")

	// 3. Read all source files into a single corpus.
	var corpus strings.Builder
	for _, path := range goFiles {
		content, readErr := os.ReadFile(path) //nolint:gosec // test reads source files, not user input
		require.NoError(t, readErr)
		corpus.Write(content)  //nolint:revive // strings.Builder.Write never returns an error
		corpus.WriteByte('\n') //nolint:revive // strings.Builder.WriteByte never returns an error
	}
	source := corpus.String()

	// 4. For each table, verify at least one DML reference exists.
	dmlPatterns := []string{
		`INSERT INTO %s`,
		`FROM %s`,
		`UPDATE %s`,
		`DELETE FROM %s`,
	}

	for _, table := range tables {
		found := false
		for _, pattern := range dmlPatterns {
			if strings.Contains(source, strings.ReplaceAll(
				pattern, "%s", table,
			)) {
				found = true
				break
			}
		}
		assert.True(t, found,
			"table %q is created by a migration but no non-test Go code references it "+
				"(INSERT, SELECT, UPDATE, or DELETE). Either wire up the table or remove the migration.",
			table)
	}
}

// collectGoSourceFiles walks dir recursively and appends non-test, non-migration
// Go source file paths to dst.
func collectGoSourceFiles(dir string, dst *[]string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading directory %s: %w", dir, err)
	}
	for _, entry := range entries {
		path := dir + "/" + entry.Name()
		if entry.IsDir() {
			if entry.Name() == "migrate" || entry.Name() == "vendor" {
				continue // skip migration SQL and vendor
			}
			if err := collectGoSourceFiles(path, dst); err != nil {
				return err
			}
			continue
		}
		if strings.HasSuffix(entry.Name(), ".go") && !strings.HasSuffix(entry.Name(), "_test.go") {
			*dst = append(*dst, path)
		}
	}
	return nil
}

// TestAnswersColumnConsistency verifies that every column of the answers
// table appears in the store's INSERT and SELECT column lists.
func TestAnswersColumnConsistency(t *testing.T) {
	migrationContent, err := migrations.ReadFile("migrations/000001_answers.up.sql")
	require.NoError(t, err)

	colRe := regexp.MustCompile(`(?m)^\s+(\w+)\s+(?:UUID|TEXT|JSONB|INTEGER|TIMESTAMPTZ)`)
	matches := colRe.FindAllStringSubmatch(string(migrationContent), -1)
	require.NotEmpty(t, matches, "migration should declare columns")

	storeSource, err := os.ReadFile("../../answer/postgres/store.go")
	require.NoError(t, err)
	storeStr := string(storeSource)

	insertRe := regexp.MustCompile(`INSERT INTO answers\s*\(([^)]+)\)`)
	insertMatch := insertRe.FindStringSubmatch(storeStr)
	require.Len(t, insertMatch, 2, "store.go should contain INSERT INTO answers(...)")

	selectRe := regexp.MustCompile(`(?s)answerColumns = \[\]string\{(.+?)\}`)
	selectMatch := selectRe.FindStringSubmatch(storeStr)
	require.Len(t, selectMatch, 2, "store.go should declare answerColumns")

	for _, m := range matches {
		col := m[1]
		assert.Contains(t, insertMatch[1], col, "column %q must appear in store INSERT column list", col)
		assert.Contains(t, selectMatch[1], `"`+col+`"`, "column %q must appear in answerColumns", col)
	}
}
