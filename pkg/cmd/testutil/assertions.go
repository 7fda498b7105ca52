package testutil

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/zenyx/dbkeeper/pkg/consts"
	"github.com/zenyx/dbkeeper/pkg/ledger"
	"github.com/zenyx/dbkeeper/pkg/migrator"
)

// RequireValidProject asserts that a project structure is correctly initialized
func RequireValidProject(t *testing.T, projectDir string) {
	t.Helper()

	require.DirExists(t, filepath.Join(projectDir, "db"), "db directory should exist")
	require.DirExists(t, filepath.Join(projectDir, "db", "migrations"), "migrations directory should exist")
	require.FileExists(t, filepath.Join(projectDir, consts.DefaultConfigFile), "dbkeeper.yaml should exist")
}

// RequireFileContains asserts that the file at path contains every expected
// string.
func RequireFileContains(t *testing.T, path string, expected ...string) {
	t.Helper()

	content, err := os.ReadFile(path)
	require.NoError(t, err, "Failed to read file: %s", path)

	for _, e := range expected {
		require.Contains(t, string(content), e, "File should contain: %s", e)
	}
}

// RequireMigrationValid asserts that a migration file parses into a unit
// with Up and Down sections.
func RequireMigrationValid(t *testing.T, migrationPath string) {
	t.Helper()

	f, err := os.Open(migrationPath)
	require.NoError(t, err, "Failed to open migration file")
	defer func() { _ = f.Close() }()

	name := strings.TrimSuffix(filepath.Base(migrationPath), ".sql")
	require.True(t, migrator.ValidName(name), "Migration name should look like <digits>_<slug>: %s", name)

	unit, err := migrator.LoadUnit(name, f)
	require.NoError(t, err, "Migration should parse")
	require.NotNil(t, unit.Apply)
	require.NotNil(t, unit.Revert)
}

// RequireMigrationCount asserts the number of .sql files in a directory.
func RequireMigrationCount(t *testing.T, migrationsDir string, expectedCount int) {
	t.Helper()

	matches, err := filepath.Glob(filepath.Join(migrationsDir, "*.sql"))
	require.NoError(t, err)
	require.Len(t, matches, expectedCount, "Unexpected number of migration files")
}

// RequireSumFileValid asserts that the sum file parses and matches the
// migration files next to it.
func RequireSumFileValid(t *testing.T, sumPath string) {
	t.Helper()

	require.FileExists(t, sumPath, "Sum file should exist")

	dir, err := migrator.LoadDir(os.DirFS(filepath.Dir(sumPath)))
	require.NoError(t, err, "Migrations should load")
	require.True(t, dir.HasSumFile(), "Sum file should be loaded")
	require.NoError(t, dir.Validate(), "Sum file should match migration files")
}

// RequireNoFile asserts that path does not exist.
func RequireNoFile(t *testing.T, path string) {
	t.Helper()

	_, err := os.Stat(path)
	require.True(t, os.IsNotExist(err), "File should not exist: %s", path)
}

// RequireLedger asserts the ledger rows, in application order.
func RequireLedger(t *testing.T, db *sql.DB, table string, expected ...string) {
	t.Helper()

	names, err := ledger.New(db, table).AllNames(context.Background())
	require.NoError(t, err, "Failed to read ledger")

	if len(expected) == 0 {
		require.Empty(t, names)
		return
	}
	require.Equal(t, expected, names)
}

// RequireTable asserts whether a table exists.
func RequireTable(t *testing.T, db *sql.DB, table string, exists bool) {
	t.Helper()

	var found bool
	err := db.QueryRowContext(context.Background(), "SELECT to_regclass($1) IS NOT NULL", table).Scan(&found)
	require.NoError(t, err)
	require.Equal(t, exists, found, "table %s existence", table)
}
