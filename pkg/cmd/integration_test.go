package cmd

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/zenyx/dbkeeper/pkg/botschema"
	"github.com/zenyx/dbkeeper/pkg/cmd/testutil"
	"github.com/zenyx/dbkeeper/pkg/config"
	"github.com/zenyx/dbkeeper/pkg/database"
	"github.com/zenyx/dbkeeper/pkg/executor"
	"github.com/zenyx/dbkeeper/pkg/utils"
)

const (
	usersMigration = "20250101120000_create_users"
	botsMigration  = "20250101120500_create_bots"
)

func TestMigrationLifecycle_Integration(t *testing.T) {
	dsn := testutil.StartPostgres(t)
	db := openDB(t, dsn)

	fixture := testutil.TestProject(t).WithMigrations(testutil.MinimalMigrations())
	table := fixture.Config.Migrations.Table

	t.Run("status before migrating", func(t *testing.T) {
		out, err := testutil.RunCommand(t, status(fixture.Config), "--dsn", dsn)
		require.NoError(t, err)
		require.Contains(t, out, "⏳ Pending: 2")
		testutil.RequireTable(t, db, table, false)
	})

	t.Run("dry run changes nothing", func(t *testing.T) {
		out, err := testutil.RunCommand(t, migrate(fixture.Config), "--dsn", dsn, "--dry-run")
		require.NoError(t, err)
		require.Contains(t, out, usersMigration)
		require.Contains(t, out, "Summary: 2 migrations would be executed")
		testutil.RequireTable(t, db, "users", false)
		testutil.RequireTable(t, db, table, false)
	})

	t.Run("migrate", func(t *testing.T) {
		out, err := testutil.RunCommand(t, migrate(fixture.Config), "--dsn", dsn)
		require.NoError(t, err)
		require.Contains(t, out, "✅ "+usersMigration+" applied")
		require.Contains(t, out, "Summary: 2 successful, 0 failed, 0 skipped")

		testutil.RequireLedger(t, db, table, usersMigration, botsMigration)
		testutil.RequireTable(t, db, "bots", true)
	})

	t.Run("migrate is idempotent", func(t *testing.T) {
		out, err := testutil.RunCommand(t, migrate(fixture.Config), "--dsn", dsn)
		require.NoError(t, err)
		require.Contains(t, out, "All migrations are up to date.")
	})

	t.Run("status after migrating", func(t *testing.T) {
		out, err := testutil.RunCommand(t, status(fixture.Config), "--dsn", dsn)
		require.NoError(t, err)
		require.Contains(t, out, "✅ Applied: 2")
		require.Contains(t, out, "⏳ Pending: 0")
	})

	t.Run("rollback reverts the last batch", func(t *testing.T) {
		out, err := testutil.RunCommand(t, rollback(fixture.Config), "--dsn", dsn)
		require.NoError(t, err)
		require.Contains(t, out, "✅ "+botsMigration+" reverted")

		testutil.RequireLedger(t, db, table)
		testutil.RequireTable(t, db, "users", false)
	})

	t.Run("rollback with nothing applied", func(t *testing.T) {
		out, err := testutil.RunCommand(t, rollback(fixture.Config), "--dsn", dsn)
		require.NoError(t, err)
		require.Contains(t, out, "Nothing to roll back.")
	})

	t.Run("refresh re-applies everything", func(t *testing.T) {
		_, err := testutil.RunCommand(t, migrate(fixture.Config), "--dsn", dsn)
		require.NoError(t, err)

		out, err := testutil.RunCommand(t, refresh(fixture.Config), "--dsn", dsn)
		require.NoError(t, err)
		require.Contains(t, out, "reverted")
		require.Contains(t, out, "applied")

		testutil.RequireLedger(t, db, table, usersMigration, botsMigration)
	})

	t.Run("reset reverts everything", func(t *testing.T) {
		_, err := testutil.RunCommand(t, reset(fixture.Config), "--dsn", dsn)
		require.NoError(t, err)

		testutil.RequireLedger(t, db, table)
		testutil.RequireTable(t, db, "bots", false)
	})
}

func TestMigrateFailure_Integration(t *testing.T) {
	dsn := testutil.StartPostgres(t)
	db := openDB(t, dsn)

	migrations := append(testutil.MinimalMigrations(), testutil.MigrationFile{
		Name: "20250101121000_broken",
		SQL:  "-- +migrate Up\nALTER TABLE \"missing\" ADD COLUMN \"x\" INTEGER;\n",
	})
	fixture := testutil.TestProject(t).WithMigrations(migrations)

	out, err := testutil.RunCommand(t, migrate(fixture.Config), "--dsn", dsn)
	require.Error(t, err)

	var failed *executor.MigrationFailedError
	require.ErrorAs(t, err, &failed)
	require.Equal(t, "20250101121000_broken", failed.Unit)

	require.Contains(t, out, "❌ 20250101121000_broken failed during apply")
	require.Contains(t, out, "Summary: 2 successful, 1 failed, 0 skipped")

	testutil.RequireLedger(t, db, fixture.Config.Migrations.Table, usersMigration, botsMigration)
	testutil.RequireTable(t, db, "users", true)
}

func TestBuiltinUnits_Integration(t *testing.T) {
	dsn := testutil.StartPostgres(t)
	db := openDB(t, dsn)

	fixture := testutil.TestProject(t).WithConfig(func(cfg *config.Config) {
		cfg.Migrations.Builtin = utils.Ptr(true)
	})

	_, err := testutil.RunCommand(t, migrate(fixture.Config), "--dsn", dsn)
	require.NoError(t, err)

	names := make([]string, 0, len(botschema.Units()))
	for _, unit := range botschema.Units() {
		names = append(names, unit.Name)
	}
	testutil.RequireLedger(t, db, fixture.Config.Migrations.Table, names...)
	testutil.RequireTable(t, db, "referrals", true)

	_, err = testutil.RunCommand(t, reset(fixture.Config), "--dsn", dsn)
	require.NoError(t, err)
	testutil.RequireLedger(t, db, fixture.Config.Migrations.Table)
	testutil.RequireTable(t, db, "users", false)
}

func openDB(t *testing.T, dsn string) *sql.DB {
	t.Helper()

	client, err := database.NewClient(t.Context(), database.Options{DSN: dsn})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return client.DB()
}

func TestVerifyCommand_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration tests in short mode")
	}
	testutil.SkipIfNoDocker(t)

	fixture := testutil.TestProject(t).WithMigrations(testutil.MinimalMigrations())

	out, err := testutil.RunCommand(t, verify(fixture.Config), "--no-builtin")
	require.NoError(t, err)
	require.Contains(t, out, "==> migrate:reset")
	require.Contains(t, out, "✅ "+botsMigration+" reverted")
	require.Contains(t, out, "✅ Verified 2 migration(s) against postgres:")
}
