package cmd

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/zenyx/dbkeeper/pkg/cmd/testutil"
	"github.com/zenyx/dbkeeper/pkg/config"
)

func TestInitCommand(t *testing.T) {
	t.Run("scaffolds a project", func(t *testing.T) {
		tmpDir := t.TempDir()
		t.Chdir(tmpDir)

		cfg := config.Default()
		out, err := testutil.RunCommand(t, initCmd(cfg))
		require.NoError(t, err)
		require.Contains(t, out, "Initialized dbkeeper project")

		testutil.RequireValidProject(t, tmpDir)
		testutil.RequireFileContains(t, filepath.Join(tmpDir, "dbkeeper.yaml"), "${DATABASE_URL}")
	})

	t.Run("writes flags into a new config", func(t *testing.T) {
		tmpDir := t.TempDir()
		t.Chdir(tmpDir)

		cfg := config.Default()
		_, err := testutil.RunCommand(t, initCmd(cfg),
			"--dsn", "postgres://bots@localhost:5432/bots",
			"--table", "schema_migrations",
		)
		require.NoError(t, err)

		testutil.RequireFileContains(t, filepath.Join(tmpDir, "dbkeeper.yaml"),
			"postgres://bots@localhost:5432/bots",
			"table: schema_migrations",
		)

		// The shared config now reflects the new file.
		require.Equal(t, "postgres://bots@localhost:5432/bots", cfg.Database.DSN)
		require.Equal(t, "schema_migrations", cfg.Migrations.Table)
	})

	t.Run("keeps an existing project", func(t *testing.T) {
		fixture := testutil.TestProject(t)

		_, err := testutil.RunCommand(t, initCmd(fixture.Config), "--table", "other")
		require.NoError(t, err)

		loaded, err := config.LoadConfigFile(fixture.GetConfigPath())
		require.NoError(t, err)
		require.Equal(t, "migrations", loaded.Migrations.Table)
		require.False(t, loaded.UseBuiltin())
	})
}
