package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"
	"github.com/zenyx/dbkeeper/pkg/config"
	"github.com/zenyx/dbkeeper/pkg/consts"
)

func TestLoadProjectConfig(t *testing.T) {
	t.Run("replaces config when the file exists", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "dbkeeper.yaml")
		require.NoError(t, os.WriteFile(path, []byte("migrations:\n  table: schema_migrations\n"), consts.ModeFile))

		cfg := config.Default()
		require.NoError(t, loadProjectConfig(path, cfg))
		require.Equal(t, "schema_migrations", cfg.Migrations.Table)
		require.True(t, cfg.LockEnabled())
	})

	t.Run("keeps defaults without a file", func(t *testing.T) {
		cfg := config.Default()
		require.NoError(t, loadProjectConfig(filepath.Join(t.TempDir(), "missing.yaml"), cfg))
		require.Equal(t, config.Default(), cfg)
	})

	t.Run("reports invalid files", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "dbkeeper.yaml")
		require.NoError(t, os.WriteFile(path, []byte("timeout: ["), consts.ModeFile))

		err := loadProjectConfig(path, config.Default())
		require.Error(t, err)
		require.Contains(t, err.Error(), "failed to unmarshal dbkeeper config")
	})
}

func TestSortCommands(t *testing.T) {
	cmds := []*cli.Command{{Name: "migrate:status"}, {Name: "init"}, {Name: "migrate"}}

	sorted := sortCommands(cmds)
	require.Equal(t, "init", sorted[0].Name)
	require.Equal(t, "migrate", sorted[1].Name)
	require.Equal(t, "migrate:status", sorted[2].Name)
	require.Equal(t, "migrate:status", cmds[0].Name)
}
