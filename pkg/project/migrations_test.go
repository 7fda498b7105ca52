package project_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/zenyx/dbkeeper/pkg/config"
	"github.com/zenyx/dbkeeper/pkg/consts"
	"github.com/zenyx/dbkeeper/pkg/migrator"
	"github.com/zenyx/dbkeeper/pkg/project"
)

const usersSQL = `-- +migrate Up
CREATE TABLE "users" ("id" BIGSERIAL PRIMARY KEY);

-- +migrate Down
DROP TABLE "users";
`

func newProject(t *testing.T) *project.Project {
	t.Helper()

	proj := project.New(project.ProjectParams{Dir: t.TempDir()})
	require.NoError(t, proj.Initialize(project.InitOptions{}))
	return proj
}

func writeMigration(t *testing.T, proj *project.Project, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(proj.MigrationsDir(), name), []byte(content), consts.ModeFile))
}

func TestLoadMigrations(t *testing.T) {
	t.Run("loads units in lexical order", func(t *testing.T) {
		proj := newProject(t)
		writeMigration(t, proj, "20250102000000_add_vip.sql", "-- +migrate Up\nALTER TABLE \"users\" ADD COLUMN \"vip\" BOOLEAN;\n")
		writeMigration(t, proj, "20250101000000_create_users.sql", usersSQL)
		writeMigration(t, proj, "README.md", "not a migration")

		dir, err := proj.LoadMigrations()
		require.NoError(t, err)
		require.Len(t, dir.Units, 2)
		require.Equal(t, "20250101000000_create_users", dir.Units[0].Name)
		require.Equal(t, "20250102000000_add_vip", dir.Units[1].Name)
		require.False(t, dir.HasSumFile())
	})

	t.Run("missing directory yields no units", func(t *testing.T) {
		cfg := config.Default()
		cfg.Migrations.Dir = "nowhere"

		proj := project.New(project.ProjectParams{Dir: t.TempDir(), Config: cfg})
		dir, err := proj.LoadMigrations()
		require.NoError(t, err)
		require.Empty(t, dir.Units)
	})

	t.Run("detects edited files", func(t *testing.T) {
		proj := newProject(t)
		writeMigration(t, proj, "20250101000000_create_users.sql", usersSQL)

		_, err := proj.Rehash()
		require.NoError(t, err)

		dir, err := proj.LoadMigrations()
		require.NoError(t, err)
		require.True(t, dir.HasSumFile())

		writeMigration(t, proj, "20250101000000_create_users.sql", strings.Replace(usersSQL, "users", "members", 1))

		_, err = proj.LoadMigrations()
		require.ErrorIs(t, err, migrator.ErrSumMismatch)
		require.Contains(t, err.Error(), "20250101000000_create_users.sql")
	})

	t.Run("reports parse failures", func(t *testing.T) {
		proj := newProject(t)
		writeMigration(t, proj, "20250101000000_broken.sql", "CREATE TABLE nope;")

		_, err := proj.LoadMigrations()
		require.Error(t, err)
		require.Contains(t, err.Error(), "failed to load migrations")
	})
}

func TestRehash(t *testing.T) {
	proj := newProject(t)
	writeMigration(t, proj, "20250101000000_create_users.sql", usersSQL)

	sum, err := proj.Rehash()
	require.NoError(t, err)
	require.Equal(t, 1, sum.Files())

	content, err := os.ReadFile(filepath.Join(proj.MigrationsDir(), consts.SumFileName))
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	require.Len(t, lines, 2)
	require.Equal(t, sum.TotalHash, lines[0])
	require.True(t, strings.HasPrefix(lines[1], "20250101000000_create_users.sql h1:"))

	// Rehashing unchanged files is stable.
	again, err := proj.Rehash()
	require.NoError(t, err)
	require.True(t, sum.Equal(again))
}

func TestNewMigration(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	t.Run("writes template and rehashes", func(t *testing.T) {
		proj := newProject(t)

		path, err := proj.NewMigration("Add VIP flag", now)
		require.NoError(t, err)
		require.Equal(t, filepath.Join(proj.MigrationsDir(), "20250101120000_add_vip_flag.sql"), path)

		content, err := os.ReadFile(path)
		require.NoError(t, err)
		require.Contains(t, string(content), "-- +migrate Up")
		require.Contains(t, string(content), "-- +migrate Down")

		dir, err := proj.LoadMigrations()
		require.NoError(t, err)
		require.True(t, dir.HasSumFile())
		require.Len(t, dir.Units, 1)
		require.Equal(t, "20250101120000_add_vip_flag", dir.Units[0].Name)
	})

	t.Run("refuses to overwrite", func(t *testing.T) {
		proj := newProject(t)

		_, err := proj.NewMigration("add vip flag", now)
		require.NoError(t, err)

		_, err = proj.NewMigration("add vip flag", now)
		require.Error(t, err)
		require.Contains(t, err.Error(), "failed to create migration")
	})

	t.Run("rejects empty names", func(t *testing.T) {
		proj := newProject(t)

		_, err := proj.NewMigration("  --  ", now)
		require.ErrorIs(t, err, project.ErrInvalidMigrationName)
	})
}

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"create users":          "create_users",
		"Add VIP flag":          "add_vip_flag",
		"  add--index__on-bots": "add_index_on_bots",
		"groups/2":              "groups_2",
		"!!!":                   "",
	}

	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			require.Equal(t, want, project.Slugify(in))
		})
	}
}
