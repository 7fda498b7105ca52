package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/zenyx/dbkeeper/pkg/config"
	"github.com/zenyx/dbkeeper/pkg/consts"
	"github.com/zenyx/dbkeeper/pkg/project"
	"gopkg.in/yaml.v3"
)

// ProjectFixture represents a test project environment with all necessary dependencies
type ProjectFixture struct {
	Dir     string
	Config  *config.Config
	Project *project.Project
	t       *testing.T
}

// MigrationFile represents a test migration
type MigrationFile struct {
	Name string
	SQL  string
}

// TestProject creates an isolated temp directory with an initialized
// dbkeeper project and makes it the working directory for the rest of the
// test. Compiled-in units are disabled so tests only see their own files.
func TestProject(t *testing.T) *ProjectFixture {
	t.Helper()

	tmpDir := t.TempDir()
	t.Chdir(tmpDir)

	proj := project.New(project.ProjectParams{Dir: tmpDir})
	require.NoError(t, proj.Initialize(project.InitOptions{}), "Failed to initialize test project")

	fixture := &ProjectFixture{
		Dir:     tmpDir,
		Config:  proj.Config(),
		Project: proj,
		t:       t,
	}

	return fixture.WithConfig(func(cfg *config.Config) {
		cfg.Migrations.Builtin = new(bool)
	})
}

// WithConfig applies fn to the fixture's configuration and writes it back
// to dbkeeper.yaml.
func (p *ProjectFixture) WithConfig(fn func(*config.Config)) *ProjectFixture {
	p.t.Helper()

	fn(p.Config)
	require.NoError(p.t, p.writeConfig(p.GetConfigPath()), "Failed to write config")

	p.Project = project.New(project.ProjectParams{Dir: p.Dir, Config: p.Config})
	return p
}

// WithMigrations writes migration files and refreshes the sum file.
func (p *ProjectFixture) WithMigrations(migrations []MigrationFile) *ProjectFixture {
	p.t.Helper()

	dir := p.GetMigrationsDir()
	require.NoError(p.t, os.MkdirAll(dir, consts.ModeDir))

	for _, m := range migrations {
		path := filepath.Join(dir, m.Name+".sql")
		require.NoError(p.t, os.WriteFile(path, []byte(m.SQL), consts.ModeFile), "Failed to write migration %s", m.Name)
	}

	_, err := p.Project.Rehash()
	require.NoError(p.t, err, "Failed to rehash migrations")
	return p
}

// WithSumFile overwrites the sum file with content.
func (p *ProjectFixture) WithSumFile(content string) *ProjectFixture {
	p.t.Helper()

	path := filepath.Join(p.GetMigrationsDir(), consts.SumFileName)
	require.NoError(p.t, os.WriteFile(path, []byte(content), consts.ModeFile))
	return p
}

// GetMigrationsDir returns the absolute migrations directory.
func (p *ProjectFixture) GetMigrationsDir() string {
	return p.Project.MigrationsDir()
}

// GetConfigPath returns the path of dbkeeper.yaml.
func (p *ProjectFixture) GetConfigPath() string {
	return filepath.Join(p.Dir, consts.DefaultConfigFile)
}

// MinimalMigrations returns two reversible migrations creating related
// tables.
func MinimalMigrations() []MigrationFile {
	return []MigrationFile{
		{
			Name: "20250101120000_create_users",
			SQL: `-- +migrate Up
CREATE TABLE "users" (
    "id" BIGSERIAL PRIMARY KEY,
    "telegram_id" BIGINT NOT NULL UNIQUE
);

-- +migrate Down
DROP TABLE "users";
`,
		},
		{
			Name: "20250101120500_create_bots",
			SQL: `-- +migrate Up
CREATE TABLE "bots" (
    "id" BIGSERIAL PRIMARY KEY,
    "owner_id" BIGINT NOT NULL REFERENCES "users" ("id") ON DELETE CASCADE,
    "token" VARCHAR(255) NOT NULL
);
CREATE INDEX "bots_owner_id_index" ON "bots" ("owner_id");

-- +migrate Down
DROP TABLE "bots";
`,
		},
	}
}

func (p *ProjectFixture) writeConfig(path string) error {
	data, err := yaml.Marshal(p.Config)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, consts.ModeFile)
}
