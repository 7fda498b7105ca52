package project

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/zenyx/dbkeeper/pkg/consts"
	"github.com/zenyx/dbkeeper/pkg/migrator"
)

// ErrInvalidMigrationName is returned by NewMigration when the name has no
// usable characters.
var ErrInvalidMigrationName = errors.New("invalid migration name")

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// MigrationsDir returns the configured SQL migrations directory resolved
// against the project root.
func (p *Project) MigrationsDir() string {
	dir := p.config.Migrations.Dir
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(p.root, dir)
}

// LoadMigrations loads every SQL-file unit in the migrations directory and
// checks it against the sum file. A missing directory yields no units so
// projects using only compiled-in units need no directory at all.
//
// Example:
//
//	dir, err := proj.LoadMigrations()
//	if errors.Is(err, migrator.ErrSumMismatch) {
//		log.Fatal("migration files changed, run dbkeeper rehash if intended")
//	}
//
//	registry, err := migrator.NewRegistry(dir.Units...)
func (p *Project) LoadMigrations() (*migrator.Dir, error) {
	path := p.MigrationsDir()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return &migrator.Dir{SumFile: migrator.NewSumFile()}, nil
	}

	dir, err := migrator.LoadDir(os.DirFS(path))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load migrations from %s", path)
	}

	if err := dir.Validate(); err != nil {
		return nil, err
	}

	return dir, nil
}

// Rehash recomputes the sum file from the files in the migrations directory
// and writes it next to them.
func (p *Project) Rehash() (*migrator.SumFile, error) {
	path := p.MigrationsDir()

	dir, err := migrator.LoadDir(os.DirFS(path))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load migrations from %s", path)
	}

	var buf bytes.Buffer
	if _, err := dir.SumFile.WriteTo(&buf); err != nil {
		return nil, errors.Wrap(err, "failed to render sum file")
	}

	sumPath := filepath.Join(path, consts.SumFileName)
	if err := os.WriteFile(sumPath, buf.Bytes(), consts.ModeFile); err != nil {
		return nil, errors.Wrapf(err, "failed to write sum file: %s", sumPath)
	}

	return dir.SumFile, nil
}

// NewMigration writes an empty migration file named
// <timestamp>_<slug>.sql, with Up and Down sections, to the migrations
// directory and rehashes the directory. It returns the new file's path.
//
// Example:
//
//	path, err := proj.NewMigration("Add VIP flag to users", time.Now())
//	// db/migrations/20250101120000_add_vip_flag_to_users.sql
func (p *Project) NewMigration(name string, now time.Time) (string, error) {
	slug := Slugify(name)
	if slug == "" {
		return "", errors.Wrapf(ErrInvalidMigrationName, "%q", name)
	}

	unit := now.UTC().Format(consts.MigrationTimeFormat) + "_" + slug
	if !migrator.ValidName(unit) {
		return "", errors.Wrapf(ErrInvalidMigrationName, "%q", unit)
	}

	dir := p.MigrationsDir()
	if err := os.MkdirAll(dir, consts.ModeDir); err != nil {
		return "", errors.Wrapf(err, "failed to create migrations directory %s", dir)
	}

	path := filepath.Join(dir, unit+".sql")
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, consts.ModeFile)
	if err != nil {
		return "", errors.Wrapf(err, "failed to create migration: %s", path)
	}

	if _, err := f.Write(migrationTemplate); err != nil {
		_ = f.Close()
		return "", errors.Wrapf(err, "failed to write migration: %s", path)
	}

	if err := f.Close(); err != nil {
		return "", errors.Wrapf(err, "failed to close migration: %s", path)
	}

	if _, err := p.Rehash(); err != nil {
		return "", err
	}

	return path, nil
}

// Slugify lowercases name and collapses every run of other characters into
// a single underscore.
func Slugify(name string) string {
	return strings.Trim(slugPattern.ReplaceAllString(strings.ToLower(name), "_"), "_")
}
