package migrator

import (
	"context"
	"io"
	"io/fs"
	"path"
	"strings"

	"github.com/pkg/errors"
	"github.com/zenyx/dbkeeper/pkg/consts"
	"github.com/zenyx/dbkeeper/pkg/parser"
	"github.com/zenyx/dbkeeper/pkg/schema"
)

// ErrSumMismatch is returned by Dir.Validate when migration files changed
// since the sum file was written.
var ErrSumMismatch = errors.New("migration files do not match the sum file")

// Dir is a directory of SQL migration files.
type Dir struct {
	// Units holds one unit per .sql file, in lexical order.
	Units []Unit

	// SumFile is computed from the files currently on disk.
	SumFile *SumFile

	// stored is the sum file found in the directory, if any.
	stored *SumFile
}

// LoadDir loads every .sql file in fsys as a migration unit named after the
// file (without extension). If the directory contains a sum file it is
// loaded too so Validate can detect edited files.
//
// Example usage:
//
//	dir, err := migrator.LoadDir(os.DirFS("db/migrations"))
//	if err != nil {
//		return err
//	}
//
//	if err := dir.Validate(); err != nil {
//		return err
//	}
//
//	registry, err := migrator.NewRegistry(dir.Units...)
func LoadDir(fsys fs.FS) (*Dir, error) {
	dir := &Dir{SumFile: NewSumFile()}

	// NB: WalkDir always walks in lexical order.
	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			return nil
		}

		switch {
		case d.Name() == consts.SumFileName:
			f, err := fsys.Open(p)
			if err != nil {
				return errors.Wrapf(err, "failed to open: %s", p)
			}
			defer func() { _ = f.Close() }()

			dir.stored, err = LoadSumFile(f)
			return errors.Wrapf(err, "failed to load sum file: %s", p)
		case path.Ext(p) == ".sql":
			content, err := fs.ReadFile(fsys, p)
			if err != nil {
				return errors.Wrapf(err, "failed to read migration: %s", p)
			}

			unit, err := LoadUnit(strings.TrimSuffix(d.Name(), ".sql"), strings.NewReader(string(content)))
			if err != nil {
				return errors.Wrapf(err, "failed to load migration: %s", p)
			}

			dir.Units = append(dir.Units, unit)
			dir.SumFile.AddFile(p, content)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return dir, nil
}

// HasSumFile reports whether the directory contained a sum file.
func (d *Dir) HasSumFile() bool {
	return d.stored != nil
}

// Validate compares the files on disk with the stored sum file. A directory
// without a sum file is always valid.
func (d *Dir) Validate() error {
	if d.stored == nil || d.stored.Equal(d.SumFile) {
		return nil
	}

	return errors.Wrapf(ErrSumMismatch, "changed: %s", strings.Join(d.stored.Diff(d.SumFile), ", "))
}

// LoadUnit builds a unit from a migration file with -- +migrate Up and
// -- +migrate Down sections. A file without a Down section produces a unit
// whose Revert returns ErrIrreversible.
func LoadUnit(name string, r io.Reader) (Unit, error) {
	m, err := parser.Parse(r)
	if err != nil {
		return Unit{}, errors.Wrapf(err, "failed to parse: %s.sql", name)
	}

	unit := Unit{
		Name:   name,
		Apply:  execAll(m.Up),
		Revert: Irreversible(name),
	}

	if m.HasDown {
		unit.Revert = execAll(m.Down)
	}

	return unit, nil
}

func execAll(stmts []string) Func {
	return func(ctx context.Context, s *schema.Builder) error {
		for _, stmt := range stmts {
			if err := s.Exec(ctx, stmt); err != nil {
				return err
			}
		}
		return nil
	}
}
