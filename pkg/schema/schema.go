package schema

import (
	"context"
	"database/sql"
	"strings"

	"github.com/pkg/errors"
	"github.com/zenyx/dbkeeper/pkg/database"
	"github.com/zenyx/dbkeeper/pkg/utils"
)

type (
	// DB is the statement surface the Builder needs. *txn.Manager, *sql.Conn,
	// *sql.Tx, and *sql.DB all satisfy it.
	DB interface {
		ExecContext(context.Context, string, ...any) (sql.Result, error)
		QueryRowContext(context.Context, string, ...any) *sql.Row
	}

	// Builder executes schema changes described with Blueprints.
	//
	// Migration units receive a Builder bound to the executor's transaction
	// manager, so every statement it issues shares the unit's transaction.
	//
	// Example usage:
	//
	//	s := schema.NewBuilder(tm)
	//
	//	err := s.Create(ctx, "users", func(bp *schema.Blueprint) {
	//		bp.ID()
	//		bp.BigInteger("telegram_id").Unique()
	//		bp.String("username").Nullable()
	//		bp.Boolean("is_admin").Default(false)
	//		bp.Timestamps()
	//	})
	Builder struct {
		db DB
	}
)

// NewBuilder returns a Builder issuing statements through db.
func NewBuilder(db DB) *Builder {
	return &Builder{db: db}
}

// Create builds a CREATE TABLE from fn's declarations and executes it,
// followed by the table's indexes.
func (s *Builder) Create(ctx context.Context, table string, fn func(*Blueprint)) error {
	return s.build(ctx, NewBlueprint(table, false), fn)
}

// Alter executes one ALTER TABLE (or CREATE INDEX) statement per declaration
// made by fn: columns first, then indexes, then foreign keys.
func (s *Builder) Alter(ctx context.Context, table string, fn func(*Blueprint)) error {
	return s.build(ctx, NewBlueprint(table, true), fn)
}

// Drop drops table.
func (s *Builder) Drop(ctx context.Context, table string) error {
	return s.Exec(ctx, utils.NewSQLBuilder().Drop("TABLE").Name(table).String())
}

// DropIfExists drops table when it exists.
func (s *Builder) DropIfExists(ctx context.Context, table string) error {
	return s.Exec(ctx, utils.NewSQLBuilder().Drop("TABLE").IfExists().Name(table).String())
}

// Rename renames table from to to.
func (s *Builder) Rename(ctx context.Context, from, to string) error {
	return s.Exec(ctx, utils.NewSQLBuilder().Alter("TABLE").Name(from).Raw("RENAME").To(to).String())
}

// HasTable reports whether table exists in the search path.
func (s *Builder) HasTable(ctx context.Context, table string) (bool, error) {
	const query = "SELECT to_regclass($1) IS NOT NULL"

	var exists bool
	if err := s.db.QueryRowContext(ctx, query, utils.QuoteIdentifier(table)).Scan(&exists); err != nil {
		return false, errors.Wrapf(err, "failed to check for table %s", table)
	}
	return exists, nil
}

// HasColumn reports whether table has column. Unqualified tables are looked
// up in the current schema.
func (s *Builder) HasColumn(ctx context.Context, table, column string) (bool, error) {
	const query = "SELECT EXISTS (SELECT 1 FROM information_schema.columns " +
		"WHERE table_schema = COALESCE(NULLIF($1, ''), current_schema()) AND table_name = $2 AND column_name = $3)"

	var namespace string
	name := utils.StripQuotes(table)
	if i := strings.LastIndex(name, "."); i >= 0 {
		namespace, name = name[:i], name[i+1:]
	}

	var exists bool
	if err := s.db.QueryRowContext(ctx, query, namespace, name, column).Scan(&exists); err != nil {
		return false, errors.Wrapf(err, "failed to check for column %s.%s", table, column)
	}
	return exists, nil
}

// Exec executes a raw statement. A rejected statement is returned as a
// *SchemaError.
func (s *Builder) Exec(ctx context.Context, stmt string, args ...any) error {
	if _, err := s.db.ExecContext(ctx, stmt, args...); err != nil {
		return &SchemaError{
			Statement: stmt,
			Code:      database.SQLState(err),
			Err:       err,
		}
	}
	return nil
}

func (s *Builder) build(ctx context.Context, bp *Blueprint, fn func(*Blueprint)) error {
	fn(bp)

	stmts, err := bp.ToSQL()
	if err != nil {
		return err
	}

	for _, stmt := range stmts {
		if err := s.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
