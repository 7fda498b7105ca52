package schema

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/zenyx/dbkeeper/pkg/utils"
)

// ForeignKey builds a foreign key constraint. It is not part of the table
// until Add is called.
//
//	bp.Foreign("owner_id").References("id").On("users").OnDelete("cascade").Add()
type ForeignKey struct {
	bp *Blueprint

	name      string
	column    string
	refColumn string
	refTable  string
	onDelete  string
	onUpdate  string
	added     bool
}

// References sets the referenced column.
func (f *ForeignKey) References(column string) *ForeignKey {
	f.refColumn = column
	return f
}

// On sets the referenced table.
func (f *ForeignKey) On(table string) *ForeignKey {
	f.refTable = table
	return f
}

// OnDelete sets the ON DELETE action, e.g. "cascade" or "set null".
func (f *ForeignKey) OnDelete(action string) *ForeignKey {
	f.onDelete = strings.ToUpper(action)
	return f
}

// OnUpdate sets the ON UPDATE action.
func (f *ForeignKey) OnUpdate(action string) *ForeignKey {
	f.onUpdate = strings.ToUpper(action)
	return f
}

// Name overrides the generated constraint name (<table>_<column>_foreign).
func (f *ForeignKey) Name(name string) *ForeignKey {
	f.name = name
	return f
}

// Add attaches the foreign key to its blueprint. Adding twice is a no-op.
func (f *ForeignKey) Add() {
	if f.added {
		return
	}

	f.added = true
	f.bp.foreignKeys = append(f.bp.foreignKeys, f)
}

func (f *ForeignKey) constraintName() string {
	if f.name != "" {
		return f.name
	}
	return indexName(f.bp.table, []string{f.column}, "foreign")
}

func (f *ForeignKey) validate() error {
	if !f.added {
		return errors.Wrapf(ErrIncompleteForeignKey, "foreign key on %q was never added", f.column)
	}

	if f.refColumn == "" || f.refTable == "" {
		return errors.Wrapf(ErrIncompleteForeignKey, "foreign key on %q needs References and On", f.column)
	}

	return nil
}

// constraint renders the table constraint form used inside CREATE TABLE.
func (f *ForeignKey) constraint() string {
	return "CONSTRAINT " + utils.QuoteIdentifier(f.constraintName()) + " " + f.clause()
}

func (f *ForeignKey) clause() string {
	var sql strings.Builder

	sql.WriteString("FOREIGN KEY (")
	sql.WriteString(utils.QuoteIdentifier(f.column))
	sql.WriteString(") REFERENCES ")
	sql.WriteString(utils.QuoteIdentifier(f.refTable))
	sql.WriteString(" (")
	sql.WriteString(utils.QuoteIdentifier(f.refColumn))
	sql.WriteString(")")

	if f.onDelete != "" {
		sql.WriteString(" ON DELETE ")
		sql.WriteString(f.onDelete)
	}

	if f.onUpdate != "" {
		sql.WriteString(" ON UPDATE ")
		sql.WriteString(f.onUpdate)
	}

	return sql.String()
}
