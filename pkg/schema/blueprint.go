package schema

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/zenyx/dbkeeper/pkg/utils"
)

const (
	defaultStringLength = 255
	defaultPrecision    = 10
	defaultScale        = 2
)

type (
	// Blueprint collects the column, index, and foreign key declarations made
	// inside a Create or Alter callback. Nothing is rendered or executed until
	// the callback returns.
	//
	// Example usage:
	//
	//	err := s.Create(ctx, "plans", func(bp *schema.Blueprint) {
	//		bp.ID()
	//		bp.ForeignID("bot_id")
	//		bp.String("name", 100)
	//		bp.Decimal("price", 10, 2)
	//		bp.Integer("duration")
	//		bp.Foreign("bot_id").References("id").On("managed_bots").OnDelete("cascade").Add()
	//		bp.Index("", "bot_id")
	//	})
	Blueprint struct {
		table string
		alter bool
		err   error

		columns     []*Column
		indexes     []*Index
		foreigns    []*ForeignKey
		foreignKeys []*ForeignKey

		dropForeign []string
		dropIndex   []string
		dropColumn  []string
		renames     [][2]string
	}

	// Index is a named index over one or more columns.
	Index struct {
		Name    string
		Columns []string
		Unique  bool
	}
)

// NewBlueprint returns an empty blueprint for table. Alter blueprints render
// ALTER TABLE statements, others render CREATE TABLE.
func NewBlueprint(table string, alter bool) *Blueprint {
	return &Blueprint{table: table, alter: alter}
}

// Table returns the table the blueprint targets.
func (b *Blueprint) Table() string {
	return b.table
}

// Err returns the first error recorded while declaring the blueprint.
func (b *Blueprint) Err() error {
	return b.err
}

// ID declares an auto-incrementing BIGSERIAL primary key named "id", or the
// given name.
func (b *Blueprint) ID(name ...string) *Column {
	col := "id"
	if len(name) > 0 && name[0] != "" {
		col = name[0]
	}

	c := b.addColumn(col, "BIGSERIAL")
	c.primary = true
	return c
}

// String declares a VARCHAR column. The length defaults to 255.
func (b *Blueprint) String(name string, length ...int) *Column {
	n := defaultStringLength
	if len(length) > 0 && length[0] > 0 {
		n = length[0]
	}
	return b.addColumn(name, fmt.Sprintf("VARCHAR(%d)", n))
}

// Text declares a TEXT column.
func (b *Blueprint) Text(name string) *Column {
	return b.addColumn(name, "TEXT")
}

// Integer declares an INTEGER column.
func (b *Blueprint) Integer(name string) *Column {
	return b.addColumn(name, "INTEGER")
}

// BigInteger declares a BIGINT column.
func (b *Blueprint) BigInteger(name string) *Column {
	return b.addColumn(name, "BIGINT")
}

// ForeignID declares a BIGINT column meant to hold a reference to another
// table's ID. The constraint itself is declared with Foreign.
func (b *Blueprint) ForeignID(name string) *Column {
	return b.addColumn(name, "BIGINT")
}

// Boolean declares a BOOLEAN column.
func (b *Blueprint) Boolean(name string) *Column {
	return b.addColumn(name, "BOOLEAN")
}

// Decimal declares a NUMERIC column. Precision and scale default to 10 and 2
// when zero.
func (b *Blueprint) Decimal(name string, precision, scale int) *Column {
	if precision <= 0 {
		precision = defaultPrecision
		if scale <= 0 {
			scale = defaultScale
		}
	}
	return b.addColumn(name, fmt.Sprintf("NUMERIC(%d,%d)", precision, scale))
}

// Enum declares a VARCHAR column restricted to values by a CHECK constraint.
func (b *Blueprint) Enum(name string, values ...string) *Column {
	c := b.addColumn(name, fmt.Sprintf("VARCHAR(%d)", defaultStringLength))

	quoted := make([]string, 0, len(values))
	for _, v := range values {
		quoted = append(quoted, utils.QuoteLiteral(v))
	}
	c.check = utils.QuoteIdentifier(name) + " IN (" + strings.Join(quoted, ", ") + ")"
	return c
}

// JSON declares a JSONB column.
func (b *Blueprint) JSON(name string) *Column {
	return b.addColumn(name, "JSONB")
}

// Timestamp declares a TIMESTAMPTZ column.
func (b *Blueprint) Timestamp(name string) *Column {
	return b.addColumn(name, "TIMESTAMPTZ")
}

// Date declares a DATE column.
func (b *Blueprint) Date(name string) *Column {
	return b.addColumn(name, "DATE")
}

// UUID declares a UUID column.
func (b *Blueprint) UUID(name string) *Column {
	return b.addColumn(name, "UUID")
}

// Timestamps declares created_at and updated_at, both defaulting to the
// current time.
func (b *Blueprint) Timestamps() {
	b.Timestamp("created_at").UseCurrent()
	b.Timestamp("updated_at").UseCurrent()
}

// Column returns a handle to a column declared earlier in this blueprint.
// When no such column exists, the returned handle is detached and any
// modifier applied to it records ErrNoActiveColumn.
func (b *Blueprint) Column(name string) *Column {
	for _, c := range b.columns {
		if c.name == name {
			return c
		}
	}
	return &Column{bp: b, name: name, detached: true}
}

// Index declares an index. An empty name generates <table>_<columns>_index.
func (b *Blueprint) Index(name string, columns ...string) *Index {
	return b.addIndex(name, columns, false)
}

// UniqueIndex declares a unique index. An empty name generates
// <table>_<columns>_unique.
func (b *Blueprint) UniqueIndex(name string, columns ...string) *Index {
	return b.addIndex(name, columns, true)
}

// Foreign starts a foreign key on column. The key must be finished with Add.
func (b *Blueprint) Foreign(column string) *ForeignKey {
	f := &ForeignKey{bp: b, column: column}
	b.foreigns = append(b.foreigns, f)
	return f
}

// DropForeign drops a foreign key constraint by name.
func (b *Blueprint) DropForeign(name string) {
	if b.requireAlter("DropForeign") {
		b.dropForeign = append(b.dropForeign, name)
	}
}

// DropIndex drops an index by name.
func (b *Blueprint) DropIndex(name string) {
	if b.requireAlter("DropIndex") {
		b.dropIndex = append(b.dropIndex, name)
	}
}

// DropColumn drops one or more columns.
func (b *Blueprint) DropColumn(names ...string) {
	if b.requireAlter("DropColumn") {
		b.dropColumn = append(b.dropColumn, names...)
	}
}

// RenameColumn renames a column.
func (b *Blueprint) RenameColumn(from, to string) {
	if b.requireAlter("RenameColumn") {
		b.renames = append(b.renames, [2]string{from, to})
	}
}

// ToSQL renders the blueprint into the statements Create or Alter will
// execute, in order.
//
// Create renders a single CREATE TABLE holding every column and foreign key,
// followed by one CREATE INDEX per index. Alter renders drops and renames
// first, then one statement per added column, index, and foreign key, in that
// order. Column comments are rendered last in both cases.
func (b *Blueprint) ToSQL() ([]string, error) {
	if b.err != nil {
		return nil, b.err
	}

	for _, f := range b.foreigns {
		if err := f.validate(); err != nil {
			return nil, err
		}
	}

	var stmts []string
	if b.alter {
		stmts = b.alterStatements()
	} else {
		stmts = b.createStatements()
	}

	for _, idx := range b.indexes {
		stmts = append(stmts, b.indexStatement(idx))
	}

	if b.alter {
		for _, f := range b.foreignKeys {
			stmts = append(stmts, b.alterTable().Add("CONSTRAINT").Name(f.constraintName()).Raw(f.clause()).String())
		}
	}

	for _, c := range b.columns {
		if c.comment != "" {
			target := utils.QuoteIdentifier(b.table) + "." + utils.QuoteIdentifier(c.name)
			stmts = append(stmts, utils.NewSQLBuilder().Raw("COMMENT ON COLUMN").Raw(target).Raw("IS").Escaped(c.comment).String())
		}
	}

	return stmts, nil
}

func (b *Blueprint) createStatements() []string {
	defs := make([]string, 0, len(b.columns)+len(b.foreignKeys))
	for _, c := range b.columns {
		defs = append(defs, c.definition())
	}
	for _, f := range b.foreignKeys {
		defs = append(defs, f.constraint())
	}

	return []string{
		utils.NewSQLBuilder().Create("TABLE").Name(b.table).Raw("(" + strings.Join(defs, ", ") + ")").String(),
	}
}

func (b *Blueprint) alterStatements() []string {
	var stmts []string

	for _, name := range b.dropForeign {
		stmts = append(stmts, b.alterTable().Drop("CONSTRAINT").Name(name).String())
	}

	for _, name := range b.dropIndex {
		stmts = append(stmts, utils.NewSQLBuilder().Drop("INDEX").Name(name).String())
	}

	if len(b.dropColumn) > 0 {
		drops := make([]string, 0, len(b.dropColumn))
		for _, name := range b.dropColumn {
			drops = append(drops, "DROP COLUMN "+utils.QuoteIdentifier(name))
		}
		stmts = append(stmts, b.alterTable().Raw(strings.Join(drops, ", ")).String())
	}

	for _, r := range b.renames {
		stmts = append(stmts, b.alterTable().Rename("COLUMN").Name(r[0]).To(r[1]).String())
	}

	for _, c := range b.columns {
		stmts = append(stmts, b.alterTable().Add("COLUMN").Raw(c.definition()).String())
	}

	return stmts
}

func (b *Blueprint) indexStatement(idx *Index) string {
	kind := "INDEX"
	if idx.Unique {
		kind = "UNIQUE INDEX"
	}

	return utils.NewSQLBuilder().
		Create(kind).
		Name(idx.Name).
		On(b.table).
		Columns(idx.Columns...).
		String()
}

func (b *Blueprint) alterTable() *utils.SQLBuilder {
	return utils.NewSQLBuilder().Alter("TABLE").Name(b.table)
}

func (b *Blueprint) addColumn(name, sqlType string) *Column {
	c := &Column{bp: b, name: name, sqlType: sqlType}
	b.columns = append(b.columns, c)
	return c
}

func (b *Blueprint) addIndex(name string, columns []string, unique bool) *Index {
	if name == "" {
		suffix := "index"
		if unique {
			suffix = "unique"
		}
		name = indexName(b.table, columns, suffix)
	}

	idx := &Index{Name: name, Columns: columns, Unique: unique}
	b.indexes = append(b.indexes, idx)
	return idx
}

func (b *Blueprint) requireAlter(op string) bool {
	if !b.alter {
		b.fail(errors.Wrapf(ErrAlterOnly, "%s on %q", op, b.table))
		return false
	}
	return true
}

// fail records the first error; later errors are dropped.
func (b *Blueprint) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

func indexName(table string, columns []string, suffix string) string {
	parts := append([]string{strings.ReplaceAll(table, ".", "_")}, columns...)
	return strings.ToLower(strings.Join(append(parts, suffix), "_"))
}
