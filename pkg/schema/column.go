package schema

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/zenyx/dbkeeper/pkg/utils"
)

type (
	// Column is a handle to one declared column. Modifiers mutate only the
	// column the handle refers to and return the same handle for chaining.
	//
	//	bp.String("username", 64).Nullable().Unique()
	//	bp.Decimal("balance", 12, 2).Default(0)
	Column struct {
		bp       *Blueprint
		detached bool

		name       string
		sqlType    string
		primary    bool
		nullable   bool
		hasDefault bool
		def        any
		unique     bool
		useCurrent bool
		comment    string
		check      string
	}

	// Expr is a default value rendered verbatim instead of as a literal.
	//
	//	bp.UUID("token").Default(schema.Expr("gen_random_uuid()"))
	Expr string
)

// Name returns the column name.
func (c *Column) Name() string {
	return c.name
}

// Nullable allows NULL values in the column.
func (c *Column) Nullable() *Column {
	if c.active() {
		c.nullable = true
	}
	return c
}

// Default sets the column default. Strings are quoted, numbers and booleans
// are rendered as-is, Expr values are rendered verbatim.
func (c *Column) Default(v any) *Column {
	if c.active() {
		c.hasDefault = true
		c.def = v
	}
	return c
}

// Unique adds a UNIQUE constraint to the column.
func (c *Column) Unique() *Column {
	if c.active() {
		c.unique = true
	}
	return c
}

// UseCurrent defaults the column to CURRENT_TIMESTAMP.
func (c *Column) UseCurrent() *Column {
	if c.active() {
		c.useCurrent = true
	}
	return c
}

// Comment attaches a COMMENT ON COLUMN to the column.
func (c *Column) Comment(text string) *Column {
	if c.active() {
		c.comment = text
	}
	return c
}

func (c *Column) active() bool {
	if c.detached {
		c.bp.fail(errors.Wrapf(ErrNoActiveColumn, "column %q", c.name))
		return false
	}
	return true
}

func (c *Column) definition() string {
	var sql strings.Builder

	sql.WriteString(utils.QuoteIdentifier(c.name))
	sql.WriteString(" ")
	sql.WriteString(c.sqlType)

	if c.primary {
		sql.WriteString(" PRIMARY KEY")
		return sql.String()
	}

	if !c.nullable {
		sql.WriteString(" NOT NULL")
	}

	switch {
	case c.useCurrent:
		sql.WriteString(" DEFAULT CURRENT_TIMESTAMP")
	case c.hasDefault:
		sql.WriteString(" DEFAULT ")
		sql.WriteString(formatDefault(c.def))
	}

	if c.unique {
		sql.WriteString(" UNIQUE")
	}

	if c.check != "" {
		sql.WriteString(" CHECK (")
		sql.WriteString(c.check)
		sql.WriteString(")")
	}

	return sql.String()
}

func formatDefault(v any) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case Expr:
		return string(val)
	case string:
		return utils.QuoteLiteral(val)
	case bool:
		if val {
			return "TRUE"
		}
		return "FALSE"
	case int:
		return strconv.Itoa(val)
	case int32:
		return strconv.FormatInt(int64(val), 10)
	case int64:
		return strconv.FormatInt(val, 10)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case time.Time:
		return utils.QuoteLiteral(val.UTC().Format(time.RFC3339Nano))
	case fmt.Stringer:
		return utils.QuoteLiteral(val.String())
	default:
		return utils.QuoteLiteral(fmt.Sprint(val))
	}
}
