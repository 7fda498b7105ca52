package utils

import (
	"strings"
)

// SQLBuilder provides a fluent interface for building PostgreSQL DDL statements.
// It handles common patterns like identifier quoting and conditional clause
// building to reduce code duplication across the schema and ledger packages.
//
// Example usage:
//
//	sql := NewSQLBuilder().
//		Create("INDEX").
//		Name("users_email_index").
//		On("users").
//		Columns("email").
//		String()
//	// Output: CREATE INDEX "users_email_index" ON "users" ("email")
type SQLBuilder struct {
	parts []string
}

// NewSQLBuilder creates a new SQLBuilder instance.
//
// Example:
//
//	builder := utils.NewSQLBuilder()
func NewSQLBuilder() *SQLBuilder {
	return &SQLBuilder{
		parts: make([]string, 0, 10),
	}
}

// Create adds a CREATE clause with the specified object type.
//
// Example:
//
//	builder.Create("TABLE")         // CREATE TABLE
//	builder.Create("UNIQUE INDEX")  // CREATE UNIQUE INDEX
func (b *SQLBuilder) Create(objectType string) *SQLBuilder {
	b.parts = append(b.parts, "CREATE", objectType)
	return b
}

// Drop adds a DROP clause with the specified object type.
//
// Example:
//
//	builder.Drop("TABLE")  // DROP TABLE
//	builder.Drop("INDEX")  // DROP INDEX
func (b *SQLBuilder) Drop(objectType string) *SQLBuilder {
	b.parts = append(b.parts, "DROP", objectType)
	return b
}

// Alter adds an ALTER clause with the specified object type.
//
// Example:
//
//	builder.Alter("TABLE")  // ALTER TABLE
func (b *SQLBuilder) Alter(objectType string) *SQLBuilder {
	b.parts = append(b.parts, "ALTER", objectType)
	return b
}

// Rename adds a RENAME clause with the specified object type.
//
// Example:
//
//	builder.Rename("COLUMN")  // RENAME COLUMN
func (b *SQLBuilder) Rename(objectType string) *SQLBuilder {
	b.parts = append(b.parts, "RENAME", objectType)
	return b
}

// Add adds an ADD clause with the specified object type.
//
// Example:
//
//	builder.Add("COLUMN")      // ADD COLUMN
//	builder.Add("CONSTRAINT")  // ADD CONSTRAINT
func (b *SQLBuilder) Add(objectType string) *SQLBuilder {
	b.parts = append(b.parts, "ADD", objectType)
	return b
}

// IfExists adds an IF EXISTS clause. This should be called after DROP operations.
//
// Example:
//
//	builder.Drop("TABLE").IfExists()  // DROP TABLE IF EXISTS
func (b *SQLBuilder) IfExists() *SQLBuilder {
	b.parts = append(b.parts, "IF", "EXISTS")
	return b
}

// Name adds a quoted object name.
//
// Example:
//
//	builder.Name("users")         // "users"
//	builder.Name("public.users")  // "public"."users"
func (b *SQLBuilder) Name(name string) *SQLBuilder {
	if name != "" {
		b.parts = append(b.parts, QuoteIdentifier(name))
	}
	return b
}

// On adds an ON clause naming the target table of an index.
//
// Example:
//
//	builder.On("users")  // ON "users"
func (b *SQLBuilder) On(table string) *SQLBuilder {
	if table != "" {
		b.parts = append(b.parts, "ON", QuoteIdentifier(table))
	}
	return b
}

// Columns adds a parenthesized, quoted column list.
//
// Example:
//
//	builder.Columns("owner_id", "name")  // ("owner_id", "name")
func (b *SQLBuilder) Columns(columns ...string) *SQLBuilder {
	if len(columns) > 0 {
		b.parts = append(b.parts, "("+QuoteIdentifiers(columns)+")")
	}
	return b
}

// To adds a TO clause for rename operations.
//
// Example:
//
//	builder.To("accounts")  // TO "accounts"
func (b *SQLBuilder) To(name string) *SQLBuilder {
	if name != "" {
		b.parts = append(b.parts, "TO", QuoteIdentifier(name))
	}
	return b
}

// Escaped adds an escaped SQL string value with single quotes.
//
// Example:
//
//	builder.Raw("DEFAULT").Escaped("it's")  // DEFAULT 'it''s'
func (b *SQLBuilder) Escaped(value string) *SQLBuilder {
	b.parts = append(b.parts, QuoteLiteral(value))
	return b
}

// Raw adds raw SQL text to the builder. Use sparingly for complex constructs
// that don't fit the fluent pattern.
//
// Example:
//
//	builder.Raw("CASCADE")  // CASCADE
func (b *SQLBuilder) Raw(sql string) *SQLBuilder {
	if sql != "" {
		b.parts = append(b.parts, sql)
	}
	return b
}

// String builds and returns the final SQL statement. Statements are executed
// one at a time through database/sql, so no terminating semicolon is added.
//
// Example:
//
//	sql := builder.Drop("TABLE").Name("users").String()
//	// Returns: DROP TABLE "users"
func (b *SQLBuilder) String() string {
	return strings.Join(b.parts, " ")
}
