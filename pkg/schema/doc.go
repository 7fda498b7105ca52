// Package schema provides a fluent DSL for describing PostgreSQL table
// changes inside migration units.
//
// A Blueprint collects declarations made in a callback. Column declarations
// return a *Column handle that modifiers operate on, and foreign keys are
// built with Foreign and attached with an explicit Add. Nothing is executed
// until the callback returns, at which point the Builder renders the
// blueprint and runs each statement in order.
//
//	err := s.Alter(ctx, "users", func(bp *schema.Blueprint) {
//		bp.ForeignID("referrer_id").Nullable()
//		bp.Index("", "referrer_id")
//		bp.Foreign("referrer_id").References("id").On("users").OnDelete("set null").Add()
//	})
//
// Programming mistakes, such as modifying an undeclared column or leaving a
// foreign key unfinished, fail before any statement runs. Statements rejected
// by the database are returned as *SchemaError carrying the statement text
// and SQLSTATE.
package schema
