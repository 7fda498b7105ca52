// Package utils provides common utility functions used throughout the dbkeeper codebase.
//
// This package contains shared utilities that are used by multiple packages to avoid
// code duplication and ensure consistent behavior across the application.
//
// # Identifier Utilities (identifier.go)
//
// The identifier utilities provide consistent handling of PostgreSQL identifiers
// and literals, including proper double-quote quoting for names that may contain
// special characters or reserved keywords.
//
//	// Simple identifier
//	name := utils.QuoteIdentifier("users")
//	// Result: "users"
//
//	// Qualified identifier
//	qualified := utils.QuoteIdentifier("public.users")
//	// Result: "public"."users"
//
//	// String literal
//	literal := utils.QuoteLiteral("it's")
//	// Result: 'it''s'
//
// # SQL Builder (sqlbuilder.go)
//
// SQLBuilder assembles single DDL statements from fluent clauses:
//
//	sql := utils.NewSQLBuilder().Drop("TABLE").IfExists().Name("users").String()
//	// Result: DROP TABLE IF EXISTS "users"
//
// # Pointers (ptr.go)
//
//	limit := utils.Ptr(10)
package utils
