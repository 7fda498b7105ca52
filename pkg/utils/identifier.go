package utils

import "strings"

// QuoteIdentifier adds double quotes around an identifier, handling qualified names.
// It properly handles schema.table style identifiers by quoting each part and
// doubling any embedded quote characters.
//
// Examples:
//   - "users" -> "\"users\""
//   - "public.users" -> "\"public\".\"users\""
//   - "\"users\"" -> "\"users\"" (already quoted, not double-quoted)
//   - "" -> ""
//
// This function is used throughout the codebase for consistent identifier formatting
// in generated DDL statements.
func QuoteIdentifier(name string) string {
	if name == "" {
		return ""
	}

	if IsQuoted(name) {
		return name
	}

	parts := strings.Split(name, ".")
	for i, part := range parts {
		if IsQuoted(part) {
			continue
		}
		parts[i] = `"` + strings.ReplaceAll(part, `"`, `""`) + `"`
	}
	return strings.Join(parts, ".")
}

// QuoteIdentifiers quotes every name and joins them with ", ", the form used
// for column lists.
//
// Examples:
//   - ["a", "b"] -> "\"a\", \"b\""
func QuoteIdentifiers(names []string) string {
	quoted := make([]string, 0, len(names))
	for _, name := range names {
		quoted = append(quoted, QuoteIdentifier(name))
	}
	return strings.Join(quoted, ", ")
}

// QuoteLiteral returns value as a single-quoted SQL string literal with
// embedded quotes doubled.
//
// Examples:
//   - "active" -> "'active'"
//   - "it's" -> "'it''s'"
func QuoteLiteral(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}

// IsQuoted checks if a string is a single identifier wrapped in double quotes.
//
// Examples:
//   - "\"users\"" -> true
//   - "users" -> false
//   - "\"public\".\"users\"" -> false (qualified name, not a single quoted identifier)
//   - "" -> false
func IsQuoted(s string) bool {
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return false
	}

	// embedded quotes must come in escaped pairs
	inner := s[1 : len(s)-1]
	return !strings.Contains(strings.ReplaceAll(inner, `""`, ""), `"`)
}

// StripQuotes removes identifier quotes if present.
//
// Examples:
//   - "\"users\"" -> "users"
//   - "users" -> "users"
//   - "\"public\".\"users\"" -> "public.users"
func StripQuotes(s string) string {
	parts := strings.Split(s, ".")
	for i, part := range parts {
		if IsQuoted(part) {
			parts[i] = strings.ReplaceAll(part[1:len(part)-1], `""`, `"`)
		}
	}
	return strings.Join(parts, ".")
}
