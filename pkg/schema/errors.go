package schema

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrNoActiveColumn is recorded when a modifier is applied to a column
	// handle that does not refer to a column declared in the blueprint.
	ErrNoActiveColumn = errors.New("no active column")

	// ErrIncompleteForeignKey is returned when a foreign key was started but
	// never added, or added without a referenced column and table.
	ErrIncompleteForeignKey = errors.New("incomplete foreign key")

	// ErrAlterOnly is recorded when a drop or rename operation is used inside
	// Create.
	ErrAlterOnly = errors.New("operation is only valid in Alter")
)

// SchemaError reports a statement rejected by the database.
type SchemaError struct {
	// Statement is the rendered DDL that failed.
	Statement string
	// Code is the PostgreSQL SQLSTATE, when the driver exposes one.
	Code string
	// Err is the driver error.
	Err error
}

func (e *SchemaError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("schema statement failed (SQLSTATE %s): %s: %v", e.Code, e.Statement, e.Err)
	}
	return fmt.Sprintf("schema statement failed: %s: %v", e.Statement, e.Err)
}

func (e *SchemaError) Unwrap() error {
	return e.Err
}
