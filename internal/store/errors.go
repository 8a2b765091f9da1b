package store

import (
	"errors"
	"fmt"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Error kinds. Every error returned by the store wraps at most one of these;
// test with errors.Is.
var (
	ErrNotFound         = errors.New("not found")
	ErrUniqueConstraint = errors.New("unique constraint violation")
	ErrForeignKey       = errors.New("foreign key violation")
	ErrTransaction      = errors.New("transaction failed")
	ErrConnection       = errors.New("database connection unavailable")
	ErrInvalidInput     = errors.New("invalid input")
)

// EntityError attaches entity and operation context to an error kind.
type EntityError struct {
	Entity string // "list", "task", "label", "subtask", "task label"
	Op     string // "create", "update", "delete", ...
	ID     string
	Detail string
	Err    error
}

// Error implements the error interface.
func (e *EntityError) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	b.WriteString(" ")
	b.WriteString(e.Entity)
	if e.ID != "" {
		b.WriteString(" ")
		b.WriteString(e.ID)
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying kind or cause.
func (e *EntityError) Unwrap() error {
	return e.Err
}

// StatementError wraps an engine failure together with the SQL that caused
// it. Kind is set when the engine error maps onto one of the store's error
// kinds (for example a UNIQUE constraint).
type StatementError struct {
	SQL  string
	Kind error
	Err  error
}

// Error implements the error interface.
func (e *StatementError) Error() string {
	return fmt.Sprintf("executing %q: %v", compactSQL(e.SQL), e.Err)
}

// Unwrap exposes both the classified kind and the raw engine error.
func (e *StatementError) Unwrap() []error {
	if e.Kind == nil {
		return []error{e.Err}
	}
	return []error{e.Kind, e.Err}
}

// stmtErr wraps err with its statement and classifies engine constraint
// failures. It returns nil for a nil err.
func stmtErr(query string, err error) error {
	if err == nil {
		return nil
	}
	return &StatementError{SQL: query, Kind: classify(err), Err: err}
}

// classify maps SQLite result codes onto error kinds.
func classify(err error) error {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return nil
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return ErrUniqueConstraint
	case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
		return ErrForeignKey
	}
	// Primary code only; extended codes were not reported.
	if se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT {
		msg := se.Error()
		switch {
		case strings.Contains(msg, "UNIQUE"):
			return ErrUniqueConstraint
		case strings.Contains(msg, "FOREIGN KEY"):
			return ErrForeignKey
		}
	}
	return nil
}

func notFound(entity, op, id string) error {
	return &EntityError{Entity: entity, Op: op, ID: id, Err: ErrNotFound}
}

func invalid(entity, op, id, detail string) error {
	return &EntityError{Entity: entity, Op: op, ID: id, Detail: detail, Err: ErrInvalidInput}
}

// compactSQL collapses whitespace so statements read on one log line.
func compactSQL(query string) string {
	return strings.Join(strings.Fields(query), " ")
}
