// Package dberr defines the error kinds reported by the storage engine.
//
// Every typed error matches its kind sentinel with errors.Is, so callers can
// branch on the kind and still use errors.As to read the details.
package dberr

import (
	"errors"
	"fmt"
)

var (
	ErrSchema     = errors.New("soliddb: schema error")
	ErrArity      = errors.New("soliddb: wrong number of values")
	ErrConstraint = errors.New("soliddb: constraint violation")
	ErrNotFound   = errors.New("soliddb: not found")
	ErrIO         = errors.New("soliddb: i/o error")
	ErrFormat     = errors.New("soliddb: corrupt data")
)

// SchemaError reports an invalid or conflicting table definition.
type SchemaError struct {
	Table  string
	Reason string
}

func (e *SchemaError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("Table '%s' already exists.", e.Table)
	}
	return fmt.Sprintf("table '%s': %s", e.Table, e.Reason)
}

func (e *SchemaError) Is(target error) bool { return target == ErrSchema }

// ArityError reports a row whose value count differs from the column count.
type ArityError struct {
	Want int
	Got  int
}

func (e *ArityError) Error() string {
	return fmt.Sprintf("Expected %d values, got %d", e.Want, e.Got)
}

func (e *ArityError) Is(target error) bool { return target == ErrArity }

type ConstraintKind uint8

const (
	NotNull ConstraintKind = iota + 1
	DuplicatePrimaryKey
	DuplicateUnique
	LineBreak
)

func (k ConstraintKind) String() string {
	switch k {
	case NotNull:
		return "NOT NULL"
	case DuplicatePrimaryKey:
		return "PRIMARY KEY"
	case DuplicateUnique:
		return "UNIQUE"
	case LineBreak:
		return "SINGLE LINE"
	default:
		return "UNKNOWN"
	}
}

// ConstraintViolation reports a row rejected by a column constraint.
type ConstraintViolation struct {
	Kind   ConstraintKind
	Column string
	Value  string
}

func (e *ConstraintViolation) Error() string {
	switch e.Kind {
	case NotNull:
		return fmt.Sprintf("Column '%s' cannot be NULL", e.Column)
	case DuplicatePrimaryKey:
		return fmt.Sprintf("Duplicate primary key value '%s'", e.Value)
	case DuplicateUnique:
		return fmt.Sprintf("Duplicate value '%s' in unique column '%s'", e.Value, e.Column)
	case LineBreak:
		return fmt.Sprintf("Value for column '%s' contains a line break", e.Column)
	default:
		return fmt.Sprintf("constraint violation on column '%s'", e.Column)
	}
}

func (e *ConstraintViolation) Is(target error) bool { return target == ErrConstraint }

// NotFoundError reports a missing table, database or file.
type NotFoundError struct {
	Kind string // "table", "database", "file"
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.Name)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// IOError wraps a failed filesystem operation.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

func (e *IOError) Is(target error) bool { return target == ErrIO }

// FormatError reports corrupt serialized data. Line is 1-based; 0 means the
// error is not tied to a single line.
type FormatError struct {
	Source string
	Line   int
	Err    error
}

func (e *FormatError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %v", e.Source, e.Line, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Source, e.Err)
}

func (e *FormatError) Unwrap() error { return e.Err }

func (e *FormatError) Is(target error) bool { return target == ErrFormat }

// IO is a shorthand used by the persistence code.
func IO(op, path string, err error) error {
	if err == nil {
		return nil
	}
	return &IOError{Op: op, Path: path, Err: err}
}
