// Package pqerr defines the errors returned by the row-group reader.
// Callers match them with errors.As.
package pqerr

import (
	"fmt"
)

// ConfigError reports a required configuration key that is missing or invalid.
type ConfigError struct {
	Key string
	Msg string
}

func (e *ConfigError) Error() string {
	if e.Key == "" {
		return "config: " + e.Msg
	}
	if e.Msg == "" {
		return fmt.Sprintf("config: %q property is missing", e.Key)
	}
	return fmt.Sprintf("config: %s: %s", e.Key, e.Msg)
}

// IOError reports a byte source that cannot be read or whose footer is
// malformed or truncated.
type IOError struct {
	Op  string
	Err error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// IndexError reports a row group or column index outside the declared bounds.
type IndexError struct {
	Kind  string // "row group" or "column"
	Index int
	Len   int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("%s index %d out of range [0, %d)", e.Kind, e.Index, e.Len)
}

// UnsupportedTypeError reports a column whose physical type has no decode path.
type UnsupportedTypeError struct {
	Column   string
	TypeName string
}

func (e *UnsupportedTypeError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("unsupported physical type %s", e.TypeName)
	}
	return fmt.Sprintf("column %q: unsupported physical type %s", e.Column, e.TypeName)
}

// DecodeIncompleteError reports a column whose decoded row or value count
// disagrees with the row count declared in the footer. The batch containing
// the column must be discarded.
type DecodeIncompleteError struct {
	Column     string
	Expected   int64
	RowsRead   int64
	ValuesRead int64
	// Nulls is the number of rows whose definition level marked them null.
	Nulls int64
}

func (e *DecodeIncompleteError) Error() string {
	return fmt.Sprintf("column %q: decoded %d rows and %d values (%d nulls), footer declares %d rows",
		e.Column, e.RowsRead, e.ValuesRead, e.Nulls, e.Expected)
}
