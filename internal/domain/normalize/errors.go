package normalize

import (
	"errors"
	"fmt"
)

// ErrMalformedInput is the kind of every error returned by Normalize.
var ErrMalformedInput = errors.New("malformed input")

// MalformedInputError describes where extracted table data broke the expected layout.
// Table and Row are zero-based; Row is -1 when the problem concerns the whole table.
type MalformedInputError struct {
	Table  int
	Row    int
	Reason string
}

func (e *MalformedInputError) Error() string {
	if e.Row < 0 {
		return fmt.Sprintf("malformed input: table %d: %s", e.Table, e.Reason)
	}
	return fmt.Sprintf("malformed input: table %d row %d: %s", e.Table, e.Row, e.Reason)
}

// Unwrap lets callers match with errors.Is(err, ErrMalformedInput).
func (e *MalformedInputError) Unwrap() error { return ErrMalformedInput }

func malformed(table, row int, format string, args ...any) error {
	return &MalformedInputError{Table: table, Row: row, Reason: fmt.Sprintf(format, args...)}
}
