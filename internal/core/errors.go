package core

import (
	"fmt"
	"strings"

	"github.com/JonMunkholm/PayrollRecon/internal/table"
)

// ValidationError reports required columns absent from an input table.
// Missing keeps the order of the required column list.
type ValidationError struct {
	Input   string
	Missing []string
}

func (e *ValidationError) Error() string {
	if len(e.Missing) == 1 {
		return fmt.Sprintf("%s file: missing required column %q", e.Input, e.Missing[0])
	}
	quoted := make([]string, len(e.Missing))
	for i, m := range e.Missing {
		quoted[i] = fmt.Sprintf("%q", m)
	}
	return fmt.Sprintf("%s file: missing required columns %s", e.Input, strings.Join(quoted, ", "))
}

// Column returns the first missing column.
func (e *ValidationError) Column() string {
	if len(e.Missing) == 0 {
		return ""
	}
	return e.Missing[0]
}

// TypeError reports a salary cell that cannot take part in arithmetic.
type TypeError struct {
	Input  string
	Column string
	Key    table.Value
	Value  table.Value
}

func (e *TypeError) Error() string {
	what := fmt.Sprintf("non-numeric value %q", e.Value.String())
	if e.Value.IsNull() {
		what = "empty value"
	}
	return fmt.Sprintf("%s file: %s in column %q for employee %s", e.Input, what, e.Column, e.Key.String())
}

// EmptyJoinError reports that no employee appears in both inputs.
type EmptyJoinError struct {
	OldRows int
	NewRows int
}

func (e *EmptyJoinError) Error() string {
	return fmt.Sprintf("no employees matched on %q (old file: %d rows, new file: %d rows)",
		KeyColumn, e.OldRows, e.NewRows)
}
