// Package table provides the in-memory tabular model used by the reconciler,
// together with the spreadsheet loader and serializer that convert between
// uploaded byte streams (XLSX or CSV) and that model.
package table

import (
	"fmt"
	"strings"
)

// Row maps column name to cell value. A column missing from the map is null.
type Row map[string]Value

// Get returns the value of column col, or null if the row has none.
func (r Row) Get(col string) Value {
	return r[col]
}

// Table is an ordered sequence of rows sharing one ordered set of column names.
type Table struct {
	Columns []string
	Rows    []Row

	index map[string]int
}

// New creates an empty table with the given columns.
// Column names must be unique and non-blank.
func New(columns []string) (*Table, error) {
	index := make(map[string]int, len(columns))
	for i, c := range columns {
		if strings.TrimSpace(c) == "" {
			return nil, fmt.Errorf("blank column name at position %d", i+1)
		}
		if _, dup := index[c]; dup {
			return nil, fmt.Errorf("duplicate column name %q", c)
		}
		index[c] = i
	}

	cols := make([]string, len(columns))
	copy(cols, columns)

	return &Table{Columns: cols, index: index}, nil
}

// MustNew is like New but panics on error. Intended for fixed column sets.
func MustNew(columns ...string) *Table {
	t, err := New(columns)
	if err != nil {
		panic(err)
	}
	return t
}

// HasColumn reports whether the table exposes column name.
func (t *Table) HasColumn(name string) bool {
	if t.index == nil {
		for _, c := range t.Columns {
			if c == name {
				return true
			}
		}
		return false
	}
	_, ok := t.index[name]
	return ok
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// Append adds a row. Keys that are not columns of the table are rejected so
// the table stays rectangular.
func (t *Table) Append(r Row) error {
	for k := range r {
		if !t.HasColumn(k) {
			return fmt.Errorf("row has unknown column %q", k)
		}
	}
	t.Rows = append(t.Rows, r)
	return nil
}

// Record returns row i as an ordered slice aligned with Columns.
func (t *Table) Record(i int) []Value {
	rec := make([]Value, len(t.Columns))
	for j, c := range t.Columns {
		rec[j] = t.Rows[i].Get(c)
	}
	return rec
}
