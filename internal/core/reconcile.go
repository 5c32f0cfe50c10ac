package core

// reconcile.go joins the old and new payroll tables on Employee Number and
// derives each employee's net salary movement.
//
// Join semantics are relational: every (old, new) pair sharing a key yields
// one output row, so a key duplicated 2x in old and 3x in new yields 6 rows.
// Rows whose key is empty never match anything and are only counted.
//
// Output order: old rows in input order, each followed by its matches in new
// input order. In outer mode unmatched new rows ("New Hire") come last.

import (
	"fmt"
	"strings"

	"github.com/JonMunkholm/PayrollRecon/internal/table"
)

// JoinMode selects which employees appear in the reconciliation.
type JoinMode string

const (
	// JoinInner keeps only employees present in both files.
	JoinInner JoinMode = "inner"

	// JoinOuter also keeps employees found in only one file, tagged
	// "Departed" (old only) or "New Hire" (new only).
	JoinOuter JoinMode = "outer"
)

// ParseJoinMode converts a configuration value to a JoinMode. Empty means inner.
func ParseJoinMode(s string) (JoinMode, error) {
	switch JoinMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", JoinInner:
		return JoinInner, nil
	case JoinOuter:
		return JoinOuter, nil
	default:
		return "", fmt.Errorf("unknown join mode %q (use inner or outer)", s)
	}
}

// ReconcileOptions tunes Reconcile.
type ReconcileOptions struct {
	Mode JoinMode

	// AllowEmpty returns an empty reconciliation instead of *EmptyJoinError
	// when no rows are produced.
	AllowEmpty bool
}

// Summary counts what a reconciliation produced.
type Summary struct {
	OldRows     int `json:"old_rows"`
	NewRows     int `json:"new_rows"`
	OldNullKeys int `json:"old_null_keys"`
	NewNullKeys int `json:"new_null_keys"`
	Matched     int `json:"matched"`
	Increases   int `json:"increases"`
	Decreases   int `json:"decreases"`
	Unchanged   int `json:"unchanged"`
	Departed    int `json:"departed"`
	NewHires    int `json:"new_hires"`
}

// Reconciliation is the joined table plus its summary.
type Reconciliation struct {
	Table   *table.Table
	Summary Summary
}

// joinLayout maps input columns to their output names.
type joinLayout struct {
	oldCols []string // non-key columns of old, input order
	newCols []string // non-key columns of new, input order
	oldOut  map[string]string
	newOut  map[string]string
	columns []string
}

func newJoinLayout(oldTbl, newTbl *table.Table) *joinLayout {
	l := &joinLayout{
		oldOut: make(map[string]string),
		newOut: make(map[string]string),
	}

	inNew := make(map[string]bool, len(newTbl.Columns))
	for _, c := range newTbl.Columns {
		if c != KeyColumn {
			inNew[c] = true
			l.newCols = append(l.newCols, c)
		}
	}

	overlap := make(map[string]bool)
	for _, c := range oldTbl.Columns {
		if c == KeyColumn {
			continue
		}
		l.oldCols = append(l.oldCols, c)
		if inNew[c] {
			overlap[c] = true
		}
	}

	// Derived columns keep their names; an input column that would shadow
	// one (a previous report uploaded again) is qualified like an overlap.
	taken := map[string]bool{KeyColumn: true, ColIncreaseDecrease: true, ColDifference: true}
	name := func(c, suffix string, qualify bool) string {
		out := c
		if qualify {
			out = c + suffix
		}
		for taken[out] {
			out += suffix
		}
		taken[out] = true
		return out
	}

	l.columns = append(l.columns, KeyColumn)
	for _, c := range l.oldCols {
		out := name(c, OldSuffix, overlap[c])
		l.oldOut[c] = out
		l.columns = append(l.columns, out)
	}
	for _, c := range l.newCols {
		out := name(c, NewSuffix, overlap[c])
		l.newOut[c] = out
		l.columns = append(l.columns, out)
	}
	l.columns = append(l.columns, ColIncreaseDecrease, ColDifference)

	return l
}

// Reconcile joins old and new on KeyColumn and appends the Increase/Decrease
// delta (new Net Salary - old Net Salary) and its Difference tag to every
// matched row. Both tables must already have passed Validate.
//
// A non-numeric net salary on a matched row fails the whole operation with
// *TypeError; nothing is coerced or skipped.
func Reconcile(oldTbl, newTbl *table.Table, opts ReconcileOptions) (*Reconciliation, error) {
	if opts.Mode == "" {
		opts.Mode = JoinInner
	}

	layout := newJoinLayout(oldTbl, newTbl)

	out, err := table.New(layout.columns)
	if err != nil {
		return nil, fmt.Errorf("reconcile: input columns collide: %w", err)
	}

	sum := Summary{OldRows: oldTbl.Len(), NewRows: newTbl.Len()}

	// Index new rows by key; rows without a key cannot match.
	byKey := make(map[string][]int, newTbl.Len())
	for j, row := range newTbl.Rows {
		key := row.Get(KeyColumn)
		if key.IsNull() {
			sum.NewNullKeys++
			continue
		}
		byKey[key.Key()] = append(byKey[key.Key()], j)
	}
	matchedNew := make([]bool, newTbl.Len())

	for _, oldRow := range oldTbl.Rows {
		key := oldRow.Get(KeyColumn)
		if key.IsNull() {
			sum.OldNullKeys++
			continue
		}

		matches := byKey[key.Key()]
		if len(matches) == 0 {
			sum.Departed++
			if opts.Mode == JoinOuter {
				out.Rows = append(out.Rows, layout.departedRow(key, oldRow))
			}
			continue
		}

		for _, j := range matches {
			matchedNew[j] = true
			row, change, err := layout.joinedRow(key, oldRow, newTbl.Rows[j])
			if err != nil {
				return nil, err
			}
			out.Rows = append(out.Rows, row)

			sum.Matched++
			switch change {
			case ChangeIncrease:
				sum.Increases++
			case ChangeDecrease:
				sum.Decreases++
			default:
				sum.Unchanged++
			}
		}
	}

	for j, newRow := range newTbl.Rows {
		key := newRow.Get(KeyColumn)
		if matchedNew[j] || key.IsNull() {
			continue
		}
		sum.NewHires++
		if opts.Mode == JoinOuter {
			out.Rows = append(out.Rows, layout.newHireRow(key, newRow))
		}
	}

	if out.Len() == 0 && !opts.AllowEmpty {
		return nil, &EmptyJoinError{OldRows: oldTbl.Len(), NewRows: newTbl.Len()}
	}

	return &Reconciliation{Table: out, Summary: sum}, nil
}

func (l *joinLayout) joinedRow(key table.Value, oldRow, newRow table.Row) (table.Row, Change, error) {
	oldSalary := oldRow.Get(ColNetSalary)
	if oldSalary.Kind() != table.Number {
		return nil, "", &TypeError{Input: InputOld, Column: ColNetSalary, Key: key, Value: oldSalary}
	}
	newSalary := newRow.Get(ColNetSalary)
	if newSalary.Kind() != table.Number {
		return nil, "", &TypeError{Input: InputNew, Column: ColNetSalary, Key: key, Value: newSalary}
	}

	delta, _ := newSalary.Sub(oldSalary)
	change := classify(delta.Sign())

	row := l.baseRow(key, oldRow, newRow)
	row[ColIncreaseDecrease] = delta
	row[ColDifference] = table.StringValue(string(change))
	return row, change, nil
}

func (l *joinLayout) departedRow(key table.Value, oldRow table.Row) table.Row {
	row := l.baseRow(key, oldRow, nil)
	row[ColIncreaseDecrease] = table.NullValue()
	row[ColDifference] = table.StringValue(string(ChangeDeparted))
	return row
}

func (l *joinLayout) newHireRow(key table.Value, newRow table.Row) table.Row {
	row := l.baseRow(key, nil, newRow)
	row[ColIncreaseDecrease] = table.NullValue()
	row[ColDifference] = table.StringValue(string(ChangeNewHire))
	return row
}

// baseRow copies the key and both sides' non-key columns. A nil side
// contributes nulls.
func (l *joinLayout) baseRow(key table.Value, oldRow, newRow table.Row) table.Row {
	row := make(table.Row, len(l.columns))
	row[KeyColumn] = key
	for _, c := range l.oldCols {
		row[l.oldOut[c]] = oldRow.Get(c)
	}
	for _, c := range l.newCols {
		row[l.newOut[c]] = newRow.Get(c)
	}
	return row
}
