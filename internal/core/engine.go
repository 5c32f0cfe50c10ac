package core

// engine.go wires the reconciliation pipeline:
//
//	load old, load new -> validate old, validate new -> reconcile -> shape -> serialize
//
// Each stage is a single failure exit; no partial report is ever produced.
// The engine holds no mutable state and performs no I/O, so one Engine may
// serve any number of concurrent calls.

import (
	"fmt"

	"github.com/JonMunkholm/PayrollRecon/internal/table"
)

// Options configures an Engine.
type Options struct {
	Reconcile ReconcileOptions

	// Format of the serialized report. Empty means "same as the new input".
	Format table.Format

	// RequiredColumns overrides the default required column set.
	RequiredColumns []string
}

// Engine runs reconciliations.
type Engine struct {
	opts Options
}

// NewEngine returns an Engine with opts.
func NewEngine(opts Options) *Engine {
	if len(opts.RequiredColumns) == 0 {
		opts.RequiredColumns = RequiredColumns
	}
	if opts.Reconcile.Mode == "" {
		opts.Reconcile.Mode = JoinInner
	}
	return &Engine{opts: opts}
}

// Options returns the effective engine options.
func (e *Engine) Options() Options {
	return e.opts
}

// Result is a completed reconciliation.
type Result struct {
	Report  *table.Table
	Data    []byte
	Format  table.Format
	Summary Summary
}

// Run reconciles two spreadsheet documents and returns the serialized report.
func (e *Engine) Run(oldData, newData []byte) (*Result, error) {
	oldTbl, _, err := table.Load(oldData)
	if err != nil {
		return nil, fmt.Errorf("%s file: %w", InputOld, err)
	}

	newTbl, newFormat, err := table.Load(newData)
	if err != nil {
		return nil, fmt.Errorf("%s file: %w", InputNew, err)
	}

	report, sum, err := e.Compare(oldTbl, newTbl)
	if err != nil {
		return nil, err
	}

	format := e.opts.Format
	if format == "" {
		format = newFormat
	}

	data, err := table.Serialize(report, format)
	if err != nil {
		return nil, err
	}

	return &Result{
		Report:  report,
		Data:    data,
		Format:  format,
		Summary: sum,
	}, nil
}

// Compare validates both tables, reconciles them and shapes the report.
// Neither table is joined unless both pass validation.
func (e *Engine) Compare(oldTbl, newTbl *table.Table) (*table.Table, Summary, error) {
	if err := Validate(oldTbl, InputOld, e.opts.RequiredColumns); err != nil {
		return nil, Summary{}, err
	}
	if err := Validate(newTbl, InputNew, e.opts.RequiredColumns); err != nil {
		return nil, Summary{}, err
	}

	rec, err := Reconcile(oldTbl, newTbl, e.opts.Reconcile)
	if err != nil {
		return nil, Summary{}, err
	}

	report, err := Shape(rec.Table)
	if err != nil {
		return nil, Summary{}, err
	}

	return report, rec.Summary, nil
}
