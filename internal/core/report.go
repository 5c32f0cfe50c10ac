package core

import (
	"fmt"
	"strings"

	"github.com/JonMunkholm/PayrollRecon/internal/table"
)

// reportSources lists, in report order, the reconciled columns the report
// projects. Names are in their qualified form and pass through RenameColumn.
var reportSources = []string{
	KeyColumn,
	ColEmployeeName + NewSuffix,
	ColSupplierID + NewSuffix,
	ColGrossSalary + NewSuffix,
	ColDeductions + NewSuffix,
	ColNetSalary + OldSuffix,
	ColNetSalary + NewSuffix,
	ColIncreaseDecrease,
	ColDifference,
}

// RenameColumn rewrites a qualified column name for the report: the "-new"
// qualifier is dropped and "-old" becomes " (Old)". Other names are unchanged.
func RenameColumn(name string) string {
	switch {
	case strings.HasSuffix(name, NewSuffix):
		return strings.TrimSuffix(name, NewSuffix)
	case strings.HasSuffix(name, OldSuffix):
		return strings.TrimSuffix(name, OldSuffix) + " (Old)"
	default:
		return name
	}
}

// ReportColumns returns the report header in order.
func ReportColumns() []string {
	cols := make([]string, len(reportSources))
	for i, src := range reportSources {
		cols[i] = RenameColumn(src)
	}
	return cols
}

// Shape projects a reconciled table onto the report schema:
// Employee Number, Employee Name, Supplier ID, Gross Salary, Deductions,
// Net Salary (Old), Net Salary, Increase/Decrease, Difference.
func Shape(joined *table.Table) (*table.Table, error) {
	for _, src := range reportSources {
		if !joined.HasColumn(src) {
			return nil, fmt.Errorf("shape report: reconciled table has no column %q", src)
		}
	}

	report, err := table.New(ReportColumns())
	if err != nil {
		return nil, fmt.Errorf("shape report: %w", err)
	}

	report.Rows = make([]table.Row, 0, joined.Len())
	for _, in := range joined.Rows {
		row := make(table.Row, len(reportSources))
		for _, src := range reportSources {
			row[RenameColumn(src)] = in.Get(src)
		}
		report.Rows = append(report.Rows, row)
	}

	return report, nil
}
