package core

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/PayrollRecon/internal/table"
)

// employee is one payroll line in test fixtures.
type employee struct {
	number, name, supplier, gross, deductions, net string
}

func emp(number, name, net string) employee {
	return employee{number: number, name: name, supplier: "SUP-" + number, gross: net, deductions: "0", net: net}
}

// payroll builds a table with the full required column set.
func payroll(t *testing.T, emps ...employee) *table.Table {
	t.Helper()
	tbl := table.MustNew(RequiredColumns...)
	for _, e := range emps {
		require.NoError(t, tbl.Append(table.Row{
			ColEmployeeNumber: table.ParseValue(e.number),
			ColEmployeeName:   table.ParseValue(e.name),
			ColSupplierID:     table.ParseValue(e.supplier),
			ColGrossSalary:    table.ParseValue(e.gross),
			ColDeductions:     table.ParseValue(e.deductions),
			ColNetSalary:      table.ParseValue(e.net),
		}))
	}
	return tbl
}

// payrollFile serializes a payroll fixture as a document of format f.
func payrollFile(t *testing.T, f table.Format, emps ...employee) []byte {
	t.Helper()
	data, err := table.Serialize(payroll(t, emps...), f)
	require.NoError(t, err)
	return data
}

// column returns the text of col for every row of tbl.
func column(tbl *table.Table, col string) []string {
	out := make([]string, tbl.Len())
	for i, r := range tbl.Rows {
		out[i] = r.Get(col).String()
	}
	return out
}
