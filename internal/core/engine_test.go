package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/PayrollRecon/internal/table"
)

func TestEngine_RunCSV(t *testing.T) {
	oldData := payrollFile(t, table.FormatCSV, emp("1", "Alice", "1000"), emp("2", "Bob", "500"))
	newData := payrollFile(t, table.FormatCSV, emp("1", "Alice", "1200"), emp("2", "Bob", "500"))

	res, err := NewEngine(Options{}).Run(oldData, newData)
	require.NoError(t, err)

	assert.Equal(t, table.FormatCSV, res.Format)
	assert.Equal(t,
		"Employee Number,Employee Name,Supplier ID,Gross Salary,Deductions,Net Salary (Old),Net Salary,Increase/Decrease,Difference\n"+
			"1,Alice,SUP-1,1200,0,1000,1200,200,Increase\n"+
			"2,Bob,SUP-2,500,0,500,500,0,No Change\n",
		string(res.Data))
	assert.Equal(t, 2, res.Summary.Matched)
}

func TestEngine_ReportRoundTrip(t *testing.T) {
	oldData := payrollFile(t, table.FormatXLSX, emp("1", "Alice", "1000.25"), emp("3", "Cy", "10"))
	newData := payrollFile(t, table.FormatXLSX, emp("1", "Alice", "1000"), emp("3", "Cy", "10.5"))

	res, err := NewEngine(Options{}).Run(oldData, newData)
	require.NoError(t, err)
	require.Equal(t, table.FormatXLSX, res.Format)

	loaded, format, err := table.Load(res.Data)
	require.NoError(t, err)
	assert.Equal(t, table.FormatXLSX, format)
	assert.Equal(t, res.Report.Columns, loaded.Columns)
	require.Equal(t, res.Report.Len(), loaded.Len())

	for i := range res.Report.Rows {
		want, got := res.Report.Record(i), loaded.Record(i)
		for j := range want {
			assert.True(t, want[j].Equal(got[j]), "row %d column %q: want %v got %v",
				i, res.Report.Columns[j], want[j], got[j])
		}
	}
	assert.Equal(t, []string{"-0.25", "0.5"}, column(loaded, ColIncreaseDecrease))
}

func TestEngine_FormatFollowsNewInput(t *testing.T) {
	oldData := payrollFile(t, table.FormatXLSX, emp("1", "A", "1"))
	newData := payrollFile(t, table.FormatCSV, emp("1", "A", "2"))

	res, err := NewEngine(Options{}).Run(oldData, newData)
	require.NoError(t, err)
	assert.Equal(t, table.FormatCSV, res.Format)

	res, err = NewEngine(Options{Format: table.FormatXLSX}).Run(oldData, newData)
	require.NoError(t, err)
	assert.Equal(t, table.FormatXLSX, res.Format)
	assert.Equal(t, table.FormatXLSX, table.DetectFormat(res.Data))
}

func TestEngine_MissingColumn(t *testing.T) {
	oldData := payrollFile(t, table.FormatCSV, emp("1", "Alice", "1000"))

	cols := []string{ColEmployeeNumber, ColNetSalary, ColEmployeeName, ColSupplierID, ColGrossSalary}
	newTbl := table.MustNew(cols...)
	require.NoError(t, newTbl.Append(table.Row{
		ColEmployeeNumber: table.ParseValue("1"),
		ColNetSalary:      table.ParseValue("1200"),
	}))
	newData, err := table.Serialize(newTbl, table.FormatCSV)
	require.NoError(t, err)

	_, err = NewEngine(Options{}).Run(oldData, newData)

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, InputNew, ve.Input)
	assert.Equal(t, []string{ColDeductions}, ve.Missing)
	assert.Contains(t, err.Error(), `"Deductions"`)
}

func TestEngine_ValidatesBeforeJoining(t *testing.T) {
	// Nothing would match and the old salary is not numeric, yet the header
	// problem in the new file is what gets reported.
	oldTbl := payroll(t, emp("1", "Alice", "n/a"))
	newTbl := table.MustNew(KeyColumn, "Something Else")

	_, _, err := NewEngine(Options{}).Compare(oldTbl, newTbl)

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, InputNew, ve.Input)
	assert.Len(t, ve.Missing, len(RequiredColumns)-1)
}

func TestEngine_OldValidatedFirst(t *testing.T) {
	bad := table.MustNew(KeyColumn)
	_, _, err := NewEngine(Options{}).Compare(bad, bad)

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, InputOld, ve.Input)
}

func TestEngine_LoadErrorNamesInput(t *testing.T) {
	good := payrollFile(t, table.FormatCSV, emp("1", "A", "1"))

	_, err := NewEngine(Options{}).Run(good, nil)
	var fe *table.FormatError
	require.ErrorAs(t, err, &fe)
	assert.Contains(t, err.Error(), "new file")

	_, err = NewEngine(Options{}).Run([]byte{0xff, 0xfe, 0x00}, good)
	require.ErrorAs(t, err, &fe)
	assert.Contains(t, err.Error(), "old file")
}

func TestEngine_OuterMode(t *testing.T) {
	oldData := payrollFile(t, table.FormatCSV, emp("1", "A", "1"))
	newData := payrollFile(t, table.FormatCSV, emp("2", "B", "2"))

	res, err := NewEngine(Options{Reconcile: ReconcileOptions{Mode: JoinOuter}}).Run(oldData, newData)
	require.NoError(t, err)
	assert.Equal(t, []string{"Departed", "New Hire"}, column(res.Report, ColDifference))
	assert.Equal(t, 1, res.Summary.Departed)
	assert.Equal(t, 1, res.Summary.NewHires)
}

func TestEngine_CustomRequiredColumns(t *testing.T) {
	tbl := table.MustNew(KeyColumn, ColNetSalary)
	e := NewEngine(Options{RequiredColumns: []string{KeyColumn, ColNetSalary}})

	assert.NoError(t, Validate(tbl, InputOld, e.Options().RequiredColumns))
	assert.Equal(t, JoinInner, e.Options().Reconcile.Mode)
}

// runWithin fails the test if Run does not return within d.
func runWithin(t *testing.T, d time.Duration, oldData, newData []byte) (*Result, error) {
	t.Helper()
	type outcome struct {
		res *Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := NewEngine(Options{}).Run(oldData, newData)
		done <- outcome{res, err}
	}()
	select {
	case o := <-done:
		return o.res, o.err
	case <-time.After(d):
		t.Fatalf("Run did not return within %s", d)
		return nil, nil
	}
}

const payrollHeader = "Employee Number,Employee Name,Supplier ID,Gross Salary,Deductions,Net Salary\n"

func TestEngine_HugeExponentCellsStayText(t *testing.T) {
	oldData := []byte(payrollHeader + "1,A,S,1e100000000,0,1000\n2,B,S,1,0,1\n")
	newData := []byte(payrollHeader + "1,A,S,1e100000000,0,1200\n2,B,S,1,0,1\n")

	res, err := runWithin(t, 5*time.Second, oldData, newData)
	require.NoError(t, err)
	assert.Equal(t, []string{"1e100000000", "1"}, column(res.Report, ColGrossSalary))
	assert.Equal(t, []string{"200", "0"}, column(res.Report, ColIncreaseDecrease))
}

func TestEngine_OverflowingSalaryIsTypeError(t *testing.T) {
	tests := []struct {
		name, oldNet, newNet string
		wantInput            string
	}{
		{"exponent wraps int32", "5e4294967296", "1200", InputOld},
		{"exponent beyond int64", "1200", "1e99999999999999999999", InputNew},
		{"exponent past limit", "1e1001", "1200", InputOld},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oldData := []byte(payrollHeader + "1,A,S,1,0," + tt.oldNet + "\n")
			newData := []byte(payrollHeader + "1,A,S,1,0," + tt.newNet + "\n")

			_, err := runWithin(t, 5*time.Second, oldData, newData)
			var te *TypeError
			require.ErrorAs(t, err, &te)
			assert.Equal(t, tt.wantInput, te.Input)
			assert.Equal(t, ColNetSalary, te.Column)
		})
	}
}

func TestEngine_PreviousReportAsOldFile(t *testing.T) {
	first, err := NewEngine(Options{}).Run(
		payrollFile(t, table.FormatCSV, emp("1", "Alice", "1000")),
		payrollFile(t, table.FormatCSV, emp("1", "Alice", "1200")),
	)
	require.NoError(t, err)

	res, err := NewEngine(Options{}).Run(first.Data, payrollFile(t, table.FormatCSV, emp("1", "Alice", "1100")))
	require.NoError(t, err)
	assert.Equal(t, ReportColumns(), res.Report.Columns)
	assert.Equal(t, []string{"1200"}, column(res.Report, ColNetSalary+" (Old)"))
	assert.Equal(t, []string{"-100"}, column(res.Report, ColIncreaseDecrease))
	assert.Equal(t, []string{"Decrease"}, column(res.Report, ColDifference))
}
