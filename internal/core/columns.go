package core

// Column names of the payroll exports. Matching is exact and case-sensitive.
const (
	ColEmployeeNumber = "Employee Number"
	ColNetSalary      = "Net Salary"
	ColEmployeeName   = "Employee Name"
	ColSupplierID     = "Supplier ID"
	ColGrossSalary    = "Gross Salary"
	ColDeductions     = "Deductions"

	// Derived by the reconciler.
	ColIncreaseDecrease = "Increase/Decrease"
	ColDifference       = "Difference"
)

// KeyColumn is the join key shared by both payroll files.
const KeyColumn = ColEmployeeNumber

// Qualifiers appended to non-key columns present in both inputs.
const (
	OldSuffix = "-old"
	NewSuffix = "-new"
)

// Input labels used in errors and logs.
const (
	InputOld = "old"
	InputNew = "new"
)

// RequiredColumns lists the columns both payroll files must contain.
var RequiredColumns = []string{
	ColEmployeeNumber,
	ColNetSalary,
	ColEmployeeName,
	ColSupplierID,
	ColGrossSalary,
	ColDeductions,
}

// Change classifies an employee's salary movement.
type Change string

const (
	ChangeIncrease Change = "Increase"
	ChangeDecrease Change = "Decrease"
	ChangeNone     Change = "No Change"

	// Only emitted in outer join mode.
	ChangeNewHire  Change = "New Hire"
	ChangeDeparted Change = "Departed"
)

// classify returns the change tag for the sign of a salary delta.
func classify(sign int) Change {
	switch {
	case sign > 0:
		return ChangeIncrease
	case sign < 0:
		return ChangeDecrease
	default:
		return ChangeNone
	}
}
