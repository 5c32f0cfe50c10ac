package core

// validation.go checks an input table's header before any computation.
//
// Every required column is checked and all missing names are reported
// together, so a user fixing a file sees the whole list at once.

import "github.com/JonMunkholm/PayrollRecon/internal/table"

// Validate confirms t exposes every column in required.
// input labels the table ("old" or "new") in the returned *ValidationError.
func Validate(t *table.Table, input string, required []string) error {
	var missing []string
	for _, col := range required {
		if !t.HasColumn(col) {
			missing = append(missing, col)
		}
	}

	if len(missing) > 0 {
		return &ValidationError{Input: input, Missing: missing}
	}
	return nil
}
