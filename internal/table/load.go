package table

// load.go parses uploaded spreadsheets into Tables.
//
// Two formats are understood:
//   - XLSX workbooks (detected by the ZIP signature); only the first sheet is read
//   - CSV text (everything else); a UTF-8 BOM is skipped, other encodings are rejected,
//     and a cell written as ="007" is read as the text 007
//
// In both cases the first non-empty row is the header. Trailing blank header
// cells are dropped, fully blank data rows are skipped, and a row carrying a
// value beyond the header width is rejected rather than truncated.

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

// Format identifies a spreadsheet encoding.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

var (
	zipMagic  = []byte("PK\x03\x04")
	ole2Magic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
	utf8BOM   = []byte{0xEF, 0xBB, 0xBF}
)

// ParseFormat converts a user supplied format name ("xlsx", "csv").
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), "."))) {
	case FormatXLSX:
		return FormatXLSX, nil
	case FormatCSV:
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("unsupported format %q (use xlsx or csv)", s)
	}
}

// Extension returns the file extension for f, including the dot.
func (f Format) Extension() string {
	return "." + string(f)
}

// ContentType returns the MIME type used when serving a file of format f.
func (f Format) ContentType() string {
	if f == FormatCSV {
		return "text/csv"
	}
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// DetectFormat sniffs the encoding of data.
func DetectFormat(data []byte) Format {
	if bytes.HasPrefix(data, zipMagic) {
		return FormatXLSX
	}
	return FormatCSV
}

// FormatError reports input that cannot be parsed as a table.
type FormatError struct {
	Format Format
	Reason string
	Err    error
}

func (e *FormatError) Error() string {
	msg := fmt.Sprintf("invalid %s file: %s", e.Format, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// Load sniffs the format of data and parses it into a Table.
func Load(data []byte) (*Table, Format, error) {
	f := DetectFormat(data)
	t, err := LoadFormat(data, f)
	return t, f, err
}

// LoadFormat parses data as format f.
func LoadFormat(data []byte, f Format) (*Table, error) {
	switch f {
	case FormatXLSX:
		return loadXLSX(data)
	case FormatCSV:
		return loadCSV(data)
	default:
		return nil, &FormatError{Format: f, Reason: "unsupported format"}
	}
}

func loadCSV(data []byte) (*Table, error) {
	if bytes.HasPrefix(data, ole2Magic) {
		return nil, &FormatError{Format: FormatCSV, Reason: "legacy .xls and encrypted workbooks are not supported, save as .xlsx"}
	}

	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		return nil, &FormatError{Format: FormatCSV, Reason: "encoding error, file is not UTF-8 text"}
	}

	r := csv.NewReader(bytes.NewReader(data))
	records, err := r.ReadAll()
	if err != nil {
		var pe *csv.ParseError
		if errors.As(err, &pe) && errors.Is(pe.Err, csv.ErrFieldCount) {
			return nil, &FormatError{Format: FormatCSV, Reason: fmt.Sprintf("row %d does not match the header width", pe.Line), Err: err}
		}
		return nil, &FormatError{Format: FormatCSV, Reason: "malformed csv", Err: err}
	}

	t, err := fromRecords(records, func(_, _ int, raw string) Value {
		return csvValue(raw)
	})
	if err != nil {
		return nil, &FormatError{Format: FormatCSV, Reason: err.Error()}
	}
	return t, nil
}

// csvValue types a CSV cell. A cell of the form ="text" is text, which keeps
// leading zeros and numeric-looking identifiers intact.
func csvValue(raw string) Value {
	if len(raw) >= 3 && strings.HasPrefix(raw, `="`) && strings.HasSuffix(raw, `"`) {
		return StringValue(raw[2 : len(raw)-1])
	}
	return ParseValue(raw)
}

func loadXLSX(data []byte) (*Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, &FormatError{Format: FormatXLSX, Reason: "cannot open workbook", Err: err}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, &FormatError{Format: FormatXLSX, Reason: "workbook has no sheets"}
	}
	sheet := sheets[0]

	records, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, &FormatError{Format: FormatXLSX, Reason: fmt.Sprintf("cannot read sheet %q", sheet), Err: err}
	}

	t, err := fromRecords(records, func(row, col int, raw string) Value {
		return xlsxCell(f, sheet, row, col, raw)
	})
	if err != nil {
		return nil, &FormatError{Format: FormatXLSX, Reason: err.Error()}
	}
	return t, nil
}

// xlsxCell types a raw workbook value. Cells stored as strings stay strings
// even when they look numeric (e.g. "007").
func xlsxCell(f *excelize.File, sheet string, row, col int, raw string) Value {
	if raw == "" {
		return NullValue()
	}

	name, err := excelize.CoordinatesToCellName(col+1, row+1)
	if err != nil {
		return ParseValue(raw)
	}

	typ, err := f.GetCellType(sheet, name)
	if err != nil {
		return ParseValue(raw)
	}

	switch typ {
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString:
		return StringValue(raw)
	case excelize.CellTypeBool:
		if raw == "1" {
			return StringValue("TRUE")
		}
		return StringValue("FALSE")
	case excelize.CellTypeError:
		return StringValue(raw)
	default:
		return ParseValue(raw)
	}
}

// fromRecords builds a Table from a header record followed by data records.
// cell converts the raw text at (row, col), both zero-based positions in records.
func fromRecords(records [][]string, cell func(row, col int, raw string) Value) (*Table, error) {
	start := 0
	for start < len(records) && isBlankRecord(records[start]) {
		start++
	}
	if start == len(records) {
		return nil, errors.New("empty file, no header row found")
	}

	header := trimTrailingBlank(records[start])
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	t, err := New(header)
	if err != nil {
		return nil, fmt.Errorf("bad header row: %w", err)
	}

	width := len(header)
	for i := start + 1; i < len(records); i++ {
		rec := records[i]
		if isBlankRecord(rec) {
			continue
		}

		for j := width; j < len(rec); j++ {
			if strings.TrimSpace(rec[j]) != "" {
				return nil, fmt.Errorf("row %d has a value in column %d but the header has %d columns", i+1, j+1, width)
			}
		}

		row := make(Row, width)
		for j, col := range header {
			if j < len(rec) {
				row[col] = cell(i, j, rec[j])
			} else {
				row[col] = NullValue()
			}
		}
		t.Rows = append(t.Rows, row)
	}

	return t, nil
}

func isBlankRecord(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func trimTrailingBlank(rec []string) []string {
	n := len(rec)
	for n > 0 && strings.TrimSpace(rec[n-1]) == "" {
		n--
	}
	out := make([]string, n)
	copy(out, rec[:n])
	return out
}
