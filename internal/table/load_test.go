package table

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_CSV(t *testing.T) {
	data := []byte("Employee Number,Employee Name,Net Salary\n1,Alice,1000.50\n2,Bob,\n")

	tbl, format, err := Load(data)
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, format)
	assert.Equal(t, []string{"Employee Number", "Employee Name", "Net Salary"}, tbl.Columns)
	require.Equal(t, 2, tbl.Len())

	assert.Equal(t, Number, tbl.Rows[0].Get("Employee Number").Kind())
	assert.Equal(t, "Alice", tbl.Rows[0].Get("Employee Name").Text())
	assert.Equal(t, "1000.5", tbl.Rows[0].Get("Net Salary").String())
	assert.True(t, tbl.Rows[1].Get("Net Salary").IsNull())
}

func TestLoad_CSVSkipsBOMAndBlankRows(t *testing.T) {
	data := append([]byte{0xEF, 0xBB, 0xBF}, []byte("A,B\n1,2\n,\n3,4\n")...)

	tbl, err := LoadFormat(data, FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, tbl.Columns)
	assert.Equal(t, 2, tbl.Len())
}

func TestLoad_CSVTrimsHeader(t *testing.T) {
	tbl, err := LoadFormat([]byte(" A , B ,\n1,2,\n"), FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, tbl.Columns)
}

func TestLoad_FormatErrors(t *testing.T) {
	tests := []struct {
		name   string
		data   []byte
		format Format
	}{
		{name: "empty", data: []byte{}, format: FormatCSV},
		{name: "only blank lines", data: []byte("\n\n"), format: FormatCSV},
		{name: "ragged row", data: []byte("A,B\n1,2,3\n"), format: FormatCSV},
		{name: "short row", data: []byte("A,B,C\n1,2\n"), format: FormatCSV},
		{name: "duplicate header", data: []byte("A,A\n1,2\n"), format: FormatCSV},
		{name: "blank header in the middle", data: []byte("A,,C\n1,2,3\n"), format: FormatCSV},
		{name: "invalid utf8", data: []byte("A,B\n\xff\xfe,1\n"), format: FormatCSV},
		{name: "bare quote", data: []byte("A,B\n\"1,2\n"), format: FormatCSV},
		{name: "legacy xls", data: []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1, 0, 0}, format: FormatCSV},
		{name: "corrupt zip", data: []byte("PK\x03\x04not really a workbook"), format: FormatXLSX},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, format, err := Load(tt.data)
			require.Error(t, err)
			assert.Equal(t, tt.format, format)

			var fe *FormatError
			assert.True(t, errors.As(err, &fe), "want *FormatError, got %T", err)
		})
	}
}

func TestLoad_XLSXRoundTrip(t *testing.T) {
	src := MustNew("Employee Number", "Employee Name", "Net Salary", "Code")
	require.NoError(t, src.Append(Row{
		"Employee Number": ParseValue("1"),
		"Employee Name":   StringValue("Alice"),
		"Net Salary":      ParseValue("1000.25"),
		"Code":            StringValue("007"),
	}))
	require.NoError(t, src.Append(Row{
		"Employee Number": ParseValue("2"),
		"Employee Name":   StringValue("Bob"),
		"Net Salary":      NullValue(),
		"Code":            StringValue("X1"),
	}))

	data, err := Serialize(src, FormatXLSX)
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, DetectFormat(data))

	got, format, err := Load(data)
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, format)
	assert.Equal(t, src.Columns, got.Columns)
	require.Equal(t, 2, got.Len())

	assert.Equal(t, "1000.25", got.Rows[0].Get("Net Salary").String())
	assert.Equal(t, Number, got.Rows[0].Get("Employee Number").Kind())
	assert.Equal(t, String, got.Rows[0].Get("Code").Kind(), "string cells stay strings")
	assert.Equal(t, "007", got.Rows[0].Get("Code").Text())
	assert.True(t, got.Rows[1].Get("Net Salary").IsNull())
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat(".XLSX")
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, f)

	f, err = ParseFormat("csv")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)

	_, err = ParseFormat("ods")
	assert.Error(t, err)
}
