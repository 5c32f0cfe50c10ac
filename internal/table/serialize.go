package table

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// Serialize writes t as a spreadsheet of format f: one header row followed by
// one row per table row, without an index column.
func Serialize(t *Table, f Format) ([]byte, error) {
	switch f {
	case FormatXLSX:
		return serializeXLSX(t)
	case FormatCSV:
		return serializeCSV(t)
	default:
		return nil, fmt.Errorf("serialize: unsupported format %q", f)
	}
}

func serializeCSV(t *Table) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(t.Columns); err != nil {
		return nil, fmt.Errorf("serialize csv header: %w", err)
	}

	record := make([]string, len(t.Columns))
	for i := range t.Rows {
		for j, v := range t.Record(i) {
			record[j] = csvCell(v)
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("serialize csv row %d: %w", i+1, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("serialize csv: %w", err)
	}
	return buf.Bytes(), nil
}

// csvCell renders v for CSV. Text that would load back as a number (a
// Supplier ID "007" read from a workbook text cell) is written as ="007",
// the form spreadsheet applications and Load both read as text.
func csvCell(v Value) string {
	if v.Kind() == String {
		if _, ok := ParseNumber(v.str); ok {
			return `="` + v.str + `"`
		}
	}
	return v.String()
}

func serializeXLSX(t *Table) ([]byte, error) {
	x := excelize.NewFile()
	defer x.Close()

	sheet := x.GetSheetName(0)

	for j, c := range t.Columns {
		cell, err := excelize.CoordinatesToCellName(j+1, 1)
		if err != nil {
			return nil, fmt.Errorf("serialize xlsx header: %w", err)
		}
		if err := x.SetCellStr(sheet, cell, c); err != nil {
			return nil, fmt.Errorf("serialize xlsx header: %w", err)
		}
	}

	if len(t.Columns) > 0 {
		if err := boldHeader(x, sheet, len(t.Columns)); err != nil {
			return nil, err
		}
	}

	for i := range t.Rows {
		for j, v := range t.Record(i) {
			cell, err := excelize.CoordinatesToCellName(j+1, i+2)
			if err != nil {
				return nil, fmt.Errorf("serialize xlsx row %d: %w", i+1, err)
			}

			switch v.Kind() {
			case Number:
				fv, _ := v.Float64()
				err = x.SetCellFloat(sheet, cell, fv, -1, 64)
			case String:
				err = x.SetCellStr(sheet, cell, v.Text())
			default:
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("serialize xlsx row %d: %w", i+1, err)
			}
		}
	}

	buf, err := x.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("serialize xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

func boldHeader(x *excelize.File, sheet string, width int) error {
	style, err := x.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("serialize xlsx style: %w", err)
	}

	last, err := excelize.CoordinatesToCellName(width, 1)
	if err != nil {
		return fmt.Errorf("serialize xlsx style: %w", err)
	}

	if err := x.SetCellStyle(sheet, "A1", last, style); err != nil {
		return fmt.Errorf("serialize xlsx style: %w", err)
	}
	return nil
}
