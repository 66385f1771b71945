package export

import (
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/ehr/burnout/internal/domain/workforce"
)

// WorkbookName is the file name used for the XLSX format.
const WorkbookName = "burnout_dataset.xlsx"

const defaultSheet = "Sheet1"

// WriteWorkbook writes every table to its own sheet of one workbook.
func WriteWorkbook(w io.Writer, tables []workforce.Table) error {
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	for i, t := range tables {
		if i == 0 {
			if err := f.SetSheetName(defaultSheet, t.Name); err != nil {
				return fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(t.Name); err != nil {
			return fmt.Errorf("create sheet %s: %w", t.Name, err)
		}
		if err := writeSheet(f, t, headerStyle); err != nil {
			return err
		}
	}
	f.SetActiveSheet(0)

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, t workforce.Table, headerStyle int) error {
	sw, err := f.NewStreamWriter(t.Name)
	if err != nil {
		return fmt.Errorf("open sheet %s: %w", t.Name, err)
	}

	header := make([]interface{}, len(t.Columns))
	for i, c := range t.Columns {
		header[i] = excelize.Cell{StyleID: headerStyle, Value: c}
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("write %s header: %w", t.Name, err)
	}

	for i, rec := range t.Records {
		vals := rec.Values()
		row := make([]interface{}, len(vals))
		for j, v := range vals {
			row[j] = cellValue(v)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("convert coordinates: %w", err)
		}
		if err := sw.SetRow(cell, row); err != nil {
			return fmt.Errorf("write %s row %d: %w", t.Name, i, err)
		}
	}
	return sw.Flush()
}

// cellValue keeps numbers numeric and renders dates as ISO text.
func cellValue(v any) interface{} {
	switch v := v.(type) {
	case decimal.Decimal:
		return v.InexactFloat64()
	case workforce.Date:
		return v.String()
	case workforce.Timestamp:
		return v.String()
	case *string:
		if v == nil {
			return nil
		}
		return *v
	default:
		return v
	}
}
