// Package export writes analysis results as spreadsheets, CSV, Parquet and
// plain-text narratives.
package export

import (
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/gyeh/ocifila/internal/model"
)

// Sheet names of the results workbook.
const (
	SheetGrouped   = "Agrupamentos"
	SheetUngrouped = "NaoAgrupados"
)

const maxColumnWidth = 50

// ErrNothingToExport is returned when both row sets are empty.
var ErrNothingToExport = errors.New("no rows to export")

// WriteXLSX writes grouped and ungrouped rows to separate sheets. Empty sets
// get no sheet; both empty is an error.
func WriteXLSX(w io.Writer, grouped, ungrouped []model.ExportRow, includeExecution bool) error {
	if len(grouped) == 0 && len(ungrouped) == 0 {
		return ErrNothingToExport
	}

	wb := excelize.NewFile()
	defer wb.Close()

	headers := model.ExportHeaders(includeExecution)
	sets := []struct {
		name string
		rows []model.ExportRow
	}{
		{SheetGrouped, grouped},
		{SheetUngrouped, ungrouped},
	}

	style, err := headerStyle(wb)
	if err != nil {
		return err
	}

	first := true
	for _, set := range sets {
		if len(set.rows) == 0 {
			continue
		}
		if first {
			if err := wb.SetSheetName(wb.GetSheetName(0), set.name); err != nil {
				return fmt.Errorf("rename sheet: %w", err)
			}
			first = false
		} else if _, err := wb.NewSheet(set.name); err != nil {
			return fmt.Errorf("create sheet %s: %w", set.name, err)
		}

		values := make([][]string, len(set.rows))
		for i := range set.rows {
			values[i] = set.rows[i].Strings(includeExecution)
		}
		if err := writeSheet(wb, set.name, headers, values, style); err != nil {
			return err
		}
	}

	if err := wb.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// WriteTemplate writes an empty workbook holding only the required upload
// header row.
func WriteTemplate(w io.Writer) error {
	wb := excelize.NewFile()
	defer wb.Close()

	style, err := headerStyle(wb)
	if err != nil {
		return err
	}
	if err := writeSheet(wb, wb.GetSheetName(0), model.RequiredColumns, nil, style); err != nil {
		return err
	}
	if err := wb.Write(w); err != nil {
		return fmt.Errorf("write template: %w", err)
	}
	return nil
}

func headerStyle(wb *excelize.File) (int, error) {
	border := func(side string) excelize.Border {
		return excelize.Border{Type: side, Color: "000000", Style: 1}
	}
	id, err := wb.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"4472C4"}},
		Alignment: &excelize.Alignment{Vertical: "top", WrapText: true},
		Border:    []excelize.Border{border("left"), border("top"), border("right"), border("bottom")},
	})
	if err != nil {
		return 0, fmt.Errorf("create header style: %w", err)
	}
	return id, nil
}

// writeSheet writes a styled header, the data rows, sizes columns to
// min(longest value + 2, 50) and freezes the header row.
func writeSheet(wb *excelize.File, sheet string, headers []string, rows [][]string, style int) error {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = utf8.RuneCountInString(h)
	}

	if err := setRow(wb, sheet, 1, headers); err != nil {
		return err
	}
	for i, row := range rows {
		if err := setRow(wb, sheet, i+2, row); err != nil {
			return err
		}
		for j, v := range row {
			if n := utf8.RuneCountInString(v); j < len(widths) && n > widths[j] {
				widths[j] = n
			}
		}
	}

	last, err := excelize.CoordinatesToCellName(len(headers), 1)
	if err != nil {
		return err
	}
	if err := wb.SetCellStyle(sheet, "A1", last, style); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	for i, w := range widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := wb.SetColWidth(sheet, col, col, float64(min(w+2, maxColumnWidth))); err != nil {
			return fmt.Errorf("set column width: %w", err)
		}
	}

	return wb.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func setRow(wb *excelize.File, sheet string, rowNum int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return err
	}
	row := make([]any, len(values))
	for i, v := range values {
		row[i] = v
	}
	if err := wb.SetSheetRow(sheet, cell, &row); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, rowNum, err)
	}
	return nil
}
