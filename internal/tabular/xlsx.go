package tabular

import (
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Layouts used when a date cell is rendered back to text. Both are accepted
// by normalize.Date.
const (
	xlsxDateLayout     = "2006-01-02"
	xlsxDateTimeLayout = "2006-01-02 15:04:05"
)

// ReadXLSX reads the first worksheet of a workbook. The first non-empty row
// is the header. Cells formatted as dates are returned as ISO dates rather
// than in the workbook's display format.
func ReadXLSX(r io.Reader) (*Table, error) {
	wb, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer wb.Close()

	sheets := wb.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	sheet := sheets[0]
	rows, err := wb.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}

	dates := dateCells{wb: wb, sheet: sheet, byStyle: map[int]bool{}}
	first := 0
	for first < len(rows) && len(rows[first]) == 0 {
		first++
	}
	if first == len(rows) {
		return nil, fmt.Errorf("sheet %q is empty", sheet)
	}
	for r := first + 1; r < len(rows); r++ {
		for c, v := range rows[r] {
			if v == "" {
				continue
			}
			iso, ok, err := dates.value(c+1, r+1)
			if err != nil {
				return nil, err
			}
			if ok {
				rows[r][c] = iso
			}
		}
	}
	return &Table{Header: trimAll(rows[first]), Rows: rows[first+1:]}, nil
}

// dateCells recognizes date-formatted cells, caching the verdict per style.
type dateCells struct {
	wb      *excelize.File
	sheet   string
	byStyle map[int]bool
}

// value returns the cell at (col, row) as an ISO date when its number
// format is a date format and it holds a serial date.
func (d *dateCells) value(col, row int) (string, bool, error) {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return "", false, err
	}
	styleID, err := d.wb.GetCellStyle(d.sheet, cell)
	if err != nil {
		return "", false, fmt.Errorf("style of %s: %w", cell, err)
	}
	isDate, seen := d.byStyle[styleID]
	if !seen {
		style, err := d.wb.GetStyle(styleID)
		if err != nil {
			return "", false, fmt.Errorf("style %d: %w", styleID, err)
		}
		isDate = isDateStyle(style)
		d.byStyle[styleID] = isDate
	}
	if !isDate {
		return "", false, nil
	}

	raw, err := d.wb.GetCellValue(d.sheet, cell, excelize.Options{RawCellValue: true})
	if err != nil {
		return "", false, fmt.Errorf("read %s: %w", cell, err)
	}
	serial, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		// Text typed into a date-formatted cell is left as displayed.
		return "", false, nil
	}
	t, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return "", false, nil
	}
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 {
		return t.Format(xlsxDateLayout), true, nil
	}
	return t.Format(xlsxDateTimeLayout), true, nil
}

// Built-in number formats 14-17 are dates and 22 is date and time; 18-21
// and 45-47 are time-only and stay as displayed.
func isDateStyle(s *excelize.Style) bool {
	if s == nil {
		return false
	}
	if s.CustomNumFmt != nil && isDateFormatCode(*s.CustomNumFmt) {
		return true
	}
	return (s.NumFmt >= 14 && s.NumFmt <= 17) || s.NumFmt == 22
}

var formatLiterals = regexp.MustCompile(`"[^"]*"|\[[^\]]*\]|\\.`)

// isDateFormatCode reports whether a custom format code renders a date.
func isDateFormatCode(code string) bool {
	code = strings.ToLower(formatLiterals.ReplaceAllString(code, ""))
	return strings.ContainsAny(code, "dy")
}
