package normalize

import (
	"strings"

	"github.com/gyeh/ocifila/internal/model"
)

// ToSolicitation converts a raw table row into a normalized Solicitation:
// every field trimmed, CNES codes padded to 7 digits, SIGTAP codes to 10 and
// dates rendered as dd/mm/yyyy (unparseable dates become empty).
func ToSolicitation(rowNum int, row []string, pos map[string]int) model.Solicitation {
	trimmed := make([]string, len(row))
	for i, v := range row {
		trimmed[i] = strings.TrimSpace(v)
	}
	s := model.SolicitationFromColumns(rowNum, trimmed, pos)

	s.RequesterCNES = Facility(s.RequesterCNES)
	s.RegulatorCNES = Facility(s.RegulatorCNES)
	s.ExecutorCNES = Facility(s.ExecutorCNES)
	s.Procedure = Procedure(s.Procedure)

	s.RequestDate = Date(s.RequestDate)
	s.AuthorizedDate = Date(s.AuthorizedDate)
	s.ExecutionDate = Date(s.ExecutionDate)

	return s
}

// Rows normalizes every data row of a table. Column positions are resolved
// from header; blank rows are skipped but still advance the row number.
func Rows(header []string, rows [][]string) []model.Solicitation {
	pos := Positions(header)
	out := make([]model.Solicitation, 0, len(rows))
	for i, row := range rows {
		if blank(row) {
			continue
		}
		out = append(out, ToSolicitation(i+1, row, pos))
	}
	return out
}

// Positions maps each trimmed header name to its first column index.
func Positions(header []string) map[string]int {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if _, ok := pos[h]; !ok {
			pos[h] = i
		}
	}
	return pos
}

func blank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
