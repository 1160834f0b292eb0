package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/gyeh/ocifila/internal/model"
)

// WriteCSV writes export rows as a ';'-separated file with a header line.
func WriteCSV(w io.Writer, rows []model.ExportRow, includeExecution bool) error {
	cw := csv.NewWriter(w)
	cw.Comma = ';'

	if err := cw.Write(model.ExportHeaders(includeExecution)); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for i := range rows {
		if err := cw.Write(rows[i].Strings(includeExecution)); err != nil {
			return fmt.Errorf("write csv row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
