package export

import (
	"fmt"
	"io"

	"github.com/parquet-go/parquet-go"

	"github.com/gyeh/ocifila/internal/model"
)

// WriteParquet writes export rows as a single Parquet row group.
func WriteParquet(w io.Writer, rows []model.ExportRow) error {
	pw := parquet.NewGenericWriter[model.ExportRow](w)
	if _, err := pw.Write(rows); err != nil {
		pw.Close()
		return fmt.Errorf("write parquet rows: %w", err)
	}
	if err := pw.Close(); err != nil {
		return fmt.Errorf("close parquet writer: %w", err)
	}
	return nil
}
