package tabular

import (
	"fmt"
	"io"

	"github.com/parquet-go/parquet-go"

	"github.com/gyeh/ocifila/internal/model"
)

const parquetBatchSize = 1024

// ReadParquet reads a solicitation Parquet file. The header lists the
// required columns actually present in the file schema, so absent columns
// surface through the schema check rather than as silent nulls.
func ReadParquet(r io.ReaderAt, size int64) (*Table, error) {
	pf, err := parquet.OpenFile(r, size)
	if err != nil {
		return nil, fmt.Errorf("open parquet: %w", err)
	}

	present := SchemaColumns(pf.Schema())
	t := &Table{}
	var keep []int
	for i, col := range model.RequiredColumns {
		if present[col] {
			t.Header = append(t.Header, col)
			keep = append(keep, i)
		}
	}

	reader := parquet.NewGenericReader[model.SolicitationRow](pf)
	defer reader.Close()

	buf := make([]model.SolicitationRow, parquetBatchSize)
	for {
		n, readErr := reader.Read(buf)
		for i := 0; i < n; i++ {
			vals := buf[i].Values()
			row := make([]string, len(keep))
			for j, k := range keep {
				row[j] = vals[k]
			}
			t.Rows = append(t.Rows, row)
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return nil, fmt.Errorf("read parquet rows: %w", readErr)
		}
	}
	return t, nil
}

// SchemaColumns returns the top-level column names of a Parquet schema.
func SchemaColumns(schema *parquet.Schema) map[string]bool {
	cols := make(map[string]bool)
	for _, field := range schema.Fields() {
		cols[field.Name()] = true
	}
	return cols
}
