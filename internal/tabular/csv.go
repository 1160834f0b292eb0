package tabular

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// ReadCSV reads a delimited export. A UTF-8 BOM is skipped; with
// Encoding "latin1" the input is decoded from Windows-1252 first.
func ReadCSV(r io.Reader, opts Options) (*Table, error) {
	if opts.Separator == 0 {
		opts.Separator = ';'
	}
	src, err := decoder(r, opts.Encoding)
	if err != nil {
		return nil, err
	}

	buf := bufio.NewReaderSize(src, 256*1024)
	if bom, err := buf.Peek(3); err == nil && bom[0] == 0xEF && bom[1] == 0xBB && bom[2] == 0xBF {
		buf.Discard(3)
	}

	reader := csv.NewReader(buf)
	reader.Comma = opts.Separator
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("csv file is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	t := &Table{Header: trimAll(header)}

	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row %d: %w", len(t.Rows)+2, err)
		}
		t.Rows = append(t.Rows, rec)
	}
	return t, nil
}

func decoder(r io.Reader, encoding string) (io.Reader, error) {
	switch strings.ToLower(encoding) {
	case "", "utf-8", "utf8":
		return r, nil
	case "latin1", "latin-1", "iso-8859-1", "windows-1252", "cp1252":
		return transform.NewReader(r, charmap.Windows1252.NewDecoder()), nil
	}
	return nil, fmt.Errorf("unsupported csv encoding %q", encoding)
}

func trimAll(vals []string) []string {
	out := make([]string, len(vals))
	for i, v := range vals {
		out[i] = strings.TrimSpace(v)
	}
	return out
}
