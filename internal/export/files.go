package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gyeh/ocifila/internal/analysis"
)

// Format is an export file format.
type Format string

const (
	FormatXLSX    Format = "xlsx"
	FormatCSV     Format = "csv"
	FormatParquet Format = "parquet"
	FormatText    Format = "txt"
)

// AllFormats lists the supported export formats.
var AllFormats = []Format{FormatXLSX, FormatCSV, FormatParquet, FormatText}

// ParseFormat validates a format name.
func ParseFormat(name string) (Format, error) {
	for _, f := range AllFormats {
		if string(f) == strings.ToLower(strings.TrimSpace(name)) {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown export format %q", name)
}

// FileName returns the base name used for a report generated at t.
func FileName(t time.Time, f Format) string {
	return fmt.Sprintf("relatorio_oci_%s.%s", t.Format("20060102_150405"), f)
}

// WriteFiles writes the report in each format under dir and returns the
// paths written. XLSX is skipped when there are no rows at all.
func WriteFiles(dir string, r *analysis.Report, formats []Format, includeExecution bool) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	var written []string
	for _, f := range formats {
		if f == FormatXLSX && len(r.Grouped) == 0 && len(r.Ungrouped) == 0 {
			continue
		}
		path := filepath.Join(dir, FileName(r.GeneratedAt, f))
		if err := writeFile(path, func(w io.Writer) error {
			return Write(w, f, r, includeExecution)
		}); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}

// Write renders the report to w in format f.
func Write(w io.Writer, f Format, r *analysis.Report, includeExecution bool) error {
	switch f {
	case FormatXLSX:
		return WriteXLSX(w, r.Grouped, r.Ungrouped, includeExecution)
	case FormatCSV:
		return WriteCSV(w, r.ExportRows(), includeExecution)
	case FormatParquet:
		return WriteParquet(w, r.ExportRows())
	case FormatText:
		_, err := io.WriteString(w, r.Text())
		return err
	}
	return fmt.Errorf("unknown export format %q", f)
}

func writeFile(path string, fn func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(path), err)
	}
	if err := fn(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return f.Close()
}
