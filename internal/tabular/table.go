// Package tabular reads solicitation exports (CSV, XLSX, Parquet) into a
// header plus raw string rows. It does no normalization.
package tabular

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Table is a raw sheet: one header row and data rows of strings.
type Table struct {
	Header []string
	Rows   [][]string
}

// Format identifies a supported upload format.
type Format string

const (
	FormatCSV     Format = "csv"
	FormatXLSX    Format = "xlsx"
	FormatParquet Format = "parquet"
)

// Options control CSV decoding. XLSX and Parquet ignore them.
type Options struct {
	// Separator is the CSV field delimiter; regulation exports use ';'.
	Separator rune
	// Encoding is "utf-8" (default) or "latin1".
	Encoding string
}

// DefaultOptions match the regulation system's CSV export.
func DefaultOptions() Options {
	return Options{Separator: ';', Encoding: "utf-8"}
}

// DetectFormat maps a file name to its format by extension.
func DetectFormat(name string) (Format, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	switch Format(ext) {
	case FormatCSV, FormatXLSX, FormatParquet:
		return Format(ext), nil
	}
	return "", fmt.Errorf("unsupported file type %q: use .csv, .xlsx or .parquet", filepath.Ext(name))
}

// Open reads the file at path, choosing the reader by extension.
func Open(path string, opts Options) (*Table, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input file: %w", err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat input file: %w", err)
	}
	return Read(f, stat.Size(), format, opts)
}

// Read decodes r as format. size is only needed for Parquet.
func Read(r io.ReaderAt, size int64, format Format, opts Options) (*Table, error) {
	switch format {
	case FormatCSV:
		return ReadCSV(io.NewSectionReader(r, 0, size), opts)
	case FormatXLSX:
		return ReadXLSX(io.NewSectionReader(r, 0, size))
	case FormatParquet:
		return ReadParquet(r, size)
	}
	return nil, fmt.Errorf("unsupported format %q", format)
}
