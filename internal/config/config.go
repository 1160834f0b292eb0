package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/gyeh/ocifila/internal/export"
	"github.com/gyeh/ocifila/internal/tabular"
)

// Config holds all runtime configuration for an ocifila run.
type Config struct {
	DSN              string
	FilePath         string
	OutputDir        string
	LogFormat        string // "text" or "json"
	CatalogPath      string
	IncludeExecution bool // add executor CNES and authorization/execution dates to exports
	CSVSeparator     string
	Encoding         string
	ExportFormats    []string // subset of export.AllFormats
	Archive          bool
	Quiet            bool

	// serve
	ListenAddr     string
	MaxUploadBytes string
}

// yamlConfig is the on-disk YAML structure.
type yamlConfig struct {
	CatalogPath      string   `yaml:"catalog_path"`
	IncludeExecution *bool    `yaml:"include_execution"`
	CSVSeparator     string   `yaml:"csv_separator"`
	Encoding         string   `yaml:"encoding"`
	ExportFormats    []string `yaml:"export_formats"`
	ListenAddr       string   `yaml:"listen_addr"`
	MaxUpload        string   `yaml:"max_upload"`
}

// LoadFromFile reads a YAML config file and merges its non-empty values into
// Config, then validates the export formats.
func (c *Config) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var yc yamlConfig
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	if yc.CatalogPath != "" {
		c.CatalogPath = yc.CatalogPath
	}
	if yc.IncludeExecution != nil {
		c.IncludeExecution = *yc.IncludeExecution
	}
	if yc.CSVSeparator != "" {
		c.CSVSeparator = yc.CSVSeparator
	}
	if yc.Encoding != "" {
		c.Encoding = yc.Encoding
	}
	if yc.ExportFormats != nil {
		c.ExportFormats = yc.ExportFormats
	}
	if yc.ListenAddr != "" {
		c.ListenAddr = yc.ListenAddr
	}
	if yc.MaxUpload != "" {
		c.MaxUploadBytes = yc.MaxUpload
	}
	return c.validateExportFormats()
}

// validateExportFormats checks every entry in ExportFormats. If ExportFormats
// is empty, it defaults to xlsx and txt, the original report pair.
func (c *Config) validateExportFormats() error {
	if len(c.ExportFormats) == 0 {
		c.ExportFormats = []string{string(export.FormatXLSX), string(export.FormatText)}
		return nil
	}
	for _, name := range c.ExportFormats {
		if _, err := export.ParseFormat(name); err != nil {
			return fmt.Errorf("%w in config", err)
		}
	}
	return nil
}

// Formats returns the parsed export formats. Call after validation.
func (c *Config) Formats() []export.Format {
	out := make([]export.Format, 0, len(c.ExportFormats))
	for _, name := range c.ExportFormats {
		if f, err := export.ParseFormat(name); err == nil {
			out = append(out, f)
		}
	}
	return out
}

// TabularOptions returns the CSV reader settings.
func (c *Config) TabularOptions() (tabular.Options, error) {
	opts := tabular.DefaultOptions()
	if c.Encoding != "" {
		opts.Encoding = c.Encoding
	}
	switch sep := c.CSVSeparator; {
	case sep == "":
	case sep == `\t` || sep == "tab":
		opts.Separator = '\t'
	case len([]rune(sep)) == 1:
		opts.Separator = []rune(sep)[0]
	default:
		return opts, fmt.Errorf("csv separator must be a single character, got %q", sep)
	}
	return opts, nil
}

// Validate checks required fields and returns an error if the config is invalid.
func (c *Config) Validate() error {
	if c.FilePath == "" {
		return fmt.Errorf("--file is required")
	}
	if _, err := os.Stat(c.FilePath); err != nil {
		return fmt.Errorf("file not accessible: %w", err)
	}
	if _, err := tabular.DetectFormat(c.FilePath); err != nil {
		return err
	}
	if _, err := c.TabularOptions(); err != nil {
		return err
	}
	return c.validateExportFormats()
}

// ValidateWithDSN checks both file and DSN fields.
func (c *Config) ValidateWithDSN() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(c.DSN) == "" {
		return fmt.Errorf("--dsn or OCIFILA_DB_URL is required")
	}
	return nil
}
