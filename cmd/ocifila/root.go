package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/gyeh/ocifila/internal/catalog"
	"github.com/gyeh/ocifila/internal/config"
	"github.com/gyeh/ocifila/internal/exitcode"
	"github.com/gyeh/ocifila/internal/logging"
)

const dsnEnv = "OCIFILA_DB_URL"

var (
	cfg        config.Config
	configPath string
	envFile    string
)

var rootCmd = &cobra.Command{
	Use:   "ocifila",
	Short: "OCI bundle analysis for regulation queues",
	Long: "Reads a regulation-queue export (CSV, XLSX or Parquet), groups each patient's pending " +
		"solicitations into OCI bundles and writes the narrative and tabular reports.",
	SilenceUsage:      true,
	PersistentPreRunE: loadSettings,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfg.DSN, "dsn", "", "Postgres connection string (or set "+dsnEnv+")")
	pf.StringVar(&cfg.LogFormat, "log-format", "text", "Log format: text or json")
	pf.BoolVarP(&cfg.Quiet, "quiet", "q", false, "Only log warnings and errors")
	pf.StringVar(&cfg.CatalogPath, "catalog", "", "Bundle catalog YAML (default: built-in catalog)")
	pf.StringVar(&configPath, "config", "", "Optional YAML config file")
	pf.StringVar(&envFile, "env-file", ".env", "Optional .env file loaded before reading the environment")
}

// loadSettings layers the .env file, the environment and the YAML config
// under the command-line flags. Explicit flags always win.
func loadSettings(cmd *cobra.Command, args []string) error {
	if err := loadEnvFile(envFile); err != nil {
		return err
	}

	if cfg.DSN == "" {
		cfg.DSN = os.Getenv(dsnEnv)
	}
	if configPath == "" {
		return nil
	}

	var fileCfg config.Config
	if err := fileCfg.LoadFromFile(configPath); err != nil {
		return err
	}
	flags := cmd.Flags()
	if !flags.Changed("catalog") && fileCfg.CatalogPath != "" {
		cfg.CatalogPath = fileCfg.CatalogPath
	}
	if !flags.Changed("include-execution") {
		cfg.IncludeExecution = fileCfg.IncludeExecution
	}
	if !flags.Changed("separator") && fileCfg.CSVSeparator != "" {
		cfg.CSVSeparator = fileCfg.CSVSeparator
	}
	if !flags.Changed("encoding") && fileCfg.Encoding != "" {
		cfg.Encoding = fileCfg.Encoding
	}
	if !flags.Changed("format") {
		cfg.ExportFormats = fileCfg.ExportFormats
	}
	if !flags.Changed("addr") && fileCfg.ListenAddr != "" {
		cfg.ListenAddr = fileCfg.ListenAddr
	}
	if !flags.Changed("max-upload") && fileCfg.MaxUploadBytes != "" {
		cfg.MaxUploadBytes = fileCfg.MaxUploadBytes
	}
	return nil
}

// loadEnvFile loads path into the environment without overriding variables
// already set. A missing file is normal outside development; a malformed
// one is an error.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

func newLogger() zerolog.Logger {
	return logging.New(os.Stderr, cfg.LogFormat, cfg.Quiet)
}

// loadCatalog exits with a validation error when the catalog is unusable.
func loadCatalog(log zerolog.Logger) *catalog.Catalog {
	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		log.Error().Err(err).Str("catalog", cfg.CatalogPath).Msg("failed to load bundle catalog")
		os.Exit(exitcode.ValidationError)
	}
	return cat
}

// addInputFlags registers the flags shared by commands that read a queue file.
func addInputFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&cfg.FilePath, "file", "", "Path to the queue export: .csv, .xlsx or .parquet (required)")
	f.StringVar(&cfg.CSVSeparator, "separator", "", "CSV field separator (default ;)")
	f.StringVar(&cfg.Encoding, "encoding", "", "CSV text encoding: utf-8 or latin1 (default utf-8)")
	_ = cmd.MarkFlagRequired("file")
}
