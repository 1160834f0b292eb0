package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/gyeh/ocifila/internal/db"
	"github.com/gyeh/ocifila/internal/exitcode"
	"github.com/gyeh/ocifila/internal/ingest"
)

var printReport bool

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Group a queue file into OCI bundles and write the reports",
	RunE:  runAnalyze,
}

func init() {
	addInputFlags(analyzeCmd)
	f := analyzeCmd.Flags()
	f.StringVar(&cfg.OutputDir, "out", ".", "Directory for report files (empty to skip writing)")
	f.StringSliceVar(&cfg.ExportFormats, "format", nil, "Report formats: xlsx, csv, parquet, txt (default xlsx,txt)")
	f.BoolVar(&cfg.IncludeExecution, "include-execution", false, "Add executor CNES, authorization and execution dates to exports")
	f.BoolVar(&cfg.Archive, "archive", false, "Archive the run and its export rows in Postgres")
	f.BoolVar(&printReport, "print", false, "Print the narrative report to stdout")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	log := newLogger()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	validate := cfg.Validate
	if cfg.Archive {
		validate = cfg.ValidateWithDSN
	}
	if err := validate(); err != nil {
		log.Error().Err(err).Msg("config validation failed")
		os.Exit(exitcode.UsageError)
	}

	cat := loadCatalog(log)

	var pool *pgxpool.Pool
	if cfg.Archive {
		var err error
		pool, err = db.NewPool(ctx, cfg.DSN)
		if err != nil {
			log.Error().Err(err).Msg("database connection failed")
			os.Exit(exitcode.DBConnError)
		}
		defer pool.Close()
	}

	res, err := ingest.Run(ctx, pool, log, &cfg, cat)
	if err != nil {
		var pe *ingest.PipelineError
		if errors.As(err, &pe) {
			log.Error().Err(pe.Err).Str("phase", pe.Phase).Msg("analysis failed")
			os.Exit(phaseExitCode(pe.Phase))
		}
		log.Error().Err(err).Msg("analysis failed")
		os.Exit(exitcode.ValidationError)
	}

	if printReport {
		fmt.Print(res.Report.Text())
	}

	s := res.Summary
	fmt.Printf("Analysis complete: %d solicitations, %d patients, %d grouped in %d OCI bundles (%.2fs)\n",
		s.Analysis.TotalRecords, s.Analysis.TotalPatients, s.Analysis.MatchedPatients,
		s.Analysis.BundlesFound, s.DurationTotal.Seconds())
	for _, f := range res.Files {
		fmt.Printf("  wrote %s\n", f)
	}
	if cfg.Archive {
		fmt.Printf("  archived run %s (%d rows)\n", s.RunID, s.RowsArchived)
	}
	return nil
}

func phaseExitCode(phase string) int {
	switch phase {
	case ingest.PhasePreflight, ingest.PhaseAnalyze:
		return exitcode.ValidationError
	case ingest.PhaseRead:
		return exitcode.ReadError
	case ingest.PhaseExport:
		return exitcode.ExportError
	case ingest.PhaseArchive:
		return exitcode.ArchiveError
	}
	return exitcode.ValidationError
}
