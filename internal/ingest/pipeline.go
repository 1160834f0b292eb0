// Package ingest runs one analysis of a solicitation file end to end:
// preflight, read, analyze, export and, optionally, archive to Postgres.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/gyeh/ocifila/internal/analysis"
	"github.com/gyeh/ocifila/internal/catalog"
	"github.com/gyeh/ocifila/internal/config"
	"github.com/gyeh/ocifila/internal/export"
	"github.com/gyeh/ocifila/internal/model"
	"github.com/gyeh/ocifila/internal/normalize"
	"github.com/gyeh/ocifila/internal/tabular"
)

// Pipeline phases, reported in PipelineError.Phase.
const (
	PhasePreflight = "preflight"
	PhaseRead      = "read"
	PhaseAnalyze   = "analyze"
	PhaseExport    = "export"
	PhaseArchive   = "archive"
)

// ErrNoPool is returned by the archive phase when archiving was requested
// without a database connection.
var ErrNoPool = errors.New("archive requested without a database pool")

// PipelineError wraps an error with the phase where it occurred.
type PipelineError struct {
	Phase string
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("%s: %s", e.Phase, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// Result is the outcome of a successful run.
type Result struct {
	Report  *analysis.Report
	Summary model.RunSummary
	// Files lists the report files written, empty when no output dir is set.
	Files []string
}

// Run executes the full pipeline: preflight → read → analyze → export →
// archive. pool may be nil unless cfg.Archive is set. Nothing is archived
// when an earlier phase fails.
func Run(ctx context.Context, pool *pgxpool.Pool, log zerolog.Logger, cfg *config.Config, cat *catalog.Catalog) (*Result, error) {
	totalStart := time.Now()

	// Phase 1: Preflight
	pf, err := Preflight(ctx, pool, log, cfg.FilePath)
	if err != nil {
		return nil, &PipelineError{Phase: PhasePreflight, Err: err}
	}
	log = log.With().Str("run_id", pf.RunID.String()).Logger()

	// Phase 2: Read
	opts, err := cfg.TabularOptions()
	if err != nil {
		return nil, &PipelineError{Phase: PhasePreflight, Err: err}
	}
	readStart := time.Now()
	table, err := tabular.Open(pf.FilePath, opts)
	if err != nil {
		return nil, &PipelineError{Phase: PhaseRead, Err: err}
	}
	readDur := time.Since(readStart)
	log.Info().
		Int("rows_read", len(table.Rows)).
		Int("columns", len(table.Header)).
		Str("duration", readDur.String()).
		Msg("read complete")

	// Phase 3: Analyze
	normStart := time.Now()
	if err := analysis.CheckSchema(table.Header); err != nil {
		return nil, &PipelineError{Phase: PhaseAnalyze, Err: err}
	}
	records := normalize.Rows(table.Header, table.Rows)
	normDur := time.Since(normStart)

	analyzeStart := time.Now()
	report := analysis.Analyze(cat, records, analysis.Options{IncludeExecution: cfg.IncludeExecution})
	analyzeDur := time.Since(analyzeStart)

	discarded := int64(len(records) - report.Summary.TotalRecords)
	if report.Empty() {
		log.Warn().
			Int("rows_read", len(records)).
			Msg("no pending solicitations found; report is empty")
	}
	log.Info().
		Int("eligible", report.Summary.TotalRecords).
		Int64("discarded", discarded).
		Int("patients", report.Summary.TotalPatients).
		Int("matched_patients", report.Summary.MatchedPatients).
		Int("bundles_found", report.Summary.BundlesFound).
		Str("normalize_duration", normDur.String()).
		Str("analyze_duration", analyzeDur.String()).
		Msg("analysis complete")

	res := &Result{
		Report: report,
		Summary: model.RunSummary{
			RunID:           pf.RunID.String(),
			FilePath:        pf.FilePath,
			FileSHA256:      pf.FileSHA256,
			RowsRead:        int64(len(records)),
			RowsDiscarded:   discarded,
			RowsExported:    int64(len(report.Grouped) + len(report.Ungrouped)),
			Analysis:        report.Summary,
			DurationRead:    readDur,
			DurationNorm:    normDur,
			DurationAnalyze: analyzeDur,
		},
	}

	// Phase 4: Export
	if cfg.OutputDir != "" {
		exportStart := time.Now()
		files, err := export.WriteFiles(cfg.OutputDir, report, cfg.Formats(), cfg.IncludeExecution)
		if err != nil {
			return nil, &PipelineError{Phase: PhaseExport, Err: err}
		}
		res.Files = files
		res.Summary.DurationExport = time.Since(exportStart)
		log.Info().
			Strs("files", files).
			Str("duration", res.Summary.DurationExport.String()).
			Msg("export complete")
	}

	// Phase 5: Archive
	if cfg.Archive {
		if pool == nil {
			return nil, &PipelineError{Phase: PhaseArchive, Err: ErrNoPool}
		}
		ar, err := Archive(ctx, pool, log, pf, report, discarded)
		if err != nil {
			return nil, &PipelineError{Phase: PhaseArchive, Err: err}
		}
		res.Summary.RowsArchived = ar.RowsArchived
		res.Summary.DurationArchive = ar.Duration
	}

	res.Summary.DurationTotal = time.Since(totalStart)
	log.Info().
		Int64("rows_read", res.Summary.RowsRead).
		Int64("rows_exported", res.Summary.RowsExported).
		Int64("rows_archived", res.Summary.RowsArchived).
		Str("total_duration", res.Summary.DurationTotal.String()).
		Msg("pipeline complete")

	return res, nil
}
