package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/gyeh/ocifila/internal/normalize"
	embedsql "github.com/gyeh/ocifila/internal/sql"
	"github.com/gyeh/ocifila/internal/tabular"
)

// PreflightResult holds everything resolved before the file is read.
type PreflightResult struct {
	// FilePath is the path passed to Preflight, stored as-is.
	FilePath string
	// FileName is the base name recorded in the run archive.
	FileName   string
	FileSHA256 string
	FileSize   int64
	Format     tabular.Format
	// RunID identifies this analysis run in logs and in the archive.
	RunID uuid.UUID
	// PreviousRuns counts archived runs of a file with the same digest. It is
	// always zero without a database.
	PreviousRuns int64
}

// Preflight stats and hashes the input file, detects its format and assigns
// a run id. When pool is non-nil it also looks up earlier archived runs of
// the same file; a repeated file is reported, never skipped.
func Preflight(ctx context.Context, pool *pgxpool.Pool, log zerolog.Logger, filePath string) (*PreflightResult, error) {
	start := time.Now()

	stat, err := os.Stat(filePath)
	if err != nil {
		return nil, fmt.Errorf("preflight stat: %w", err)
	}
	if stat.IsDir() {
		return nil, fmt.Errorf("preflight: %s is a directory", filePath)
	}

	format, err := tabular.DetectFormat(filePath)
	if err != nil {
		return nil, fmt.Errorf("preflight: %w", err)
	}

	sha, err := normalize.FileHash(filePath)
	if err != nil {
		return nil, fmt.Errorf("preflight hash: %w", err)
	}

	pf := &PreflightResult{
		FilePath:   filePath,
		FileName:   filepath.Base(filePath),
		FileSHA256: sha,
		FileSize:   stat.Size(),
		Format:     format,
		RunID:      uuid.New(),
	}

	if pool != nil {
		if err := pool.QueryRow(ctx, embedsql.RunsBySHA, sha).Scan(&pf.PreviousRuns); err != nil {
			return nil, fmt.Errorf("preflight lookup runs: %w", err)
		}
		if pf.PreviousRuns > 0 {
			log.Info().
				Str("sha256", sha).
				Int64("previous_runs", pf.PreviousRuns).
				Msg("file was analyzed before")
		}
	}

	log.Info().
		Str("run_id", pf.RunID.String()).
		Str("file", pf.FileName).
		Str("format", string(format)).
		Int64("size_bytes", pf.FileSize).
		Str("sha256", sha).
		Str("duration", time.Since(start).String()).
		Msg("preflight complete")

	return pf, nil
}
