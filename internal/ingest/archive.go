package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/gyeh/ocifila/internal/analysis"
	"github.com/gyeh/ocifila/internal/db"
	"github.com/gyeh/ocifila/internal/model"
	embedsql "github.com/gyeh/ocifila/internal/sql"
)

const copyBufferSize = 1024

// ArchiveResult holds metrics from the archive phase.
type ArchiveResult struct {
	RowsArchived int64
	Duration     time.Duration
}

// Archive stores the run header and every export row of the report in one
// transaction. Rows are streamed to COPY through a channel-backed source in
// report order (grouped first), numbered from 1.
func Archive(ctx context.Context, pool *pgxpool.Pool, log zerolog.Logger, pf *PreflightResult, report *analysis.Report, discarded int64) (*ArchiveResult, error) {
	start := time.Now()
	s := report.Summary

	var copied int64
	err := pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, embedsql.InsertRun,
			pf.RunID, pf.FileName, pf.FileSHA256,
			s.TotalRecords, s.TotalPatients, s.MatchedPatients, s.BundlesFound,
			discarded, report.GeneratedAt,
		)
		if err != nil {
			return fmt.Errorf("insert run: %w", err)
		}

		copyCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		ch := make(chan db.SeqRow, copyBufferSize)
		done := make(chan struct{})
		go func() {
			defer close(done)
			defer close(ch)
			produce(copyCtx, ch, report.Grouped, 1)
			produce(copyCtx, ch, report.Ungrouped, int64(len(report.Grouped))+1)
		}()

		copied, err = tx.CopyFrom(ctx,
			pgx.Identifier{"oci", "export_rows"},
			model.ArchiveColumns(),
			db.NewChannelSource(pf.RunID, ch),
		)
		// Unblock the producer if COPY stopped reading early.
		cancel()
		<-done
		if err != nil {
			return fmt.Errorf("copy export rows: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	dur := time.Since(start)
	log.Info().
		Str("run_id", pf.RunID.String()).
		Int64("rows_archived", copied).
		Str("duration", dur.String()).
		Msg("archive complete")

	return &ArchiveResult{RowsArchived: copied, Duration: dur}, nil
}

func produce(ctx context.Context, ch chan<- db.SeqRow, rows []model.ExportRow, first int64) {
	for i := range rows {
		select {
		case ch <- db.SeqRow{Seq: first + int64(i), Row: &rows[i]}:
		case <-ctx.Done():
			return
		}
	}
}
