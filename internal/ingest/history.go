package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	embedsql "github.com/gyeh/ocifila/internal/sql"
)

// RunRecord is one archived analysis run.
type RunRecord struct {
	RunID           uuid.UUID
	SourceFileName  string
	SourceSHA256    string
	TotalRecords    int
	TotalPatients   int
	MatchedPatients int
	BundlesFound    int
	GeneratedAt     time.Time
	ExportedRows    int64
}

// ListRuns returns the most recent archived runs, newest first.
func ListRuns(ctx context.Context, pool *pgxpool.Pool, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := pool.Query(ctx, embedsql.ListRuns, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	runs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (RunRecord, error) {
		var r RunRecord
		err := row.Scan(
			&r.RunID, &r.SourceFileName, &r.SourceSHA256,
			&r.TotalRecords, &r.TotalPatients, &r.MatchedPatients, &r.BundlesFound,
			&r.GeneratedAt, &r.ExportedRows,
		)
		return r, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan runs: %w", err)
	}
	return runs, nil
}

// DeleteRun removes an archived run and, by cascade, its export rows.
// It reports whether the run existed.
func DeleteRun(ctx context.Context, pool *pgxpool.Pool, runID uuid.UUID) (bool, error) {
	tag, err := pool.Exec(ctx, embedsql.DeleteRun, runID)
	if err != nil {
		return false, fmt.Errorf("delete run: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
