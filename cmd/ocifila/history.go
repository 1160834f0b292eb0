package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/gyeh/ocifila/internal/db"
	"github.com/gyeh/ocifila/internal/exitcode"
	"github.com/gyeh/ocifila/internal/ingest"
)

var (
	historyLimit int
	deleteRunID  string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List or delete archived analysis runs",
	RunE:  runHistory,
}

func init() {
	f := historyCmd.Flags()
	f.IntVar(&historyLimit, "limit", 20, "Number of runs to list")
	f.StringVar(&deleteRunID, "delete", "", "Delete the archived run with this id")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	log := newLogger()
	ctx := context.Background()

	if cfg.DSN == "" {
		log.Error().Msg("--dsn or " + dsnEnv + " is required")
		os.Exit(exitcode.UsageError)
	}

	var runID uuid.UUID
	if deleteRunID != "" {
		var err error
		if runID, err = uuid.Parse(deleteRunID); err != nil {
			log.Error().Err(err).Msg("invalid run id")
			os.Exit(exitcode.UsageError)
		}
	}

	pool, err := db.NewPool(ctx, cfg.DSN)
	if err != nil {
		log.Error().Err(err).Msg("database connection failed")
		os.Exit(exitcode.DBConnError)
	}
	defer pool.Close()

	if deleteRunID != "" {
		return deleteRun(ctx, pool, log, runID)
	}

	runs, err := ingest.ListRuns(ctx, pool, historyLimit)
	if err != nil {
		log.Error().Err(err).Msg("failed to list runs")
		os.Exit(exitcode.ArchiveError)
	}
	if len(runs) == 0 {
		fmt.Println("No archived runs.")
		return nil
	}
	fmt.Printf("%-36s  %-19s  %8s  %8s  %7s  %7s  %s\n",
		"RUN", "GENERATED", "RECORDS", "PATIENTS", "GROUPED", "BUNDLES", "FILE")
	for _, r := range runs {
		fmt.Printf("%-36s  %-19s  %8d  %8d  %7d  %7d  %s\n",
			r.RunID, r.GeneratedAt.Local().Format("02/01/2006 15:04:05"),
			r.TotalRecords, r.TotalPatients, r.MatchedPatients, r.BundlesFound, r.SourceFileName)
	}
	return nil
}

func deleteRun(ctx context.Context, pool *pgxpool.Pool, log zerolog.Logger, runID uuid.UUID) error {
	ok, err := ingest.DeleteRun(ctx, pool, runID)
	if err != nil {
		log.Error().Err(err).Msg("failed to delete run")
		os.Exit(exitcode.ArchiveError)
	}
	if !ok {
		log.Warn().Str("run_id", runID.String()).Msg("run not found")
		return nil
	}
	fmt.Printf("Deleted run %s\n", runID)
	return nil
}
