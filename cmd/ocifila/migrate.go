package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gyeh/ocifila/internal/db"
	"github.com/gyeh/ocifila/internal/exitcode"
)

var migrateCheck bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or upgrade the oci schema used by --archive and history",
	Long: "Applies the embedded oci.analysis_runs / oci.export_rows migrations that are not yet " +
		"recorded in public.ocifila_migrations. With --check, only lists what would run.",
	RunE: runMigrate,
}

func init() {
	migrateCmd.Flags().BoolVar(&migrateCheck, "check", false, "List pending migrations without applying them")
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	log := newLogger()
	ctx := context.Background()

	if cfg.DSN == "" {
		log.Error().Msg("archive database not configured: pass --dsn or set " + dsnEnv)
		os.Exit(exitcode.UsageError)
	}

	pool, err := db.NewPool(ctx, cfg.DSN)
	if err != nil {
		log.Error().Err(err).Msg("cannot reach archive database")
		os.Exit(exitcode.DBConnError)
	}
	defer pool.Close()

	if migrateCheck {
		pending, err := db.PendingMigrations(ctx, pool)
		if err != nil {
			log.Error().Err(err).Msg("cannot read migration state")
			os.Exit(exitcode.ArchiveError)
		}
		if len(pending) == 0 {
			fmt.Println("Archive schema is up to date.")
			return nil
		}
		fmt.Printf("%d pending migration(s):\n", len(pending))
		for _, name := range pending {
			fmt.Printf("  %s\n", name)
		}
		return nil
	}

	if err := db.ApplyMigrations(ctx, pool, log); err != nil {
		log.Error().Err(err).Msg("archive schema upgrade failed")
		os.Exit(exitcode.ArchiveError)
	}
	fmt.Println("Archive schema is up to date.")
	return nil
}
