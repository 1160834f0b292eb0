package db

import (
	"context"
	"fmt"
	"io/fs"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	embedsql "github.com/gyeh/ocifila/internal/sql"
)

const migrationsTable = `CREATE TABLE IF NOT EXISTS public.ocifila_migrations (
    name       text PRIMARY KEY,
    applied_at timestamptz NOT NULL DEFAULT now()
)`

// ApplyMigrations runs the embedded SQL migrations in filename order, each in
// its own transaction, and records them so later runs skip them. The DDL
// itself also uses IF NOT EXISTS, so replaying a migration is harmless.
func ApplyMigrations(ctx context.Context, pool *pgxpool.Pool, log zerolog.Logger) error {
	entries, err := fs.ReadDir(embedsql.Migrations, "migrations")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	if _, err := pool.Exec(ctx, migrationsTable); err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}
	applied, err := appliedMigrations(ctx, pool)
	if err != nil {
		return err
	}

	count := 0
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || applied[name] {
			continue
		}
		data, err := fs.ReadFile(embedsql.Migrations, "migrations/"+name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}

		log.Info().Str("migration", name).Msg("applying migration")
		err = pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, string(data)); err != nil {
				return err
			}
			_, err := tx.Exec(ctx, "INSERT INTO public.ocifila_migrations (name) VALUES ($1)", name)
			return err
		})
		if err != nil {
			return fmt.Errorf("execute migration %s: %w", name, err)
		}
		count++
	}

	log.Info().Int("applied", count).Int("total", len(entries)).Msg("migrations up to date")
	return nil
}

func appliedMigrations(ctx context.Context, pool *pgxpool.Pool) (map[string]bool, error) {
	rows, err := pool.Query(ctx, "SELECT name FROM public.ocifila_migrations")
	if err != nil {
		return nil, fmt.Errorf("list applied migrations: %w", err)
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan applied migrations: %w", err)
	}
	applied := make(map[string]bool, len(names))
	for _, n := range names {
		applied[n] = true
	}
	return applied, nil
}

// PendingMigrations lists the embedded migrations not yet recorded as
// applied, in the order ApplyMigrations would run them.
func PendingMigrations(ctx context.Context, pool *pgxpool.Pool) ([]string, error) {
	entries, err := fs.ReadDir(embedsql.Migrations, "migrations")
	if err != nil {
		return nil, fmt.Errorf("read migrations dir: %w", err)
	}
	if _, err := pool.Exec(ctx, migrationsTable); err != nil {
		return nil, fmt.Errorf("create migrations table: %w", err)
	}
	applied, err := appliedMigrations(ctx, pool)
	if err != nil {
		return nil, err
	}

	var pending []string
	for _, entry := range entries {
		if !entry.IsDir() && !applied[entry.Name()] {
			pending = append(pending, entry.Name())
		}
	}
	sort.Strings(pending)
	return pending, nil
}
