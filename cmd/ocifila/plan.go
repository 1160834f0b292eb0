package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/gyeh/ocifila/internal/analysis"
	"github.com/gyeh/ocifila/internal/catalog"
	"github.com/gyeh/ocifila/internal/exitcode"
	"github.com/gyeh/ocifila/internal/ingest"
	"github.com/gyeh/ocifila/internal/model"
	"github.com/gyeh/ocifila/internal/normalize"
	"github.com/gyeh/ocifila/internal/tabular"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Dry-run validation and stats (no writes)",
	RunE:  runPlan,
}

func init() {
	addInputFlags(planCmd)
	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	log := newLogger()

	if err := cfg.Validate(); err != nil {
		log.Error().Err(err).Msg("config validation failed")
		os.Exit(exitcode.UsageError)
	}
	cat := loadCatalog(log)

	pf, err := ingest.Preflight(context.Background(), nil, zerolog.Nop(), cfg.FilePath)
	if err != nil {
		log.Error().Err(err).Msg("preflight failed")
		os.Exit(exitcode.ValidationError)
	}

	opts, _ := cfg.TabularOptions()
	table, err := tabular.Open(cfg.FilePath, opts)
	if err != nil {
		log.Error().Err(err).Msg("failed to read file")
		os.Exit(exitcode.ReadError)
	}

	fmt.Println("=== ocifila plan ===")
	fmt.Printf("File:       %s\n", pf.FilePath)
	fmt.Printf("Format:     %s\n", pf.Format)
	fmt.Printf("SHA-256:    %s\n", pf.FileSHA256)
	fmt.Printf("Size:       %d bytes\n", pf.FileSize)
	fmt.Printf("Total rows: %d\n", len(table.Rows))
	fmt.Printf("Catalog:    %d bundles\n", cat.Len())

	if err := analysis.CheckSchema(table.Header); err != nil {
		var se *analysis.SchemaError
		if errors.As(err, &se) {
			fmt.Println("Missing columns:")
			for _, col := range se.Missing {
				fmt.Printf("  %s\n", col)
			}
		}
		log.Error().Err(err).Msg("schema validation failed")
		os.Exit(exitcode.ValidationError)
	}

	records := normalize.Rows(table.Header, table.Rows)
	eligible, discarded := analysis.FilterEligible(records)
	ix := analysis.BuildIndex(eligible)

	statuses := make(map[string]int)
	catalogCodes := 0
	for i := range records {
		statuses[records[i].Status]++
	}
	for i := range eligible {
		if cat.Describe(eligible[i].Procedure) != catalog.Fallback {
			catalogCodes++
		}
	}

	fmt.Println()
	fmt.Println("Status distribution:")
	keys := make([]string, 0, len(statuses))
	for k := range statuses {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		label := k
		if k == model.StatusPending {
			label += " (pending)"
		}
		fmt.Printf("  %-14s %d\n", label, statuses[k])
	}
	fmt.Println()
	fmt.Printf("Eligible solicitations:   %d\n", len(eligible))
	fmt.Printf("Discarded (not pending):  %d\n", discarded)
	fmt.Printf("Distinct patients:        %d\n", ix.Len())
	fmt.Printf("Codes found in catalog:   %d\n", catalogCodes)
	fmt.Println("Schema validation: OK")

	return nil
}
