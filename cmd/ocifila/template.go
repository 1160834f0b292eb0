package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gyeh/ocifila/internal/exitcode"
	"github.com/gyeh/ocifila/internal/export"
)

var templatePath string

var templateCmd = &cobra.Command{
	Use:   "template",
	Short: "Write a blank upload workbook with the required columns",
	RunE:  runTemplate,
}

func init() {
	templateCmd.Flags().StringVar(&templatePath, "out", "arquivo_modelo.xlsx", "Output path")
	rootCmd.AddCommand(templateCmd)
}

func runTemplate(cmd *cobra.Command, args []string) error {
	log := newLogger()

	f, err := os.Create(templatePath)
	if err != nil {
		log.Error().Err(err).Msg("failed to create template")
		os.Exit(exitcode.ExportError)
	}
	if err := export.WriteTemplate(f); err != nil {
		f.Close()
		log.Error().Err(err).Msg("failed to write template")
		os.Exit(exitcode.ExportError)
	}
	if err := f.Close(); err != nil {
		log.Error().Err(err).Msg("failed to write template")
		os.Exit(exitcode.ExportError)
	}

	fmt.Printf("Template written to %s\n", templatePath)
	return nil
}
