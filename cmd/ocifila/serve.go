package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gyeh/ocifila/internal/exitcode"
	"github.com/gyeh/ocifila/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the upload and analysis HTTP API",
	RunE:  runServe,
}

func init() {
	f := serveCmd.Flags()
	f.StringVar(&cfg.ListenAddr, "addr", "", "Listen address (default :$PORT or :5000)")
	f.StringVar(&cfg.MaxUploadBytes, "max-upload", server.DefaultMaxUpload, "Maximum upload size, e.g. 16M")
	f.BoolVar(&cfg.IncludeExecution, "include-execution", false, "Add executor CNES, authorization and execution dates to exports")
	f.StringVar(&cfg.CSVSeparator, "separator", "", "CSV field separator (default ;)")
	f.StringVar(&cfg.Encoding, "encoding", "", "CSV text encoding: utf-8 or latin1 (default utf-8)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	log := newLogger()
	cat := loadCatalog(log)

	addr := cfg.ListenAddr
	if addr == "" {
		addr = ":5000"
		if port := os.Getenv("PORT"); port != "" {
			addr = ":" + port
		}
	}

	e, err := server.New(&cfg, cat, log)
	if err != nil {
		log.Error().Err(err).Msg("invalid server configuration")
		os.Exit(exitcode.UsageError)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.Serve(ctx, e, addr, log); err != nil {
		log.Error().Err(err).Str("addr", addr).Msg("server stopped with error")
		os.Exit(exitcode.ServerError)
	}
	return nil
}
