// Package server exposes the bundle analysis over HTTP for the upload page:
// analyze a queue file, download the workbook, list the catalog and fetch
// the blank template.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/gyeh/ocifila/internal/catalog"
	"github.com/gyeh/ocifila/internal/config"
	"github.com/gyeh/ocifila/internal/tabular"
)

// DefaultMaxUpload mirrors the upload limit of the original web form.
const DefaultMaxUpload = "16M"

// Server holds the state shared by all requests. The catalog is read-only
// and safe for concurrent use.
type Server struct {
	cat              *catalog.Catalog
	log              zerolog.Logger
	opts             tabular.Options
	includeExecution bool
	now              func() time.Time
}

// New builds the echo instance with middleware and routes.
func New(cfg *config.Config, cat *catalog.Catalog, log zerolog.Logger) (*echo.Echo, error) {
	opts, err := cfg.TabularOptions()
	if err != nil {
		return nil, err
	}
	s := &Server{
		cat:              cat,
		log:              log,
		opts:             opts,
		includeExecution: cfg.IncludeExecution,
		now:              time.Now,
	}

	limit := cfg.MaxUploadBytes
	if limit == "" {
		limit = DefaultMaxUpload
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler(log)

	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{
		Generator: uuid.NewString,
		RequestIDHandler: func(c echo.Context, id string) {
			c.Set(requestIDKey, id)
		},
	}))
	e.Use(requestLogger(log))
	e.Use(recovery(log))
	e.Use(echomw.BodyLimit(limit))

	s.routes(e)
	return e, nil
}

func (s *Server) routes(e *echo.Echo) {
	e.GET("/healthz", s.healthz)
	e.GET("/catalog", s.listCatalog)
	e.GET("/template", s.template)
	e.GET("/download-modelo", s.template)
	e.POST("/analyze_file", s.analyzeFile)
	e.POST("/download_xlsx", s.downloadXLSX)
}

// Serve runs e on addr until ctx is cancelled, then shuts down gracefully.
func Serve(ctx context.Context, e *echo.Echo, addr string, log zerolog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Info().Msg("server stopped")
	return nil
}
