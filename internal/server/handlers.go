package server

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/gyeh/ocifila/internal/analysis"
	"github.com/gyeh/ocifila/internal/catalog"
	"github.com/gyeh/ocifila/internal/export"
	"github.com/gyeh/ocifila/internal/model"
	"github.com/gyeh/ocifila/internal/normalize"
	"github.com/gyeh/ocifila/internal/tabular"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type schemaErrorResponse struct {
	Message string        `json:"message"`
	Details schemaDetails `json:"details"`
}

type schemaDetails struct {
	MissingColumns []string `json:"missing_columns"`
}

type phaseTimes struct {
	Read      float64 `json:"leitura"`
	Normalize float64 `json:"formatacao"`
	Analyze   float64 `json:"analise"`
}

type analysisSummary struct {
	model.Summary
	ProcessingTime float64    `json:"tempo_processamento"`
	PhaseTimes     phaseTimes `json:"tempos_parciais"`
}

type analyzeResponse struct {
	Success   bool              `json:"success"`
	Narrative []string          `json:"relatorio"`
	Grouped   []model.ExportRow `json:"relatorio_agrupamentos"`
	Ungrouped []model.ExportRow `json:"relatorio_nao_agrupados"`
	Summary   analysisSummary   `json:"resumo"`
}

type downloadRequest struct {
	Grouped   []model.ExportRow `json:"relatorio_agrupamentos"`
	Ungrouped []model.ExportRow `json:"relatorio_nao_agrupados"`
}

type catalogEntry struct {
	catalog.Bundle
	DisplayCode string `json:"codigo_formatado"`
}

func (s *Server) healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":  "ok",
		"bundles": s.cat.Len(),
	})
}

func (s *Server) listCatalog(c echo.Context) error {
	bundles := s.cat.Bundles()
	out := make([]catalogEntry, len(bundles))
	for i := range bundles {
		out[i] = catalogEntry{Bundle: bundles[i], DisplayCode: bundles[i].DisplayCode()}
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) template(c echo.Context) error {
	var buf bytes.Buffer
	if err := export.WriteTemplate(&buf); err != nil {
		return fmt.Errorf("template: %w", err)
	}
	return attachment(c, "arquivo_modelo.xlsx", buf.Bytes())
}

func (s *Server) analyzeFile(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return echo.NewHTTPError(http.StatusBadRequest, "Nenhum arquivo enviado")
		}
		return err
	}
	if fh.Filename == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Nome de arquivo vazio")
	}
	format, err := tabular.DetectFormat(fh.Filename)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Tipo de arquivo não permitido. Use .csv, .xlsx ou .parquet")
	}

	start := time.Now()
	f, err := fh.Open()
	if err != nil {
		return fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	table, err := tabular.Read(f, fh.Size, format, s.opts)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, fmt.Sprintf("Erro ao processar arquivo: %v", err)).SetInternal(err)
	}
	readDone := time.Now()

	if err := analysis.CheckSchema(table.Header); err != nil {
		var se *analysis.SchemaError
		if errors.As(err, &se) {
			return c.JSON(http.StatusBadRequest, schemaErrorResponse{
				Message: "Colunas obrigatórias faltando no arquivo",
				Details: schemaDetails{MissingColumns: se.Missing},
			})
		}
		return err
	}
	records := normalize.Rows(table.Header, table.Rows)
	normDone := time.Now()

	report := analysis.Analyze(s.cat, records, analysis.Options{
		IncludeExecution: s.includeExecution,
		Now:              s.now,
	})
	analyzeDone := time.Now()

	if report.Empty() {
		s.log.Warn().
			Str("file", fh.Filename).
			Int("rows", len(records)).
			Msg("no pending solicitations in upload")
	}

	return c.JSON(http.StatusOK, analyzeResponse{
		Success:   true,
		Narrative: report.Narrative,
		Grouped:   nonNil(report.Grouped),
		Ungrouped: nonNil(report.Ungrouped),
		Summary: analysisSummary{
			Summary:        report.Summary,
			ProcessingTime: seconds(analyzeDone.Sub(start)),
			PhaseTimes: phaseTimes{
				Read:      seconds(readDone.Sub(start)),
				Normalize: seconds(normDone.Sub(readDone)),
				Analyze:   seconds(analyzeDone.Sub(normDone)),
			},
		},
	})
}

func (s *Server) downloadXLSX(c echo.Context) error {
	var req downloadRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Dados não fornecidos")
	}
	if len(req.Grouped) == 0 && len(req.Ungrouped) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "Nenhum relatório fornecido")
	}

	includeExecution := s.includeExecution || hasExecution(req.Grouped) || hasExecution(req.Ungrouped)
	var buf bytes.Buffer
	if err := export.WriteXLSX(&buf, req.Grouped, req.Ungrouped, includeExecution); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, fmt.Sprintf("Erro ao gerar XLSX: %v", err)).SetInternal(err)
	}
	return attachment(c, export.FileName(s.now(), export.FormatXLSX), buf.Bytes())
}

func attachment(c echo.Context, name string, data []byte) error {
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", name))
	return c.Blob(http.StatusOK, xlsxContentType, data)
}

func hasExecution(rows []model.ExportRow) bool {
	for i := range rows {
		r := &rows[i]
		if r.ExecutorCNES != nil || r.AuthorizedDate != nil || r.ExecutionDate != nil {
			return true
		}
	}
	return false
}

func nonNil(rows []model.ExportRow) []model.ExportRow {
	if rows == nil {
		return []model.ExportRow{}
	}
	return rows
}

// seconds rounds d to hundredths of a second.
func seconds(d time.Duration) float64 {
	return math.Round(d.Seconds()*100) / 100
}
