package server

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"

	"github.com/gyeh/ocifila/internal/catalog"
	"github.com/gyeh/ocifila/internal/config"
	"github.com/gyeh/ocifila/internal/export"
	"github.com/gyeh/ocifila/internal/model"
)

func newTestServer(t *testing.T, cfg *config.Config) *echo.Echo {
	t.Helper()
	cat, err := catalog.Default()
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	e, err := New(cfg, cat, zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

func queueCSV(rows ...[]string) string {
	var b strings.Builder
	b.WriteString(strings.Join(model.RequiredColumns, ";"))
	b.WriteString("\n")
	for _, r := range rows {
		b.WriteString(strings.Join(r, ";"))
		b.WriteString("\n")
	}
	return b.String()
}

func row(patient, code, status string) []string {
	return []string{"1", patient, "2025-01-10", "1234", "7654321", code, "225125", "C50", "1", "1", status, "", "", ""}
}

func uploadRequest(t *testing.T, field, filename, content string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	part.Write([]byte(content))
	w.Close()

	req := httptest.NewRequest(http.MethodPost, "/analyze_file", &body)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	return req
}

func serve(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestAnalyzeFile(t *testing.T) {
	e := newTestServer(t, &config.Config{})
	csv := queueCSV(
		row("111", "0204030030", "1"),
		row("111", "0301010307", "1"),
		row("111", "301010072", "1"),
		row("222", "0204030030", "1"),
		row("333", "0204030030", "2"),
	)

	rec := serve(e, uploadRequest(t, "file", "fila.csv", csv))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp analyzeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Success {
		t.Error("success = false")
	}
	s := resp.Summary.Summary
	if s.TotalRecords != 4 || s.TotalPatients != 2 || s.MatchedPatients != 1 || s.BundlesFound < 1 {
		t.Errorf("summary = %+v", s)
	}
	if len(resp.Ungrouped) != 1 || resp.Ungrouped[0].Patient != "222" || resp.Ungrouped[0].Tag != model.TagUngrouped {
		t.Errorf("ungrouped = %+v", resp.Ungrouped)
	}
	if len(resp.Narrative) == 0 || !strings.HasPrefix(resp.Narrative[0], "FORAM ENCONTRADOS") {
		t.Errorf("narrative = %q", resp.Narrative)
	}
	for _, r := range resp.Grouped {
		if r.Patient != "111" {
			t.Errorf("unexpected grouped patient %s", r.Patient)
		}
	}

	// The wire keys follow the upload page's expectations.
	var raw map[string]map[string]any
	json.Unmarshal(rec.Body.Bytes(), &raw)
	for _, key := range []string{"total_pacientes", "total_solicitacoes", "pacientes_agrupados", "agrupamentos_encontrados", "tempo_processamento", "tempos_parciais"} {
		if _, ok := raw["resumo"][key]; !ok {
			t.Errorf("resumo missing %q", key)
		}
	}
}

func TestAnalyzeFile_EmptyQueue(t *testing.T) {
	e := newTestServer(t, &config.Config{})
	rec := serve(e, uploadRequest(t, "file", "fila.csv", queueCSV()))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp analyzeResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Narrative[0] != "FORAM ENCONTRADOS 0 CONJUNTOS DE OCI'S" {
		t.Errorf("header = %q", resp.Narrative[0])
	}
	if resp.Grouped == nil || resp.Ungrouped == nil {
		t.Error("row sets must encode as empty arrays")
	}
}

func TestAnalyzeFile_MissingColumns(t *testing.T) {
	e := newTestServer(t, &config.Config{})
	rec := serve(e, uploadRequest(t, "file", "fila.csv", "DOCUMENTO_PACIENTE;CODIGO_SIGTAP\n1;2\n"))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp schemaErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Message != "Colunas obrigatórias faltando no arquivo" {
		t.Errorf("message = %q", resp.Message)
	}
	if len(resp.Details.MissingColumns) != len(model.RequiredColumns)-2 {
		t.Errorf("missing = %v", resp.Details.MissingColumns)
	}
}

func TestAnalyzeFile_BadRequests(t *testing.T) {
	e := newTestServer(t, &config.Config{})

	tests := []struct {
		name    string
		req     func() *http.Request
		status  int
		message string
	}{
		{
			name:    "no file field",
			req:     func() *http.Request { return uploadRequest(t, "other", "fila.csv", "x") },
			status:  http.StatusBadRequest,
			message: "Nenhum arquivo enviado",
		},
		{
			name: "not multipart",
			req: func() *http.Request {
				return httptest.NewRequest(http.MethodPost, "/analyze_file", strings.NewReader("{}"))
			},
			status:  http.StatusBadRequest,
			message: "Nenhum arquivo enviado",
		},
		{
			name:    "wrong extension",
			req:     func() *http.Request { return uploadRequest(t, "file", "fila.pdf", "x") },
			status:  http.StatusBadRequest,
			message: "Tipo de arquivo não permitido. Use .csv, .xlsx ou .parquet",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(e, tt.req())
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.status, rec.Body.String())
			}
			var resp errorResponse
			json.Unmarshal(rec.Body.Bytes(), &resp)
			if resp.Error != tt.message {
				t.Errorf("error = %q, want %q", resp.Error, tt.message)
			}
		})
	}
}

func TestAnalyzeFile_BodyLimit(t *testing.T) {
	e := newTestServer(t, &config.Config{MaxUploadBytes: "1K"})
	big := queueCSV(row("111", strings.Repeat("9", 2048), "1"))
	rec := serve(e, uploadRequest(t, "file", "fila.csv", big))
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", rec.Code)
	}
}

func TestDownloadXLSX(t *testing.T) {
	e := newTestServer(t, &config.Config{})
	body := `{"relatorio_agrupamentos":[{"AGRUPAMENTO_OCI":"09.01.01.0014","DESCRICAO_OCI":"OCI X","DOCUMENTO_PACIENTE":"111","ITEM OBG/FAC (X)":"OBG","CODIGO_SIGTAP":"0204030030"}],"relatorio_nao_agrupados":[]}`
	req := httptest.NewRequest(http.MethodPost, "/download_xlsx", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)

	rec := serve(e, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get(echo.HeaderContentType); ct != xlsxContentType {
		t.Errorf("content type = %q", ct)
	}
	if cd := rec.Header().Get(echo.HeaderContentDisposition); !strings.Contains(cd, "relatorio_oci_") {
		t.Errorf("content disposition = %q", cd)
	}

	wb, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer wb.Close()
	sheets := wb.GetSheetList()
	if len(sheets) != 1 || sheets[0] != export.SheetGrouped {
		t.Errorf("sheets = %v", sheets)
	}
	patient, _ := wb.GetCellValue(export.SheetGrouped, "C2")
	if patient != "111" {
		t.Errorf("C2 = %q", patient)
	}
}

func TestDownloadXLSX_Errors(t *testing.T) {
	e := newTestServer(t, &config.Config{})
	for body, want := range map[string]string{
		`{"relatorio_agrupamentos":[],"relatorio_nao_agrupados":[]}`: "Nenhum relatório fornecido",
		`not json`: "Dados não fornecidos",
	} {
		req := httptest.NewRequest(http.MethodPost, "/download_xlsx", strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := serve(e, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d", body, rec.Code)
			continue
		}
		var resp errorResponse
		json.Unmarshal(rec.Body.Bytes(), &resp)
		if resp.Error != want {
			t.Errorf("%s: error = %q, want %q", body, resp.Error, want)
		}
	}
}

func TestCatalog(t *testing.T) {
	e := newTestServer(t, &config.Config{})
	rec := serve(e, httptest.NewRequest(http.MethodGet, "/catalog", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var entries []catalogEntry
	if err := json.Unmarshal(rec.Body.Bytes(), &entries); err != nil {
		t.Fatalf("decode: %v", err)
	}
	cat, _ := catalog.Default()
	if len(entries) != cat.Len() {
		t.Fatalf("entries = %d, want %d", len(entries), cat.Len())
	}
	if entries[0].Code != "0901010014" || entries[0].DisplayCode != "09.01.01.0014" {
		t.Errorf("first entry = %+v", entries[0])
	}
}

func TestTemplate(t *testing.T) {
	e := newTestServer(t, &config.Config{})
	for _, path := range []string{"/template", "/download-modelo"} {
		rec := serve(e, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: status = %d", path, rec.Code)
		}
		wb, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
		if err != nil {
			t.Fatalf("%s: open workbook: %v", path, err)
		}
		rows, _ := wb.GetRows(wb.GetSheetName(0))
		wb.Close()
		if len(rows) != 1 || len(rows[0]) != len(model.RequiredColumns) {
			t.Errorf("%s: rows = %v", path, rows)
		}
	}
}

func TestHealthz(t *testing.T) {
	e := newTestServer(t, &config.Config{})
	rec := serve(e, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("healthz = %d %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get(echo.HeaderXRequestID) == "" {
		t.Error("missing request id header")
	}
}

func TestRecovery(t *testing.T) {
	e := newTestServer(t, &config.Config{})
	e.GET("/boom", func(c echo.Context) error { panic("boom") })
	rec := serve(e, httptest.NewRequest(http.MethodGet, "/boom", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestNew_BadSeparator(t *testing.T) {
	cat, _ := catalog.Default()
	if _, err := New(&config.Config{CSVSeparator: "ab"}, cat, zerolog.Nop()); err == nil {
		t.Error("expected error for invalid separator")
	}
}
