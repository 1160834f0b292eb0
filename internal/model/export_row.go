package model

// ItemTag marks how an export row relates to its bundle.
type ItemTag string

const (
	TagMandatory ItemTag = "OBG"
	TagOptional  ItemTag = "FAC"
	TagUngrouped ItemTag = "N/A"
)

// NotGrouped fills the bundle fields of rows whose patient matched no bundle.
const NotGrouped = "NÃO AGRUPADO"

// ExportRow is one flat line of the structured report. Grouped and ungrouped
// rows share the same shape; ungrouped rows carry NotGrouped bundle fields.
type ExportRow struct {
	BundleCode      string  `parquet:"agrupamento_oci" json:"AGRUPAMENTO_OCI"`
	BundleName      string  `parquet:"descricao_oci" json:"DESCRICAO_OCI"`
	Patient         string  `parquet:"documento_paciente" json:"DOCUMENTO_PACIENTE"`
	RequestDate     string  `parquet:"data_solicitacao" json:"DATA_SOLICITACAO"`
	RequesterCNES   string  `parquet:"cnes_solicitante" json:"CNES_SOLICITANTE"`
	Tag             ItemTag `parquet:"item_obg_fac" json:"ITEM OBG/FAC (X)"`
	Diagnosis       string  `parquet:"cid10" json:"CID10"`
	ItemCode        string  `parquet:"codigo_sigtap" json:"CODIGO_SIGTAP"`
	ItemDescription string  `parquet:"descricao_sigtap" json:"DESCRICAO_SIGTAP"`
	Occupation      string  `parquet:"cbo" json:"CBO"`

	// Execution details, populated only when requested.
	ExecutorCNES   *string `parquet:"cnes_executante,optional" json:"CNES_EXECUTANTE,omitempty"`
	AuthorizedDate *string `parquet:"data_autorizacao,optional" json:"DATA_AUTORIZACAO,omitempty"`
	ExecutionDate  *string `parquet:"data_execucao,optional" json:"DATA_EXECUCAO,omitempty"`
}

// Grouped reports whether the row belongs to a matched bundle.
func (r *ExportRow) Grouped() bool {
	return r.Tag != TagUngrouped
}

// ExportHeaders returns the spreadsheet headers in column order.
func ExportHeaders(includeExecution bool) []string {
	h := []string{
		"AGRUPAMENTO_OCI",
		"DESCRICAO_OCI",
		"DOCUMENTO_PACIENTE",
		"DATA_SOLICITACAO",
		"CNES_SOLICITANTE",
		"ITEM OBG/FAC (X)",
		"CID10",
		"CODIGO_SIGTAP",
		"DESCRICAO_SIGTAP",
		"CBO",
	}
	if includeExecution {
		h = append(h, "CNES_EXECUTANTE", "DATA_AUTORIZACAO", "DATA_EXECUCAO")
	}
	return h
}

// Strings returns the row values in ExportHeaders order.
func (r *ExportRow) Strings(includeExecution bool) []string {
	v := []string{
		r.BundleCode,
		r.BundleName,
		r.Patient,
		r.RequestDate,
		r.RequesterCNES,
		string(r.Tag),
		r.Diagnosis,
		r.ItemCode,
		r.ItemDescription,
		r.Occupation,
	}
	if includeExecution {
		v = append(v, deref(r.ExecutorCNES), deref(r.AuthorizedDate), deref(r.ExecutionDate))
	}
	return v
}

// ArchiveColumns returns the ordered column names for COPY into oci.export_rows.
func ArchiveColumns() []string {
	return []string{
		"run_id",
		"seq",
		"bundle_code",
		"bundle_name",
		"patient_document",
		"request_date",
		"requester_cnes",
		"item_tag",
		"cid10",
		"sigtap_code",
		"sigtap_description",
		"cbo",
		"executor_cnes",
		"authorized_date",
		"execution_date",
	}
}

// CopyValues returns the row values in the same order as ArchiveColumns(),
// suitable for pgx CopyFromSource.
func (r *ExportRow) CopyValues(runID any, seq int64) []any {
	return []any{
		runID,
		seq,
		r.BundleCode,
		r.BundleName,
		r.Patient,
		r.RequestDate,
		r.RequesterCNES,
		string(r.Tag),
		r.Diagnosis,
		r.ItemCode,
		r.ItemDescription,
		r.Occupation,
		r.ExecutorCNES,
		r.AuthorizedDate,
		r.ExecutionDate,
	}
}
