package model

// SolicitationRow mirrors the Parquet layout of a solicitation export. Every
// column is optional so files missing a column still open; absent columns are
// reported by the schema check instead.
type SolicitationRow struct {
	LocalID        *string `parquet:"IDENTIFICADOR_LOCAL,optional"`
	Patient        *string `parquet:"DOCUMENTO_PACIENTE,optional"`
	RequestDate    *string `parquet:"DATA_SOLICITACAO,optional"`
	RequesterCNES  *string `parquet:"CNES_SOLICITANTE,optional"`
	RegulatorCNES  *string `parquet:"CNES_REGULADOR,optional"`
	Procedure      *string `parquet:"CODIGO_SIGTAP,optional"`
	Occupation     *string `parquet:"CBO,optional"`
	Diagnosis      *string `parquet:"CID10,optional"`
	Modality       *string `parquet:"CODIGO_MODALIDADE_ASSISTENCIAL,optional"`
	Priority       *string `parquet:"CODIGO_CARTER_SOLICITACAO,optional"`
	Status         *string `parquet:"STATUS,optional"`
	AuthorizedDate *string `parquet:"DATA_AUTORIZACAO,optional"`
	ExecutionDate  *string `parquet:"DATA_EXECUCAO,optional"`
	ExecutorCNES   *string `parquet:"CNES_EXECUTANTE,optional"`
}

// Values returns the row as strings in RequiredColumns order, nulls as "".
func (r *SolicitationRow) Values() []string {
	return []string{
		deref(r.LocalID),
		deref(r.Patient),
		deref(r.RequestDate),
		deref(r.RequesterCNES),
		deref(r.RegulatorCNES),
		deref(r.Procedure),
		deref(r.Occupation),
		deref(r.Diagnosis),
		deref(r.Modality),
		deref(r.Priority),
		deref(r.Status),
		deref(r.AuthorizedDate),
		deref(r.ExecutionDate),
		deref(r.ExecutorCNES),
	}
}

// NewSolicitationRow builds a Parquet row from a normalized Solicitation.
func NewSolicitationRow(s *Solicitation) SolicitationRow {
	return SolicitationRow{
		LocalID:        opt(s.LocalID),
		Patient:        opt(s.Patient),
		RequestDate:    opt(s.RequestDate),
		RequesterCNES:  opt(s.RequesterCNES),
		RegulatorCNES:  opt(s.RegulatorCNES),
		Procedure:      opt(s.Procedure),
		Occupation:     opt(s.Occupation),
		Diagnosis:      opt(s.Diagnosis),
		Modality:       opt(s.Modality),
		Priority:       opt(s.Priority),
		Status:         opt(s.Status),
		AuthorizedDate: opt(s.AuthorizedDate),
		ExecutionDate:  opt(s.ExecutionDate),
		ExecutorCNES:   opt(s.ExecutorCNES),
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func opt(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
