package model

import "strings"

// Column names of the regulation-system solicitation export.
const (
	ColLocalID        = "IDENTIFICADOR_LOCAL"
	ColPatient        = "DOCUMENTO_PACIENTE"
	ColRequestDate    = "DATA_SOLICITACAO"
	ColRequesterCNES  = "CNES_SOLICITANTE"
	ColRegulatorCNES  = "CNES_REGULADOR"
	ColProcedure      = "CODIGO_SIGTAP"
	ColOccupation     = "CBO"
	ColDiagnosis      = "CID10"
	ColModality       = "CODIGO_MODALIDADE_ASSISTENCIAL"
	ColPriority       = "CODIGO_CARTER_SOLICITACAO"
	ColStatus         = "STATUS"
	ColAuthorizedDate = "DATA_AUTORIZACAO"
	ColExecutionDate  = "DATA_EXECUCAO"
	ColExecutorCNES   = "CNES_EXECUTANTE"
)

// RequiredColumns lists every column an upload must carry, in template order.
var RequiredColumns = []string{
	ColLocalID,
	ColPatient,
	ColRequestDate,
	ColRequesterCNES,
	ColRegulatorCNES,
	ColProcedure,
	ColOccupation,
	ColDiagnosis,
	ColModality,
	ColPriority,
	ColStatus,
	ColAuthorizedDate,
	ColExecutionDate,
	ColExecutorCNES,
}

// FacilityColumns hold CNES codes, zero-padded to 7 digits.
var FacilityColumns = []string{ColRequesterCNES, ColRegulatorCNES, ColExecutorCNES}

// DateColumns hold calendar dates rendered as dd/mm/yyyy.
var DateColumns = []string{ColRequestDate, ColAuthorizedDate, ColExecutionDate}

// StatusPending is the only status eligible for bundle analysis ("em espera").
const StatusPending = "1"

// MissingColumns returns the required columns absent from header, in
// RequiredColumns order.
func MissingColumns(header []string) []string {
	present := make(map[string]bool, len(header))
	for _, h := range header {
		present[strings.TrimSpace(h)] = true
	}
	var missing []string
	for _, col := range RequiredColumns {
		if !present[col] {
			missing = append(missing, col)
		}
	}
	return missing
}
