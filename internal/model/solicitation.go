package model

// Solicitation is one normalized procedure-authorization request. All fields
// are plain strings: codes are zero-padded, dates are dd/mm/yyyy or empty.
type Solicitation struct {
	// Row is the 1-based data row number in the source file.
	Row int

	LocalID        string
	Patient        string
	RequestDate    string
	RequesterCNES  string
	RegulatorCNES  string
	Procedure      string
	Occupation     string
	Diagnosis      string
	Modality       string
	Priority       string
	Status         string
	AuthorizedDate string
	ExecutionDate  string
	ExecutorCNES   string
}

// Pending reports whether the solicitation is waiting in the queue.
func (s *Solicitation) Pending() bool {
	return s.Status == StatusPending
}

// Values returns the solicitation as strings in RequiredColumns order.
func (s *Solicitation) Values() []string {
	return []string{
		s.LocalID,
		s.Patient,
		s.RequestDate,
		s.RequesterCNES,
		s.RegulatorCNES,
		s.Procedure,
		s.Occupation,
		s.Diagnosis,
		s.Modality,
		s.Priority,
		s.Status,
		s.AuthorizedDate,
		s.ExecutionDate,
		s.ExecutorCNES,
	}
}

// SolicitationFromColumns builds a Solicitation from a row and a column
// position map. Columns absent from pos are left empty.
func SolicitationFromColumns(rowNum int, row []string, pos map[string]int) Solicitation {
	get := func(col string) string {
		i, ok := pos[col]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}
	return Solicitation{
		Row:            rowNum,
		LocalID:        get(ColLocalID),
		Patient:        get(ColPatient),
		RequestDate:    get(ColRequestDate),
		RequesterCNES:  get(ColRequesterCNES),
		RegulatorCNES:  get(ColRegulatorCNES),
		Procedure:      get(ColProcedure),
		Occupation:     get(ColOccupation),
		Diagnosis:      get(ColDiagnosis),
		Modality:       get(ColModality),
		Priority:       get(ColPriority),
		Status:         get(ColStatus),
		AuthorizedDate: get(ColAuthorizedDate),
		ExecutionDate:  get(ColExecutionDate),
		ExecutorCNES:   get(ColExecutorCNES),
	}
}
