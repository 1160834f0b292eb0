package analysis

import (
	"sort"

	"github.com/gyeh/ocifila/internal/model"
)

// PatientRecords is the per-patient view used by the matcher.
type PatientRecords struct {
	Patient string
	// ByCode lists every record carrying a procedure code, in input order.
	ByCode map[string][]*model.Solicitation
}

// Has reports whether the patient has at least one record for code.
func (p *PatientRecords) Has(code string) bool {
	return len(p.ByCode[code]) > 0
}

// HasAll reports whether every code is present for the patient.
func (p *PatientRecords) HasAll(codes []string) bool {
	for _, c := range codes {
		if !p.Has(c) {
			return false
		}
	}
	return true
}

// Index groups eligible records by patient. It is built once per run.
type Index struct {
	patients map[string]*PatientRecords
	order    []string
}

// BuildIndex groups records by patient identifier. The records slice must
// outlive the index; entries point into it.
func BuildIndex(records []model.Solicitation) *Index {
	ix := &Index{patients: make(map[string]*PatientRecords)}
	for i := range records {
		r := &records[i]
		p, ok := ix.patients[r.Patient]
		if !ok {
			p = &PatientRecords{Patient: r.Patient, ByCode: make(map[string][]*model.Solicitation)}
			ix.patients[r.Patient] = p
			ix.order = append(ix.order, r.Patient)
		}
		p.ByCode[r.Procedure] = append(p.ByCode[r.Procedure], r)
	}
	sort.Strings(ix.order)
	return ix
}

// Len returns the number of distinct patients.
func (ix *Index) Len() int {
	return len(ix.order)
}

// Patients returns patient identifiers in ascending order.
func (ix *Index) Patients() []string {
	return ix.order
}

// Get returns the records of one patient.
func (ix *Index) Get(patient string) (*PatientRecords, bool) {
	p, ok := ix.patients[patient]
	return p, ok
}
