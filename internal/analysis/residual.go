package analysis

import (
	"github.com/gyeh/ocifila/internal/catalog"
	"github.com/gyeh/ocifila/internal/model"
)

// Unmatched is a record whose patient qualified for no bundle.
type Unmatched struct {
	Record      *model.Solicitation
	Description string
}

// Residuals returns, in input order, every record of a patient outside the
// matched set. The description is a catalog-wide label, not tied to a bundle.
func Residuals(cat *catalog.Catalog, records []model.Solicitation, m *MatchResult) []Unmatched {
	var out []Unmatched
	for i := range records {
		r := &records[i]
		if m.IsMatched(r.Patient) {
			continue
		}
		out = append(out, Unmatched{Record: r, Description: cat.Describe(r.Procedure)})
	}
	return out
}
