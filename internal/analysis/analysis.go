// Package analysis groups pending solicitations into OCI bundles per patient
// and renders the narrative and tabular reports.
//
// The engine is a pure function of its input: no I/O, no shared mutable
// state. A shared *catalog.Catalog may be used by concurrent runs.
package analysis

import (
	"time"

	"github.com/gyeh/ocifila/internal/catalog"
	"github.com/gyeh/ocifila/internal/model"
	"github.com/gyeh/ocifila/internal/normalize"
)

// Options tune report rendering.
type Options struct {
	// IncludeExecution adds executor CNES, authorization and execution dates
	// to export rows.
	IncludeExecution bool
	// Now stamps the narrative footer; defaults to time.Now.
	Now func() time.Time
}

func (o Options) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

// Analyze runs the bundle analysis over normalized solicitations. Records
// whose status is not pending are dropped first and never counted. An input
// without eligible records yields a valid empty report.
func Analyze(cat *catalog.Catalog, records []model.Solicitation, opts Options) *Report {
	eligible, _ := FilterEligible(records)

	ix := BuildIndex(eligible)
	m := Match(cat, ix)
	unmatched := Residuals(cat, eligible, m)

	summary := model.Summary{
		TotalRecords:    len(eligible),
		TotalPatients:   ix.Len(),
		MatchedPatients: len(m.Matched),
	}
	return Compose(m, unmatched, summary, opts.IncludeExecution, opts.now())
}

// AnalyzeTable validates the header, normalizes the raw rows and analyzes
// them. A missing required column fails the batch with a *SchemaError before
// any row is looked at.
func AnalyzeTable(cat *catalog.Catalog, header []string, rows [][]string, opts Options) (*Report, error) {
	if err := CheckSchema(header); err != nil {
		return nil, err
	}
	return Analyze(cat, normalize.Rows(header, rows), opts), nil
}
