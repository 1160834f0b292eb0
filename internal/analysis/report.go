package analysis

import (
	"fmt"
	"strings"
	"time"

	"github.com/gyeh/ocifila/internal/model"
)

const (
	headerFormat     = "*********************    FORAM ENCONTRADOS %d CONJUNTOS DE OCI'S    ***********************"
	sectionRule      = "_________________________________________________________________________________________"
	UngroupedHeading = "********************    PACIENTES QUE NÃO ESTÃO EM NENHUM CONJUNTO  ***********************"
	footerFormat     = "02/01/2006 15:04:05"
)

// Report is the rendered outcome of one analysis. Narrative and export rows
// come from the same traversal and always cover the same records.
type Report struct {
	Narrative   []string
	Grouped     []model.ExportRow
	Ungrouped   []model.ExportRow
	Summary     model.Summary
	GeneratedAt time.Time
}

// ExportRows returns grouped rows followed by ungrouped rows.
func (r *Report) ExportRows() []model.ExportRow {
	out := make([]model.ExportRow, 0, len(r.Grouped)+len(r.Ungrouped))
	out = append(out, r.Grouped...)
	return append(out, r.Ungrouped...)
}

// Text joins the narrative lines with newlines.
func (r *Report) Text() string {
	return strings.Join(r.Narrative, "\n") + "\n"
}

// Empty reports whether the run had no eligible solicitation at all.
func (r *Report) Empty() bool {
	return r.Summary.TotalRecords == 0
}

// GroupedNarrative returns the narrative up to, not including, the ungrouped
// section.
func (r *Report) GroupedNarrative() []string {
	for i, line := range r.Narrative {
		if line == UngroupedHeading {
			end := i
			if end > 0 && r.Narrative[end-1] == "" {
				end--
			}
			return r.Narrative[:end]
		}
	}
	return r.Narrative
}

// Compose renders matched and unmatched data into narrative lines and export
// rows. Ordering follows the match result: bundle catalog order, patient id,
// mandatory then optional items, record input order.
func Compose(m *MatchResult, unmatched []Unmatched, summary model.Summary, includeExecution bool, now time.Time) *Report {
	summary.BundlesFound = len(m.Bundles)
	r := &Report{Summary: summary, GeneratedAt: now}

	r.Narrative = append(r.Narrative, fmt.Sprintf(headerFormat, len(m.Bundles)), "")

	for _, bm := range m.Bundles {
		code := bm.Bundle.DisplayCode()
		r.Narrative = append(r.Narrative,
			sectionRule,
			fmt.Sprintf("%s - %s", code, bm.Bundle.Name),
			"",
		)
		for _, pm := range bm.Patients {
			r.Narrative = append(r.Narrative, "--- "+pm.Patient)
			for _, row := range pm.Rows {
				rec := row.Record
				r.Narrative = append(r.Narrative, fmt.Sprintf(
					"-------- %s\tCNES_SOLC %s\tCID-%s\tDT_SOLC-%s\t%s - %s",
					row.Tag, rec.RequesterCNES, rec.Diagnosis, rec.RequestDate, row.Item.Code, row.Item.Description,
				))
				r.Grouped = append(r.Grouped, exportRow(rec, code, bm.Bundle.Name, row.Tag,
					row.Item.Code, row.Item.Description, includeExecution))
			}
		}
	}

	r.Narrative = append(r.Narrative, "", UngroupedHeading)
	for _, u := range unmatched {
		rec := u.Record
		r.Narrative = append(r.Narrative, fmt.Sprintf(
			"- CNES_SOLC %s\tCID %s\tCNS/CPF_PAC %s\tDT_SOLC %s\t%s - %s",
			rec.RequesterCNES, rec.Diagnosis, rec.Patient, rec.RequestDate, rec.Procedure, u.Description,
		))
		r.Ungrouped = append(r.Ungrouped, exportRow(rec, model.NotGrouped, model.NotGrouped, model.TagUngrouped,
			rec.Procedure, u.Description, includeExecution))
	}

	r.Narrative = append(r.Narrative, "", now.Format(footerFormat))
	return r
}

func exportRow(rec *model.Solicitation, bundleCode, bundleName string, tag model.ItemTag, code, desc string, includeExecution bool) model.ExportRow {
	row := model.ExportRow{
		BundleCode:      bundleCode,
		BundleName:      bundleName,
		Patient:         rec.Patient,
		RequestDate:     rec.RequestDate,
		RequesterCNES:   rec.RequesterCNES,
		Tag:             tag,
		Diagnosis:       rec.Diagnosis,
		ItemCode:        code,
		ItemDescription: desc,
		Occupation:      rec.Occupation,
	}
	if includeExecution {
		executor, authorized, executed := rec.ExecutorCNES, rec.AuthorizedDate, rec.ExecutionDate
		row.ExecutorCNES = &executor
		row.AuthorizedDate = &authorized
		row.ExecutionDate = &executed
	}
	return row
}
