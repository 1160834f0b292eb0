package analysis

import (
	"github.com/gyeh/ocifila/internal/catalog"
	"github.com/gyeh/ocifila/internal/model"
)

// MatchedRow ties one bundle item to one backing record.
type MatchedRow struct {
	Item   catalog.Item
	Tag    model.ItemTag
	Record *model.Solicitation
}

// PatientMatch is a qualifying patient and its emitted rows: mandatory items
// in definition order, then optional ones, one row per record.
type PatientMatch struct {
	Patient string
	Rows    []MatchedRow
}

// BundleMatch is the outcome of one bundle with at least one qualifying patient.
type BundleMatch struct {
	Bundle   *catalog.Bundle
	Patients []PatientMatch
}

// MatchResult holds matched bundles in catalog order and the set of patients
// that qualified for at least one of them.
type MatchResult struct {
	Bundles []BundleMatch
	Matched map[string]struct{}
}

// IsMatched reports whether the patient qualified for any bundle.
func (m *MatchResult) IsMatched(patient string) bool {
	_, ok := m.Matched[patient]
	return ok
}

// Match evaluates every bundle against every patient. A patient qualifies
// for a bundle when all its mandatory codes are on file; optional codes never
// gate membership. Bundles are independent, so one patient may appear under
// several of them. Bundles nobody qualifies for are omitted.
func Match(cat *catalog.Catalog, ix *Index) *MatchResult {
	res := &MatchResult{Matched: make(map[string]struct{})}
	bundles := cat.Bundles()
	for i := range bundles {
		b := &bundles[i]
		required := b.MandatoryCodes()

		var patients []PatientMatch
		for _, id := range ix.Patients() {
			p, _ := ix.Get(id)
			if !p.HasAll(required) {
				continue
			}
			res.Matched[id] = struct{}{}
			patients = append(patients, PatientMatch{Patient: id, Rows: bundleRows(b, p)})
		}
		if len(patients) > 0 {
			res.Bundles = append(res.Bundles, BundleMatch{Bundle: b, Patients: patients})
		}
	}
	return res
}

func bundleRows(b *catalog.Bundle, p *PatientRecords) []MatchedRow {
	var rows []MatchedRow
	emit := func(items []catalog.Item, tag model.ItemTag) {
		for _, it := range items {
			for _, rec := range p.ByCode[it.Code] {
				rows = append(rows, MatchedRow{Item: it, Tag: tag, Record: rec})
			}
		}
	}
	emit(b.Mandatory, model.TagMandatory)
	emit(b.Optional, model.TagOptional)
	return rows
}
