package analysis

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/gyeh/ocifila/internal/catalog"
	"github.com/gyeh/ocifila/internal/model"
)

var fixedNow = time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

func opts() Options {
	return Options{Now: func() time.Time { return fixedNow }}
}

// rec builds a pending solicitation with the given patient and code.
func rec(patient, code string, mods ...func(*model.Solicitation)) model.Solicitation {
	s := model.Solicitation{
		Patient:       patient,
		Procedure:     code,
		Status:        model.StatusPending,
		RequesterCNES: "2077469",
		Diagnosis:     "C50",
		RequestDate:   "01/02/2025",
		Occupation:    "225125",
	}
	for _, m := range mods {
		m(&s)
	}
	return s
}

func withStatus(st string) func(*model.Solicitation) {
	return func(s *model.Solicitation) { s.Status = st }
}

func withDate(d string) func(*model.Solicitation) {
	return func(s *model.Solicitation) { s.RequestDate = d }
}

func mustCatalog(t *testing.T, bundles ...catalog.Bundle) *catalog.Catalog {
	t.Helper()
	c, err := catalog.New(bundles)
	if err != nil {
		t.Fatalf("catalog.New: %v", err)
	}
	return c
}

func bundle(code, name string, mandatory []string, optional []string) catalog.Bundle {
	b := catalog.Bundle{Code: code, Name: name}
	for _, c := range mandatory {
		b.Mandatory = append(b.Mandatory, catalog.Item{Code: c, Description: "desc " + c})
	}
	for _, c := range optional {
		b.Optional = append(b.Optional, catalog.Item{Code: c, Description: "desc " + c})
	}
	return b
}

func TestAnalyze_ScenarioMandatorySubset(t *testing.T) {
	cat := mustCatalog(t, bundle("0901010014", "OCI AB", []string{"A", "B"}, nil))
	records := []model.Solicitation{
		rec("X", "A"), rec("X", "B"), rec("X", "C"),
		rec("Y", "A"),
	}

	r := Analyze(cat, records, opts())

	if r.Summary != (model.Summary{TotalRecords: 4, TotalPatients: 2, MatchedPatients: 1, BundlesFound: 1}) {
		t.Errorf("unexpected summary: %+v", r.Summary)
	}
	if len(r.Grouped) != 2 {
		t.Fatalf("expected 2 grouped rows (A, B; C is not a bundle item), got %d", len(r.Grouped))
	}
	for i, code := range []string{"A", "B"} {
		g := r.Grouped[i]
		if g.Patient != "X" || g.ItemCode != code || g.Tag != model.TagMandatory || g.BundleCode != "09.01.01.0014" {
			t.Errorf("grouped[%d] = %+v", i, g)
		}
	}
	if len(r.Ungrouped) != 1 {
		t.Fatalf("expected 1 ungrouped row, got %d", len(r.Ungrouped))
	}
	u := r.Ungrouped[0]
	if u.Patient != "Y" || u.ItemCode != "A" || u.ItemDescription != "desc A" ||
		u.Tag != model.TagUngrouped || u.BundleCode != model.NotGrouped || u.BundleName != model.NotGrouped {
		t.Errorf("unexpected ungrouped row: %+v", u)
	}
}

func TestAnalyze_OptionalNeverGates(t *testing.T) {
	cat := mustCatalog(t, bundle("0901010014", "OCI", []string{"A"}, []string{"B"}))

	// optional alone does not qualify
	r := Analyze(cat, []model.Solicitation{rec("P", "B")}, opts())
	if r.Summary.MatchedPatients != 0 || len(r.Grouped) != 0 {
		t.Errorf("optional-only patient must not match: %+v", r.Summary)
	}

	// mandatory without optional qualifies
	r = Analyze(cat, []model.Solicitation{rec("P", "A")}, opts())
	if r.Summary.MatchedPatients != 1 {
		t.Errorf("mandatory-only patient must match: %+v", r.Summary)
	}

	// optional rows are emitted after mandatory ones and tagged FAC
	r = Analyze(cat, []model.Solicitation{rec("P", "B"), rec("P", "A")}, opts())
	if len(r.Grouped) != 2 || r.Grouped[0].Tag != model.TagMandatory || r.Grouped[1].Tag != model.TagOptional ||
		r.Grouped[1].ItemCode != "B" {
		t.Errorf("unexpected grouped rows: %+v", r.Grouped)
	}
}

func TestAnalyze_SharedMandatoryCodeAcrossBundles(t *testing.T) {
	cat := mustCatalog(t,
		bundle("0901010014", "FIRST", []string{"A", "B"}, nil),
		bundle("0901010022", "SECOND", []string{"A", "C"}, nil),
	)
	records := []model.Solicitation{rec("P", "A"), rec("P", "B"), rec("P", "C")}

	r := Analyze(cat, records, opts())

	if r.Summary.BundlesFound != 2 || r.Summary.MatchedPatients != 1 {
		t.Fatalf("unexpected summary: %+v", r.Summary)
	}
	var perBundleA []string
	for _, g := range r.Grouped {
		if g.ItemCode == "A" {
			perBundleA = append(perBundleA, g.BundleName)
		}
	}
	if !reflect.DeepEqual(perBundleA, []string{"FIRST", "SECOND"}) {
		t.Errorf("code A should be emitted once per bundle, got %v", perBundleA)
	}
	if len(r.Ungrouped) != 0 {
		t.Errorf("matched patient must not appear ungrouped: %+v", r.Ungrouped)
	}
}

func TestAnalyze_NonPendingExcluded(t *testing.T) {
	cat := mustCatalog(t, bundle("0901010014", "OCI", []string{"A"}, nil))
	records := []model.Solicitation{
		rec("P", "A", withStatus("2")),
		rec("Q", "Z"),
	}

	r := Analyze(cat, records, opts())

	if r.Summary.TotalRecords != 1 || r.Summary.TotalPatients != 1 {
		t.Errorf("non-pending record must be uncounted: %+v", r.Summary)
	}
	for _, row := range r.ExportRows() {
		if row.Patient == "P" {
			t.Errorf("non-pending record leaked into output: %+v", row)
		}
	}
	if strings.Contains(r.Text(), "CNS/CPF_PAC P\t") {
		t.Error("non-pending record leaked into narrative")
	}
}

func TestAnalyze_EmptyInput(t *testing.T) {
	cat := mustCatalog(t, bundle("0901010014", "OCI", []string{"A"}, nil))

	r := Analyze(cat, nil, opts())

	if !r.Empty() {
		t.Error("expected empty report")
	}
	if r.Summary != (model.Summary{}) {
		t.Errorf("expected zero counters, got %+v", r.Summary)
	}
	if !strings.Contains(r.Narrative[0], " 0 CONJUNTOS") {
		t.Errorf("header should state zero bundles: %q", r.Narrative[0])
	}
	if len(r.ExportRows()) != 0 {
		t.Errorf("expected no export rows, got %d", len(r.ExportRows()))
	}
}

func TestAnalyze_DuplicateRecordIdempotent(t *testing.T) {
	cat := mustCatalog(t, bundle("0901010014", "OCI", []string{"A", "B"}, []string{"C"}))
	base := []model.Solicitation{rec("P", "A"), rec("P", "B", withDate("03/02/2025")), rec("P", "C")}
	dup := append(append([]model.Solicitation{}, base...), rec("P", "B", withDate("04/02/2025")))

	r1 := Analyze(cat, base, opts())
	r2 := Analyze(cat, dup, opts())

	if r1.Summary.MatchedPatients != r2.Summary.MatchedPatients || r1.Summary.BundlesFound != r2.Summary.BundlesFound {
		t.Errorf("duplicate changed matched sets: %+v vs %+v", r1.Summary, r2.Summary)
	}
	if len(r2.Grouped) != len(r1.Grouped)+1 {
		t.Fatalf("expected one extra row, got %d vs %d", len(r2.Grouped), len(r1.Grouped))
	}
	// both B rows appear, in input order, between A and C
	dates := []string{}
	for _, g := range r2.Grouped {
		dates = append(dates, g.ItemCode+"@"+g.RequestDate)
	}
	want := []string{"A@01/02/2025", "B@03/02/2025", "B@04/02/2025", "C@01/02/2025"}
	if !reflect.DeepEqual(dates, want) {
		t.Errorf("row order = %v, want %v", dates, want)
	}
}

func TestAnalyze_PatientsSortedWithinBundle(t *testing.T) {
	cat := mustCatalog(t, bundle("0901010014", "OCI", []string{"A"}, nil))
	records := []model.Solicitation{rec("300", "A"), rec("100", "A"), rec("200", "A")}

	r := Analyze(cat, records, opts())

	var got []string
	for _, g := range r.Grouped {
		got = append(got, g.Patient)
	}
	if !reflect.DeepEqual(got, []string{"100", "200", "300"}) {
		t.Errorf("patients not sorted: %v", got)
	}
}

func TestAnalyze_UnmatchedKeepsInputOrderAndPartitionsByPatient(t *testing.T) {
	cat := mustCatalog(t, bundle("0901010014", "OCI", []string{"A"}, nil))
	records := []model.Solicitation{
		rec("Z", "Q"),
		rec("M", "A"),
		rec("M", "UNRELATED"),
		rec("B", "R"),
	}

	r := Analyze(cat, records, opts())

	var got []string
	for _, u := range r.Ungrouped {
		got = append(got, u.Patient+":"+u.ItemCode)
	}
	if !reflect.DeepEqual(got, []string{"Z:Q", "B:R"}) {
		t.Errorf("ungrouped = %v", got)
	}
	for _, u := range r.Ungrouped {
		if u.ItemDescription != catalog.Fallback {
			t.Errorf("unknown code should use fallback description, got %q", u.ItemDescription)
		}
	}
}

func TestAnalyze_Deterministic(t *testing.T) {
	cat, err := catalog.Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	records := syntheticRecords(cat)

	r1 := Analyze(cat, records, opts())
	r2 := Analyze(cat, records, opts())

	if r1.Text() != r2.Text() {
		t.Error("narrative differs between identical runs")
	}
	if !reflect.DeepEqual(r1.ExportRows(), r2.ExportRows()) {
		t.Error("export rows differ between identical runs")
	}
}

// TestAnalyze_NarrativeMatchesExport checks that grouping matched export rows
// by (bundle, patient) reconstructs the narrative's per-patient line groups.
func TestAnalyze_NarrativeMatchesExport(t *testing.T) {
	cat, err := catalog.Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	r := Analyze(cat, syntheticRecords(cat), opts())
	if r.Summary.BundlesFound == 0 {
		t.Fatal("synthetic data should match at least one bundle")
	}

	fromNarrative := narrativeGroups(r.GroupedNarrative())

	fromExport := map[string][]string{}
	var exportOrder []string
	for _, g := range r.Grouped {
		key := g.BundleCode + "|" + g.Patient
		if _, ok := fromExport[key]; !ok {
			exportOrder = append(exportOrder, key)
		}
		fromExport[key] = append(fromExport[key], fmt.Sprintf(
			"-------- %s\tCNES_SOLC %s\tCID-%s\tDT_SOLC-%s\t%s - %s",
			g.Tag, g.RequesterCNES, g.Diagnosis, g.RequestDate, g.ItemCode, g.ItemDescription))
	}

	if !reflect.DeepEqual(fromNarrative.order, exportOrder) {
		t.Fatalf("group order differs:\nnarrative %v\nexport    %v", fromNarrative.order, exportOrder)
	}
	for _, key := range exportOrder {
		if !reflect.DeepEqual(fromNarrative.lines[key], fromExport[key]) {
			t.Errorf("group %s differs:\nnarrative %q\nexport    %q", key, fromNarrative.lines[key], fromExport[key])
		}
	}
}

// TestAnalyze_PartitionLaw checks that every eligible record is either
// ungrouped or belongs to a matched patient, never both.
func TestAnalyze_PartitionLaw(t *testing.T) {
	cat, err := catalog.Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	records := syntheticRecords(cat)
	r := Analyze(cat, records, opts())

	matched := map[string]bool{}
	for _, g := range r.Grouped {
		matched[g.Patient] = true
	}
	ungroupedByPatient := map[string]int{}
	for _, u := range r.Ungrouped {
		if matched[u.Patient] {
			t.Errorf("patient %s is both matched and ungrouped", u.Patient)
		}
		ungroupedByPatient[u.Patient]++
	}

	eligible, _ := FilterEligible(records)
	for _, rec := range eligible {
		if !matched[rec.Patient] && ungroupedByPatient[rec.Patient] == 0 {
			t.Errorf("record of patient %s is in neither partition", rec.Patient)
		}
	}
	unmatchedRecords := 0
	for _, rec := range eligible {
		if !matched[rec.Patient] {
			unmatchedRecords++
		}
	}
	if unmatchedRecords != len(r.Ungrouped) {
		t.Errorf("ungrouped rows %d, want %d", len(r.Ungrouped), unmatchedRecords)
	}
	if len(matched) != r.Summary.MatchedPatients {
		t.Errorf("matched patients %d, summary says %d", len(matched), r.Summary.MatchedPatients)
	}
}

// TestMatch_MembershipIffMandatorySubset checks membership against a brute
// force subset test for every (patient, bundle) pair.
func TestMatch_MembershipIffMandatorySubset(t *testing.T) {
	cat, err := catalog.Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	eligible, _ := FilterEligible(syntheticRecords(cat))
	ix := BuildIndex(eligible)
	m := Match(cat, ix)

	got := map[string]bool{}
	for _, bm := range m.Bundles {
		for _, pm := range bm.Patients {
			got[bm.Bundle.Code+"|"+pm.Patient] = true
		}
	}
	for _, b := range cat.Bundles() {
		for _, p := range ix.Patients() {
			codes := map[string]bool{}
			for _, r := range eligible {
				if r.Patient == p {
					codes[r.Procedure] = true
				}
			}
			want := true
			for _, it := range b.Mandatory {
				if !codes[it.Code] {
					want = false
				}
			}
			if got[b.Code+"|"+p] != want {
				t.Errorf("bundle %s patient %s: matched=%v want %v", b.Code, p, got[b.Code+"|"+p], want)
			}
		}
	}
}

func TestCompose_NarrativeLayout(t *testing.T) {
	cat := mustCatalog(t, bundle("0901010014", "OCI MAMA", []string{"0204030030"}, []string{"0205020097"}))
	records := []model.Solicitation{
		rec("111", "0204030030"),
		rec("111", "0205020097"),
		rec("222", "0999999999"),
	}

	r := Analyze(cat, records, opts())

	want := []string{
		"*********************    FORAM ENCONTRADOS 1 CONJUNTOS DE OCI'S    ***********************",
		"",
		sectionRule,
		"09.01.01.0014 - OCI MAMA",
		"",
		"--- 111",
		"-------- OBG\tCNES_SOLC 2077469\tCID-C50\tDT_SOLC-01/02/2025\t0204030030 - desc 0204030030",
		"-------- FAC\tCNES_SOLC 2077469\tCID-C50\tDT_SOLC-01/02/2025\t0205020097 - desc 0205020097",
		"",
		UngroupedHeading,
		"- CNES_SOLC 2077469\tCID C50\tCNS/CPF_PAC 222\tDT_SOLC 01/02/2025\t0999999999 - " + catalog.Fallback,
		"",
		"14/03/2025 09:26:53",
	}
	if !reflect.DeepEqual(r.Narrative, want) {
		t.Errorf("narrative mismatch:\n got %q\nwant %q", r.Narrative, want)
	}
	if got := r.GroupedNarrative(); len(got) != 8 {
		t.Errorf("GroupedNarrative should stop before the ungrouped section, got %d lines", len(got))
	}
}

func TestCompose_IncludeExecution(t *testing.T) {
	cat := mustCatalog(t, bundle("0901010014", "OCI", []string{"A"}, nil))
	records := []model.Solicitation{rec("P", "A", func(s *model.Solicitation) {
		s.ExecutorCNES = "1234567"
		s.AuthorizedDate = "02/02/2025"
	})}

	r := Analyze(cat, records, opts())
	if r.Grouped[0].ExecutorCNES != nil {
		t.Error("execution fields should be absent by default")
	}

	o := opts()
	o.IncludeExecution = true
	r = Analyze(cat, records, o)
	g := r.Grouped[0]
	if g.ExecutorCNES == nil || *g.ExecutorCNES != "1234567" || *g.AuthorizedDate != "02/02/2025" || *g.ExecutionDate != "" {
		t.Errorf("unexpected execution fields: %+v", g)
	}
}

func TestAnalyzeTable_SchemaError(t *testing.T) {
	cat := mustCatalog(t, bundle("0901010014", "OCI", []string{"A"}, nil))
	header := []string{model.ColPatient, model.ColProcedure, model.ColStatus}

	_, err := AnalyzeTable(cat, header, [][]string{{"P", "A", "1"}}, opts())

	var se *SchemaError
	if !errors.As(err, &se) {
		t.Fatalf("expected *SchemaError, got %v", err)
	}
	if len(se.Missing) != len(model.RequiredColumns)-3 {
		t.Errorf("unexpected missing list: %v", se.Missing)
	}
	if !strings.Contains(err.Error(), model.ColLocalID) {
		t.Errorf("error should name the missing columns: %v", err)
	}
}

func TestAnalyzeTable_NormalizesBeforeMatching(t *testing.T) {
	cat := mustCatalog(t, bundle("0901010014", "OCI", []string{"0204030030"}, nil))
	header := append([]string{}, model.RequiredColumns...)
	row := make([]string, len(header))
	for i, col := range header {
		switch col {
		case model.ColPatient:
			row[i] = "P"
		case model.ColProcedure:
			row[i] = "204030030"
		case model.ColStatus:
			row[i] = " 1 "
		case model.ColRequesterCNES:
			row[i] = "77469"
		case model.ColRequestDate:
			row[i] = "2025-02-01"
		}
	}

	r, err := AnalyzeTable(cat, header, [][]string{row}, opts())
	if err != nil {
		t.Fatalf("AnalyzeTable: %v", err)
	}
	if len(r.Grouped) != 1 {
		t.Fatalf("expected padded code to match, got %+v", r.Summary)
	}
	g := r.Grouped[0]
	if g.RequesterCNES != "0077469" || g.RequestDate != "01/02/2025" {
		t.Errorf("unexpected normalized row: %+v", g)
	}
}

func TestBuildIndex(t *testing.T) {
	records := []model.Solicitation{rec("b", "1"), rec("a", "1"), rec("b", "1"), rec("b", "2")}
	ix := BuildIndex(records)

	if !reflect.DeepEqual(ix.Patients(), []string{"a", "b"}) {
		t.Errorf("patients = %v", ix.Patients())
	}
	b, ok := ix.Get("b")
	if !ok {
		t.Fatal("patient b missing")
	}
	if len(b.ByCode["1"]) != 2 || b.ByCode["1"][0] != &records[0] || b.ByCode["1"][1] != &records[2] {
		t.Error("records for a code must keep input order and point into the input slice")
	}
	if !b.HasAll([]string{"1", "2"}) || b.HasAll([]string{"1", "3"}) {
		t.Error("HasAll mismatch")
	}
	if BuildIndex(nil).Len() != 0 {
		t.Error("empty input should yield an empty index")
	}
}

// syntheticRecords builds a deterministic mix: complete bundles, partial
// bundles, duplicates, non-pending rows and codes outside the catalog.
func syntheticRecords(cat *catalog.Catalog) []model.Solicitation {
	var out []model.Solicitation
	for i, b := range cat.Bundles() {
		full := fmt.Sprintf("7%05d", i)
		partial := fmt.Sprintf("8%05d", i)
		for _, it := range b.Mandatory {
			out = append(out, rec(full, it.Code))
		}
		for j, it := range b.Optional {
			if j%2 == 0 {
				out = append(out, rec(full, it.Code))
			}
		}
		if i%3 == 0 {
			out = append(out, rec(full, b.Mandatory[0].Code, withDate("15/01/2025")))
		}
		out = append(out, rec(full, "0000000000"))
		if len(b.Mandatory) > 1 {
			for _, it := range b.Mandatory[1:] {
				out = append(out, rec(partial, it.Code))
			}
		}
		out = append(out, rec(partial, b.Mandatory[0].Code, withStatus("3")))
	}
	out = append(out, rec("9", "1234567890"))
	return out
}

type groups struct {
	order []string
	lines map[string][]string
}

// narrativeGroups parses the grouped part of a narrative into
// "<bundle display code>|<patient>" keyed item lines.
func narrativeGroups(lines []string) groups {
	g := groups{lines: map[string][]string{}}
	var bundleCode, key string
	for _, line := range lines {
		switch {
		case strings.HasPrefix(line, "-------- "):
			g.lines[key] = append(g.lines[key], line)
		case strings.HasPrefix(line, "--- "):
			key = bundleCode + "|" + strings.TrimPrefix(line, "--- ")
			g.order = append(g.order, key)
		case strings.Contains(line, " - ") && !strings.HasPrefix(line, "*"):
			bundleCode = strings.SplitN(line, " - ", 2)[0]
		}
	}
	return g
}
