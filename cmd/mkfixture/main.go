// mkfixture generates a synthetic regulation queue from the bundle catalog,
// mixing complete bundles, incomplete ones and non-pending solicitations.
// Usage: go run ./cmd/mkfixture --out testdata/fila.parquet --patients 200
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"time"

	goparquet "github.com/parquet-go/parquet-go"

	"github.com/gyeh/ocifila/internal/catalog"
	"github.com/gyeh/ocifila/internal/model"
	"github.com/gyeh/ocifila/internal/tabular"
)

var (
	facilities = []string{"2077485", "2078015", "2082187", "3126838", "6771963"}
	diagnoses  = []string{"C50", "N63", "C53", "D06", "C61", "C16", "C18", "Z01"}
	cbos       = []string{"225125", "225250", "225270", "225285", ""}
	statuses   = []string{"2", "3", "4"}
)

func main() {
	out := flag.String("out", "testdata/fila.parquet", "output file (.parquet or .csv)")
	patients := flag.Int("patients", 200, "number of patients")
	seed := flag.Uint64("seed", 1, "random seed")
	catalogPath := flag.String("catalog", "", "bundle catalog YAML (default: built-in)")
	checkOnly := flag.Bool("check", false, "only print stats of --out, don't write")
	flag.Parse()

	if *checkOnly {
		if err := check(*out); err != nil {
			fmt.Fprintf(os.Stderr, "check: %v\n", err)
			os.Exit(1)
		}
		return
	}

	cat, err := catalog.Load(*catalogPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load catalog: %v\n", err)
		os.Exit(1)
	}

	rows := generate(cat, *patients, rand.New(rand.NewPCG(*seed, *seed)))

	if err := os.MkdirAll(filepath.Dir(*out), 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "create dir: %v\n", err)
		os.Exit(1)
	}
	switch strings.ToLower(filepath.Ext(*out)) {
	case ".parquet":
		err = writeParquet(*out, rows)
	case ".csv":
		err = writeCSV(*out, rows)
	default:
		err = fmt.Errorf("unsupported output extension %q", filepath.Ext(*out))
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "write: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Wrote %d solicitations for %d patients to %s\n", len(rows), *patients, *out)
}

// generate gives each patient one bundle: about half get every mandatory
// item, the rest miss one. Optional items, a duplicate and a non-pending
// record are sprinkled in.
func generate(cat *catalog.Catalog, patients int, rng *rand.Rand) []model.Solicitation {
	bundles := cat.Bundles()
	base := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)

	var rows []model.Solicitation
	id := 0
	add := func(patient, code, status string) {
		id++
		rows = append(rows, model.Solicitation{
			LocalID:       fmt.Sprintf("%d", 100000+id),
			Patient:       patient,
			RequestDate:   base.AddDate(0, 0, rng.IntN(180)).Format("2006-01-02"),
			RequesterCNES: facilities[rng.IntN(len(facilities))],
			RegulatorCNES: facilities[0],
			Procedure:     code,
			Occupation:    cbos[rng.IntN(len(cbos))],
			Diagnosis:     diagnoses[rng.IntN(len(diagnoses))],
			Modality:      "1",
			Priority:      fmt.Sprintf("%d", 1+rng.IntN(2)),
			Status:        status,
		})
	}

	for p := 0; p < patients; p++ {
		patient := fmt.Sprintf("7%014d", rng.Uint64N(1e14))
		b := bundles[rng.IntN(len(bundles))]

		skip := -1
		if rng.IntN(2) == 0 {
			skip = rng.IntN(len(b.Mandatory))
		}
		for i, it := range b.Mandatory {
			if i != skip {
				add(patient, it.Code, model.StatusPending)
			}
		}
		for _, it := range b.Optional {
			if rng.IntN(3) == 0 {
				add(patient, it.Code, model.StatusPending)
			}
		}
		if rng.IntN(10) == 0 && len(b.Mandatory) > 0 {
			add(patient, b.Mandatory[0].Code, model.StatusPending)
		}
		if rng.IntN(5) == 0 {
			add(patient, b.Mandatory[0].Code, statuses[rng.IntN(len(statuses))])
		}
	}

	rng.Shuffle(len(rows), func(i, j int) { rows[i], rows[j] = rows[j], rows[i] })
	return rows
}

func writeParquet(path string, rows []model.Solicitation) error {
	out := make([]model.SolicitationRow, len(rows))
	for i := range rows {
		out[i] = model.NewSolicitationRow(&rows[i])
	}
	return goparquet.WriteFile(path, out)
}

func writeCSV(path string, rows []model.Solicitation) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	w.Comma = ';'
	if err := w.Write(model.RequiredColumns); err != nil {
		f.Close()
		return err
	}
	for i := range rows {
		if err := w.Write(rows[i].Values()); err != nil {
			f.Close()
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func check(path string) error {
	table, err := tabular.Open(path, tabular.DefaultOptions())
	if err != nil {
		return err
	}
	missing := model.MissingColumns(table.Header)
	pos := map[string]int{}
	for i, h := range table.Header {
		if _, ok := pos[h]; !ok {
			pos[h] = i
		}
	}
	statusCount := map[string]int{}
	patients := map[string]bool{}
	for _, row := range table.Rows {
		if i, ok := pos[model.ColStatus]; ok && i < len(row) {
			statusCount[row[i]]++
		}
		if i, ok := pos[model.ColPatient]; ok && i < len(row) {
			patients[row[i]] = true
		}
	}
	fmt.Printf("Rows: %d, patients: %d, missing columns: %v\n", len(table.Rows), len(patients), missing)
	for st, n := range statusCount {
		fmt.Printf("  status %q: %d\n", st, n)
	}
	return nil
}
