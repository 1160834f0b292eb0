package model

import "time"

// Summary holds the counters of one bundle analysis.
type Summary struct {
	TotalRecords    int `json:"total_solicitacoes"`
	TotalPatients   int `json:"total_pacientes"`
	MatchedPatients int `json:"pacientes_agrupados"`
	BundlesFound    int `json:"agrupamentos_encontrados"`
}

// RunSummary captures metrics from a single file analysis run.
type RunSummary struct {
	RunID           string
	FilePath        string
	FileSHA256      string
	RowsRead        int64
	RowsDiscarded   int64
	RowsExported    int64
	RowsArchived    int64
	Analysis        Summary
	DurationRead    time.Duration
	DurationNorm    time.Duration
	DurationAnalyze time.Duration
	DurationExport  time.Duration
	DurationArchive time.Duration
	DurationTotal   time.Duration
}
