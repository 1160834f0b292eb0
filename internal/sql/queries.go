package sql

import (
	"embed"
)

// Migrations holds the schema DDL, applied in filename order.
//
//go:embed migrations/*.sql
var Migrations embed.FS

//go:embed queries/insert_run.sql
var InsertRun string

//go:embed queries/list_runs.sql
var ListRuns string

//go:embed queries/delete_run.sql
var DeleteRun string

//go:embed queries/runs_by_sha.sql
var RunsBySHA string
