package exitcode

const (
	Success         = 0
	UsageError      = 1
	ValidationError = 2
	DBConnError     = 3
	ReadError       = 4
	ExportError     = 5
	ArchiveError    = 6
	// ServerError is a runtime failure of the HTTP server: bind or shutdown.
	ServerError = 7
)
