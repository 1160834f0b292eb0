package normalize

import (
	"strings"
	"time"
)

// OutputDateFormat is the canonical rendering of every date column.
const OutputDateFormat = "02/01/2006"

// Date formats found in regulation exports, tried in order. ISO dates come
// first, then the Brazilian day-first form.
var dateFormats = []string{
	"2006-01-02",
	"02/01/2006",
	"2/1/2006",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
}

// ParseDate attempts to parse a date string in the known formats.
// Returns nil if the input is empty or unparseable.
func ParseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, f := range dateFormats {
		if t, err := time.Parse(f, s); err == nil {
			return &t
		}
	}
	return nil
}

// Date renders s as dd/mm/yyyy, or "" when it cannot be parsed.
func Date(s string) string {
	t := ParseDate(s)
	if t == nil {
		return ""
	}
	return t.Format(OutputDateFormat)
}
