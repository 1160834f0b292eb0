package analysis

import (
	"fmt"
	"strings"

	"github.com/gyeh/ocifila/internal/model"
)

// SchemaError rejects a whole batch whose header lacks required columns.
type SchemaError struct {
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("missing required columns: %s", strings.Join(e.Missing, ", "))
}

// CheckSchema returns a *SchemaError when header lacks any required column.
func CheckSchema(header []string) error {
	if missing := model.MissingColumns(header); len(missing) > 0 {
		return &SchemaError{Missing: missing}
	}
	return nil
}

// FilterEligible keeps the pending solicitations, preserving input order.
// The second return value counts the discarded ones.
func FilterEligible(records []model.Solicitation) ([]model.Solicitation, int) {
	out := make([]model.Solicitation, 0, len(records))
	for i := range records {
		if records[i].Pending() {
			out = append(out, records[i])
		}
	}
	return out, len(records) - len(out)
}
