package normalize

import (
	"regexp"
	"strings"
)

var digitsOnly = regexp.MustCompile(`^\d+$`)

// PadDigits left-pads a purely numeric value with zeros up to width.
// Values containing anything other than digits are returned trimmed but
// otherwise untouched; values already at or beyond width are kept as-is.
func PadDigits(v string, width int) string {
	s := strings.TrimSpace(v)
	if !digitsOnly.MatchString(s) || len(s) >= width {
		return s
	}
	return strings.Repeat("0", width-len(s)) + s
}

// Facility normalizes a CNES facility code to 7 digits.
func Facility(v string) string {
	return PadDigits(v, 7)
}

// Procedure normalizes a SIGTAP procedure code to 10 digits.
func Procedure(v string) string {
	return PadDigits(v, 10)
}
