// Package textnorm canonicalizes free-form location strings so that stored
// hospital fields and incoming request fields compare the same way.
package textnorm

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// MaxLength is the rune cap applied to location fields.
const MaxLength = 50

// Normalize trims, lower-cases and truncates value to maxLen runes.
// Anything that is not a string normalizes to "" (unspecified).
func Normalize(value any, maxLen int) string {
	s, ok := value.(string)
	if !ok {
		return ""
	}
	return String(s, maxLen)
}

// String is Normalize for values already known to be strings.
func String(s string, maxLen int) string {
	// cases.Caser is stateful, so one per call.
	s = cases.Lower(language.Und).String(strings.TrimSpace(s))
	if maxLen < 0 {
		maxLen = 0
	}
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	n := 0
	for i := range s {
		if n == maxLen {
			return s[:i]
		}
		n++
	}
	return s
}
