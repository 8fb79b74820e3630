// Package sanitize strips markup from user supplied text.
package sanitize

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// strict removes every HTML element; bluemonday policies are safe for concurrent use.
var strict = bluemonday.StrictPolicy()

// Text returns s with all markup removed and surrounding space trimmed.
func Text(s string) string {
	return strings.TrimSpace(strict.Sanitize(s))
}

// Strings sanitizes every element of ss in place and drops empty results.
func Strings(ss []string) []string {
	out := ss[:0]
	for _, s := range ss {
		if s = Text(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
