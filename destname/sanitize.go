// CLAUDE:SUMMARY Deterministic, lossy filename stem sanitization: character-class restriction, run collapsing, length cap.
// Package destname turns arbitrary source filenames into constrained,
// length-bounded destination names carrying a resolved date, and resolves
// those destination names back to their originating source files.
//
// Sanitization is deliberately lossy: punctuation collapses to underscores
// and long stems are truncated. Date extraction is not lossy, which is why
// reverse resolution filters on the date first and uses name similarity only
// as a tie-break.
package destname

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Sanitize restricts stem to [alphanumeric, whitespace, hyphen, underscore],
// collapses whitespace/underscore runs into a single underscore, trims
// leading and trailing underscores, and hard-truncates to maxLen (stripping
// any underscore left dangling by the cut).
//
// Deterministic and idempotent at a fixed maxLen:
// Sanitize(Sanitize(s, n), n) == Sanitize(s, n).
func Sanitize(stem string, maxLen int) string {
	var sb strings.Builder
	sb.Grow(len(stem))

	run := false // pending whitespace/underscore run
	for _, r := range stem {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-':
			if run && sb.Len() > 0 {
				sb.WriteByte('_')
			}
			run = false
			sb.WriteRune(r)
		case unicode.IsSpace(r) || r == '_':
			run = true
		default:
			// Any other character is an underscore, subject to the same
			// run collapsing as literal underscores.
			run = true
		}
	}

	s := truncate(sb.String(), maxLen)
	return strings.TrimRight(s, "_")
}

// truncate cuts s to at most maxLen bytes without splitting a rune.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
