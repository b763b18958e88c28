// CLAUDE:SUMMARY Ordered rule tables for filename and content date resolution, plus the month/weekday dictionaries.
// CLAUDE:EXPORTS (internal) filenameRules, contentRules
package datesolve

import (
	"regexp"
	"strings"
)

// rule pairs a compiled pattern with an extractor that range-validates the
// captured fields. An extractor returning ok=false means "matched but
// invalid" and resolution falls through to the next rule.
type rule struct {
	re      *regexp.Regexp
	extract func(m []string) (Resolution, bool)
}

func (r rule) apply(s string) (Resolution, bool) {
	m := r.re.FindStringSubmatch(s)
	if m == nil {
		return Resolution{}, false
	}
	return r.extract(m)
}

// filenameRules is the filename priority chain. Order matters: the canonical
// YYYY-MM-DD_ prefix is tier 1 and day-bearing numeric forms rank above the
// day-less month/year forms. Insert new formats at the correct priority
// rather than widening an existing pattern.
var filenameRules = []rule{
	// Tier 1: canonical prefix, the trusted form.
	{
		re:      regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})_`),
		extract: fullYMD,
	},
	// Tier 2: YYYY sep MM sep DD anywhere in the name.
	{
		re:      regexp.MustCompile(`(\d{4})[-_.](\d{1,2})[-_.](\d{1,2})`),
		extract: fullYMD,
	},
	// Tier 3: MM sep DD sep YYYY, month/day disambiguated by validity.
	{
		re:      regexp.MustCompile(`(\d{1,2})[-_](\d{1,2})[-_](\d{4})`),
		extract: fullMDY,
	},
	// Tier 4: MM sep DD sep YY, two-digit year expanded (<50 → 20yy, else 19yy).
	{
		re:      regexp.MustCompile(`(\d{1,2})[-_](\d{1,2})[-_](\d{2})(?:[^0-9]|$)`),
		extract: func(m []string) (Resolution, bool) {
			month, day, ok := disambiguate(atoi(m[1]), atoi(m[2]))
			if !ok {
				return Resolution{}, false
			}
			return full(Date{Year: expandYear2(atoi(m[3])), Month: month, Day: day})
		},
	},
	// Tier 5: "MonthName DD, YYYY" (full names, 3-letter abbreviations,
	// abbreviations with a trailing period; the comma is optional).
	{
		re: regexp.MustCompile(`([A-Za-z]{3,9})\.?\s+(\d{1,2}),?\s+(\d{4})`),
		extract: func(m []string) (Resolution, bool) {
			month, ok := monthByName(m[1])
			if !ok {
				return Resolution{}, false
			}
			return full(Date{Year: atoi(m[3]), Month: month, Day: atoi(m[2])})
		},
	},
	// Tier 6: MonthName-YYYY / MonthName_YYYY, day defaults to 01.
	{
		re: regexp.MustCompile(`([A-Za-z]{3,9})\.?[-_](\d{4})`),
		extract: func(m []string) (Resolution, bool) {
			month, ok := monthByName(m[1])
			if !ok {
				return Resolution{}, false
			}
			return full(Date{Year: atoi(m[2]), Month: month, Day: 1})
		},
	},
	// Tier 7: MM sep YYYY, day defaults to 01. Only reached when no
	// day-bearing numeric pattern matched above.
	{
		re: regexp.MustCompile(`(\d{1,2})[-_](\d{4})`),
		extract: func(m []string) (Resolution, bool) {
			return full(Date{Year: atoi(m[2]), Month: atoi(m[1]), Day: 1})
		},
	},
	// Tier 8: YYYY sep MM, day defaults to 01.
	{
		re: regexp.MustCompile(`(\d{4})[-_.](\d{1,2})`),
		extract: func(m []string) (Resolution, bool) {
			return full(Date{Year: atoi(m[1]), Month: atoi(m[2]), Day: 1})
		},
	},
}

// contentRules is the document-body priority chain. It is richer than the
// filename chain because bodies carry prose dates and editorial prefixes.
// The broadcast rule may yield a partial resolution (no year in the line).
var contentRules = []rule{
	// Explicit Date: header field.
	{
		re:      regexp.MustCompile(`(?i)date:\s*(\d{4})-(\d{1,2})-(\d{1,2})`),
		extract: fullYMD,
	},
	// M/D/YYYY or M/D/YY.
	{
		re: regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{4}|\d{2})\b`),
		extract: func(m []string) (Resolution, bool) {
			year := atoi(m[3])
			if len(m[3]) == 2 {
				year = expandYear2(year)
			}
			return full(Date{Year: year, Month: atoi(m[1]), Day: atoi(m[2])})
		},
	},
	// D MonthName YYYY.
	{
		re: regexp.MustCompile(`\b(\d{1,2})\s+([A-Za-z]{3,9})\.?\s+(\d{4})`),
		extract: func(m []string) (Resolution, bool) {
			month, ok := monthByName(m[2])
			if !ok {
				return Resolution{}, false
			}
			return full(Date{Year: atoi(m[3]), Month: month, Day: atoi(m[1])})
		},
	},
	// MonthName D, YYYY.
	{
		re: regexp.MustCompile(`([A-Za-z]{3,9})\.?\s+(\d{1,2}),?\s+(\d{4})`),
		extract: func(m []string) (Resolution, bool) {
			month, ok := monthByName(m[1])
			if !ok {
				return Resolution{}, false
			}
			return full(Date{Year: atoi(m[3]), Month: month, Day: atoi(m[2])})
		},
	},
	// Updated:/Published: prefixed ISO form.
	{
		re:      regexp.MustCompile(`(?i)(?:updated|published):\s*(\d{4})-(\d{1,2})-(\d{1,2})`),
		extract: fullYMD,
	},
	// Updated:/Published: prefixed prose form.
	{
		re: regexp.MustCompile(`(?i)(?:updated|published):\s*([A-Za-z]{3,9})\.?\s+(\d{1,2}),?\s+(\d{4})`),
		extract: func(m []string) (Resolution, bool) {
			month, ok := monthByName(m[1])
			if !ok {
				return Resolution{}, false
			}
			return full(Date{Year: atoi(m[3]), Month: month, Day: atoi(m[2])})
		},
	},
	// Broadcast: Weekday, MonthName D[, YYYY]. The year is often absent from
	// broadcast lines; month and day alone produce a partial resolution that
	// the caller completes with the filename year.
	{
		re: regexp.MustCompile(`(?i)broadcast:\s*(?:mon|tue|tues|wednes|wed|thu|thur|thurs|fri|satur|sat|sun)(?:day)?\.?,?\s+([A-Za-z]{3,9})\.?\s+(\d{1,2})(?:,?\s+(\d{4}))?`),
		extract: func(m []string) (Resolution, bool) {
			month, ok := monthByName(m[1])
			if !ok {
				return Resolution{}, false
			}
			day := atoi(m[2])
			if day < 1 || day > 31 {
				return Resolution{}, false
			}
			if m[3] == "" {
				return Resolution{Date: Date{Month: month, Day: day}, Partial: true}, true
			}
			return full(Date{Year: atoi(m[3]), Month: month, Day: day})
		},
	},
}

// full wraps a candidate date into a Resolution, rejecting out-of-range values.
func full(d Date) (Resolution, bool) {
	if !d.Valid() {
		return Resolution{}, false
	}
	return Resolution{Date: d}, true
}

// fullYMD extracts year/month/day from groups 1..3 in that order.
func fullYMD(m []string) (Resolution, bool) {
	return full(Date{Year: atoi(m[1]), Month: atoi(m[2]), Day: atoi(m[3])})
}

// fullMDY extracts a 4-digit-year month-first form with disambiguation.
func fullMDY(m []string) (Resolution, bool) {
	month, day, ok := disambiguate(atoi(m[1]), atoi(m[2]))
	if !ok {
		return Resolution{}, false
	}
	return full(Date{Year: atoi(m[3]), Month: month, Day: day})
}

// disambiguate decides which of two tokens is the month: the first token in
// 1-12 is the month; otherwise, if the second is in 1-12, the tokens are
// swapped; otherwise the candidate is rejected.
func disambiguate(a, b int) (month, day int, ok bool) {
	switch {
	case a >= 1 && a <= 12:
		return a, b, b >= 1 && b <= 31
	case b >= 1 && b <= 12:
		return b, a, a >= 1 && a <= 31
	default:
		return 0, 0, false
	}
}

// expandYear2 expands a two-digit year: <50 → 2000+yy, >=50 → 1900+yy.
func expandYear2(yy int) int {
	if yy < 50 {
		return 2000 + yy
	}
	return 1900 + yy
}

var monthNames = map[string]int{
	"january": 1, "february": 2, "march": 3, "april": 4, "may": 5, "june": 6,
	"july": 7, "august": 8, "september": 9, "october": 10, "november": 11, "december": 12,
	"jan": 1, "feb": 2, "mar": 3, "apr": 4, "jun": 6, "jul": 7,
	"aug": 8, "sep": 9, "sept": 9, "oct": 10, "nov": 11, "dec": 12,
}

// monthByName resolves a month name or abbreviation (any case, trailing
// period already stripped by the patterns) to its number.
func monthByName(s string) (int, bool) {
	m, ok := monthNames[strings.ToLower(s)]
	return m, ok
}

// atoi converts a digit-only string captured by a pattern. Inputs are
// guaranteed numeric by the regexps, so errors cannot occur.
func atoi(s string) int {
	n := 0
	for _, c := range s {
		n = n*10 + int(c-'0')
	}
	return n
}
