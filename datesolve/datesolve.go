// CLAUDE:SUMMARY Canonical calendar date types and the two resolve entry points (filename chain, content chain).
// Package datesolve extracts canonical calendar dates from filenames and
// document text.
//
// Source filenames were produced by several independent, undocumented
// conventions over many years, so resolution runs an ordered table of small
// rules — (pattern, extractor) pairs — where the first rule that yields a
// range-valid date wins. A rule whose numeric fields are out of range is
// skipped and resolution falls through to the next rule.
//
// Dates are calendar dates only: no time of day, no timezone.
//
// Usage:
//
//	res, ok := datesolve.FromFilename("2021-04-15_post.pdf")
//	if ok {
//		fmt.Println(res.Date) // 2021-04-15
//	}
package datesolve

import (
	"fmt"
	"regexp"
)

// Date is a validated {year, month, day} triple.
type Date struct {
	Year  int
	Month int
	Day   int
}

// String formats the date in the canonical YYYY-MM-DD form.
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// Valid reports whether month and day are in range and a year is present.
// Day validation is calendar-agnostic (1-31), matching the resolver contract.
func (d Date) Valid() bool {
	return d.Year > 0 && d.Month >= 1 && d.Month <= 12 && d.Day >= 1 && d.Day <= 31
}

// Resolution is the outcome of one resolve pass.
//
// A partial resolution carries month and day but no year (Date.Year == 0);
// it must be completed with a year from a secondary source — in practice the
// filename — before it is treated as authoritative.
type Resolution struct {
	Date    Date
	Partial bool
}

// Complete fills in the year of a partial resolution. Calling it on a full
// resolution returns the date unchanged.
func (r Resolution) Complete(year int) Date {
	if !r.Partial {
		return r.Date
	}
	return Date{Year: year, Month: r.Date.Month, Day: r.Date.Day}
}

var canonicalRe = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})$`)

// ParseCanonical parses a strict YYYY-MM-DD string.
func ParseCanonical(s string) (Date, bool) {
	m := canonicalRe.FindStringSubmatch(s)
	if m == nil {
		return Date{}, false
	}
	d := Date{Year: atoi(m[1]), Month: atoi(m[2]), Day: atoi(m[3])}
	if !d.Valid() {
		return Date{}, false
	}
	return d, true
}

// FromFilename resolves a date from a filename. It walks the filename rule
// table in priority order; the canonical YYYY-MM-DD_ prefix is the trusted
// form and always wins. Returns ok=false when no rule matches.
func FromFilename(name string) (Resolution, bool) {
	for _, r := range filenameRules {
		if res, ok := r.apply(name); ok {
			return res, true
		}
	}
	return Resolution{}, false
}

// FromContent resolves a date from document text using the content rule
// chain (explicit Date: field, slash dates, prose dates, Updated:/Published:
// variants, broadcast lines). The content chain may yield a partial
// resolution when the text carries month and day but no year; if preferred is
// non-nil such a partial is completed with the preferred date's year before
// being returned.
func FromContent(text string, preferred *Date) (Resolution, bool) {
	for _, r := range contentRules {
		res, ok := r.apply(text)
		if !ok {
			continue
		}
		if res.Partial && preferred != nil {
			return Resolution{Date: res.Complete(preferred.Year)}, true
		}
		return res, true
	}
	return Resolution{}, false
}
