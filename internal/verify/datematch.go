package verify

import (
	"fmt"
	"strconv"
	"strings"
)

var monthNames = [12]string{
	"january", "february", "march", "april", "may", "june",
	"july", "august", "september", "october", "november", "december",
}

var shortMonthNames = [12]string{
	"jan", "feb", "mar", "apr", "may", "jun",
	"jul", "aug", "sep", "oct", "nov", "dec",
}

// ordinalSuffixes are all tried for every day; no attempt is made at
// grammatical correctness
var ordinalSuffixes = []string{"th", "st", "nd", "rd"}

// DateMatch is the outcome of a date-reference search
type DateMatch struct {
	Found   bool
	Pattern string // First pattern that matched, for diagnostics
}

// HasDateReference reports whether sourceLower (already lower-cased) contains
// any textual rendering of isoDate. isoDate must already be a valid
// YYYY-MM-DD date; callers validate before calling.
func HasDateReference(sourceLower, isoDate string) DateMatch {
	for _, pattern := range DatePatterns(isoDate) {
		if strings.Contains(sourceLower, pattern) {
			return DateMatch{Found: true, Pattern: pattern}
		}
	}
	return DateMatch{}
}

// DatePatterns returns the lower-cased renderings of isoDate in match
// priority order. Duplicates (e.g. "may" as both full and short name) are
// dropped, keeping the first occurrence. An unparseable date yields nil.
func DatePatterns(isoDate string) []string {
	month, day, ok := monthDay(isoDate)
	if !ok {
		return nil
	}

	full := monthNames[month-1]
	short := shortMonthNames[month-1]
	d := strconv.Itoa(day)
	m := strconv.Itoa(month)
	dd := fmt.Sprintf("%02d", day)
	mm := fmt.Sprintf("%02d", month)

	var patterns []string
	add := func(p ...string) { patterns = append(patterns, p...) }

	// Full month name, bare then with every ordinal suffix
	add(full + " " + d)
	for _, suffix := range ordinalSuffixes {
		add(full + " " + d + suffix)
	}

	// Abbreviated month, bare then with trailing period, each with suffixes
	for _, prefix := range []string{short + " ", short + ". "} {
		add(prefix + d)
		for _, suffix := range ordinalSuffixes {
			add(prefix + d + suffix)
		}
	}

	// Numeric slash forms, month first then day first, every padding
	add(m+"/"+d, mm+"/"+d, m+"/"+dd, mm+"/"+dd)
	add(d+"/"+m, dd+"/"+m, d+"/"+mm, dd+"/"+mm)

	// Numeric hyphen form
	add(m + "-" + d)

	// Day before month
	add(d+" "+full, d+" "+short)

	return dedupe(patterns)
}

// monthDay extracts month and day numbers from a YYYY-MM-DD string
func monthDay(isoDate string) (month, day int, ok bool) {
	parts := strings.Split(isoDate, "-")
	if len(parts) != 3 {
		return 0, 0, false
	}

	month, err := strconv.Atoi(parts[1])
	if err != nil || month < 1 || month > 12 {
		return 0, 0, false
	}

	day, err = strconv.Atoi(parts[2])
	if err != nil || day < 1 || day > 31 {
		return 0, 0, false
	}

	return month, day, true
}

func dedupe(patterns []string) []string {
	seen := make(map[string]bool, len(patterns))
	out := patterns[:0]
	for _, p := range patterns {
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}
