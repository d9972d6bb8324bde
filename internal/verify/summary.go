package verify

import (
	"regexp"
	"strings"
)

var (
	// Month name (abbreviated or full) followed by a 1-2 digit number
	summaryDatePattern = regexp.MustCompile(`(?i)\b(?:jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]* \d{1,2}`)

	// Currency symbol followed by digits with optional decimal/comma groups
	summaryAmountPattern = regexp.MustCompile(`[$€£]\d+[\d.,]*`)
)

// AuditSummary returns every date-like or currency-like substring of summary
// that does not literally appear in sourceLower. Dates are listed before
// amounts, each in order of appearance. The summary itself is never altered.
func AuditSummary(sourceLower, summary string) []string {
	issues := []string{}
	if summary == "" {
		return issues
	}

	for _, re := range []*regexp.Regexp{summaryDatePattern, summaryAmountPattern} {
		for _, match := range re.FindAllString(summary, -1) {
			if !strings.Contains(sourceLower, strings.ToLower(match)) {
				issues = append(issues, match)
			}
		}
	}

	return issues
}
