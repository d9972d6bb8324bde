package verify

import (
	"strings"
	"unicode/utf8"
)

// QuoteAcceptanceThreshold is the minimum token containment rate for a
// source quote to count as traceable
const QuoteAcceptanceThreshold = 0.6

// minQuoteTokenLen: tokens this short or shorter are too common to discriminate
const minQuoteTokenLen = 3

// QuoteTokens splits a quote on whitespace, lower-cases it, and drops noise tokens
func QuoteTokens(quote string) []string {
	var tokens []string
	for _, tok := range strings.Fields(strings.ToLower(quote)) {
		if utf8.RuneCountInString(tok) > minQuoteTokenLen {
			tokens = append(tokens, tok)
		}
	}
	return tokens
}

// QuoteMatchRate returns the fraction of qualifying quote tokens that appear
// anywhere in sourceLower. Tokens are matched independently (bag of words),
// not as a phrase. A quote with no qualifying tokens scores 0.
func QuoteMatchRate(sourceLower, quote string) float64 {
	tokens := QuoteTokens(quote)
	if len(tokens) == 0 {
		return 0
	}

	found := 0
	for _, tok := range tokens {
		if strings.Contains(sourceLower, tok) {
			found++
		}
	}

	return float64(found) / float64(len(tokens))
}
