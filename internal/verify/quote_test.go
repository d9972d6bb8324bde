package verify

import (
	"strings"
	"testing"
)

func TestQuoteMatchRate_ExactPhrase(t *testing.T) {
	source := strings.ToLower("Science Museum trip Feb 20. Permission slips due Feb 15. Bus 8:30 AM, return 2:45 PM.")

	rate := QuoteMatchRate(source, "Bus 8:30 AM, return 2:45 PM")
	if rate != 1.0 {
		t.Errorf("Expected rate 1.0, got %v", rate)
	}
}

func TestQuoteMatchRate_NoTokensPresent(t *testing.T) {
	source := "early dismissal wednesday at 1:30 pm"

	rate := QuoteMatchRate(source, "Valentine's party Friday, bring cards")
	if rate != 0.0 {
		t.Errorf("Expected rate 0.0, got %v", rate)
	}
}

func TestQuoteMatchRate_Partial(t *testing.T) {
	source := "math test thursday on chapter seven"

	// qualifying tokens: math, test, thursday, geometry -> 3 of 4
	rate := QuoteMatchRate(source, "Math test Thursday geometry")
	if rate != 0.75 {
		t.Errorf("Expected rate 0.75, got %v", rate)
	}
}

func TestQuoteMatchRate_ShortTokensOnly(t *testing.T) {
	source := "bus at 8 am"

	if rate := QuoteMatchRate(source, "Bus at 8 AM"); rate != 0 {
		t.Errorf("Expected rate 0 when no token exceeds 3 chars, got %v", rate)
	}
	if rate := QuoteMatchRate(source, ""); rate != 0 {
		t.Errorf("Expected rate 0 for empty quote, got %v", rate)
	}
}

func TestQuoteMatchRate_BagOfWords(t *testing.T) {
	// Tokens match independently, so scrambled order still scores fully
	source := "permission slips due friday"

	rate := QuoteMatchRate(source, "friday slips permission")
	if rate != 1.0 {
		t.Errorf("Expected scrambled quote to score 1.0, got %v", rate)
	}
}

func TestQuoteTokens(t *testing.T) {
	tokens := QuoteTokens("  No school Feb 16\tPresidents Day ")

	want := []string{"school", "presidents"}
	if len(tokens) != len(want) {
		t.Fatalf("Expected %v, got %v", want, tokens)
	}
	for i := range want {
		if tokens[i] != want[i] {
			t.Errorf("token %d: expected %q, got %q", i, want[i], tokens[i])
		}
	}
}
