package verify

import (
	"strings"
	"testing"
)

func TestHasDateReference_AbbreviatedMonth(t *testing.T) {
	source := strings.ToLower("Science Museum trip Feb 20. Permission slips due soon.")

	match := HasDateReference(source, "2026-02-20")
	if !match.Found {
		t.Fatal("Expected Feb 20 to be found")
	}
	if match.Pattern != "feb 20" {
		t.Errorf("Expected pattern 'feb 20', got %q", match.Pattern)
	}
}

func TestHasDateReference_Forms(t *testing.T) {
	tests := []struct {
		source  string
		date    string
		pattern string
	}{
		{"no school february 16 presidents day", "2026-02-16", "february 16"},
		{"party on march 3rd in the gym", "2026-03-03", "march 3"},
		{"concert dec. 4th", "2026-12-04", "dec. 4"},
		{"pictures on 3/5", "2026-03-05", "3/5"},
		{"pictures on 03/05", "2026-03-05", "3/05"},
		{"forms due 10/07", "2026-10-07", "10/07"},
		{"assembly 4-22", "2026-04-22", "4-22"},
		{"closed 11 february", "2026-02-11", "11 february"},
		{"closed 11 feb", "2026-02-11", "11 feb"},
		{"european style 20/2", "2026-02-20", "20/2"},
	}

	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			match := HasDateReference(tt.source, tt.date)
			if !match.Found {
				t.Fatalf("Expected %s to be found in %q", tt.date, tt.source)
			}
			if match.Pattern != tt.pattern {
				t.Errorf("Expected pattern %q, got %q", tt.pattern, match.Pattern)
			}
		})
	}
}

func TestHasDateReference_NotFound(t *testing.T) {
	source := strings.ToLower("We're planning a field trip soon - details to follow! The science fair is coming up.")

	match := HasDateReference(source, "2026-02-20")
	if match.Found {
		t.Errorf("Expected no match, got pattern %q", match.Pattern)
	}
	if match.Pattern != "" {
		t.Errorf("Expected empty pattern, got %q", match.Pattern)
	}
}

func TestHasDateReference_FirstPatternWins(t *testing.T) {
	// Both the full and numeric forms are present; list order decides
	source := "2/20 and february 20"

	match := HasDateReference(source, "2026-02-20")
	if match.Pattern != "february 20" {
		t.Errorf("Expected full month pattern to win, got %q", match.Pattern)
	}
}

func TestHasDateReference_NoRenderingMeansNotFound(t *testing.T) {
	dates := []string{"2026-01-01", "2026-02-20", "2026-05-05", "2026-10-31", "2026-12-09"}
	source := strings.ToLower("Reminder: bring textbooks to class. Schedule change next month. Bake sale soon.")

	for _, date := range dates {
		for _, p := range DatePatterns(date) {
			if strings.Contains(source, p) {
				t.Fatalf("test source unexpectedly contains %q", p)
			}
		}
		if HasDateReference(source, date).Found {
			t.Errorf("Expected %s not found", date)
		}
	}
}

func TestHasDateReference_Monotonic(t *testing.T) {
	date := "2026-03-05"
	source := "science fair projects due soon"

	if HasDateReference(source, date).Found {
		t.Fatal("Expected no match before appending")
	}

	for _, suffix := range []string{" on march 5", " (3/5)", " mar. 5th"} {
		extended := source + suffix
		if !HasDateReference(extended, date).Found {
			t.Errorf("Expected match after appending %q", suffix)
		}
		// Appending anything further can never lose the match
		if !HasDateReference(extended+" lorem ipsum 12/12", date).Found {
			t.Errorf("Expected match to survive further appends for %q", suffix)
		}
	}
}

func TestDatePatterns_Order(t *testing.T) {
	patterns := DatePatterns("2026-02-05")

	want := []string{
		"february 5", "february 5th", "february 5st", "february 5nd", "february 5rd",
		"feb 5", "feb 5th", "feb 5st", "feb 5nd", "feb 5rd",
		"feb. 5", "feb. 5th", "feb. 5st", "feb. 5nd", "feb. 5rd",
		"2/5", "02/5", "2/05", "02/05",
		"5/2", "05/2", "5/02", "05/02",
		"2-5",
		"5 february", "5 feb",
	}

	if len(patterns) != len(want) {
		t.Fatalf("Expected %d patterns, got %d: %v", len(want), len(patterns), patterns)
	}
	for i := range want {
		if patterns[i] != want[i] {
			t.Errorf("pattern %d: expected %q, got %q", i, want[i], patterns[i])
		}
	}
}

func TestDatePatterns_Dedupe(t *testing.T) {
	// "may" is both the full and short name; 11/11 collapses padding variants
	patterns := DatePatterns("2026-11-11")

	seen := make(map[string]bool)
	for _, p := range patterns {
		if seen[p] {
			t.Errorf("Duplicate pattern %q", p)
		}
		seen[p] = true
	}

	may := DatePatterns("2026-05-12")
	count := 0
	for _, p := range may {
		if p == "may 12" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("Expected 'may 12' exactly once, got %d", count)
	}
}

func TestDatePatterns_Malformed(t *testing.T) {
	for _, date := range []string{"", "2026-13-01", "2026-00-10", "2026-02", "not-a-date"} {
		if p := DatePatterns(date); p != nil {
			t.Errorf("Expected nil patterns for %q, got %v", date, p)
		}
	}
}
