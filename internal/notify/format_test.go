package notify

import "testing"

func TestFormatTime12h(t *testing.T) {
	tests := map[string]string{
		"":      "",
		"00:15": "12:15 AM",
		"08:30": "8:30 AM",
		"9:05":  "9:05 AM",
		"12:00": "12:00 PM",
		"14:45": "2:45 PM",
		"23:59": "11:59 PM",
		"noon":  "noon",
	}
	for in, want := range tests {
		if got := FormatTime12h(in); got != want {
			t.Errorf("FormatTime12h(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestReadableDate(t *testing.T) {
	got, err := ReadableDate("2026-02-20")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got != "Friday, Feb 20, 2026" {
		t.Errorf("Unexpected date %q", got)
	}

	if _, err := ReadableDate("Feb 20"); err == nil {
		t.Error("Expected error for non-ISO date")
	}
}

func TestTimeDisplay(t *testing.T) {
	tests := []struct {
		start, end, want string
	}{
		{"", "", "All Day"},
		{"", "14:00", "All Day"},
		{"08:30", "", "8:30 AM"},
		{"08:30", "14:45", "8:30 AM - 2:45 PM"},
	}
	for _, tt := range tests {
		if got := TimeDisplay(tt.start, tt.end); got != tt.want {
			t.Errorf("TimeDisplay(%q, %q) = %q, want %q", tt.start, tt.end, got, tt.want)
		}
	}
}
