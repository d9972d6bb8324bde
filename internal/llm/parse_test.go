package llm

import (
	"errors"
	"testing"
)

func TestParseExtraction(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		wantEvents int
		wantNil    bool
	}{
		{"plain object", `{"summary": "Trip Feb 20", "events": [{"title": "Trip", "date": "2026-02-20"}]}`, 1, false},
		{"json fence", "```json\n{\"summary\": \"x\", \"events\": []}\n```", 0, false},
		{"bare fence", "```\n{\"summary\": \"x\", \"events\": []}\n```", 0, false},
		{"prose around", "Here you go:\n{\"summary\": null, \"events\": []}\nHope that helps!", 0, true},
		{"nothing relevant", `{"summary": null, "events": []}`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseExtraction(tt.raw)
			if err != nil {
				t.Fatalf("ParseExtraction failed: %v", err)
			}
			if len(got.Events) != tt.wantEvents {
				t.Errorf("Expected %d events, got %d", tt.wantEvents, len(got.Events))
			}
			if (got.Summary == nil) != tt.wantNil {
				t.Errorf("Expected nil summary=%v, got %v", tt.wantNil, got.Summary)
			}
		})
	}
}

func TestParseExtraction_Malformed(t *testing.T) {
	for _, raw := range []string{"", "I could not find anything.", "{not json}", "} backwards {"} {
		_, err := ParseExtraction(raw)
		if !errors.Is(err, ErrMalformedExtraction) {
			t.Errorf("%q: expected ErrMalformedExtraction, got %v", raw, err)
		}
	}
}
