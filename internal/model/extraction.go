package model

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Confidence is the low/high self-rating attached to an extracted event
type Confidence string

const (
	ConfidenceHigh Confidence = "high"
	ConfidenceLow  Confidence = "low"
)

// ParseConfidence normalizes an oracle-supplied rating. Anything that is not
// "low" counts as high, matching how the oracle is instructed to answer.
func ParseConfidence(s string) Confidence {
	if strings.EqualFold(strings.TrimSpace(s), string(ConfidenceLow)) {
		return ConfidenceLow
	}
	return ConfidenceHigh
}

// CandidateExtraction is the oracle's structured guess for one batch of mail
type CandidateExtraction struct {
	Summary *string          `json:"summary"` // nil means "nothing relevant"
	Events  []CandidateEvent `json:"events"`  // Oracle emission order
}

// CandidateEvent is one calendar-worthy fact claimed by the oracle.
// Empty strings stand for absent/null fields.
type CandidateEvent struct {
	Title       string     `json:"title"`
	Date        string     `json:"date"`     // Expected YYYY-MM-DD, unchecked
	Time        string     `json:"time"`     // Expected H:MM / HH:MM, unchecked
	EndTime     string     `json:"end_time"` // Expected H:MM / HH:MM, unchecked
	Description string     `json:"description"`
	SourceQuote string     `json:"source_quote"`
	Confidence  Confidence `json:"confidence"`
}

// UnmarshalJSON decodes an extraction without trusting its shape: a
// non-string summary is stringified, a non-array events field is dropped, and
// events that are not objects are skipped.
func (c *CandidateExtraction) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*c = CandidateExtraction{}
	if raw == nil {
		return nil
	}

	if s, ok := lenientText(raw["summary"]); ok {
		c.Summary = &s
	}

	var events []json.RawMessage
	if err := json.Unmarshal(raw["events"], &events); err != nil {
		return nil
	}
	for _, ev := range events {
		if !bytes.HasPrefix(bytes.TrimSpace(ev), []byte("{")) {
			continue
		}
		var event CandidateEvent
		if err := json.Unmarshal(ev, &event); err != nil {
			continue
		}
		c.Events = append(c.Events, event)
	}

	return nil
}

// UnmarshalJSON decodes an event, coercing any scalar into text and treating
// null (or the literal string "null") as absent
func (e *CandidateEvent) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	field := func(name string) string {
		s, ok := lenientText(raw[name])
		if !ok || strings.EqualFold(s, "null") {
			return ""
		}
		return s
	}

	*e = CandidateEvent{
		Title:       field("title"),
		Date:        field("date"),
		Time:        field("time"),
		EndTime:     field("end_time"),
		Description: field("description"),
		SourceQuote: field("source_quote"),
		Confidence:  ParseConfidence(field("confidence")),
	}
	return nil
}

// lenientText renders a raw JSON value as text. ok is false for missing,
// null, or structured (object/array) values.
func lenientText(msg json.RawMessage) (string, bool) {
	msg = bytes.TrimSpace(msg)
	if len(msg) == 0 || bytes.Equal(msg, []byte("null")) {
		return "", false
	}

	switch msg[0] {
	case '"':
		var s string
		if err := json.Unmarshal(msg, &s); err != nil {
			return "", false
		}
		return s, true
	case '{', '[':
		return "", false
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(msg, &b); err != nil {
			return "", false
		}
		return strconv.FormatBool(b), true
	default:
		var n json.Number
		if err := json.Unmarshal(msg, &n); err != nil {
			return "", false
		}
		return n.String(), true
	}
}

// Verification is the engine's outcome for one candidate event
type Verification struct {
	Verified            bool       `json:"verified"`
	Issue               string     `json:"verification_issue,omitempty"` // Set whenever Verified is false; may carry an advisory otherwise
	ReportedConfidence  Confidence `json:"reported_confidence"`          // What the oracle claimed
	EffectiveConfidence Confidence `json:"effective_confidence"`         // What the engine concluded
	MatchedPattern      string     `json:"matched_pattern,omitempty"`    // Diagnostic only
	QuoteMatchRate      *float64   `json:"quote_match_rate,omitempty"`   // Present when a quote was scored
	FailedCheck         string     `json:"failed_check,omitempty"`       // Name of the rejecting check
}

// VerifiedEvent wraps an untouched candidate with its verification outcome.
// Time is the sanitized start time; the candidate keeps the raw value.
type VerifiedEvent struct {
	Candidate    CandidateEvent `json:"candidate"`
	Time         string         `json:"time,omitempty"`
	Verification Verification   `json:"verification"`
}

// Title returns the candidate title
func (v VerifiedEvent) Title() string { return v.Candidate.Title }

// Date returns the candidate date
func (v VerifiedEvent) Date() string { return v.Candidate.Date }

// IsVerified reports whether no blocking check failed
func (v VerifiedEvent) IsVerified() bool { return v.Verification.Verified }

// LowConfidence reports whether the engine ended up rating the event low
func (v VerifiedEvent) LowConfidence() bool {
	return v.Verification.EffectiveConfidence == ConfidenceLow
}

// VerifiedExtraction is the annotated result of one verification pass
type VerifiedExtraction struct {
	Summary          *string         `json:"summary"`
	Events           []VerifiedEvent `json:"events"`
	ConfidenceIssues []string        `json:"confidence_issues"`
}

// HasSummary reports whether the summary carries any non-blank text
func (v VerifiedExtraction) HasSummary() bool {
	return v.Summary != nil && strings.TrimSpace(*v.Summary) != ""
}

// SummaryText returns the summary or "" when absent
func (v VerifiedExtraction) SummaryText() string {
	if v.Summary == nil {
		return ""
	}
	return *v.Summary
}

// Verified returns accepted events in input order
func (v VerifiedExtraction) Verified() []VerifiedEvent {
	var out []VerifiedEvent
	for _, ev := range v.Events {
		if ev.IsVerified() {
			out = append(out, ev)
		}
	}
	return out
}

// Unverified returns rejected events in input order
func (v VerifiedExtraction) Unverified() []VerifiedEvent {
	var out []VerifiedEvent
	for _, ev := range v.Events {
		if !ev.IsVerified() {
			out = append(out, ev)
		}
	}
	return out
}
