package verify

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ppiankov/schoolmon/internal/model"
)

// Outcome is what a single check concluded about an event
type Outcome int

const (
	Pass     Outcome = iota // Check satisfied, nothing to report
	Advisory                // Non-blocking annotation
	Reject                  // Blocking failure; later checks are skipped
)

func (o Outcome) String() string {
	switch o {
	case Advisory:
		return "advisory"
	case Reject:
		return "reject"
	default:
		return "pass"
	}
}

// StepResult is returned by every check
type StepResult struct {
	Outcome Outcome
	Reason  string
}

func pass() StepResult { return StepResult{Outcome: Pass} }

func advise(reason string) StepResult {
	return StepResult{Outcome: Advisory, Reason: reason}
}

func reject(format string, a ...any) StepResult {
	return StepResult{Outcome: Reject, Reason: fmt.Sprintf(format, a...)}
}

// Draft is the working state of one event while checks run. Checks may read
// the candidate and update the derived fields; the candidate itself is never
// modified.
type Draft struct {
	Candidate   model.CandidateEvent
	SourceLower string
	Now         time.Time

	Date           time.Time // Parsed by the format check
	Time           string    // Sanitized start time
	Confidence     model.Confidence
	MatchedPattern string
	QuoteRate      *float64
}

// Step is one named check in the verification sequence
type Step struct {
	Name  string
	Check func(d *Draft) StepResult
}

// Check names, also used as metric labels
const (
	StepFormat     = "format"
	StepRange      = "range"
	StepGrounding  = "grounding"
	StepQuote      = "quote"
	StepTime       = "time"
	StepConfidence = "confidence"
)

// DefaultSteps returns the standard check order
func DefaultSteps() []Step {
	return []Step{
		{Name: StepFormat, Check: checkDateFormat},
		{Name: StepRange, Check: checkDateRange},
		{Name: StepGrounding, Check: checkGrounding},
		{Name: StepQuote, Check: checkQuote},
		{Name: StepTime, Check: sanitizeTime},
		{Name: StepConfidence, Check: flagLowConfidence},
	}
}

// DateRangeWindow bounds how far from now an event date may fall
const DateRangeWindow = 365 * 24 * time.Hour

const LowConfidenceAdvisory = "AI flagged as low confidence"

var (
	isoDatePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	timePattern    = regexp.MustCompile(`^\d{1,2}:\d{2}$`)
)

func checkDateFormat(d *Draft) StepResult {
	date := d.Candidate.Date
	if !isoDatePattern.MatchString(date) {
		return reject("Invalid date format: %s", date)
	}

	// Shape is right but the calendar may not be (2026-02-30)
	parsed, err := time.Parse(time.DateOnly, date)
	if err != nil {
		return reject("Invalid date format: %s", date)
	}

	d.Date = parsed
	return pass()
}

func checkDateRange(d *Draft) StepResult {
	lo := d.Now.Add(-DateRangeWindow)
	hi := d.Now.Add(DateRangeWindow)
	if d.Date.Before(lo) || d.Date.After(hi) {
		return reject("Date out of range: %s", d.Candidate.Date)
	}
	return pass()
}

func checkGrounding(d *Draft) StepResult {
	match := HasDateReference(d.SourceLower, d.Candidate.Date)
	if !match.Found {
		return reject("Date %q not found in any email. Possible hallucination.", d.Candidate.Date)
	}
	d.MatchedPattern = match.Pattern
	return pass()
}

func checkQuote(d *Draft) StepResult {
	quote := d.Candidate.SourceQuote
	if quote == "" {
		// Missing provenance is a weakness, not evidence of fabrication
		d.Confidence = model.ConfidenceLow
		return pass()
	}

	rate := QuoteMatchRate(d.SourceLower, quote)
	d.QuoteRate = &rate
	if rate < QuoteAcceptanceThreshold {
		return reject("Source quote not found in email (%d%% match)", int(math.Round(rate*100)))
	}
	return pass()
}

func sanitizeTime(d *Draft) StepResult {
	if d.Time != "" && !validClock(d.Time) {
		d.Time = ""
	}
	return pass()
}

// validClock reports whether s is H:MM or HH:MM on a 24-hour clock
func validClock(s string) bool {
	if !timePattern.MatchString(s) {
		return false
	}
	hh, mm, _ := strings.Cut(s, ":")
	h, _ := strconv.Atoi(hh)
	m, _ := strconv.Atoi(mm)
	return h <= 23 && m <= 59
}

func flagLowConfidence(d *Draft) StepResult {
	if d.Confidence == model.ConfidenceLow {
		return advise(LowConfidenceAdvisory)
	}
	return pass()
}
