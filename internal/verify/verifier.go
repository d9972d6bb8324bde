// Package verify cross-checks an oracle extraction against the source text it
// was produced from. Every rule is deterministic string matching; nothing in
// this package performs I/O or returns an error.
package verify

import (
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/ppiankov/schoolmon/internal/model"
)

// Verifier runs the ordered check sequence over candidate events and audits
// the summary
type Verifier struct {
	steps  []Step
	now    func() time.Time
	logger *slog.Logger
}

// Option configures a Verifier
type Option func(*Verifier)

// WithNow fixes the clock used by the date range check
func WithNow(now func() time.Time) Option {
	return func(v *Verifier) { v.now = now }
}

// WithLogger routes per-event diagnostics to logger
func WithLogger(logger *slog.Logger) Option {
	return func(v *Verifier) {
		if logger != nil {
			v.logger = logger
		}
	}
}

// WithSteps replaces the check sequence
func WithSteps(steps ...Step) Option {
	return func(v *Verifier) { v.steps = steps }
}

// New creates a Verifier with the default checks
func New(opts ...Option) *Verifier {
	v := &Verifier{
		steps:  DefaultSteps(),
		now:    time.Now,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Verify checks candidate against sourceText with default settings
func Verify(candidate model.CandidateExtraction, sourceText string) model.VerifiedExtraction {
	return New().Verify(candidate, sourceText)
}

// Verify produces the annotated extraction. Events keep their input order;
// none are dropped or merged.
func (v *Verifier) Verify(candidate model.CandidateExtraction, sourceText string) model.VerifiedExtraction {
	sourceLower := strings.ToLower(sourceText)
	now := v.now()

	result := model.VerifiedExtraction{
		Summary:          candidate.Summary,
		Events:           make([]model.VerifiedEvent, 0, len(candidate.Events)),
		ConfidenceIssues: []string{},
	}

	for _, ev := range candidate.Events {
		result.Events = append(result.Events, v.verifyEvent(sourceLower, now, ev))
	}

	if candidate.Summary != nil {
		result.ConfidenceIssues = AuditSummary(sourceLower, *candidate.Summary)
		for _, issue := range result.ConfidenceIssues {
			v.logger.Info("summary fact not in source", "fact", issue)
		}
	}

	return result
}

// VerifyEvent checks a single candidate against sourceText
func (v *Verifier) VerifyEvent(candidate model.CandidateEvent, sourceText string) model.VerifiedEvent {
	return v.verifyEvent(strings.ToLower(sourceText), v.now(), candidate)
}

func (v *Verifier) verifyEvent(sourceLower string, now time.Time, candidate model.CandidateEvent) model.VerifiedEvent {
	reported := model.ParseConfidence(string(candidate.Confidence))

	d := &Draft{
		Candidate:   candidate,
		SourceLower: sourceLower,
		Now:         now,
		Time:        candidate.Time,
		Confidence:  reported,
	}

	outcome := model.Verification{
		Verified:           true,
		ReportedConfidence: reported,
	}

	for _, step := range v.steps {
		res := step.Check(d)
		if res.Outcome == Reject {
			outcome.Verified = false
			outcome.Issue = res.Reason
			outcome.FailedCheck = step.Name
			v.logger.Debug("event rejected", "check", step.Name, "title", candidate.Title, "date", candidate.Date, "reason", res.Reason)
			break
		}
		if res.Outcome == Advisory {
			outcome.Issue = res.Reason
		}
	}

	outcome.EffectiveConfidence = d.Confidence
	outcome.MatchedPattern = d.MatchedPattern
	outcome.QuoteMatchRate = d.QuoteRate

	if outcome.Verified {
		v.logger.Debug("event verified", "title", candidate.Title, "date", candidate.Date, "matched", d.MatchedPattern)
	}

	return model.VerifiedEvent{
		Candidate:    candidate,
		Time:         d.Time,
		Verification: outcome,
	}
}
