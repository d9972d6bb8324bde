// Package pipeline runs one monitoring pass: collect each subject's unread
// mail, extract, verify, and deliver the results.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ppiankov/schoolmon/internal/mail"
	"github.com/ppiankov/schoolmon/internal/metrics"
	"github.com/ppiankov/schoolmon/internal/model"
	"github.com/ppiankov/schoolmon/internal/notify"
	"github.com/ppiankov/schoolmon/internal/worker"
)

// Collector gathers a label's unread mail into one source text
type Collector interface {
	Collect(ctx context.Context, label string) (string, error)
}

// Extractor asks the oracle for a candidate extraction
type Extractor interface {
	Extract(ctx context.Context, subject model.Subject, roster []model.Subject, source string) (model.CandidateExtraction, error)
}

// Verifier checks a candidate against its source
type Verifier interface {
	Verify(candidate model.CandidateExtraction, sourceText string) model.VerifiedExtraction
}

// Status is how a subject's pass ended
type Status string

const (
	StatusNoMail          Status = "no_mail"
	StatusNothingRelevant Status = "nothing_relevant"
	StatusPosted          Status = "posted"
	StatusFailed          Status = "failed"
)

// SubjectReport is the outcome for one subject
type SubjectReport struct {
	Subject     model.Subject
	Status      Status
	Result      *model.VerifiedExtraction
	InvitesSent int
	Err         error
	Duration    time.Duration
}

// Report is the outcome of one run, in processing order
type Report struct {
	StartedAt  time.Time
	FinishedAt time.Time
	Subjects   []SubjectReport
}

// Failed counts subjects that ended in error
func (r *Report) Failed() int {
	n := 0
	for _, s := range r.Subjects {
		if s.Status == StatusFailed {
			n++
		}
	}
	return n
}

// Deps are the collaborators a pipeline drives. Inviter and Recorder may be nil.
type Deps struct {
	Collector Collector
	Extractor Extractor
	Verifier  Verifier
	Notifier  notify.Notifier
	Inviter   notify.Inviter
	Recorder  *metrics.Recorder
}

// Pipeline processes subjects sequentially
type Pipeline struct {
	subjects []model.Subject
	deps     Deps
	pacing   model.PacingConfig
	sleep    func(ctx context.Context, d time.Duration) error
	now      func() time.Time
	logger   *slog.Logger
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithPacing sets the fixed delays between subjects and between invites
func WithPacing(p model.PacingConfig) Option {
	return func(pl *Pipeline) { pl.pacing = p }
}

// WithLogger sets the pipeline logger
func WithLogger(logger *slog.Logger) Option {
	return func(pl *Pipeline) {
		if logger != nil {
			pl.logger = logger
		}
	}
}

// New creates a pipeline over subjects, which must already be in processing
// order (children, then town)
func New(subjects []model.Subject, deps Deps, opts ...Option) (*Pipeline, error) {
	if deps.Collector == nil || deps.Extractor == nil || deps.Verifier == nil || deps.Notifier == nil {
		return nil, fmt.Errorf("pipeline requires a collector, extractor, verifier and notifier")
	}

	p := &Pipeline{
		subjects: subjects,
		deps:     deps,
		sleep:    worker.Sleep,
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Run processes every subject once. A failing subject is reported and the
// run moves on; only cancellation stops it early.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	report := &Report{StartedAt: p.now()}
	p.logger.Info("starting school email check", "subjects", len(p.subjects))

	for i, subject := range p.subjects {
		if i > 0 {
			if err := p.sleep(ctx, p.pacing.SubjectDelay); err != nil {
				return report, err
			}
		}

		start := p.now()
		sr := p.processSubject(ctx, subject)
		sr.Duration = p.now().Sub(start)
		report.Subjects = append(report.Subjects, sr)

		if p.deps.Recorder != nil {
			p.deps.Recorder.ObserveSubject(subject.Name, sr.Duration)
		}
		if err := ctx.Err(); err != nil {
			return report, err
		}
	}

	report.FinishedAt = p.now()
	if p.deps.Recorder != nil {
		p.deps.Recorder.MarkRun(report.FinishedAt)
	}
	p.logger.Info("all done", "subjects", len(report.Subjects), "failed", report.Failed())
	return report, nil
}

func (p *Pipeline) processSubject(ctx context.Context, subject model.Subject) SubjectReport {
	logger := p.logger.With("subject", subject.DisplayName())
	sr := SubjectReport{Subject: subject}
	logger.Info("processing subject", "label", subject.Label)

	source, err := p.deps.Collector.Collect(ctx, subject.Label)
	if errors.Is(err, mail.ErrNoMessages) {
		logger.Info("no new emails")
		sr.Status = StatusNoMail
		return sr
	}
	if err != nil {
		return p.fail(ctx, logger, sr, metrics.StageCollect, fmt.Errorf("collect: %w", err))
	}

	logger.Info("found emails, running analysis and verification", "chars", len(source))

	candidate, err := withRetry(ctx, func(ctx context.Context) (model.CandidateExtraction, error) {
		return p.deps.Extractor.Extract(ctx, subject, p.subjects, source)
	})
	if err != nil {
		return p.fail(ctx, logger, sr, metrics.StageExtract, fmt.Errorf("extract: %w", err))
	}

	verified := p.deps.Verifier.Verify(candidate, source)
	sr.Result = &verified
	if p.deps.Recorder != nil {
		p.deps.Recorder.ObserveExtraction(subject.Name, verified)
	}

	if !verified.HasSummary() {
		logger.Info("no relevant updates")
		sr.Status = StatusNothingRelevant
		return sr
	}

	sr.InvitesSent = p.sendInvites(ctx, logger, subject, verified)

	opts := []notify.RenderOption{notify.WithInvitesSent(sr.InvitesSent)}
	if p.deps.Inviter == nil {
		opts = append(opts, notify.WithoutInviteFooter())
	}
	if err := p.deps.Notifier.Send(ctx, notify.RenderDigest(subject, verified, opts...)); err != nil {
		if p.deps.Recorder != nil {
			p.deps.Recorder.RunError(metrics.StageNotify)
		}
		logger.Error("failed to post digest", "error", err)
		sr.Status = StatusFailed
		sr.Err = fmt.Errorf("notify: %w", err)
		return sr
	}

	logger.Info("digest posted",
		"verified", len(verified.Verified()),
		"unverified", len(verified.Unverified()),
		"confidence_issues", len(verified.ConfidenceIssues),
		"invites", sr.InvitesSent,
	)
	sr.Status = StatusPosted
	return sr
}

// sendInvites emails one invite per verified event, pausing between sends.
// A failed invite is logged and skipped.
func (p *Pipeline) sendInvites(ctx context.Context, logger *slog.Logger, subject model.Subject, verified model.VerifiedExtraction) int {
	if p.deps.Inviter == nil {
		return 0
	}

	sent := 0
	for i, ev := range verified.Verified() {
		if i > 0 {
			if err := p.sleep(ctx, p.pacing.InviteDelay); err != nil {
				return sent
			}
		}

		title := subject.TitlePrefix() + ev.Title()
		if err := p.deps.Inviter.Send(ctx, ev, title); err != nil {
			logger.Warn("calendar invite failed", "title", title, "error", err)
			if p.deps.Recorder != nil {
				p.deps.Recorder.RunError(metrics.StageInvite)
			}
			continue
		}
		sent++
		if p.deps.Recorder != nil {
			p.deps.Recorder.InviteSent()
		}
	}
	return sent
}

// fail records a subject-level failure and posts the error notice
func (p *Pipeline) fail(ctx context.Context, logger *slog.Logger, sr SubjectReport, stage string, err error) SubjectReport {
	logger.Error("analysis failed", "stage", stage, "error", err)
	if p.deps.Recorder != nil {
		p.deps.Recorder.RunError(stage)
	}

	if ctx.Err() == nil {
		if nerr := p.deps.Notifier.Send(ctx, notify.RenderError(sr.Subject)); nerr != nil {
			logger.Error("failed to post error notice", "error", nerr)
		}
	}

	sr.Status = StatusFailed
	sr.Err = err
	return sr
}
