// Package metrics counts what each run verified and rejected, and writes the
// counts in the node_exporter textfile format.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ppiankov/schoolmon/internal/model"
)

const namespace = "schoolmon"

// Outcome labels for EventsTotal
const (
	OutcomeVerified   = "verified"
	OutcomeUnverified = "unverified"
)

// Stage labels for RunErrors
const (
	StageCollect = "collect"
	StageExtract = "extract"
	StageInvite  = "invite"
	StageNotify  = "notify"
)

// Recorder holds one run's counters on a private registry
type Recorder struct {
	registry *prometheus.Registry

	events           *prometheus.CounterVec
	rejections       *prometheus.CounterVec
	confidenceIssues *prometheus.CounterVec
	invitesSent      prometheus.Counter
	runErrors        *prometheus.CounterVec
	subjectDuration  *prometheus.SummaryVec
	lastRun          prometheus.Gauge
}

// NewRecorder creates a recorder with every metric registered
func NewRecorder() *Recorder {
	r := &Recorder{registry: prometheus.NewRegistry()}

	r.events = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_total",
		Help:      "Candidate events by subject and verification outcome",
	}, []string{"subject", "outcome"})
	r.rejections = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rejections_total",
		Help:      "Rejected events by the check that rejected them",
	}, []string{"reason"})
	r.confidenceIssues = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "confidence_issues_total",
		Help:      "Summary facts not found in the source mail",
	}, []string{"subject"})
	r.invitesSent = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "invites_sent_total",
		Help:      "Calendar invites emailed",
	})
	r.runErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "run_errors_total",
		Help:      "Failures by pipeline stage",
	}, []string{"stage"})
	r.subjectDuration = prometheus.NewSummaryVec(prometheus.SummaryOpts{
		Namespace: namespace,
		Name:      "subject_duration_seconds",
		Help:      "Time spent processing one subject",
	}, []string{"subject"})
	r.lastRun = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_run_timestamp_seconds",
		Help:      "Unix timestamp of the last completed run",
	})

	r.registry.MustRegister(
		r.events, r.rejections, r.confidenceIssues,
		r.invitesSent, r.runErrors, r.subjectDuration, r.lastRun,
	)
	return r
}

// Registry exposes the underlying registry
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// ObserveExtraction counts one verified extraction for subject
func (r *Recorder) ObserveExtraction(subject string, v model.VerifiedExtraction) {
	for _, ev := range v.Events {
		if ev.IsVerified() {
			r.events.WithLabelValues(subject, OutcomeVerified).Inc()
			continue
		}
		r.events.WithLabelValues(subject, OutcomeUnverified).Inc()

		reason := ev.Verification.FailedCheck
		if reason == "" {
			reason = "unknown"
		}
		r.rejections.WithLabelValues(reason).Inc()
	}
	r.confidenceIssues.WithLabelValues(subject).Add(float64(len(v.ConfidenceIssues)))
}

// InviteSent counts one delivered invite
func (r *Recorder) InviteSent() {
	r.invitesSent.Inc()
}

// RunError counts a failure in stage
func (r *Recorder) RunError(stage string) {
	r.runErrors.WithLabelValues(stage).Inc()
}

// ObserveSubject records how long a subject took
func (r *Recorder) ObserveSubject(subject string, d time.Duration) {
	r.subjectDuration.WithLabelValues(subject).Observe(d.Seconds())
}

// MarkRun stamps the completion time of a run
func (r *Recorder) MarkRun(t time.Time) {
	r.lastRun.Set(float64(t.Unix()))
}

// WriteTextfile atomically writes every metric to path for the
// node_exporter textfile collector
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
