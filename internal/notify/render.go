package notify

import (
	"fmt"
	"strings"

	"github.com/ppiankov/schoolmon/internal/model"
)

const maxQuoteChars = 80

// renderOptions controls optional digest sections
type renderOptions struct {
	inviteFooter bool
	invitesSent  int // Negative means one per verified event
}

// RenderOption configures RenderDigest
type RenderOption func(*renderOptions)

// WithoutInviteFooter drops the ".ics invite(s) sent" line, used when no
// invite recipient is configured
func WithoutInviteFooter() RenderOption {
	return func(o *renderOptions) { o.inviteFooter = false }
}

// WithInvitesSent reports n delivered invites in the footer instead of
// assuming every verified event got one
func WithInvitesSent(n int) RenderOption {
	return func(o *renderOptions) { o.invitesSent = n }
}

// RenderDigest builds the chat message for one subject's verified
// extraction. Child digests carry the grade, source quotes and the
// longer wording; the town digest is terser.
func RenderDigest(subject model.Subject, v model.VerifiedExtraction, opts ...RenderOption) string {
	o := renderOptions{inviteFooter: true, invitesSent: -1}
	for _, opt := range opts {
		opt(&o)
	}
	town := subject.IsTown()

	var b strings.Builder
	if town {
		fmt.Fprintf(&b, "%s *%s Update*\n\n", subject.Emoji, subject.Name)
	} else {
		fmt.Fprintf(&b, "%s *%s — %s*\n\n", subject.Emoji, subject.Name, subject.Grade)
	}
	b.WriteString(v.SummaryText())

	if len(v.ConfidenceIssues) > 0 {
		b.WriteString("\n\n:warning: _Could not verify: " + strings.Join(v.ConfidenceIssues, ", "))
		if !town {
			b.WriteString(" — check original email")
		}
		b.WriteString("_")
	}

	verified := v.Verified()
	if len(verified) > 0 {
		b.WriteString("\n\n:calendar: *Verified Events:*")
		for i, ev := range verified {
			fmt.Fprintf(&b, "\n>%d. *%s%s*", i+1, subject.TitlePrefix(), ev.Title())
			b.WriteString("\n>    :date: " + ev.Date())
			if ev.Time != "" {
				b.WriteString(" at " + ev.Time)
			}
			if ev.Candidate.Description != "" {
				b.WriteString("\n>    " + ev.Candidate.Description)
			}
			if !town && ev.Candidate.SourceQuote != "" {
				fmt.Fprintf(&b, "\n>    :email: _\"%s\"_", truncateRunes(ev.Candidate.SourceQuote, maxQuoteChars))
			}
		}

		if o.inviteFooter {
			sent := o.invitesSent
			if sent < 0 {
				sent = len(verified)
			}
			fmt.Fprintf(&b, "\n\n:envelope_with_arrow: _%d .ics invite(s) sent to email.", sent)
			if !town {
				b.WriteString(" Tap to add to Apple Calendar.")
			}
			b.WriteString("_")
		}
	}

	unverified := v.Unverified()
	if len(unverified) > 0 {
		defaultReason := "Date not found in email"
		if town {
			b.WriteString("\n\n:rotating_light: *Could Not Verify:*")
			defaultReason = "Date not found"
		} else {
			b.WriteString("\n\n:rotating_light: *Could Not Verify — Check Email:*")
		}
		for _, ev := range unverified {
			reason := ev.Verification.Issue
			if reason == "" {
				reason = defaultReason
			}
			fmt.Fprintf(&b, "\n>• %s (%s)", ev.Title(), ev.Date())
			fmt.Fprintf(&b, "\n>  _Reason: %s_", reason)
		}
	}

	return b.String()
}

// RenderError is posted when a subject could not be processed
func RenderError(subject model.Subject) string {
	return fmt.Sprintf(":warning: *School bot error for %s.* Check emails manually.", subject.Name)
}
