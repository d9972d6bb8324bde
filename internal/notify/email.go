package notify

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	netmail "net/mail"
	"net/textproto"
	"strings"
	"time"

	"github.com/ppiankov/schoolmon/internal/mail"
	"github.com/ppiankov/schoolmon/internal/model"
)

const inviteFilename = "school-event.ics"

// Inviter delivers one calendar invite for a verified event
type Inviter interface {
	Send(ctx context.Context, ev model.VerifiedEvent, title string) error
}

// InviteMailer emails .ics invites through the mailbox the mail came from
type InviteMailer struct {
	store      mail.Store
	builder    *InviteBuilder
	to         string
	senderName string
	now        func() time.Time
	logger     *slog.Logger
}

// NewInviteMailer creates a mailer sending invites to "to"
func NewInviteMailer(store mail.Store, builder *InviteBuilder, to, senderName string, logger *slog.Logger) (*InviteMailer, error) {
	if to == "" {
		return nil, fmt.Errorf("invite recipient is required")
	}
	if _, err := netmail.ParseAddress(to); err != nil {
		return nil, fmt.Errorf("invalid invite recipient %q: %w", to, err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &InviteMailer{
		store:      store,
		builder:    builder,
		to:         to,
		senderName: senderName,
		now:        time.Now,
		logger:     logger,
	}, nil
}

// Send composes and delivers the invite for ev
func (m *InviteMailer) Send(ctx context.Context, ev model.VerifiedEvent, title string) error {
	raw, err := m.Compose(ev, title)
	if err != nil {
		return err
	}
	if err := m.store.Send(ctx, raw); err != nil {
		return fmt.Errorf("send invite %q: %w", title, err)
	}
	m.logger.Info("calendar invite sent", "title", title, "date", ev.Date())
	return nil
}

// Compose renders the full RFC 5322 message: a plain/HTML alternative plus
// the .ics attachment
func (m *InviteMailer) Compose(ev model.VerifiedEvent, title string) ([]byte, error) {
	if title == "" {
		title = defaultEventTitle
	}

	ics, err := m.builder.Encode(ev, title)
	if err != nil {
		return nil, err
	}

	view, err := newInviteView(ev, title)
	if err != nil {
		return nil, err
	}

	var htmlBody bytes.Buffer
	if err := inviteHTML.Execute(&htmlBody, view); err != nil {
		return nil, fmt.Errorf("render invite html: %w", err)
	}

	var msg bytes.Buffer
	mixed := multipart.NewWriter(&msg)

	from := netmail.Address{Name: m.senderName, Address: m.to}
	fmt.Fprintf(&msg, "From: %s\r\n", from.String())
	fmt.Fprintf(&msg, "To: %s\r\n", m.to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", InviteSubject(title, view.Date)))
	fmt.Fprintf(&msg, "Date: %s\r\n", m.now().Format(time.RFC1123Z))
	msg.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&msg, "Content-Type: multipart/mixed; boundary=%q\r\n\r\n", mixed.Boundary())

	var alt bytes.Buffer
	altWriter := multipart.NewWriter(&alt)
	if err := writePart(altWriter, "text/plain; charset=utf-8", "", []byte(view.plain())); err != nil {
		return nil, err
	}
	if err := writePart(altWriter, "text/html; charset=utf-8", "", htmlBody.Bytes()); err != nil {
		return nil, err
	}
	if err := altWriter.Close(); err != nil {
		return nil, fmt.Errorf("close alternative part: %w", err)
	}

	altHeader := textproto.MIMEHeader{}
	altHeader.Set("Content-Type", fmt.Sprintf("multipart/alternative; boundary=%q", altWriter.Boundary()))
	altPart, err := mixed.CreatePart(altHeader)
	if err != nil {
		return nil, fmt.Errorf("create alternative part: %w", err)
	}
	if _, err := altPart.Write(alt.Bytes()); err != nil {
		return nil, fmt.Errorf("write alternative part: %w", err)
	}

	attachment := fmt.Sprintf("attachment; filename=%q", inviteFilename)
	contentType := fmt.Sprintf("text/calendar; charset=utf-8; method=PUBLISH; name=%q", inviteFilename)
	if err := writePart(mixed, contentType, attachment, ics); err != nil {
		return nil, err
	}
	if err := mixed.Close(); err != nil {
		return nil, fmt.Errorf("close message: %w", err)
	}

	return msg.Bytes(), nil
}

// InviteSubject is the email subject for an invite
func InviteSubject(title, readableDate string) string {
	return fmt.Sprintf("School Event: %s - %s", title, readableDate)
}

// writePart adds a base64-encoded part to w
func writePart(w *multipart.Writer, contentType, disposition string, body []byte) error {
	h := textproto.MIMEHeader{}
	h.Set("Content-Type", contentType)
	h.Set("Content-Transfer-Encoding", "base64")
	if disposition != "" {
		h.Set("Content-Disposition", disposition)
	}

	part, err := w.CreatePart(h)
	if err != nil {
		return fmt.Errorf("create %s part: %w", contentType, err)
	}

	enc := base64.NewEncoder(base64.StdEncoding, &lineWrapper{w: part})
	if _, err := enc.Write(body); err != nil {
		return fmt.Errorf("write %s part: %w", contentType, err)
	}
	return enc.Close()
}

// lineWrapper breaks base64 output into 76-character lines
type lineWrapper struct {
	w   io.Writer
	col int
}

func (l *lineWrapper) Write(p []byte) (int, error) {
	written := 0
	for len(p) > 0 {
		n := 76 - l.col
		if n > len(p) {
			n = len(p)
		}
		if _, err := l.w.Write(p[:n]); err != nil {
			return written, err
		}
		written += n
		l.col += n
		p = p[n:]
		if l.col == 76 {
			if _, err := l.w.Write([]byte("\r\n")); err != nil {
				return written, err
			}
			l.col = 0
		}
	}
	return written, nil
}

// inviteView is what both invite bodies show
type inviteView struct {
	Title       string
	Date        string
	Time        string
	Description string
	Quote       string
	Low         bool
	Tag         string
}

func newInviteView(ev model.VerifiedEvent, title string) (inviteView, error) {
	date, err := ReadableDate(ev.Date())
	if err != nil {
		return inviteView{}, err
	}

	end := ""
	if ev.Time != "" {
		end = ev.Candidate.EndTime
	}

	v := inviteView{
		Title:       title,
		Date:        date,
		Time:        TimeDisplay(ev.Time, end),
		Description: ev.Candidate.Description,
		Quote:       ev.Candidate.SourceQuote,
		Low:         ev.LowConfidence(),
		Tag:         "[VERIFIED] Date and details confirmed against source email.",
	}
	if v.Low {
		v.Tag = "[LOW CONFIDENCE] Please verify against the original email."
	}
	return v, nil
}

func (v inviteView) plain() string {
	var b strings.Builder
	b.WriteString("SCHOOL EVENT DETECTED\n========================\n\n")
	fmt.Fprintf(&b, "Event: %s\n", v.Title)
	fmt.Fprintf(&b, "Date:  %s\n", v.Date)
	fmt.Fprintf(&b, "Time:  %s\n", v.Time)
	if v.Description != "" {
		fmt.Fprintf(&b, "Details: %s\n", v.Description)
	}
	if v.Quote != "" {
		fmt.Fprintf(&b, "\nFrom email: \"%s\"\n", v.Quote)
	}
	fmt.Fprintf(&b, "\n%s\n", v.Tag)
	b.WriteString("\n========================\n")
	b.WriteString("Tap the .ics attachment to add to Apple Calendar.\n")
	b.WriteString("Select your Family calendar when adding.\n")
	return b.String()
}

var inviteHTML = template.Must(template.New("invite").Parse(`<div style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Helvetica, Arial, sans-serif; max-width: 520px; margin: 0 auto; background: #ffffff;">
  <div style="background: #1a73e8; padding: 20px 24px; border-radius: 8px 8px 0 0;">
    <h2 style="color: #ffffff; margin: 0; font-size: 18px; font-weight: 600;">School Event Detected</h2>
  </div>
  <div style="border: 1px solid #e0e0e0; border-top: none; border-radius: 0 0 8px 8px; padding: 24px;">
    <h3 style="margin: 0 0 16px 0; font-size: 17px; color: #202124;">{{.Title}}</h3>
    <table style="border-collapse: collapse; margin-bottom: 16px; width: 100%;">
      <tr>
        <td style="padding: 6px 12px 6px 0; color: #5f6368; font-size: 14px; vertical-align: top; width: 55px;">Date</td>
        <td style="padding: 6px 0; color: #202124; font-size: 14px; font-weight: 500;">{{.Date}}</td>
      </tr>
      <tr>
        <td style="padding: 6px 12px 6px 0; color: #5f6368; font-size: 14px; vertical-align: top;">Time</td>
        <td style="padding: 6px 0; color: #202124; font-size: 14px; font-weight: 500;">{{.Time}}</td>
      </tr>
      {{- if .Description}}
      <tr>
        <td style="padding: 6px 12px 6px 0; color: #5f6368; font-size: 14px; vertical-align: top;">Details</td>
        <td style="padding: 6px 0; color: #202124; font-size: 14px;">{{.Description}}</td>
      </tr>
      {{- end}}
    </table>
    {{- if .Quote}}
    <div style="background: #f8f9fa; border-left: 3px solid #1a73e8; padding: 10px 14px; margin-bottom: 16px; border-radius: 0 4px 4px 0;">
      <span style="font-size: 12px; color: #5f6368; display: block; margin-bottom: 4px;">Extracted from email:</span>
      <span style="font-size: 13px; color: #202124; font-style: italic;">"{{.Quote}}"</span>
    </div>
    {{- end}}
    <div style="background: {{if .Low}}#fef7e0{{else}}#e6f4ea{{end}}; padding: 10px 14px; border-radius: 6px; margin-bottom: 20px;">
      <span style="font-size: 13px; color: {{if .Low}}#b06000{{else}}#137333{{end}}; font-weight: 500;">{{.Tag}}</span>
    </div>
    <hr style="border: none; border-top: 1px solid #e0e0e0; margin: 16px 0;">
    <p style="font-size: 14px; color: #202124; margin: 0 0 4px 0; font-weight: 500;">How to add to your calendar:</p>
    <ol style="font-size: 13px; color: #5f6368; margin: 8px 0 0 0; padding-left: 20px; line-height: 1.7;">
      <li>Tap the <strong>school-event.ics</strong> attachment above</li>
      <li>Select your <strong>Family</strong> calendar</li>
      <li>Tap <strong>Add</strong></li>
    </ol>
  </div>
  <p style="font-size: 11px; color: #9aa0a6; text-align: center; margin-top: 16px;">Sent by School Email Monitor &middot; Automated &middot; Do not reply</p>
</div>
`))
