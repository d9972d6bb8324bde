package notify

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	netmail "net/mail"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/schoolmon/internal/mail"
	"github.com/ppiankov/schoolmon/internal/model"
)

type recordingStore struct {
	sent [][]byte
	err  error
}

func (s *recordingStore) SearchThreads(ctx context.Context, label string, max int) ([]string, error) {
	return nil, nil
}

func (s *recordingStore) Thread(ctx context.Context, id string) (*mail.Thread, error) {
	return nil, errors.New("not implemented")
}

func (s *recordingStore) MarkThreadRead(ctx context.Context, id string) error {
	return nil
}

func (s *recordingStore) Send(ctx context.Context, raw []byte) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, raw)
	return nil
}

type decodedPart struct {
	contentType string
	disposition string
	body        string
}

// readParts flattens a multipart message into its leaf parts
func readParts(t *testing.T, r io.Reader, contentType string) []decodedPart {
	t.Helper()
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		t.Fatalf("Bad content type %q: %v", contentType, err)
	}
	if !strings.HasPrefix(mediaType, "multipart/") {
		t.Fatalf("Expected multipart, got %s", mediaType)
	}

	var parts []decodedPart
	mr := multipart.NewReader(r, params["boundary"])
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("NextPart failed: %v", err)
		}

		ct := p.Header.Get("Content-Type")
		if strings.HasPrefix(ct, "multipart/") {
			parts = append(parts, readParts(t, p, ct)...)
			continue
		}

		raw, _ := io.ReadAll(p)
		body, err := base64.StdEncoding.DecodeString(strings.NewReplacer("\r", "", "\n", "").Replace(string(raw)))
		if err != nil {
			t.Fatalf("Part %s is not base64: %v", ct, err)
		}
		parts = append(parts, decodedPart{contentType: ct, disposition: p.Header.Get("Content-Disposition"), body: string(body)})
	}
	return parts
}

func TestInviteMailer_Send(t *testing.T) {
	store := &recordingStore{}
	m, err := NewInviteMailer(store, testBuilder(), "parent@example.com", "School Email Monitor", nil)
	if err != nil {
		t.Fatalf("Failed to create mailer: %v", err)
	}
	m.now = func() time.Time { return time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC) }

	ev := model.VerifiedEvent{
		Candidate: model.CandidateEvent{
			Title:       "Science Museum Trip",
			Date:        "2026-02-20",
			Time:        "08:30",
			EndTime:     "14:45",
			Description: "Bring a <b>bag</b> lunch",
			SourceQuote: "Science Museum trip Feb 20",
		},
		Time:         "08:30",
		Verification: model.Verification{Verified: true, EffectiveConfidence: model.ConfidenceHigh},
	}

	if err := m.Send(context.Background(), ev, "Alex: Science Museum Trip"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if len(store.sent) != 1 {
		t.Fatalf("Expected 1 message, got %d", len(store.sent))
	}

	msg, err := netmail.ReadMessage(bytes.NewReader(store.sent[0]))
	if err != nil {
		t.Fatalf("Message does not parse: %v", err)
	}

	subject, err := new(mime.WordDecoder).DecodeHeader(msg.Header.Get("Subject"))
	if err != nil {
		t.Fatalf("Bad subject: %v", err)
	}
	if subject != "School Event: Alex: Science Museum Trip - Friday, Feb 20, 2026" {
		t.Errorf("Unexpected subject %q", subject)
	}
	if msg.Header.Get("To") != "parent@example.com" {
		t.Errorf("Unexpected recipient %q", msg.Header.Get("To"))
	}
	from, err := msg.Header.AddressList("From")
	if err != nil || len(from) != 1 || from[0].Name != "School Email Monitor" {
		t.Errorf("Unexpected sender %v (%v)", from, err)
	}

	parts := readParts(t, msg.Body, msg.Header.Get("Content-Type"))
	if len(parts) != 3 {
		t.Fatalf("Expected plain, html and ics parts, got %d", len(parts))
	}

	plain, html, ics := parts[0], parts[1], parts[2]
	if !strings.HasPrefix(plain.contentType, "text/plain") {
		t.Errorf("Expected plain part first, got %s", plain.contentType)
	}
	for _, want := range []string{
		"Event: Alex: Science Museum Trip\n",
		"Date:  Friday, Feb 20, 2026\n",
		"Time:  8:30 AM - 2:45 PM\n",
		"From email: \"Science Museum trip Feb 20\"",
		"[VERIFIED]",
	} {
		if !strings.Contains(plain.body, want) {
			t.Errorf("Plain body missing %q:\n%s", want, plain.body)
		}
	}

	if !strings.HasPrefix(html.contentType, "text/html") {
		t.Errorf("Expected html part second, got %s", html.contentType)
	}
	if !strings.Contains(html.body, "Bring a &lt;b&gt;bag&lt;/b&gt; lunch") {
		t.Errorf("Expected escaped description in html body:\n%s", html.body)
	}
	if !strings.Contains(html.body, "#e6f4ea") {
		t.Error("Expected verified styling in html body")
	}

	if !strings.HasPrefix(ics.contentType, "text/calendar") || !strings.Contains(ics.contentType, "method=PUBLISH") {
		t.Errorf("Unexpected attachment type %s", ics.contentType)
	}
	if !strings.Contains(ics.disposition, `filename="school-event.ics"`) {
		t.Errorf("Unexpected disposition %s", ics.disposition)
	}
	decodeInvite(t, []byte(ics.body))
}

func TestInviteMailer_LowConfidenceTag(t *testing.T) {
	store := &recordingStore{}
	m, err := NewInviteMailer(store, testBuilder(), "parent@example.com", "", nil)
	if err != nil {
		t.Fatalf("Failed to create mailer: %v", err)
	}

	ev := model.VerifiedEvent{
		Candidate:    model.CandidateEvent{Title: "Party", Date: "2026-02-14"},
		Verification: model.Verification{Verified: true, EffectiveConfidence: model.ConfidenceLow},
	}
	raw, err := m.Compose(ev, "Sam: Party")
	if err != nil {
		t.Fatalf("Compose failed: %v", err)
	}

	msg, err := netmail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("Message does not parse: %v", err)
	}
	parts := readParts(t, msg.Body, msg.Header.Get("Content-Type"))
	if !strings.Contains(parts[0].body, "Time:  All Day\n") {
		t.Errorf("Expected all-day display:\n%s", parts[0].body)
	}
	if !strings.Contains(parts[0].body, "[LOW CONFIDENCE]") {
		t.Errorf("Expected low confidence tag:\n%s", parts[0].body)
	}
	if !strings.Contains(parts[1].body, "#fef7e0") {
		t.Error("Expected low confidence styling in html body")
	}
}

func TestInviteMailer_StoreError(t *testing.T) {
	store := &recordingStore{err: errors.New("quota")}
	m, err := NewInviteMailer(store, testBuilder(), "parent@example.com", "", nil)
	if err != nil {
		t.Fatalf("Failed to create mailer: %v", err)
	}

	ev := model.VerifiedEvent{Candidate: model.CandidateEvent{Title: "x", Date: "2026-02-14"}}
	if err := m.Send(context.Background(), ev, "x"); err == nil {
		t.Error("Expected store error")
	}
}

func TestNewInviteMailer_Validation(t *testing.T) {
	if _, err := NewInviteMailer(&recordingStore{}, testBuilder(), "", "", nil); err == nil {
		t.Error("Expected error for missing recipient")
	}
	if _, err := NewInviteMailer(&recordingStore{}, testBuilder(), "not an address", "", nil); err == nil {
		t.Error("Expected error for invalid recipient")
	}
}
