package mail

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

const labelUnread = "UNREAD"

// GmailStore implements Store over the Gmail REST API
type GmailStore struct {
	service *gmail.Service
	user    string
}

// NewGmailStore creates a store for user ("me" for the token owner)
func NewGmailStore(ctx context.Context, user string, opts ...option.ClientOption) (*GmailStore, error) {
	service, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gmail service: %w", err)
	}
	if user == "" {
		user = "me"
	}
	return &GmailStore{service: service, user: user}, nil
}

// UnreadQuery is the search used to find new mail under label. Gmail search
// spells spaces and slashes in label names as hyphens.
func UnreadQuery(label string) string {
	normalized := strings.NewReplacer(" ", "-", "/", "-").Replace(strings.TrimSpace(label))
	return "is:unread label:" + normalized
}

// SearchThreads lists up to max threads with unread mail under label
func (s *GmailStore) SearchThreads(ctx context.Context, label string, max int) ([]string, error) {
	resp, err := s.service.Users.Threads.List(s.user).
		Q(UnreadQuery(label)).
		MaxResults(int64(max)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("search threads for %q: %w", label, err)
	}

	ids := make([]string, 0, len(resp.Threads))
	for _, t := range resp.Threads {
		ids = append(ids, t.Id)
	}
	return ids, nil
}

// Thread fetches a thread with full payloads
func (s *GmailStore) Thread(ctx context.Context, id string) (*Thread, error) {
	t, err := s.service.Users.Threads.Get(s.user, id).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("get thread %s: %w", id, err)
	}

	thread := &Thread{ID: t.Id}
	for _, m := range t.Messages {
		thread.Messages = append(thread.Messages, toMessage(m))
	}
	return thread, nil
}

// MarkThreadRead removes the UNREAD label from the whole thread
func (s *GmailStore) MarkThreadRead(ctx context.Context, id string) error {
	req := &gmail.ModifyThreadRequest{RemoveLabelIds: []string{labelUnread}}
	if _, err := s.service.Users.Threads.Modify(s.user, id, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("mark thread %s read: %w", id, err)
	}
	return nil
}

// Send delivers a raw RFC 5322 message from the authenticated account
func (s *GmailStore) Send(ctx context.Context, raw []byte) error {
	msg := &gmail.Message{Raw: base64.URLEncoding.EncodeToString(raw)}
	if _, err := s.service.Users.Messages.Send(s.user, msg).Context(ctx).Do(); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

func toMessage(m *gmail.Message) Message {
	plain, htmlBody := extractBodies(m.Payload)

	msg := Message{
		ID:        m.Id,
		ThreadID:  m.ThreadId,
		From:      header(m.Payload, "From"),
		Subject:   header(m.Payload, "Subject"),
		PlainBody: plain,
		HTMLBody:  htmlBody,
	}

	for _, l := range m.LabelIds {
		if l == labelUnread {
			msg.Unread = true
			break
		}
	}

	if m.InternalDate > 0 {
		msg.Date = time.UnixMilli(m.InternalDate)
	} else if d, err := parseDateHeader(header(m.Payload, "Date")); err == nil {
		msg.Date = d
	}
	return msg
}

var dateHeaderLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 -0700 (MST)",
	"2 Jan 2006 15:04:05 -0700",
}

func parseDateHeader(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	for _, layout := range dateHeaderLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date header %q", v)
}
