package mail

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

type gmailServer struct {
	mu       sync.Mutex
	query    string
	max      string
	modified []string
	sent     []string
}

func (g *gmailServer) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /gmail/v1/users/me/threads", func(w http.ResponseWriter, r *http.Request) {
		g.mu.Lock()
		g.query = r.URL.Query().Get("q")
		g.max = r.URL.Query().Get("maxResults")
		g.mu.Unlock()
		_ = json.NewEncoder(w).Encode(gmail.ListThreadsResponse{
			Threads: []*gmail.Thread{{Id: "t1"}},
		})
	})

	mux.HandleFunc("GET /gmail/v1/users/me/threads/t1", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("format"); got != "full" {
			t.Errorf("Expected format=full, got %q", got)
		}
		_ = json.NewEncoder(w).Encode(gmail.Thread{
			Id: "t1",
			Messages: []*gmail.Message{{
				Id:           "m1",
				ThreadId:     "t1",
				LabelIds:     []string{"INBOX", "UNREAD"},
				InternalDate: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC).UnixMilli(),
				Payload: &gmail.MessagePart{
					MimeType: "multipart/alternative",
					Headers: []*gmail.MessagePartHeader{
						{Name: "From", Value: "Ms. Lee <lee@school.org>"},
						{Name: "subject", Value: "Spring concert"},
					},
					Parts: []*gmail.MessagePart{
						{MimeType: "text/plain", Body: encodePart("The spring concert is on April 2 at 6pm.")},
					},
				},
			}},
		})
	})

	mux.HandleFunc("POST /gmail/v1/users/me/threads/t1/modify", func(w http.ResponseWriter, r *http.Request) {
		var req gmail.ModifyThreadRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("Failed to decode modify request: %v", err)
		}
		g.mu.Lock()
		g.modified = append(g.modified, req.RemoveLabelIds...)
		g.mu.Unlock()
		_ = json.NewEncoder(w).Encode(gmail.Thread{Id: "t1"})
	})

	mux.HandleFunc("POST /gmail/v1/users/me/messages/send", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var msg gmail.Message
		if err := json.Unmarshal(body, &msg); err != nil {
			t.Errorf("Failed to decode send request: %v", err)
		}
		raw, err := base64.URLEncoding.DecodeString(msg.Raw)
		if err != nil {
			t.Errorf("Raw is not base64url: %v", err)
		}
		g.mu.Lock()
		g.sent = append(g.sent, string(raw))
		g.mu.Unlock()
		_ = json.NewEncoder(w).Encode(gmail.Message{Id: "sent-1"})
	})

	return mux
}

type gmailCalls struct {
	query    string
	max      string
	modified []string
	sent     []string
}

func (g *gmailServer) snapshot() gmailCalls {
	g.mu.Lock()
	defer g.mu.Unlock()
	return gmailCalls{query: g.query, max: g.max, modified: g.modified, sent: g.sent}
}

func newTestGmailStore(t *testing.T) (*GmailStore, *gmailServer) {
	t.Helper()
	g := &gmailServer{}
	server := httptest.NewServer(g.handler(t))
	t.Cleanup(server.Close)

	store, err := NewGmailStore(context.Background(), "",
		option.WithHTTPClient(server.Client()),
		option.WithEndpoint(server.URL+"/"),
	)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	return store, g
}

func TestGmailStore_Collect(t *testing.T) {
	store, srv := newTestGmailStore(t)

	c := NewCollector(store, WithLocation(time.UTC), WithLimits(30, 28000))
	got, err := c.Collect(context.Background(), "School 6th")
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}

	g := srv.snapshot()
	if g.query != "is:unread label:School-6th" {
		t.Errorf("Unexpected query %q", g.query)
	}
	if g.max != "30" {
		t.Errorf("Expected maxResults=30, got %q", g.max)
	}
	for _, want := range []string{
		"FROM: Ms. Lee <lee@school.org>\n",
		"SUBJECT: Spring concert\n",
		"DATE: 3/1/2026, 12:00:00 PM\n",
		"The spring concert is on April 2 at 6pm.",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("Expected source text to contain %q, got %q", want, got)
		}
	}
	if len(g.modified) != 1 || g.modified[0] != "UNREAD" {
		t.Errorf("Expected UNREAD removed, got %v", g.modified)
	}
}

func TestGmailStore_Send(t *testing.T) {
	store, srv := newTestGmailStore(t)

	raw := "To: parent@example.com\r\nSubject: hi\r\n\r\nbody"
	if err := store.Send(context.Background(), []byte(raw)); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	g := srv.snapshot()
	if len(g.sent) != 1 || g.sent[0] != raw {
		t.Errorf("Unexpected sent messages: %q", g.sent)
	}
}

func TestUnreadQuery(t *testing.T) {
	tests := map[string]string{
		"school-2nd":     "is:unread label:school-2nd",
		"School/Town":    "is:unread label:School-Town",
		" town updates ": "is:unread label:town-updates",
	}
	for label, want := range tests {
		if got := UnreadQuery(label); got != want {
			t.Errorf("UnreadQuery(%q) = %q, want %q", label, got, want)
		}
	}
}

func TestParseDateHeader(t *testing.T) {
	d, err := parseDateHeader("Sun, 1 Mar 2026 09:30:00 -0500")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !d.Equal(time.Date(2026, 3, 1, 14, 30, 0, 0, time.UTC)) {
		t.Errorf("Unexpected time %v", d)
	}

	if _, err := parseDateHeader("yesterday"); err == nil {
		t.Error("Expected error for unparseable header")
	}
}
