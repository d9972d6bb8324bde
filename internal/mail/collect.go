package mail

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

const (
	bannerRule      = "========================================"
	truncatedMarker = "\n\n[TRUNCATED]"
	bannerDate      = "1/2/2006, 3:04:05 PM"
)

// Collector turns the unread mail under a label into one source text
type Collector struct {
	store      Store
	maxThreads int
	maxChars   int
	loc        *time.Location
	markRead   bool
	logger     *slog.Logger
}

// CollectorOption configures a Collector
type CollectorOption func(*Collector)

// WithLimits caps the threads fetched and the characters kept
func WithLimits(maxThreads, maxChars int) CollectorOption {
	return func(c *Collector) {
		if maxThreads > 0 {
			c.maxThreads = maxThreads
		}
		if maxChars > 0 {
			c.maxChars = maxChars
		}
	}
}

// WithLocation sets the zone banner dates are rendered in
func WithLocation(loc *time.Location) CollectorOption {
	return func(c *Collector) {
		if loc != nil {
			c.loc = loc
		}
	}
}

// WithMarkRead controls whether collected threads are marked read. Dry runs
// turn it off so the same mail is seen again.
func WithMarkRead(mark bool) CollectorOption {
	return func(c *Collector) { c.markRead = mark }
}

// WithCollectorLogger sets the collector logger
func WithCollectorLogger(logger *slog.Logger) CollectorOption {
	return func(c *Collector) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewCollector creates a collector reading from store
func NewCollector(store Store, opts ...CollectorOption) *Collector {
	c := &Collector{
		store:      store,
		maxThreads: 30,
		maxChars:   28000,
		loc:        time.Local,
		markRead:   true,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Collect concatenates every unread message under label into one source
// text, one banner per message, and marks each thread read as it goes.
// Returns ErrNoMessages when nothing unread was found.
func (c *Collector) Collect(ctx context.Context, label string) (string, error) {
	ids, err := c.store.SearchThreads(ctx, label, c.maxThreads)
	if err != nil {
		return "", err
	}
	if len(ids) == 0 {
		return "", ErrNoMessages
	}

	var b strings.Builder
	count := 0
	for _, id := range ids {
		thread, err := c.store.Thread(ctx, id)
		if err != nil {
			return "", err
		}

		for _, msg := range thread.Messages {
			if !msg.Unread {
				continue
			}
			count++
			c.writeMessage(&b, msg)
		}

		if c.markRead {
			if err := c.store.MarkThreadRead(ctx, id); err != nil {
				return "", err
			}
		}
	}

	c.logger.Info("collected mail", "label", label, "messages", count, "threads", len(ids))

	content := b.String()
	if content == "" {
		return "", ErrNoMessages
	}
	return Truncate(content, c.maxChars), nil
}

func (c *Collector) writeMessage(b *strings.Builder, msg Message) {
	date := ""
	if !msg.Date.IsZero() {
		date = msg.Date.In(c.loc).Format(bannerDate)
	}

	b.WriteString("\n\n" + bannerRule + "\n")
	fmt.Fprintf(b, "FROM: %s\n", msg.From)
	fmt.Fprintf(b, "SUBJECT: %s\n", msg.Subject)
	fmt.Fprintf(b, "DATE: %s\n", date)
	b.WriteString(bannerRule + "\n")
	b.WriteString(msg.Body())
}

// Truncate cuts content to maxChars characters and marks the cut
func Truncate(content string, maxChars int) string {
	runes := []rune(content)
	if maxChars <= 0 || len(runes) <= maxChars {
		return content
	}
	return string(runes[:maxChars]) + truncatedMarker
}
