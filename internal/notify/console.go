package notify

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/ppiankov/schoolmon/internal/model"
)

// ConsoleNotifier writes messages to w instead of a chat channel. Dry runs
// use it so a run can be inspected without side effects.
type ConsoleNotifier struct {
	mu sync.Mutex
	w  io.Writer
}

// NewConsoleNotifier creates a notifier writing to w
func NewConsoleNotifier(w io.Writer) *ConsoleNotifier {
	return &ConsoleNotifier{w: w}
}

// Send writes text followed by a separator line
func (c *ConsoleNotifier) Send(ctx context.Context, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := fmt.Fprintf(c.w, "%s\n----\n", text); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	return nil
}

// ConsoleInviter describes invites on w instead of emailing them
type ConsoleInviter struct {
	mu sync.Mutex
	w  io.Writer
}

// NewConsoleInviter creates an inviter writing to w
func NewConsoleInviter(w io.Writer) *ConsoleInviter {
	return &ConsoleInviter{w: w}
}

// Send writes the subject line the invite email would carry
func (c *ConsoleInviter) Send(ctx context.Context, ev model.VerifiedEvent, title string) error {
	date, err := ReadableDate(ev.Date())
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := fmt.Fprintf(c.w, "[invite] %s (%s)\n", InviteSubject(title, date), TimeDisplay(ev.Time, ev.Candidate.EndTime)); err != nil {
		return fmt.Errorf("write invite: %w", err)
	}
	return nil
}
