// Package mail reads labelled unread school mail and sends invite messages
// through the same mailbox.
package mail

import (
	"context"
	"errors"
	"time"
)

// ErrNoMessages is returned by Collect when a label has no unread mail
var ErrNoMessages = errors.New("mail: no unread messages")

// Store is the mailbox the monitor reads from and sends through
type Store interface {
	// SearchThreads returns up to max thread IDs holding unread mail under label
	SearchThreads(ctx context.Context, label string, max int) ([]string, error)

	// Thread fetches a thread with every message decoded
	Thread(ctx context.Context, id string) (*Thread, error)

	// MarkThreadRead clears the unread flag on every message in the thread
	MarkThreadRead(ctx context.Context, id string) error

	// Send delivers a complete RFC 5322 message
	Send(ctx context.Context, raw []byte) error
}

// Thread is a conversation as returned by the store
type Thread struct {
	ID       string
	Messages []Message
}

// Message holds the parts of one email the monitor needs
type Message struct {
	ID        string
	ThreadID  string
	From      string
	Subject   string
	Date      time.Time
	Unread    bool
	PlainBody string
	HTMLBody  string
}
