// Package relay re-segments a canonical delta stream into discrete messages
// for a third-party messaging transport whose per-message limits are much
// stricter than an HTTP stream's.
package relay

import (
	"context"
	"fmt"
	"io"
)

// Message is one unit handed to a Sender.
type Message struct {
	TargetID string
	Text     string
}

// Sender delivers a single message. Implementations do not retry.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SenderFunc adapts a function to the Sender interface.
type SenderFunc func(ctx context.Context, msg Message) error

func (f SenderFunc) Send(ctx context.Context, msg Message) error {
	return f(ctx, msg)
}

// WriterSender prints messages instead of delivering them. It backs the
// CLI's dry-run mode.
type WriterSender struct {
	W io.Writer
}

func (s *WriterSender) Send(_ context.Context, msg Message) error {
	_, err := fmt.Fprintf(s.W, "--- %s (%d bytes)\n%s\n", msg.TargetID, len(msg.Text), msg.Text)
	return err
}
