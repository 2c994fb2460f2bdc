package testutils

import (
	"context"
	"sync"

	"github.com/papercomputeco/chatrelay/pkg/relay"
)

// RecordingSender keeps every delivered message. A non-nil Err fails every
// send without recording it.
type RecordingSender struct {
	Err error

	mu       sync.Mutex
	messages []relay.Message
}

var _ relay.Sender = (*RecordingSender)(nil)

func (s *RecordingSender) Send(_ context.Context, msg relay.Message) error {
	if s.Err != nil {
		return s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
	return nil
}

// Messages returns a copy of the delivered messages.
func (s *RecordingSender) Messages() []relay.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]relay.Message(nil), s.messages...)
}
