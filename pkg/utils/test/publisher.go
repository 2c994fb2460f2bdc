package testutils

import (
	"context"
	"sync"

	"github.com/papercomputeco/chatrelay/pkg/eventstream"
)

// RecordingPublisher keeps every published completion event.
type RecordingPublisher struct {
	mu     sync.Mutex
	events []*eventstream.CompletionEvent
	closed bool
}

var _ eventstream.Publisher = (*RecordingPublisher)(nil)

func (p *RecordingPublisher) PublishCompletion(_ context.Context, event *eventstream.CompletionEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *RecordingPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// Events returns a copy of the published events.
func (p *RecordingPublisher) Events() []*eventstream.CompletionEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*eventstream.CompletionEvent(nil), p.events...)
}

// Closed reports whether Close has been called.
func (p *RecordingPublisher) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}
