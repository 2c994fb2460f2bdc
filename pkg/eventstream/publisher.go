// Package eventstream publishes chatrelay lifecycle events to an event
// stream backend. Subpackages provide the backends.
package eventstream

import "context"

// Publisher publishes completion events to an event stream backend.
type Publisher interface {
	PublishCompletion(ctx context.Context, event *CompletionEvent) error
	Close() error
}
