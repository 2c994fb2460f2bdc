// Package sse provides a small SSE (Server-Sent Events) toolkit for the
// chatrelay gateway: a line-level Decoder for byte streams that arrive in
// arbitrary fragments, a Reader that parses events from an io.Reader
// (optionally teeing the raw bytes elsewhere), and a Writer that frames
// data-only events for downstream clients.
//
// See the SSE specification:
// https://html.spec.whatwg.org/multipage/server-sent-events.html
package sse

// DoneSentinel is the data payload of the final event of a chat stream.
const DoneSentinel = "[DONE]"

// Event represents a single parsed SSE event, delimited by a blank line
// in the byte stream.
type Event struct {
	// Type is the SSE event type from the "event:" field.
	// An empty string means the default "message" type.
	Type string

	// Data is the concatenated contents of all "data:" lines for this event,
	// joined with "\n".
	Data string

	// ID is the last event ID from the "id:" field, if present.
	ID string
}

// IsDone reports whether the event is the end-of-stream sentinel.
func (e *Event) IsDone() bool {
	return e.Data == DoneSentinel
}
