package eventstream

import (
	"time"

	"github.com/google/uuid"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeCompletionFinished is emitted after a chat session ends,
	// whether it was streamed to an HTTP client or delivered through a relay.
	EventTypeCompletionFinished = "chatrelay.completion.finished"
)

// CompletionEvent is a transport-neutral event payload for one finished
// chat session.
type CompletionEvent struct {
	SchemaVersion int         `json:"schema_version"`
	EventType     string      `json:"event_type"`
	EventID       string      `json:"event_id"`
	EmittedAt     time.Time   `json:"emitted_at"`
	Source        EventSource `json:"source"`
	RequestMeta   RequestMeta `json:"request_meta"`
	Outcome       Outcome     `json:"outcome"`
	Relay         *RelayMeta  `json:"relay,omitempty"`
}

// EventSource identifies the model that served the session.
type EventSource struct {
	Model  string `json:"model"`
	Family string `json:"family"`
}

// RequestMeta captures request lifecycle metadata for the event.
type RequestMeta struct {
	SessionID   string    `json:"session_id"`
	Path        string    `json:"path,omitempty"`
	RequestID   string    `json:"request_id,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
	DurationMs  int64     `json:"duration_ms"`
	Streaming   bool      `json:"streaming"`
	HTTPStatus  int       `json:"http_status"`
}

// Outcome describes how the session ended.
type Outcome struct {
	FinishReason string `json:"finish_reason"`
	TextBytes    int    `json:"text_bytes"`
	Error        string `json:"error,omitempty"`
}

// RelayMeta is set for sessions delivered through the relay.
type RelayMeta struct {
	TargetID  string `json:"target_id"`
	Delivered int    `json:"delivered"`
	Failed    int    `json:"failed"`
}

// NewCompletionEvent returns an event with its envelope fields populated.
func NewCompletionEvent(source EventSource, meta RequestMeta, outcome Outcome) *CompletionEvent {
	return &CompletionEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     EventTypeCompletionFinished,
		EventID:       "evt_" + uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		Source:        source,
		RequestMeta:   meta,
		Outcome:       outcome,
	}
}
