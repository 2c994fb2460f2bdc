package llm

import "context"

// FinishReason is the canonical reason a stream ended.
type FinishReason string

const (
	// FinishNone marks a content delta.
	FinishNone FinishReason = ""

	// FinishStop marks normal exhaustion of the backend stream.
	FinishStop FinishReason = "stop"

	// FinishError marks a backend-level failure surfaced in or around the stream.
	FinishError FinishReason = "error"
)

// Delta is one unit of normalized model output, independent of the backend
// wire format. A delta with empty Text and no FinishReason carries nothing
// and is never emitted.
type Delta struct {
	Text         string       `json:"text,omitempty"`
	FinishReason FinishReason `json:"finish_reason,omitempty"`

	// Err is the cause when FinishReason is FinishError.
	Err error `json:"-"`
}

// IsEmpty reports whether the delta carries neither text nor a finish reason.
func (d *Delta) IsEmpty() bool {
	return d.Text == "" && d.FinishReason == FinishNone
}

// IsTerminal reports whether the delta ends its stream.
func (d *Delta) IsTerminal() bool {
	return d.FinishReason != FinishNone
}

// DeltaSource yields canonical deltas in arrival order. After a terminal
// delta has been returned, Recv returns io.EOF.
type DeltaSource interface {
	Recv(ctx context.Context) (Delta, error)
}
