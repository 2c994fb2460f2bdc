package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/papercomputeco/chatrelay/pkg/llm"
	"github.com/papercomputeco/chatrelay/pkg/sse"
)

// Emitter writes the frames of one session. It is not safe for concurrent
// use; one goroutine owns a session.
type Emitter struct {
	session  *Session
	w        *sse.Writer
	finished bool
}

// NewEmitter returns an Emitter writing SSE frames for session to w.
func NewEmitter(session *Session, w io.Writer) *Emitter {
	return &Emitter{session: session, w: sse.NewWriter(w)}
}

// Role writes the initial frame carrying the assistant role marker.
func (e *Emitter) Role() error {
	return e.write(e.session.frame(FrameDelta{Role: llm.RoleAssistant}, nil))
}

// Delta writes one content frame. Empty text writes nothing.
func (e *Emitter) Delta(text string) error {
	if text == "" {
		return nil
	}
	return e.write(e.session.frame(FrameDelta{Content: text}, nil))
}

// Finish writes the terminal frame and the [DONE] sentinel. The terminal
// frame always reports finish_reason "stop"; a non-nil cause is attached as
// an error object. Calls after the first are no-ops.
func (e *Emitter) Finish(cause error) error {
	if e.finished {
		return nil
	}
	e.finished = true

	stop := string(llm.FinishStop)
	frame := e.session.frame(FrameDelta{}, &stop)
	if cause != nil {
		frame.Error = ErrorBody(cause)
	}

	if err := e.write(frame); err != nil {
		return err
	}
	return e.w.WriteDone()
}

// Finished reports whether the terminal frame has been written.
func (e *Emitter) Finished() bool {
	return e.finished
}

func (e *Emitter) write(f Frame) error {
	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("marshaling frame: %w", err)
	}
	return e.w.WriteData(data)
}

// ErrorBody renders err in the OpenAI error object layout.
func ErrorBody(err error) *llm.ErrorBody {
	body := &llm.ErrorBody{Message: err.Error(), Type: "server_error"}

	var (
		transport   *llm.BackendTransportError
		unsupported *llm.UnsupportedModelError
	)
	switch {
	case errors.As(err, &unsupported):
		body.Type = "invalid_request_error"
		body.Code = "model_not_supported"
	case errors.As(err, &transport):
		body.Type = "backend_error"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		body.Type = "timeout"
	}
	return body
}

// Summary describes a finished copy.
type Summary struct {
	Text         string
	Frames       int
	FinishReason llm.FinishReason
	Err          error
}

// Copy writes the role frame, then one frame per delta from src, then the
// terminal frame and sentinel. It returns a write error if the client goes
// away; in that case no terminal frame is attempted. A source that ends
// without a terminal delta is finished as a normal stop.
func Copy(ctx context.Context, e *Emitter, src llm.DeltaSource) (Summary, error) {
	var (
		sum  Summary
		text []byte
	)
	if err := e.Role(); err != nil {
		return sum, err
	}

	for {
		d, err := src.Recv(ctx)
		if errors.Is(err, io.EOF) {
			sum.FinishReason = llm.FinishStop
			sum.Text = string(text)
			return sum, e.Finish(nil)
		}
		if err != nil {
			sum.FinishReason = llm.FinishError
			sum.Err = err
			sum.Text = string(text)
			return sum, e.Finish(err)
		}

		if d.Text != "" {
			if err := e.Delta(d.Text); err != nil {
				sum.Text = string(text)
				return sum, err
			}
			text = append(text, d.Text...)
			sum.Frames++
		}

		if d.IsTerminal() {
			sum.FinishReason = d.FinishReason
			sum.Err = d.Err
			sum.Text = string(text)
			return sum, e.Finish(d.Err)
		}
	}
}
