package llm

import (
	"errors"
	"fmt"
)

// ErrNilRequest is returned when a nil request reaches an encoder or service.
var ErrNilRequest = errors.New("nil chat request")

// UnsupportedModelError is returned when no model family matches a model
// identifier. It is always raised before any backend call is made.
type UnsupportedModelError struct {
	Model string
}

func (e *UnsupportedModelError) Error() string {
	return fmt.Sprintf("unsupported model: %q", e.Model)
}

// BackendTransportError wraps a failure talking to a model backend, either
// while opening the call or in the middle of a stream.
type BackendTransportError struct {
	Model string
	Err   error
}

func (e *BackendTransportError) Error() string {
	return fmt.Sprintf("backend error for model %q: %v", e.Model, e.Err)
}

func (e *BackendTransportError) Unwrap() error {
	return e.Err
}

// MalformedChunkError reports a backend chunk that could not be parsed.
// It is never fatal to a stream.
type MalformedChunkError struct {
	Family string
	Err    error
}

func (e *MalformedChunkError) Error() string {
	return fmt.Sprintf("malformed %s chunk: %v", e.Family, e.Err)
}

func (e *MalformedChunkError) Unwrap() error {
	return e.Err
}

// DeliveryError reports a failed hand-off of one relay message.
type DeliveryError struct {
	TargetID string
	Err      error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("delivery to %q failed: %v", e.TargetID, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// IsUnsupportedModel reports whether err is, or wraps, an UnsupportedModelError.
func IsUnsupportedModel(err error) bool {
	var target *UnsupportedModelError
	return errors.As(err, &target)
}
