// Package backend defines the boundary between chatrelay and the model
// runtimes it calls. Implementations live in subpackages, one per runtime.
package backend

import (
	"context"
	"errors"
)

// Backend invokes a model with a family-encoded body.
type Backend interface {
	// InvokeStream starts a streamed invocation. Chunks are yielded raw, one
	// backend streaming unit at a time, for the family decoder.
	InvokeStream(ctx context.Context, modelID string, body []byte) (ChunkStream, error)

	// Invoke performs a single non-streamed invocation and returns the full
	// response payload.
	Invoke(ctx context.Context, modelID string, body []byte) ([]byte, error)
}

// ChunkStream yields raw chunks in arrival order. Next returns io.EOF when
// the backend stream is exhausted. Close releases the underlying connection
// and is safe to call more than once.
type ChunkStream interface {
	Next(ctx context.Context) ([]byte, error)
	Close() error
}

// ErrNilStream is returned when a runtime answers a streamed call without an
// event stream.
var ErrNilStream = errors.New("backend returned no event stream")

// ContentType is sent as both the content type and accept header of every
// invocation.
const ContentType = "application/json"
