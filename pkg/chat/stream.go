package chat

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/papercomputeco/chatrelay/pkg/backend"
	"github.com/papercomputeco/chatrelay/pkg/llm"
	"github.com/papercomputeco/chatrelay/pkg/llm/provider"
)

// Stream decodes a backend chunk stream into canonical deltas. It
// implements llm.DeltaSource: every stream ends with exactly one terminal
// delta (stop or error), after which Recv returns io.EOF.
type Stream struct {
	chunks   backend.ChunkStream
	provider provider.Provider
	family   provider.Family
	model    string
	logger   *slog.Logger

	done    bool
	skipped int
}

var _ llm.DeltaSource = (*Stream)(nil)

// Family returns the resolved model family.
func (s *Stream) Family() provider.Family { return s.family }

// Model returns the requested model identifier.
func (s *Stream) Model() string { return s.model }

// Skipped returns the number of malformed chunks dropped so far.
func (s *Stream) Skipped() int { return s.skipped }

// Recv returns the next non-empty delta. Malformed chunks are logged and
// skipped. Exhaustion of the backend stream yields a stop delta; a backend
// failure (including context cancellation) yields an error delta.
func (s *Stream) Recv(ctx context.Context) (llm.Delta, error) {
	for {
		if s.done {
			return llm.Delta{}, io.EOF
		}

		raw, err := s.chunks.Next(ctx)
		if errors.Is(err, io.EOF) {
			s.done = true
			return llm.Delta{FinishReason: llm.FinishStop}, nil
		}
		if err != nil {
			s.done = true
			return llm.Delta{
				FinishReason: llm.FinishError,
				Err:          &llm.BackendTransportError{Model: s.model, Err: err},
			}, nil
		}

		delta, err := s.provider.DecodeChunk(raw)
		if err != nil {
			s.skipped++
			s.logger.Warn("skipping malformed chunk",
				"model", s.model,
				"family", s.family,
				"error", err,
			)
			continue
		}
		if delta == nil || delta.IsEmpty() {
			continue
		}

		if delta.IsTerminal() {
			s.done = true
			var transport *llm.BackendTransportError
			if errors.As(delta.Err, &transport) && transport.Model == "" {
				transport.Model = s.model
			}
		}
		return *delta, nil
	}
}

// Close releases the backend stream.
func (s *Stream) Close() error {
	return s.chunks.Close()
}
