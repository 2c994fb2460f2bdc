// Package chat runs one chat request end to end: family resolution,
// request encoding, backend invocation and chunk decoding. It produces
// canonical deltas and knows nothing about how they are rendered.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/papercomputeco/chatrelay/pkg/backend"
	"github.com/papercomputeco/chatrelay/pkg/llm"
	"github.com/papercomputeco/chatrelay/pkg/llm/provider"
)

// Service routes requests to the backend serving their model family.
type Service struct {
	bedrock backend.Backend
	hosted  backend.Backend
	logger  *slog.Logger
}

// NewService creates a Service. bedrock serves every family except hosted,
// which is served by hosted. Either may be nil when that runtime is not
// configured; requests for it then fail with a transport error.
func NewService(bedrock, hosted backend.Backend, logger *slog.Logger) *Service {
	return &Service{
		bedrock: bedrock,
		hosted:  hosted,
		logger:  logger,
	}
}

func (s *Service) backendFor(family provider.Family) (backend.Backend, error) {
	b := s.bedrock
	if family == provider.Hosted {
		b = s.hosted
	}
	if b == nil {
		return nil, fmt.Errorf("no backend configured for %s models", family)
	}
	return b, nil
}

// prepare resolves the family and encodes the body. It fails before any
// backend call for unsupported models.
func (s *Service) prepare(req *llm.ChatRequest, streaming bool) (provider.Family, provider.Provider, backend.Backend, []byte, error) {
	if req == nil {
		return "", nil, nil, nil, llm.ErrNilRequest
	}

	family, prov, err := provider.ForModel(req.Model)
	if err != nil {
		return "", nil, nil, nil, err
	}

	b, err := s.backendFor(family)
	if err != nil {
		return "", nil, nil, nil, &llm.BackendTransportError{Model: req.Model, Err: err}
	}

	encoded := *req
	encoded.Stream = &streaming
	body, err := prov.EncodeRequest(&encoded)
	if err != nil {
		return "", nil, nil, nil, fmt.Errorf("encoding %s request: %w", family, err)
	}

	return family, prov, b, body, nil
}

// Stream opens a streamed invocation for req. Errors returned here happen
// before any output: an *llm.UnsupportedModelError for unknown models, or an
// *llm.BackendTransportError when the backend refuses the call.
func (s *Service) Stream(ctx context.Context, req *llm.ChatRequest) (*Stream, error) {
	family, prov, b, body, err := s.prepare(req, true)
	if err != nil {
		return nil, err
	}

	chunks, err := b.InvokeStream(ctx, req.Model, body)
	if err != nil {
		return nil, &llm.BackendTransportError{Model: req.Model, Err: err}
	}

	s.logger.Debug("chat stream started", "model", req.Model, "family", family)
	return &Stream{
		chunks:   chunks,
		provider: prov,
		family:   family,
		model:    req.Model,
		logger:   s.logger,
	}, nil
}

// Complete performs a non-streamed invocation and decodes the full response.
func (s *Service) Complete(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	family, prov, b, body, err := s.prepare(req, false)
	if err != nil {
		return nil, err
	}

	payload, err := b.Invoke(ctx, req.Model, body)
	if err != nil {
		return nil, &llm.BackendTransportError{Model: req.Model, Err: err}
	}

	if msg, ok := exceptionMessage(prov, payload); ok {
		return nil, &llm.BackendTransportError{Model: req.Model, Err: errors.New(msg)}
	}

	resp, err := prov.ParseResponse(payload)
	if err != nil {
		s.logger.Warn("could not parse backend response", "model", req.Model, "family", family, "error", err)
		return nil, &llm.BackendTransportError{Model: req.Model, Err: err}
	}
	if resp.Model == "" {
		resp.Model = req.Model
	}
	return resp, nil
}

// exceptionMessage reuses the family decoder to spot an in-band error body
// in a non-streamed response.
func exceptionMessage(prov provider.Provider, payload []byte) (string, bool) {
	delta, err := prov.DecodeChunk(payload)
	if err != nil || delta == nil || delta.FinishReason != llm.FinishError || delta.Err == nil {
		return "", false
	}
	var transport *llm.BackendTransportError
	if errors.As(delta.Err, &transport) {
		return transport.Err.Error(), true
	}
	return delta.Err.Error(), true
}
