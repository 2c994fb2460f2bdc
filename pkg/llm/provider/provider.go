// Package provider resolves model identifiers to backend families and
// builds the per-family codec that encodes requests and decodes responses.
package provider

import (
	"github.com/papercomputeco/chatrelay/pkg/llm"
)

// Provider defines the interface for one backend family's wire format.
// Each implementation knows how to build the invocation body for its family
// and how to turn the family's streamed chunks and full responses into the
// canonical representation.
type Provider interface {
	// Name returns the canonical family name (e.g., "anthropic", "llama", "hosted")
	Name() string

	// MaxTokensLimit is the ceiling applied to the requested generation length.
	MaxTokensLimit() int

	// EncodeRequest builds the backend invocation body for req.
	// req is never modified.
	EncodeRequest(req *llm.ChatRequest) ([]byte, error)

	// DecodeChunk converts one raw streaming unit into a canonical delta.
	// Returns (nil, nil) when the chunk carries no content (keep-alive,
	// metadata, unknown event type). Returns a *llm.MalformedChunkError when
	// the chunk is not parseable; callers skip it and keep reading.
	// Backend-level error chunks yield a delta with FinishReason "error".
	DecodeChunk(payload []byte) (*llm.Delta, error)

	// ParseResponse converts one full, non-streamed backend payload.
	ParseResponse(payload []byte) (*llm.ChatResponse, error)
}
