package llm

import (
	"encoding/json"
	"time"
)

// ChatResponse represents a backend-agnostic, non-streamed chat completion.
// It is produced by a family decoder from one full backend payload.
type ChatResponse struct {
	// Model that generated the response
	Model string `json:"model"`

	// Response timestamp
	CreatedAt time.Time `json:"created_at,omitzero"`

	// The assistant's response message
	Message Message `json:"message"`

	// StopReason is the backend's own stop reason ("end_turn", "stop",
	// "length", ...). The canonical finish reason is always "stop".
	StopReason string `json:"stop_reason,omitempty"`

	// RawResponse preserves the original response payload for debugging.
	RawResponse json.RawMessage `json:"raw_response,omitempty"`
}

// ErrorResponse is the JSON body returned to HTTP clients on failure.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody follows the OpenAI error object layout.
type ErrorBody struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
}
