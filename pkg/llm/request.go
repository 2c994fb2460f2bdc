package llm

// ChatRequest represents a backend-agnostic chat completion request.
// It is built by the gateway from the inbound OpenAI-style body and handed
// to exactly one family encoder. Encoders must treat it as read-only.
type ChatRequest struct {
	// Model identifier, e.g. "anthropic.claude-3-haiku-20240307-v1:0" or a
	// hosted endpoint name such as "deepseek-r1-sagemaker-endpoint".
	Model string `json:"model"`

	// Conversation messages, in order.
	Messages []Message `json:"messages"`

	// Whether to stream the response
	Stream *bool `json:"stream,omitempty"`

	// Sampling parameters
	MaxTokens   *int     `json:"max_tokens,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	TopP        *float64 `json:"top_p,omitempty"`
}

// IsStreaming reports whether the caller asked for a streamed response.
func (r *ChatRequest) IsStreaming() bool {
	return r.Stream != nil && *r.Stream
}

// SplitSystem separates system messages from the conversation turns.
// System texts are returned in order; turns keep their relative order.
func (r *ChatRequest) SplitSystem() ([]string, []Message) {
	var system []string
	turns := make([]Message, 0, len(r.Messages))
	for _, msg := range r.Messages {
		if msg.Role == RoleSystem {
			if text := msg.GetText(); text != "" {
				system = append(system, text)
			}
			continue
		}
		turns = append(turns, msg)
	}
	return system, turns
}
