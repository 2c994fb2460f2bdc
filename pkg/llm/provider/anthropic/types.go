package anthropic

// bedrockVersion is the anthropic_version Bedrock requires in the body.
// The model is carried in the invocation path, not the body.
const bedrockVersion = "bedrock-2023-05-31"

// anthropicRequest represents the Bedrock InvokeModel body for Claude
// Messages API models.
type anthropicRequest struct {
	AnthropicVersion string             `json:"anthropic_version"`
	System           string             `json:"system,omitempty"`
	Messages         []anthropicMessage `json:"messages"`
	MaxTokens        int                `json:"max_tokens"`
	Temperature      *float64           `json:"temperature,omitempty"`
	TopP             *float64           `json:"top_p,omitempty"`
}

// anthropicMessage represents a message in the Messages format. Content is
// always sent as typed blocks.
type anthropicMessage struct {
	Role    string                  `json:"role"`
	Content []anthropicContentBlock `json:"content"`
}

// anthropicContentBlock represents a content block in the Messages format.
type anthropicContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// anthropicResponse represents the full, non-streamed Messages response.
type anthropicResponse struct {
	ID         string                  `json:"id"`
	Type       string                  `json:"type"`
	Role       string                  `json:"role"`
	Content    []anthropicContentBlock `json:"content"`
	Model      string                  `json:"model"`
	StopReason string                  `json:"stop_reason"`
}

// anthropicStreamEvent is one decoded chunk of a Messages stream:
// message_start, content_block_start, content_block_delta,
// content_block_stop, message_delta, message_stop, ping or error.
type anthropicStreamEvent struct {
	Type  string                `json:"type"`
	Delta *anthropicStreamDelta `json:"delta,omitempty"`
	Error *anthropicStreamError `json:"error,omitempty"`
}

type anthropicStreamDelta struct {
	// "text_delta" carries Text; "input_json_delta" and "thinking_delta"
	// carry other fields and are ignored.
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type anthropicStreamError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
