package llama

// Llama 3 prompt tags.
const (
	beginOfText = "<|begin_of_text|>"
	startHeader = "<|start_header_id|>"
	endHeader   = "<|end_header_id|>"
	endOfTurn   = "<|eot_id|>"
)

// llamaRequest is the Bedrock body for Meta Llama models.
type llamaRequest struct {
	Prompt      string   `json:"prompt"`
	MaxGenLen   int      `json:"max_gen_len"`
	Temperature *float64 `json:"temperature,omitempty"`
	TopP        *float64 `json:"top_p,omitempty"`
}

// llamaChunk is both the streamed chunk and the full response shape.
type llamaChunk struct {
	Generation           *string `json:"generation"`
	PromptTokenCount     *int    `json:"prompt_token_count,omitempty"`
	GenerationTokenCount *int    `json:"generation_token_count,omitempty"`
	StopReason           *string `json:"stop_reason,omitempty"`
}
