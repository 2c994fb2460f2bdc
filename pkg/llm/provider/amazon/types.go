package amazon

// novaRequest is the messages-v1 body used by Amazon Nova models.
type novaRequest struct {
	SchemaVersion   string              `json:"schemaVersion"`
	System          []novaText          `json:"system,omitempty"`
	Messages        []novaMessage       `json:"messages"`
	InferenceConfig novaInferenceConfig `json:"inferenceConfig"`
}

type novaMessage struct {
	Role    string     `json:"role"`
	Content []novaText `json:"content"`
}

type novaText struct {
	Text string `json:"text"`
}

type novaInferenceConfig struct {
	MaxTokens   int      `json:"maxTokens"`
	Temperature *float64 `json:"temperature,omitempty"`
	TopP        *float64 `json:"topP,omitempty"`
}

// titanRequest is the body used by Amazon Titan text models.
type titanRequest struct {
	InputText            string                `json:"inputText"`
	TextGenerationConfig titanGenerationConfig `json:"textGenerationConfig"`
}

type titanGenerationConfig struct {
	MaxTokenCount int      `json:"maxTokenCount"`
	Temperature   *float64 `json:"temperature,omitempty"`
	TopP          *float64 `json:"topP,omitempty"`
}

// amazonChunk covers both streamed shapes: Nova emits
// {"contentBlockDelta":{"delta":{"text":...}}}, Titan emits {"outputText":...}.
type amazonChunk struct {
	ContentBlockDelta *struct {
		Delta struct {
			Text string `json:"text"`
		} `json:"delta"`
	} `json:"contentBlockDelta,omitempty"`
	MessageStart *struct {
		Role string `json:"role"`
	} `json:"messageStart,omitempty"`
	MessageStop *struct {
		StopReason string `json:"stopReason"`
	} `json:"messageStop,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	OutputText *string        `json:"outputText,omitempty"`
}

// amazonResponse covers both full response shapes.
type amazonResponse struct {
	// Nova
	Output *struct {
		Message novaMessage `json:"message"`
	} `json:"output,omitempty"`
	StopReason string `json:"stopReason,omitempty"`

	// Titan
	Results []struct {
		OutputText       string `json:"outputText"`
		CompletionReason string `json:"completionReason"`
	} `json:"results,omitempty"`
}
