// Package completion implements the Provider interface for generic text
// completion models: the prompt is passed through unformatted and the
// output arrives in a "completion" field.
package completion

import (
	"encoding/json"
	"time"

	"github.com/papercomputeco/chatrelay/pkg/llm"
	"github.com/papercomputeco/chatrelay/pkg/llm/provider/codec"
)

const maxTokensLimit = 4096

// completionRequest is the text completion body.
type completionRequest struct {
	Prompt            string   `json:"prompt"`
	MaxTokensToSample int      `json:"max_tokens_to_sample"`
	Temperature       *float64 `json:"temperature,omitempty"`
	TopP              *float64 `json:"top_p,omitempty"`
}

// completionChunk is both the streamed chunk and the full response shape.
type completionChunk struct {
	Completion *string `json:"completion"`
	StopReason *string `json:"stop_reason,omitempty"`
}

// Provider implements the Provider interface for generic completion models.
type Provider struct{}

// New creates a new completion provider.
func New() *Provider { return &Provider{} }

// Name returns the family name.
func (p *Provider) Name() string {
	return "completion"
}

// MaxTokensLimit returns the generation ceiling for the family.
func (p *Provider) MaxTokensLimit() int {
	return maxTokensLimit
}

func (p *Provider) EncodeRequest(req *llm.ChatRequest) ([]byte, error) {
	if req == nil {
		return nil, llm.ErrNilRequest
	}

	return json.Marshal(completionRequest{
		Prompt:            codec.JoinText(req.Messages),
		MaxTokensToSample: codec.MaxTokens(req.MaxTokens, maxTokensLimit),
		Temperature:       req.Temperature,
		TopP:              req.TopP,
	})
}

func (p *Provider) DecodeChunk(payload []byte) (*llm.Delta, error) {
	var chunk completionChunk
	if err := json.Unmarshal(payload, &chunk); err != nil {
		return nil, codec.Malformed(p.Name(), err)
	}

	if chunk.Completion == nil {
		if msg, ok := codec.DetectException(payload); ok {
			return codec.ErrorDelta(p.Name(), msg), nil
		}
		return nil, nil
	}

	if *chunk.Completion == "" {
		return nil, nil
	}
	return &llm.Delta{Text: *chunk.Completion}, nil
}

func (p *Provider) ParseResponse(payload []byte) (*llm.ChatResponse, error) {
	var chunk completionChunk
	if err := json.Unmarshal(payload, &chunk); err != nil {
		return nil, codec.Malformed(p.Name(), err)
	}

	text := ""
	if chunk.Completion != nil {
		text = *chunk.Completion
	}
	resp := &llm.ChatResponse{
		Message:     llm.NewTextMessage(llm.RoleAssistant, text),
		CreatedAt:   time.Now(),
		RawResponse: payload,
	}
	if chunk.StopReason != nil {
		resp.StopReason = *chunk.StopReason
	}
	return resp, nil
}
