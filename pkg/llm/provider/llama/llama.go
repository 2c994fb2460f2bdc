// Package llama implements the Provider interface for Meta Llama models on
// Bedrock. The conversation is flattened into one tagged prompt string.
package llama

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/papercomputeco/chatrelay/pkg/llm"
	"github.com/papercomputeco/chatrelay/pkg/llm/provider/codec"
)

const maxTokensLimit = 2048

// Provider implements the Provider interface for Llama-style models.
type Provider struct{}

// New creates a new Llama provider.
func New() *Provider { return &Provider{} }

// Name returns the family name.
func (p *Provider) Name() string {
	return "llama"
}

// MaxTokensLimit returns the generation ceiling for the family.
func (p *Provider) MaxTokensLimit() int {
	return maxTokensLimit
}

func (p *Provider) EncodeRequest(req *llm.ChatRequest) ([]byte, error) {
	if req == nil {
		return nil, llm.ErrNilRequest
	}

	return json.Marshal(llamaRequest{
		Prompt:      Prompt(req.Messages),
		MaxGenLen:   codec.MaxTokens(req.MaxTokens, maxTokensLimit),
		Temperature: req.Temperature,
		TopP:        req.TopP,
	})
}

// Prompt renders messages with the Llama 3 header vocabulary and ends with
// an open assistant header so the model continues as the assistant.
func Prompt(messages []llm.Message) string {
	var b strings.Builder
	b.WriteString(beginOfText)
	for i := range messages {
		writeTurn(&b, messages[i].Role, messages[i].GetText())
		b.WriteString(endOfTurn)
	}
	writeTurn(&b, llm.RoleAssistant, "")
	return b.String()
}

func writeTurn(b *strings.Builder, role, text string) {
	b.WriteString(startHeader)
	b.WriteString(role)
	b.WriteString(endHeader)
	b.WriteString("\n\n")
	b.WriteString(text)
}

func (p *Provider) DecodeChunk(payload []byte) (*llm.Delta, error) {
	var chunk llamaChunk
	if err := json.Unmarshal(payload, &chunk); err != nil {
		return nil, codec.Malformed(p.Name(), err)
	}

	if chunk.Generation == nil {
		if msg, ok := codec.DetectException(payload); ok {
			return codec.ErrorDelta(p.Name(), msg), nil
		}
		return nil, nil
	}

	if *chunk.Generation == "" {
		return nil, nil
	}
	return &llm.Delta{Text: *chunk.Generation}, nil
}

func (p *Provider) ParseResponse(payload []byte) (*llm.ChatResponse, error) {
	var chunk llamaChunk
	if err := json.Unmarshal(payload, &chunk); err != nil {
		return nil, codec.Malformed(p.Name(), err)
	}

	resp := &llm.ChatResponse{
		CreatedAt:   time.Now(),
		RawResponse: payload,
	}
	text := ""
	if chunk.Generation != nil {
		text = *chunk.Generation
	}
	resp.Message = llm.NewTextMessage(llm.RoleAssistant, text)
	if chunk.StopReason != nil {
		resp.StopReason = *chunk.StopReason
	}
	return resp, nil
}
