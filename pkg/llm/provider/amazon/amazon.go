// Package amazon implements the Provider interface for Amazon's first-party
// models on Bedrock. Nova model ids use the messages-v1 schema; Titan ids
// use the single inputText schema.
package amazon

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/papercomputeco/chatrelay/pkg/llm"
	"github.com/papercomputeco/chatrelay/pkg/llm/provider/codec"
)

const (
	maxTokensLimit = 5120
	novaSchema     = "messages-v1"
)

// Provider implements the Provider interface for Titan/Nova-style models.
type Provider struct{}

// New creates a new Amazon provider.
func New() *Provider { return &Provider{} }

// Name returns the family name.
func (p *Provider) Name() string {
	return "amazon"
}

// MaxTokensLimit returns the generation ceiling for the family.
func (p *Provider) MaxTokensLimit() int {
	return maxTokensLimit
}

// IsNova reports whether the model id selects the messages-v1 schema.
func IsNova(model string) bool {
	return strings.Contains(strings.ToLower(model), "nova")
}

func (p *Provider) EncodeRequest(req *llm.ChatRequest) ([]byte, error) {
	if req == nil {
		return nil, llm.ErrNilRequest
	}

	maxTokens := codec.MaxTokens(req.MaxTokens, maxTokensLimit)
	if IsNova(req.Model) {
		return json.Marshal(encodeNova(req, maxTokens))
	}
	return json.Marshal(encodeTitan(req, maxTokens))
}

func encodeNova(req *llm.ChatRequest, maxTokens int) novaRequest {
	system, turns := req.SplitSystem()

	body := novaRequest{
		SchemaVersion: novaSchema,
		Messages:      make([]novaMessage, 0, len(turns)),
		InferenceConfig: novaInferenceConfig{
			MaxTokens:   maxTokens,
			Temperature: req.Temperature,
			TopP:        req.TopP,
		},
	}
	for _, s := range system {
		body.System = append(body.System, novaText{Text: s})
	}
	for i := range turns {
		text := turns[i].GetText()
		if text == "" {
			continue
		}
		role := turns[i].Role
		if role != llm.RoleAssistant {
			role = llm.RoleUser
		}
		body.Messages = append(body.Messages, novaMessage{
			Role:    role,
			Content: []novaText{{Text: text}},
		})
	}
	return body
}

// encodeTitan renders the conversation in Titan's "User:/Bot:" convention.
func encodeTitan(req *llm.ChatRequest, maxTokens int) titanRequest {
	var b strings.Builder
	for i := range req.Messages {
		text := req.Messages[i].GetText()
		if text == "" {
			continue
		}
		switch req.Messages[i].Role {
		case llm.RoleAssistant:
			b.WriteString("Bot: ")
		case llm.RoleSystem:
			// system text is prepended as-is
		default:
			b.WriteString("User: ")
		}
		b.WriteString(text)
		b.WriteString("\n")
	}
	b.WriteString("Bot:")

	return titanRequest{
		InputText: b.String(),
		TextGenerationConfig: titanGenerationConfig{
			MaxTokenCount: maxTokens,
			Temperature:   req.Temperature,
			TopP:          req.TopP,
		},
	}
}

func (p *Provider) DecodeChunk(payload []byte) (*llm.Delta, error) {
	var chunk amazonChunk
	if err := json.Unmarshal(payload, &chunk); err != nil {
		return nil, codec.Malformed(p.Name(), err)
	}

	switch {
	case chunk.ContentBlockDelta != nil:
		if chunk.ContentBlockDelta.Delta.Text == "" {
			return nil, nil
		}
		return &llm.Delta{Text: chunk.ContentBlockDelta.Delta.Text}, nil

	case chunk.OutputText != nil:
		if *chunk.OutputText == "" {
			return nil, nil
		}
		return &llm.Delta{Text: *chunk.OutputText}, nil

	case chunk.MessageStart != nil, chunk.MessageStop != nil, chunk.Metadata != nil:
		return nil, nil
	}

	if msg, ok := codec.DetectException(payload); ok {
		return codec.ErrorDelta(p.Name(), msg), nil
	}
	return nil, nil
}

func (p *Provider) ParseResponse(payload []byte) (*llm.ChatResponse, error) {
	var resp amazonResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return nil, codec.Malformed(p.Name(), err)
	}

	var text strings.Builder
	stopReason := resp.StopReason
	switch {
	case resp.Output != nil:
		for _, block := range resp.Output.Message.Content {
			text.WriteString(block.Text)
		}
	case len(resp.Results) > 0:
		text.WriteString(resp.Results[0].OutputText)
		stopReason = resp.Results[0].CompletionReason
	}

	return &llm.ChatResponse{
		Message:     llm.NewTextMessage(llm.RoleAssistant, text.String()),
		StopReason:  stopReason,
		CreatedAt:   time.Now(),
		RawResponse: payload,
	}, nil
}
