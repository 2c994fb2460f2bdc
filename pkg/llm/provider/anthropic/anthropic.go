// Package anthropic implements the Provider interface for Claude Messages API
// models invoked through Bedrock.
//
// Bedrock wraps the native Messages API: the model is specified in the
// invocation path, the body carries anthropic_version, and each streamed
// chunk is one Messages stream event.
package anthropic

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/papercomputeco/chatrelay/pkg/llm"
	"github.com/papercomputeco/chatrelay/pkg/llm/provider/codec"
)

const maxTokensLimit = 8192

// Provider implements the Provider interface for Anthropic-style models.
type Provider struct{}

// New creates a new Anthropic provider.
func New() *Provider { return &Provider{} }

// Name returns the family name.
func (p *Provider) Name() string {
	return "anthropic"
}

// MaxTokensLimit returns the generation ceiling for the family.
func (p *Provider) MaxTokensLimit() int {
	return maxTokensLimit
}

func (p *Provider) EncodeRequest(req *llm.ChatRequest) ([]byte, error) {
	if req == nil {
		return nil, llm.ErrNilRequest
	}

	system, turns := req.SplitSystem()
	messages := make([]anthropicMessage, 0, len(turns))
	for i := range turns {
		text := turns[i].GetText()
		if text == "" {
			continue
		}

		role := turns[i].Role
		if role != llm.RoleAssistant {
			role = llm.RoleUser
		}

		messages = append(messages, anthropicMessage{
			Role:    role,
			Content: []anthropicContentBlock{{Type: "text", Text: text}},
		})
	}

	return json.Marshal(anthropicRequest{
		AnthropicVersion: bedrockVersion,
		System:           strings.Join(system, "\n"),
		Messages:         messages,
		MaxTokens:        codec.MaxTokens(req.MaxTokens, maxTokensLimit),
		Temperature:      req.Temperature,
		TopP:             req.TopP,
	})
}

func (p *Provider) DecodeChunk(payload []byte) (*llm.Delta, error) {
	var ev anthropicStreamEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, codec.Malformed(p.Name(), err)
	}

	switch ev.Type {
	case "content_block_delta":
		if ev.Delta == nil || ev.Delta.Text == "" {
			return nil, nil
		}
		return &llm.Delta{Text: ev.Delta.Text}, nil

	case "message_stop":
		return &llm.Delta{FinishReason: llm.FinishStop}, nil

	case "error":
		msg := ""
		if ev.Error != nil {
			msg = ev.Error.Message
			if ev.Error.Type != "" {
				msg = ev.Error.Type + ": " + msg
			}
		}
		return codec.ErrorDelta(p.Name(), msg), nil

	case "":
		// Not a Messages event; may be a Bedrock exception body.
		if msg, ok := codec.DetectException(payload); ok {
			return codec.ErrorDelta(p.Name(), msg), nil
		}
	}

	return nil, nil
}

func (p *Provider) ParseResponse(payload []byte) (*llm.ChatResponse, error) {
	var resp anthropicResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return nil, codec.Malformed(p.Name(), err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	return &llm.ChatResponse{
		Model:       resp.Model,
		Message:     llm.NewTextMessage(llm.RoleAssistant, text.String()),
		StopReason:  resp.StopReason,
		CreatedAt:   time.Now(),
		RawResponse: payload,
	}, nil
}
