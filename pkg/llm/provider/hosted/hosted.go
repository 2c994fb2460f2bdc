// Package hosted implements the Provider interface for custom models served
// from hosted inference endpoints (text-generation-inference containers).
package hosted

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/papercomputeco/chatrelay/pkg/llm"
	"github.com/papercomputeco/chatrelay/pkg/llm/provider/codec"
)

const maxTokensLimit = 2048

// Provider implements the Provider interface for hosted endpoints.
type Provider struct{}

// New creates a new hosted endpoint provider.
func New() *Provider { return &Provider{} }

// Name returns the family name.
func (p *Provider) Name() string {
	return "hosted"
}

// MaxTokensLimit returns the generation ceiling for the family.
func (p *Provider) MaxTokensLimit() int {
	return maxTokensLimit
}

func (p *Provider) EncodeRequest(req *llm.ChatRequest) ([]byte, error) {
	if req == nil {
		return nil, llm.ErrNilRequest
	}

	params := hostedParameters{
		MaxNewTokens: codec.MaxTokens(req.MaxTokens, maxTokensLimit),
		DoSample:     true,
	}
	if req.Temperature != nil {
		t := codec.ClampAbove(*req.Temperature, minTemperature, maxTemperature)
		params.Temperature = &t
	}
	if req.TopP != nil {
		tp := codec.ClampAbove(*req.TopP, minTopP, maxTopP)
		params.TopP = &tp
	}

	return json.Marshal(hostedRequest{
		Inputs:     Prompt(req.Messages),
		Parameters: params,
		Stream:     req.IsStreaming(),
	})
}

// Prompt renders messages with the sentence delimiter vocabulary. System
// text follows the begin marker; every assistant turn is closed with the end
// marker; the prompt ends with an open assistant tag.
func Prompt(messages []llm.Message) string {
	var b strings.Builder
	b.WriteString(beginOfSentence)
	for i := range messages {
		text := messages[i].GetText()
		switch messages[i].Role {
		case llm.RoleSystem:
			b.WriteString(text)
		case llm.RoleAssistant:
			b.WriteString(assistantTag)
			b.WriteString(text)
			b.WriteString(endOfSentence)
		default:
			b.WriteString(userTag)
			b.WriteString(text)
		}
	}
	b.WriteString(assistantTag)
	return b.String()
}

func (p *Provider) DecodeChunk(payload []byte) (*llm.Delta, error) {
	var chunk hostedChunk
	if err := json.Unmarshal(payload, &chunk); err != nil {
		return nil, codec.Malformed(p.Name(), err)
	}

	if chunk.Token == nil {
		if msg, ok := codec.DetectException(payload); ok {
			return codec.ErrorDelta(p.Name(), msg), nil
		}
		return nil, nil
	}

	if chunk.Token.Special || chunk.Token.Text == "" {
		return nil, nil
	}
	return &llm.Delta{Text: chunk.Token.Text}, nil
}

// ParseResponse accepts both the list form [{"generated_text": ...}] and the
// single object form {"generated_text": ...}.
func (p *Provider) ParseResponse(payload []byte) (*llm.ChatResponse, error) {
	trimmed := bytes.TrimSpace(payload)

	var text string
	switch {
	case bytes.HasPrefix(trimmed, []byte("[")):
		var list []hostedResponse
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, codec.Malformed(p.Name(), err)
		}
		if len(list) == 0 {
			return nil, codec.Malformed(p.Name(), errors.New("empty response list"))
		}
		text = list[0].GeneratedText
	default:
		var single hostedResponse
		if err := json.Unmarshal(trimmed, &single); err != nil {
			return nil, codec.Malformed(p.Name(), err)
		}
		text = single.GeneratedText
	}

	return &llm.ChatResponse{
		Message:     llm.NewTextMessage(llm.RoleAssistant, text),
		StopReason:  "stop",
		CreatedAt:   time.Now(),
		RawResponse: payload,
	}, nil
}
