package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/papercomputeco/chatrelay/pkg/llm"
)

// chatCompletionRequest is the OpenAI-style inbound body. TargetID is only
// read by the relay endpoint.
type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
	TopP        *float64      `json:"top_p,omitempty"`
	MaxTokens   *int          `json:"max_tokens,omitempty"`
	Stream      *bool         `json:"stream,omitempty"`
	TargetID    string        `json:"target_id,omitempty"`
}

// chatMessage content is either a string or an array of typed parts.
type chatMessage struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
}

type contentPart struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// errInvalidRequest marks client errors in the inbound body.
var errInvalidRequest = errors.New("invalid request")

// parseChatRequest decodes an inbound body into the canonical request and
// the optional relay target.
func parseChatRequest(body []byte) (*llm.ChatRequest, string, error) {
	var in chatCompletionRequest
	if err := json.Unmarshal(body, &in); err != nil {
		return nil, "", fmt.Errorf("%w: %v", errInvalidRequest, err)
	}

	if strings.TrimSpace(in.Model) == "" {
		return nil, "", fmt.Errorf("%w: model is required", errInvalidRequest)
	}
	if len(in.Messages) == 0 {
		return nil, "", fmt.Errorf("%w: messages must not be empty", errInvalidRequest)
	}

	messages := make([]llm.Message, 0, len(in.Messages))
	for i, m := range in.Messages {
		blocks, err := parseContent(m.Content)
		if err != nil {
			return nil, "", fmt.Errorf("%w: messages[%d].content: %v", errInvalidRequest, i, err)
		}
		messages = append(messages, llm.Message{Role: m.Role, Content: blocks})
	}

	return &llm.ChatRequest{
		Model:       in.Model,
		Messages:    messages,
		Stream:      in.Stream,
		MaxTokens:   in.MaxTokens,
		Temperature: in.Temperature,
		TopP:        in.TopP,
	}, in.TargetID, nil
}

func parseContent(raw json.RawMessage) ([]llm.ContentBlock, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return []llm.ContentBlock{{Type: "text", Text: text}}, nil
	}

	var parts []contentPart
	if err := json.Unmarshal(raw, &parts); err != nil {
		return nil, errors.New("must be a string or an array of content parts")
	}

	blocks := make([]llm.ContentBlock, 0, len(parts))
	for _, p := range parts {
		blocks = append(blocks, llm.ContentBlock{Type: p.Type, Text: p.Text})
	}
	return blocks, nil
}
