package stream

import "github.com/papercomputeco/chatrelay/pkg/llm"

// Frame is one chat.completion.chunk object.
type Frame struct {
	ID                string         `json:"id"`
	Object            string         `json:"object"`
	Created           int64          `json:"created"`
	Model             string         `json:"model"`
	SystemFingerprint string         `json:"system_fingerprint"`
	Choices           []Choice       `json:"choices"`
	Error             *llm.ErrorBody `json:"error,omitempty"`
}

// Choice is the single choice carried by a frame. FinishReason is null on
// every frame except the terminal one.
type Choice struct {
	Index        int        `json:"index"`
	Delta        FrameDelta `json:"delta"`
	FinishReason *string    `json:"finish_reason"`
}

// FrameDelta is {"role":"assistant"}, {"content":...} or {} on the
// terminal frame.
type FrameDelta struct {
	Role    string `json:"role,omitempty"`
	Content string `json:"content,omitempty"`
}

func (s *Session) frame(delta FrameDelta, finish *string) Frame {
	return Frame{
		ID:                s.ID,
		Object:            chunkObject,
		Created:           s.Created,
		Model:             s.Model,
		SystemFingerprint: s.Fingerprint,
		Choices: []Choice{{
			Index:        0,
			Delta:        delta,
			FinishReason: finish,
		}},
	}
}

// Completion is the non-streamed chat.completion object.
type Completion struct {
	ID                string             `json:"id"`
	Object            string             `json:"object"`
	Created           int64              `json:"created"`
	Model             string             `json:"model"`
	SystemFingerprint string             `json:"system_fingerprint"`
	Choices           []CompletionChoice `json:"choices"`
	Usage             Usage              `json:"usage"`
}

type CompletionChoice struct {
	Index        int               `json:"index"`
	Message      CompletionMessage `json:"message"`
	FinishReason string            `json:"finish_reason"`
}

type CompletionMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Usage is reported as -1 placeholders; token counts are not computed.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// NewCompletion builds the non-streamed response for text.
func NewCompletion(session *Session, text string) *Completion {
	return &Completion{
		ID:                session.ID,
		Object:            completionObject,
		Created:           session.Created,
		Model:             session.Model,
		SystemFingerprint: session.Fingerprint,
		Choices: []CompletionChoice{{
			Index:        0,
			Message:      CompletionMessage{Role: llm.RoleAssistant, Content: text},
			FinishReason: string(llm.FinishStop),
		}},
		Usage: Usage{PromptTokens: -1, CompletionTokens: -1, TotalTokens: -1},
	}
}
