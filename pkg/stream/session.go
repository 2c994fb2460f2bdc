// Package stream renders canonical deltas in the chat.completion.chunk wire
// format. A Session fixes the identity shared by every frame of one
// response; an Emitter writes the frames as SSE events.
package stream

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	chunkObject      = "chat.completion.chunk"
	completionObject = "chat.completion"
)

// Session carries the values repeated on every frame of one response.
// All fields are fixed at creation.
type Session struct {
	ID          string
	Created     int64
	Model       string
	Fingerprint string
}

// NewSession starts a session for model.
func NewSession(model string) *Session {
	return &Session{
		ID:          "chatcmpl-" + uuid.NewString(),
		Created:     time.Now().Unix(),
		Model:       model,
		Fingerprint: newFingerprint(),
	}
}

// newFingerprint returns "fp_" followed by 10 lowercase hex digits.
func newFingerprint() string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "fp_" + hex[:10]
}
