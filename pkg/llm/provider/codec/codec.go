// Package codec holds helpers shared by the family encoders and decoders.
package codec

import (
	"encoding/json"
	"errors"
	"math"
	"strings"

	"github.com/papercomputeco/chatrelay/pkg/llm"
)

// DefaultMaxTokens is used when the request does not set max_tokens.
const DefaultMaxTokens = 1024

// MaxTokens returns the requested generation length clamped to (0, limit].
// Unset or non-positive values fall back to min(DefaultMaxTokens, limit).
func MaxTokens(requested *int, limit int) int {
	n := DefaultMaxTokens
	if requested != nil && *requested > 0 {
		n = *requested
	}
	if limit > 0 && n > limit {
		n = limit
	}
	return n
}

// ClampAbove bounds v to (lo, hi]. Values at or below lo become the
// smallest float64 greater than lo, since lo itself is rejected.
func ClampAbove(v, lo, hi float64) float64 {
	if v <= lo {
		return math.Nextafter(lo, math.Inf(1))
	}
	return math.Min(v, hi)
}

// Malformed wraps a parse failure for family.
func Malformed(family string, err error) error {
	return &llm.MalformedChunkError{Family: family, Err: err}
}

// ErrorDelta builds the terminal delta for a backend-reported failure.
func ErrorDelta(family, message string) *llm.Delta {
	if message == "" {
		message = family + " backend reported an error"
	}
	return &llm.Delta{
		FinishReason: llm.FinishError,
		Err:          &llm.BackendTransportError{Err: errors.New(message)},
	}
}

// DetectException recognizes in-band backend error bodies. Bedrock encodes
// stream exceptions as a single key such as "modelStreamErrorException" with
// a {"message": ...} value; hosted containers send {"error": "..."}.
func DetectException(payload []byte) (string, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payload, &fields); err != nil {
		return "", false
	}

	if raw, ok := fields["error"]; ok {
		return rawMessage(raw), true
	}

	for key, raw := range fields {
		if strings.HasSuffix(strings.ToLower(key), "exception") {
			msg := rawMessage(raw)
			if msg == "" {
				msg = key
			}
			return key + ": " + msg, true
		}
	}

	return "", false
}

// rawMessage extracts a human readable message from a string or an object
// with a "message" field.
func rawMessage(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var obj struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		if obj.Type != "" && obj.Message != "" {
			return obj.Type + ": " + obj.Message
		}
		return obj.Message
	}

	return ""
}

// JoinText concatenates the text of every message, one message per line.
func JoinText(messages []llm.Message) string {
	parts := make([]string, 0, len(messages))
	for i := range messages {
		if text := messages[i].GetText(); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n")
}
