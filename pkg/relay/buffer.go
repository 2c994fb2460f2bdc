package relay

import (
	"strings"
	"unicode/utf8"
)

// ParagraphSeparator splits the stream into paragraph messages.
const ParagraphSeparator = "\n\n"

// DefaultFlushThreshold is the rune count at which undelivered text is
// flushed regardless of paragraph boundaries.
const DefaultFlushThreshold = 3000

// Buffer holds the segmentation state of one relay session.
//
// paragraph is the text received since the last flush of any kind; pending
// counts its runes. Because every flush removes what it delivered, the
// undelivered text and the open paragraph are always the same string.
type Buffer struct {
	targetID  string
	threshold int

	paragraph string
	pending   int
	closed    bool
}

// NewBuffer returns an empty buffer for targetID. A non-positive threshold
// selects DefaultFlushThreshold.
func NewBuffer(targetID string, threshold int) *Buffer {
	if threshold <= 0 {
		threshold = DefaultFlushThreshold
	}
	return &Buffer{targetID: targetID, threshold: threshold}
}

// Absorb appends text and returns the messages that became ready, in order.
//
// Complete paragraphs are flushed first, skipping blank ones, and the
// trailing incomplete paragraph is kept. If the undelivered text then holds
// at least threshold runes it is flushed whole and the buffer resets.
// Absorb on a drained buffer returns nil.
func (b *Buffer) Absorb(text string) []Message {
	if b.closed || text == "" {
		return nil
	}

	b.paragraph += text
	var out []Message

	if strings.Contains(b.paragraph, ParagraphSeparator) {
		parts := strings.Split(b.paragraph, ParagraphSeparator)
		for _, part := range parts[:len(parts)-1] {
			if strings.TrimSpace(part) == "" {
				continue
			}
			out = append(out, b.message(part))
		}
		b.paragraph = parts[len(parts)-1]
	}
	b.pending = utf8.RuneCountInString(b.paragraph)

	if b.pending >= b.threshold {
		if strings.TrimSpace(b.paragraph) != "" {
			out = append(out, b.message(b.paragraph))
		}
		b.reset()
	}

	return out
}

// Drain returns the remaining text as a final message, if it is not blank,
// and closes the buffer.
func (b *Buffer) Drain() (Message, bool) {
	if b.closed {
		return Message{}, false
	}
	b.closed = true

	rest := b.paragraph
	b.reset()
	if strings.TrimSpace(rest) == "" {
		return Message{}, false
	}
	return b.message(rest), true
}

// Pending returns the rune count of undelivered text.
func (b *Buffer) Pending() int {
	return b.pending
}

// Closed reports whether Drain has been called.
func (b *Buffer) Closed() bool {
	return b.closed
}

func (b *Buffer) reset() {
	b.paragraph = ""
	b.pending = 0
}

func (b *Buffer) message(text string) Message {
	return Message{TargetID: b.targetID, Text: text}
}
