package sse

import (
	"bytes"
	"io"
)

var (
	dataPrefix = []byte("data: ")
	eventEnd   = []byte("\n\n")
)

// Writer frames data-only SSE events. Each call writes one complete event,
// so the underlying writer never observes a partial frame between calls.
type Writer struct {
	w io.Writer
}

// NewWriter returns a Writer that frames events onto w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteData writes one event carrying data. Embedded newlines are split into
// separate data lines.
func (w *Writer) WriteData(data []byte) error {
	var buf bytes.Buffer
	buf.Grow(len(data) + len(dataPrefix) + len(eventEnd))

	for i, line := range bytes.Split(data, []byte("\n")) {
		if i > 0 {
			buf.WriteByte('\n')
		}
		buf.Write(dataPrefix)
		buf.Write(line)
	}
	buf.Write(eventEnd)

	_, err := w.w.Write(buf.Bytes())
	return err
}

// WriteDone writes the end-of-stream sentinel event.
func (w *Writer) WriteDone() error {
	return w.WriteData([]byte(DoneSentinel))
}

// WriteComment writes a comment line. Readers ignore comments, so they serve
// as keep-alives on idle streams.
func (w *Writer) WriteComment(text string) error {
	_, err := io.WriteString(w.w, ": "+text+"\n\n")
	return err
}
