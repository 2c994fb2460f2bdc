package relay

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/papercomputeco/chatrelay/pkg/llm"
)

// DefaultMaxMessageBytes is the transport's hard per-message size limit.
const DefaultMaxMessageBytes = 150000

// Options configures a Segmenter.
type Options struct {
	// FlushThreshold is the rune budget of undelivered text.
	FlushThreshold int

	// MaxMessageBytes is the hard byte limit of one delivered message.
	// Larger messages are split on rune boundaries.
	MaxMessageBytes int

	// SendTimeout bounds each Send call. Zero means no deadline beyond ctx.
	SendTimeout time.Duration
}

// Result summarizes one Run.
type Result struct {
	Delivered    int
	Failed       int
	FinishReason llm.FinishReason
	Err          error
}

// Segmenter consumes a delta stream and delivers it as messages.
type Segmenter struct {
	sender Sender
	opts   Options
	logger *slog.Logger
}

// NewSegmenter returns a Segmenter delivering through sender.
func NewSegmenter(sender Sender, opts Options, logger *slog.Logger) *Segmenter {
	if opts.FlushThreshold <= 0 {
		opts.FlushThreshold = DefaultFlushThreshold
	}
	if opts.MaxMessageBytes <= 0 {
		opts.MaxMessageBytes = DefaultMaxMessageBytes
	}
	return &Segmenter{sender: sender, opts: opts, logger: logger}
}

// Run pulls deltas from src until a terminal delta, io.EOF or a source
// error, delivering messages in text order. Delivery failures are logged
// and counted; they never stop the run. Remaining text is drained on every
// exit path, including cancellation of ctx.
func (s *Segmenter) Run(ctx context.Context, targetID string, src llm.DeltaSource) Result {
	var res Result
	buf := NewBuffer(targetID, s.opts.FlushThreshold)

	for {
		d, err := src.Recv(ctx)
		if errors.Is(err, io.EOF) {
			if res.FinishReason == llm.FinishNone {
				res.FinishReason = llm.FinishStop
			}
			break
		}
		if err != nil {
			res.FinishReason = llm.FinishError
			res.Err = err
			break
		}

		for _, msg := range buf.Absorb(d.Text) {
			s.deliver(ctx, msg, &res)
		}

		if d.IsTerminal() {
			res.FinishReason = d.FinishReason
			res.Err = d.Err
			break
		}
	}

	if msg, ok := buf.Drain(); ok {
		s.deliver(context.WithoutCancel(ctx), msg, &res)
	}

	if res.Err != nil {
		s.logger.Warn("relay stream ended with error",
			"target", targetID,
			"error", res.Err,
			"delivered", res.Delivered,
		)
	}
	return res
}

func (s *Segmenter) deliver(ctx context.Context, msg Message, res *Result) {
	for _, text := range SplitBytes(msg.Text, s.opts.MaxMessageBytes) {
		part := Message{TargetID: msg.TargetID, Text: text}
		if err := s.send(ctx, part); err != nil {
			res.Failed++
			s.logger.Warn("relay delivery failed",
				"target", msg.TargetID,
				"bytes", len(text),
				"error", &llm.DeliveryError{TargetID: msg.TargetID, Err: err},
			)
			continue
		}
		res.Delivered++
	}
}

func (s *Segmenter) send(ctx context.Context, msg Message) error {
	if s.opts.SendTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.SendTimeout)
		defer cancel()
	}
	return s.sender.Send(ctx, msg)
}

// SplitBytes cuts text into pieces of at most limit bytes without splitting a
// UTF-8 sequence. A non-positive limit returns text whole.
func SplitBytes(text string, limit int) []string {
	if limit <= 0 || len(text) <= limit {
		return []string{text}
	}

	var parts []string
	for len(text) > limit {
		cut := limit
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		if cut == 0 {
			// limit is smaller than one rune; emit the rune whole.
			_, size := utf8.DecodeRuneInString(text)
			cut = size
		}
		parts = append(parts, text[:cut])
		text = text[cut:]
	}
	if text != "" {
		parts = append(parts, text)
	}
	return parts
}
