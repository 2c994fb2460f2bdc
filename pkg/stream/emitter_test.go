package stream_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/chatrelay/pkg/llm"
	"github.com/papercomputeco/chatrelay/pkg/sse"
	"github.com/papercomputeco/chatrelay/pkg/stream"
)

// scripted replays deltas, then returns tail (io.EOF when nil).
type scripted struct {
	deltas []llm.Delta
	tail   error
}

func (s *scripted) Recv(context.Context) (llm.Delta, error) {
	if len(s.deltas) == 0 {
		if s.tail != nil {
			return llm.Delta{}, s.tail
		}
		return llm.Delta{}, io.EOF
	}
	d := s.deltas[0]
	s.deltas = s.deltas[1:]
	return d, nil
}

type brokenWriter struct{}

func (brokenWriter) Write([]byte) (int, error) { return 0, io.ErrClosedPipe }

// parse splits the SSE body into frames and counts [DONE] sentinels.
func parse(body string) ([]stream.Frame, []map[string]any, int) {
	var (
		frames []stream.Frame
		raw    []map[string]any
		done   int
	)
	r := sse.NewReader(strings.NewReader(body))
	for {
		ev, err := r.Next()
		Expect(err).NotTo(HaveOccurred())
		if ev == nil {
			return frames, raw, done
		}
		if ev.IsDone() {
			done++
			continue
		}
		var f stream.Frame
		Expect(json.Unmarshal([]byte(ev.Data), &f)).To(Succeed())
		frames = append(frames, f)

		var m map[string]any
		Expect(json.Unmarshal([]byte(ev.Data), &m)).To(Succeed())
		raw = append(raw, m)
	}
}

var _ = Describe("Session", func() {
	It("generates stable identifiers", func() {
		s := stream.NewSession("meta.llama3-8b-instruct-v1:0")
		Expect(s.ID).To(HavePrefix("chatcmpl-"))
		Expect(s.Fingerprint).To(MatchRegexp(`^fp_[0-9a-f]{10}$`))
		Expect(s.Created).To(BeNumerically(">", 0))
		Expect(s.Model).To(Equal("meta.llama3-8b-instruct-v1:0"))

		Expect(stream.NewSession("x").ID).NotTo(Equal(s.ID))
	})
})

var _ = Describe("Emitter", func() {
	var (
		buf     *bytes.Buffer
		session *stream.Session
		e       *stream.Emitter
		ctx     context.Context
	)

	BeforeEach(func() {
		buf = &bytes.Buffer{}
		session = stream.NewSession("anthropic.claude-3-haiku")
		e = stream.NewEmitter(session, buf)
		ctx = context.Background()
	})

	It("writes role, content and terminal frames with one session identity", func() {
		sum, err := stream.Copy(ctx, e, &scripted{deltas: []llm.Delta{
			{Text: "Hel"},
			{Text: "lo"},
			{FinishReason: llm.FinishStop},
		}})
		Expect(err).NotTo(HaveOccurred())
		Expect(sum.Text).To(Equal("Hello"))
		Expect(sum.Frames).To(Equal(2))
		Expect(sum.FinishReason).To(Equal(llm.FinishStop))

		frames, raw, done := parse(buf.String())
		Expect(frames).To(HaveLen(4))
		Expect(done).To(Equal(1))
		Expect(buf.String()).To(HaveSuffix("data: [DONE]\n\n"))

		for _, f := range frames {
			Expect(f.ID).To(Equal(session.ID))
			Expect(f.Object).To(Equal("chat.completion.chunk"))
			Expect(f.Created).To(Equal(session.Created))
			Expect(f.SystemFingerprint).To(Equal(session.Fingerprint))
			Expect(f.Choices).To(HaveLen(1))
			Expect(f.Choices[0].Index).To(BeZero())
		}

		Expect(raw[0]["choices"]).To(Equal([]any{map[string]any{
			"index": float64(0), "delta": map[string]any{"role": "assistant"}, "finish_reason": nil,
		}}))
		Expect(frames[1].Choices[0].Delta.Content).To(Equal("Hel"))
		Expect(frames[2].Choices[0].Delta.Content).To(Equal("lo"))
		Expect(raw[3]["choices"]).To(Equal([]any{map[string]any{
			"index": float64(0), "delta": map[string]any{}, "finish_reason": "stop",
		}}))
		Expect(raw[3]).NotTo(HaveKey("error"))
	})

	It("finishes with stop when the source ends without a terminal delta", func() {
		_, err := stream.Copy(ctx, e, &scripted{deltas: []llm.Delta{{Text: "cut"}}})
		Expect(err).NotTo(HaveOccurred())

		frames, _, done := parse(buf.String())
		Expect(done).To(Equal(1))
		last := frames[len(frames)-1]
		Expect(*last.Choices[0].FinishReason).To(Equal("stop"))
	})

	It("attaches an error object on a mid-stream error", func() {
		cause := &llm.BackendTransportError{Model: "m", Err: errors.New("overloaded")}
		sum, err := stream.Copy(ctx, e, &scripted{deltas: []llm.Delta{
			{Text: "par"},
			{FinishReason: llm.FinishError, Err: cause},
			{Text: "never"},
		}})
		Expect(err).NotTo(HaveOccurred())
		Expect(sum.FinishReason).To(Equal(llm.FinishError))
		Expect(sum.Err).To(Equal(cause))

		frames, _, done := parse(buf.String())
		Expect(done).To(Equal(1))
		Expect(frames).To(HaveLen(3))

		terminal := frames[2]
		Expect(*terminal.Choices[0].FinishReason).To(Equal("stop"))
		Expect(terminal.Error).NotTo(BeNil())
		Expect(terminal.Error.Type).To(Equal("backend_error"))
		Expect(terminal.Error.Message).To(ContainSubstring("overloaded"))
	})

	It("finishes cleanly when the source itself fails", func() {
		_, err := stream.Copy(ctx, e, &scripted{tail: context.Canceled})
		Expect(err).NotTo(HaveOccurred())

		frames, _, done := parse(buf.String())
		Expect(done).To(Equal(1))
		Expect(frames[len(frames)-1].Error.Type).To(Equal("timeout"))
	})

	It("writes the terminal frame only once", func() {
		Expect(e.Finish(nil)).To(Succeed())
		Expect(e.Finish(errors.New("late"))).To(Succeed())
		Expect(e.Finished()).To(BeTrue())

		_, _, done := parse(buf.String())
		Expect(done).To(Equal(1))
		Expect(strings.Count(buf.String(), `"finish_reason":"stop"`)).To(Equal(1))
	})

	It("skips empty deltas", func() {
		Expect(e.Delta("")).To(Succeed())
		Expect(buf.Len()).To(BeZero())
	})

	It("returns write errors when the client is gone", func() {
		e = stream.NewEmitter(session, brokenWriter{})
		_, err := stream.Copy(ctx, e, &scripted{})
		Expect(err).To(MatchError(io.ErrClosedPipe))
	})
})

var _ = Describe("NewCompletion", func() {
	It("builds a chat.completion with placeholder usage", func() {
		session := stream.NewSession("amazon.nova-lite-v1:0")
		c := stream.NewCompletion(session, "Hello world")

		data, err := json.Marshal(c)
		Expect(err).NotTo(HaveOccurred())

		var m map[string]any
		Expect(json.Unmarshal(data, &m)).To(Succeed())
		Expect(m["object"]).To(Equal("chat.completion"))
		Expect(m["id"]).To(Equal(session.ID))
		Expect(m["usage"]).To(Equal(map[string]any{
			"prompt_tokens": float64(-1), "completion_tokens": float64(-1), "total_tokens": float64(-1),
		}))
		Expect(m["choices"]).To(Equal([]any{map[string]any{
			"index":         float64(0),
			"message":       map[string]any{"role": "assistant", "content": "Hello world"},
			"finish_reason": "stop",
		}}))
	})
})

var _ = Describe("ErrorBody", func() {
	It("classifies unsupported models", func() {
		body := stream.ErrorBody(&llm.UnsupportedModelError{Model: "x"})
		Expect(body.Type).To(Equal("invalid_request_error"))
		Expect(body.Code).To(Equal("model_not_supported"))
	})
})
