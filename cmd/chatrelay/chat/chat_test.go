package chatcmder

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/chatrelay/pkg/dotdir"
	"github.com/papercomputeco/chatrelay/pkg/stream"
)

const testModel = "anthropic.claude-3-haiku-20240307-v1:0"

// fakeGateway answers every chat request with the scripted deltas.
type fakeGateway struct {
	mu       sync.Mutex
	requests []chatRequest
	deltas   []string
	cause    error
	status   int
}

func (g *fakeGateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	g.mu.Lock()
	g.requests = append(g.requests, req)
	g.mu.Unlock()

	if g.status != 0 {
		w.WriteHeader(g.status)
		_, _ = io.WriteString(w, `{"error":{"message":"model not supported: nope","type":"invalid_request_error"}}`)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	em := stream.NewEmitter(stream.NewSession(req.Model), w)
	_ = em.Role()
	for _, d := range g.deltas {
		_ = em.Delta(d)
	}
	_ = em.Finish(g.cause)
}

func (g *fakeGateway) Requests() []chatRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]chatRequest(nil), g.requests...)
}

var _ = Describe("NewChatCmd", func() {
	It("creates a command with the correct use string", func() {
		cmd := NewChatCmd()
		Expect(cmd.Use).To(Equal("chat"))
	})

	It("has required --model flag", func() {
		cmd := NewChatCmd()
		flag := cmd.Flags().Lookup("model")
		Expect(flag).NotTo(BeNil())
		Expect(flag.Shorthand).To(Equal("m"))
	})

	It("has --gateway flag with default value", func() {
		cmd := NewChatCmd()
		flag := cmd.Flags().Lookup("gateway")
		Expect(flag).NotTo(BeNil())
		Expect(flag.DefValue).To(Equal("http://localhost:8080"))
	})
})

var _ = Describe("chat session", func() {
	var (
		gw     *fakeGateway
		server *httptest.Server
		dir    string
		out    *bytes.Buffer
		errOut *bytes.Buffer
		cmder  *chatCommander
	)

	BeforeEach(func() {
		gw = &fakeGateway{deltas: []string{"Hello", " there"}}
		server = httptest.NewServer(gw)
		DeferCleanup(server.Close)

		var err error
		dir, err = os.MkdirTemp("", "chatrelay-chat-test-*")
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() { os.RemoveAll(dir) })

		out = &bytes.Buffer{}
		errOut = &bytes.Buffer{}
		cmder = &chatCommander{
			gatewayTarget: server.URL,
			model:         testModel,
			configDir:     dir,
			out:           out,
			errOut:        errOut,
			dotdir:        dotdir.NewManager(),
			httpClient:    server.Client(),
		}
	})

	runWith := func(input string) error {
		cmder.in = strings.NewReader(input)
		return cmder.run(context.Background())
	}

	It("streams the reply and saves the conversation", func() {
		Expect(runWith("hi\n/exit\n")).To(Succeed())
		Expect(out.String()).To(ContainSubstring("Hello there"))

		conv, err := cmder.dotdir.LoadConversation(dir)
		Expect(err).NotTo(HaveOccurred())
		Expect(conv.Model).To(Equal(testModel))
		Expect(conv.Messages).To(Equal([]dotdir.ConversationMessage{
			{Role: "user", Content: "hi"},
			{Role: "assistant", Content: "Hello there"},
		}))
	})

	It("resends the history on each turn", func() {
		Expect(runWith("one\ntwo\n")).To(Succeed())

		reqs := gw.Requests()
		Expect(reqs).To(HaveLen(2))
		Expect(reqs[0].Stream).To(BeTrue())
		Expect(reqs[0].Messages).To(HaveLen(1))
		Expect(reqs[1].Messages).To(HaveLen(3))
		Expect(reqs[1].Messages[1].Content).To(Equal("Hello there"))
	})

	It("resumes a saved conversation for the same model", func() {
		Expect(runWith("first\n")).To(Succeed())
		out.Reset()

		Expect(runWith("second\n")).To(Succeed())
		Expect(out.String()).To(ContainSubstring("Resuming conversation"))
		Expect(gw.Requests()[1].Messages).To(HaveLen(3))
	})

	It("starts over with --new", func() {
		Expect(runWith("first\n")).To(Succeed())

		cmder.newConv = true
		Expect(runWith("second\n")).To(Succeed())
		Expect(gw.Requests()[1].Messages).To(HaveLen(1))
	})

	It("clears history with /new", func() {
		Expect(runWith("first\n/new\nsecond\n")).To(Succeed())
		Expect(gw.Requests()[1].Messages).To(HaveLen(1))
	})

	It("prefixes a system prompt on new conversations", func() {
		cmder.system = "be brief"
		Expect(runWith("hi\n")).To(Succeed())
		msgs := gw.Requests()[0].Messages
		Expect(msgs[0]).To(Equal(dotdir.ConversationMessage{Role: "system", Content: "be brief"}))
	})

	It("drops a turn whose stream ends with an error", func() {
		gw.cause = errors.New("throttled")
		Expect(runWith("hi\n")).To(Succeed())
		Expect(errOut.String()).To(ContainSubstring("throttled"))

		conv, err := cmder.dotdir.LoadConversation(dir)
		Expect(err).NotTo(HaveOccurred())
		Expect(conv).To(BeNil())
	})

	It("reports gateway errors", func() {
		gw.status = http.StatusBadRequest
		Expect(runWith("hi\n")).To(Succeed())
		Expect(errOut.String()).To(ContainSubstring("model not supported: nope"))
	})

	It("copies raw frames to stderr with --raw", func() {
		cmder.raw = true
		Expect(runWith("hi\n")).To(Succeed())
		Expect(errOut.String()).To(ContainSubstring("data: [DONE]"))
		Expect(errOut.String()).To(ContainSubstring(`"object":"chat.completion.chunk"`))
	})
})
