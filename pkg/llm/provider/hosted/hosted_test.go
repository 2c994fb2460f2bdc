package hosted_test

import (
	"encoding/json"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/chatrelay/pkg/llm"
	"github.com/papercomputeco/chatrelay/pkg/llm/provider/hosted"
)

var _ = Describe("Hosted Provider", func() {
	var p *hosted.Provider

	BeforeEach(func() {
		p = hosted.New()
	})

	Describe("Prompt", func() {
		It("renders the sentence delimiter template", func() {
			prompt := hosted.Prompt([]llm.Message{
				llm.NewTextMessage("system", "Be brief."),
				llm.NewTextMessage("user", "Hi"),
				llm.NewTextMessage("assistant", "Hello"),
				llm.NewTextMessage("user", "Bye"),
			})
			Expect(prompt).To(Equal(
				"<｜begin▁of▁sentence｜>Be brief.<｜User｜>Hi<｜Assistant｜>Hello<｜end▁of▁sentence｜><｜User｜>Bye<｜Assistant｜>",
			))
		})
	})

	Describe("EncodeRequest", func() {
		decode := func(req *llm.ChatRequest) map[string]any {
			raw, err := p.EncodeRequest(req)
			Expect(err).NotTo(HaveOccurred())
			var body map[string]any
			Expect(json.Unmarshal(raw, &body)).To(Succeed())
			return body
		}

		It("wraps generation options in parameters", func() {
			stream := true
			body := decode(&llm.ChatRequest{Stream: &stream, Messages: []llm.Message{llm.NewTextMessage("user", "Hi")}})

			Expect(body["stream"]).To(BeTrue())
			params := body["parameters"].(map[string]any)
			Expect(params["max_new_tokens"]).To(BeNumerically("==", 1024))
			Expect(params["do_sample"]).To(BeTrue())
			Expect(params["return_full_text"]).To(BeFalse())
		})

		It("clamps sampling parameters into the accepted range", func() {
			temp, topP, n := 0.0, 1.0, 5000
			body := decode(&llm.ChatRequest{Temperature: &temp, TopP: &topP, MaxTokens: &n})

			params := body["parameters"].(map[string]any)
			Expect(params["temperature"]).To(BeNumerically(">", 0.01))
			Expect(params["temperature"]).To(BeNumerically("~", 0.01))
			Expect(params["top_p"]).To(BeNumerically("==", 0.99))
			Expect(params["max_new_tokens"]).To(BeNumerically("==", 2048))
		})

		It("moves a lower bound value just inside the range", func() {
			temp, topP := 0.01, 0.01
			params := decode(&llm.ChatRequest{Temperature: &temp, TopP: &topP})["parameters"].(map[string]any)
			Expect(params["temperature"]).To(BeNumerically(">", 0.01))
			Expect(params["top_p"]).To(BeNumerically(">", 0.01))
		})

		It("keeps in-range values", func() {
			temp, topP := 0.7, 0.5
			params := decode(&llm.ChatRequest{Temperature: &temp, TopP: &topP})["parameters"].(map[string]any)
			Expect(params["temperature"]).To(BeNumerically("~", 0.7))
			Expect(params["top_p"]).To(BeNumerically("~", 0.5))
		})
	})

	Describe("DecodeChunk", func() {
		It("extracts token text", func() {
			delta, err := p.DecodeChunk([]byte(`{"token":{"id":42,"text":"Hi","logprob":-0.1,"special":false},"generated_text":null,"details":null}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(delta.Text).To(Equal("Hi"))
		})

		It("skips special tokens and does not re-emit generated_text", func() {
			delta, err := p.DecodeChunk([]byte(`{"token":{"id":2,"text":"<｜end▁of▁sentence｜>","special":true},"generated_text":"Hi there"}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(delta).To(BeNil())
		})

		It("surfaces container errors", func() {
			delta, err := p.DecodeChunk([]byte(`{"error":"Input validation error","error_type":"validation"}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(delta.FinishReason).To(Equal(llm.FinishError))
			Expect(delta.Err.Error()).To(ContainSubstring("Input validation error"))
		})
	})

	Describe("ParseResponse", func() {
		It("accepts the list form", func() {
			resp, err := p.ParseResponse([]byte(`[{"generated_text":"Hello"}]`))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Message.GetText()).To(Equal("Hello"))
		})

		It("accepts the object form", func() {
			resp, err := p.ParseResponse([]byte(` {"generated_text":"Hello"}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Message.GetText()).To(Equal("Hello"))
		})

		It("rejects an empty list", func() {
			_, err := p.ParseResponse([]byte(`[]`))
			Expect(err).To(HaveOccurred())
		})
	})
})
