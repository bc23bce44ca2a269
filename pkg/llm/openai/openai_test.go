package openai_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/inkwellhq/satchel/pkg/llm"
	"github.com/inkwellhq/satchel/pkg/llm/openai"
)

func TestOpenAIChatClient(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "OpenAI Chat Client Suite")
}

func sseChunk(content string) string {
	return fmt.Sprintf(`data: {"choices":[{"delta":{"content":%q}}]}`+"\n\n", content)
}

var _ = Describe("Client", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	Describe("Chat", func() {
		It("returns the full answer text", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				Expect(r.URL.Path).To(Equal("/chat/completions"))

				var req map[string]any
				Expect(json.NewDecoder(r.Body).Decode(&req)).To(Succeed())
				Expect(req["stream"]).To(BeNil())

				w.Header().Set("Content-Type", "application/json")
				fmt.Fprint(w, `{"choices":[{"message":{"content":"the answer"}}]}`)
			}))
			defer server.Close()

			c, err := openai.NewClient(openai.Config{BaseURL: server.URL})
			Expect(err).NotTo(HaveOccurred())
			defer c.Close()

			answer, err := c.Chat(ctx, llm.ChatRequest{
				Messages: []llm.Message{llm.NewMessage(llm.RoleUser, "question")},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(answer).To(Equal("the answer"))
		})

		It("wraps provider failures", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "quota exceeded", http.StatusTooManyRequests)
			}))
			defer server.Close()

			c, err := openai.NewClient(openai.Config{BaseURL: server.URL})
			Expect(err).NotTo(HaveOccurred())
			defer c.Close()

			_, err = c.Chat(ctx, llm.ChatRequest{})
			Expect(err).To(MatchError(llm.ErrProvider))
		})
	})

	Describe("ChatStream", func() {
		It("delivers tokens in emission order with one terminal delta", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "text/event-stream")
				fmt.Fprint(w, sseChunk("Hello"))
				fmt.Fprint(w, sseChunk(", "))
				fmt.Fprint(w, sseChunk("world"))
				fmt.Fprint(w, "data: [DONE]\n\n")
			}))
			defer server.Close()

			c, err := openai.NewClient(openai.Config{BaseURL: server.URL})
			Expect(err).NotTo(HaveOccurred())
			defer c.Close()

			stream, err := c.ChatStream(ctx, llm.ChatRequest{
				Messages: []llm.Message{llm.NewMessage(llm.RoleUser, "greet me")},
			})
			Expect(err).NotTo(HaveOccurred())

			var tokens []string
			var terminals int
			for delta := range stream {
				switch {
				case delta.Err != nil:
					Fail("unexpected stream error: " + delta.Err.Error())
				case delta.Done:
					terminals++
				default:
					tokens = append(tokens, delta.Content)
				}
			}

			Expect(tokens).To(Equal([]string{"Hello", ", ", "world"}))
			Expect(terminals).To(Equal(1))
		})

		It("treats stream exhaustion without a done marker as completion", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "text/event-stream")
				fmt.Fprint(w, sseChunk("partial"))
			}))
			defer server.Close()

			c, err := openai.NewClient(openai.Config{BaseURL: server.URL})
			Expect(err).NotTo(HaveOccurred())
			defer c.Close()

			stream, err := c.ChatStream(ctx, llm.ChatRequest{})
			Expect(err).NotTo(HaveOccurred())

			var last llm.StreamDelta
			var tokens []string
			for delta := range stream {
				last = delta
				if delta.Content != "" {
					tokens = append(tokens, delta.Content)
				}
			}
			Expect(tokens).To(Equal([]string{"partial"}))
			Expect(last.Done).To(BeTrue())
		})

		It("surfaces malformed chunks as a terminal error delta", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "text/event-stream")
				fmt.Fprint(w, "data: not-json\n\n")
			}))
			defer server.Close()

			c, err := openai.NewClient(openai.Config{BaseURL: server.URL})
			Expect(err).NotTo(HaveOccurred())
			defer c.Close()

			stream, err := c.ChatStream(ctx, llm.ChatRequest{})
			Expect(err).NotTo(HaveOccurred())

			var deltas []llm.StreamDelta
			for delta := range stream {
				deltas = append(deltas, delta)
			}
			Expect(deltas).To(HaveLen(1))
			Expect(deltas[0].Err).To(MatchError(llm.ErrProvider))
		})

		It("returns pre-stream failures synchronously", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "bad request", http.StatusBadRequest)
			}))
			defer server.Close()

			c, err := openai.NewClient(openai.Config{BaseURL: server.URL})
			Expect(err).NotTo(HaveOccurred())
			defer c.Close()

			_, err = c.ChatStream(ctx, llm.ChatRequest{})
			Expect(err).To(MatchError(llm.ErrProvider))
		})
	})
})
