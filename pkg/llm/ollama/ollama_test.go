package ollama_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/inkwellhq/satchel/pkg/llm"
	"github.com/inkwellhq/satchel/pkg/llm/ollama"
)

func TestOllamaChatClient(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Ollama Chat Client Suite")
}

var _ = Describe("Client", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	It("returns the full answer for a blocking chat", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			Expect(r.URL.Path).To(Equal("/api/chat"))
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"message":{"role":"assistant","content":"pong"},"done":true}`)
		}))
		defer server.Close()

		c, err := ollama.NewClient(ollama.Config{BaseURL: server.URL})
		Expect(err).NotTo(HaveOccurred())
		defer c.Close()

		answer, err := c.Chat(ctx, llm.ChatRequest{
			Messages: []llm.Message{llm.NewMessage(llm.RoleUser, "ping")},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(answer).To(Equal("pong"))
	})

	It("streams NDJSON chunks in order and terminates on done", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/x-ndjson")
			fmt.Fprintln(w, `{"message":{"content":"one "},"done":false}`)
			fmt.Fprintln(w, `{"message":{"content":"two "},"done":false}`)
			fmt.Fprintln(w, `{"message":{"content":"three"},"done":false}`)
			fmt.Fprintln(w, `{"message":{"content":""},"done":true}`)
		}))
		defer server.Close()

		c, err := ollama.NewClient(ollama.Config{BaseURL: server.URL})
		Expect(err).NotTo(HaveOccurred())
		defer c.Close()

		stream, err := c.ChatStream(ctx, llm.ChatRequest{})
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
		Expect(tokens).To(Equal([]string{"one ", "two ", "three"}))
		Expect(terminals).To(Equal(1))
	})

	It("wraps HTTP failures in the provider error", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "model not found", http.StatusNotFound)
		}))
		defer server.Close()

		c, err := ollama.NewClient(ollama.Config{BaseURL: server.URL})
		Expect(err).NotTo(HaveOccurred())
		defer c.Close()

		_, err = c.Chat(ctx, llm.ChatRequest{})
		Expect(err).To(MatchError(llm.ErrProvider))
	})
})
