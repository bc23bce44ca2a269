package sse

import (
	"bytes"
	"strings"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestSSE(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "SSE Suite")
}

var _ = Describe("Reader", func() {
	Describe("Next", func() {
		Context("with standard SSE events", func() {
			It("parses a single event", func() {
				r := NewReader(strings.NewReader("data: hello world\n\n"))

				ev, err := r.Next()
				Expect(err).NotTo(HaveOccurred())
				Expect(ev.Data).To(Equal("hello world"))
				Expect(ev.Type).To(BeEmpty())
				Expect(ev.ID).To(BeEmpty())

				ev, err = r.Next()
				Expect(err).NotTo(HaveOccurred())
				Expect(ev).To(BeNil())
			})

			It("parses multiple events", func() {
				r := NewReader(strings.NewReader("data: first\n\ndata: second\n\n"))

				ev1, err := r.Next()
				Expect(err).NotTo(HaveOccurred())
				Expect(ev1.Data).To(Equal("first"))

				ev2, err := r.Next()
				Expect(err).NotTo(HaveOccurred())
				Expect(ev2.Data).To(Equal("second"))

				ev3, err := r.Next()
				Expect(err).NotTo(HaveOccurred())
				Expect(ev3).To(BeNil())
			})

			It("parses event type", func() {
				r := NewReader(strings.NewReader("event: content_block_delta\ndata: {\"type\":\"delta\"}\n\n"))

				ev, err := r.Next()
				Expect(err).NotTo(HaveOccurred())
				Expect(ev.Type).To(Equal("content_block_delta"))
				Expect(ev.Data).To(Equal("{\"type\":\"delta\"}"))
			})

			It("parses event ID", func() {
				r := NewReader(strings.NewReader("id: 42\ndata: hello\n\n"))

				ev, err := r.Next()
				Expect(err).NotTo(HaveOccurred())
				Expect(ev.ID).To(Equal("42"))
				Expect(ev.Data).To(Equal("hello"))
			})

			It("joins multiple data lines with newline", func() {
				r := NewReader(strings.NewReader("data: line one\ndata: line two\ndata: line three\n\n"))

				ev, err := r.Next()
				Expect(err).NotTo(HaveOccurred())
				Expect(ev.Data).To(Equal("line one\nline two\nline three"))
			})
		})

		Context("with OpenAI-style SSE", func() {
			It("parses streaming chunks", func() {
				input := "data: {\"id\":\"chatcmpl-1\",\"choices\":[{\"delta\":{\"content\":\"Hello\"}}]}\n\n" +
					"data: {\"id\":\"chatcmpl-1\",\"choices\":[{\"delta\":{\"content\":\" world\"}}]}\n\n" +
					"data: [DONE]\n\n"
				r := NewReader(strings.NewReader(input))

				ev1, err := r.Next()
				Expect(err).NotTo(HaveOccurred())
				Expect(ev1.Data).To(ContainSubstring("Hello"))

				ev2, err := r.Next()
				Expect(err).NotTo(HaveOccurred())
				Expect(ev2.Data).To(ContainSubstring(" world"))

				ev3, err := r.Next()
				Expect(err).NotTo(HaveOccurred())
				Expect(ev3.Data).To(Equal("[DONE]"))

				ev4, err := r.Next()
				Expect(err).NotTo(HaveOccurred())
				Expect(ev4).To(BeNil())
			})
		})

		Context("with SSE comments", func() {
			It("ignores comment lines in parsed events", func() {
				r := NewReader(strings.NewReader(": this is a comment\ndata: hello\n\n"))

				ev, err := r.Next()
				Expect(err).NotTo(HaveOccurred())
				Expect(ev.Data).To(Equal("hello"))
			})
		})

		Context("with data field variations", func() {
			It("handles data field with no space after colon", func() {
				r := NewReader(strings.NewReader("data:no-space\n\n"))

				ev, err := r.Next()
				Expect(err).NotTo(HaveOccurred())
				Expect(ev.Data).To(Equal("no-space"))
			})

			It("handles empty data field", func() {
				r := NewReader(strings.NewReader("data:\n\n"))

				ev, err := r.Next()
				Expect(err).NotTo(HaveOccurred())
				Expect(ev.Data).To(BeEmpty())
			})
		})

		Context("edge cases", func() {
			It("returns nil on empty input", func() {
				r := NewReader(strings.NewReader(""))

				ev, err := r.Next()
				Expect(err).NotTo(HaveOccurred())
				Expect(ev).To(BeNil())
			})

			It("returns nil on input with only blank lines", func() {
				r := NewReader(strings.NewReader("\n\n\n"))

				ev, err := r.Next()
				Expect(err).NotTo(HaveOccurred())
				Expect(ev).To(BeNil())
			})

			It("yields event when stream ends without trailing blank line", func() {
				r := NewReader(strings.NewReader("data: unterminated"))

				ev, err := r.Next()
				Expect(err).NotTo(HaveOccurred())
				Expect(ev.Data).To(Equal("unterminated"))

				ev, err = r.Next()
				Expect(err).NotTo(HaveOccurred())
				Expect(ev).To(BeNil())
			})

			It("skips leading blank lines before first event", func() {
				r := NewReader(strings.NewReader("\n\ndata: hello\n\n"))

				ev, err := r.Next()
				Expect(err).NotTo(HaveOccurred())
				Expect(ev.Data).To(Equal("hello"))
			})

			It("ignores unknown fields", func() {
				r := NewReader(strings.NewReader("retry: 3000\nfoo: bar\ndata: hello\n\n"))

				ev, err := r.Next()
				Expect(err).NotTo(HaveOccurred())
				Expect(ev.Data).To(Equal("hello"))
			})
		})
	})
})

var _ = Describe("WriteData", func() {
	It("frames the payload with the SSE delimiter", func() {
		var buf bytes.Buffer
		Expect(WriteData(&buf, []byte(`{"type":"done"}`))).To(Succeed())
		Expect(buf.String()).To(Equal("data: {\"type\":\"done\"}\n\n"))
	})

	It("round-trips through the Reader", func() {
		var buf bytes.Buffer
		Expect(WriteJSON(&buf, map[string]string{"type": "content"})).To(Succeed())

		ev, err := NewReader(&buf).Next()
		Expect(err).NotTo(HaveOccurred())
		Expect(ev.Data).To(Equal(`{"type":"content"}`))
	})
})
