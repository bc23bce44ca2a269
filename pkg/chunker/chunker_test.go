package chunker_test

import (
	"strings"
	"testing"
	"unicode/utf8"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/inkwellhq/satchel/pkg/chunker"
)

func TestChunker(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Chunker Suite")
}

// lastRunes mirrors the overlap tail computation for property checks.
func lastRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[len(runes)-n:])
}

const corpus = `Vector databases index high-dimensional embeddings for similarity search. ` +
	`They power retrieval-augmented generation, recommendation, and deduplication.

Chunking strategy matters. Overly large chunks dilute relevance signals, while ` +
	`overly small chunks strip away the context a language model needs to answer well.

A good splitter prefers paragraph boundaries, then sentences, then words. ` +
	`Only as a last resort should it cut inside a word.`

var _ = Describe("Splitter", func() {
	Describe("New", func() {
		It("rejects a non-positive chunk size", func() {
			_, err := chunker.New(0, 0)
			Expect(err).To(HaveOccurred())
		})

		It("rejects a negative overlap", func() {
			_, err := chunker.New(100, -1)
			Expect(err).To(HaveOccurred())
		})

		It("rejects overlap equal to or larger than the chunk size", func() {
			_, err := chunker.New(100, 100)
			Expect(err).To(HaveOccurred())
			_, err = chunker.New(100, 150)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Split", func() {
		It("returns no chunks for blank input", func() {
			s, err := chunker.New(100, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Split("")).To(BeEmpty())
			Expect(s.Split("   \n\n  \n ")).To(BeEmpty())
		})

		It("returns short text as a single chunk", func() {
			s, err := chunker.New(100, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Split("hello world")).To(Equal([]string{"hello world"}))
		})

		It("normalizes whitespace before splitting", func() {
			s, err := chunker.New(100, 0)
			Expect(err).NotTo(HaveOccurred())
			got := s.Split("  alpha   beta\n\n\n\n\ngamma  ")
			Expect(got).To(Equal([]string{"alpha beta\n\ngamma"}))
		})

		It("splits at paragraph boundaries first", func() {
			s, err := chunker.New(20, 5)
			Expect(err).NotTo(HaveOccurred())

			text := "Paragraph one.\n\nParagraph two is longer than the configured chunk size."
			got := s.Split(text)

			Expect(len(got)).To(BeNumerically(">=", 2))
			Expect(got[0]).To(Equal("Paragraph one."))
			for _, c := range got {
				Expect(utf8.RuneCountInString(c)).To(BeNumerically("<=", 25))
			}
			// Second chunk starts with the 5-rune tail of the first.
			Expect(got[1]).To(HavePrefix(lastRunes(got[0], 5)))
		})

		It("counts CJK text in runes, not bytes", func() {
			s, err := chunker.New(5, 0)
			Expect(err).NotTo(HaveOccurred())
			got := s.Split("第一段。\n\n第二段。")
			Expect(got).To(Equal([]string{"第一段。", "第二段。"}))
		})

		It("falls back to rune-level cuts for unbroken text", func() {
			s, err := chunker.New(20, 0)
			Expect(err).NotTo(HaveOccurred())
			got := s.Split(strings.Repeat("x", 95))

			Expect(len(got)).To(BeNumerically(">=", 5))
			for i := 0; i < 4; i++ {
				Expect(got[i]).To(Equal(strings.Repeat("x", 20)))
			}
			for _, c := range got {
				Expect(utf8.RuneCountInString(c)).To(BeNumerically("<=", 20))
			}
		})

		It("keeps every chunk within the size bound before overlap", func() {
			s, err := chunker.New(80, 0)
			Expect(err).NotTo(HaveOccurred())
			for _, c := range s.Split(corpus) {
				Expect(utf8.RuneCountInString(c)).To(BeNumerically("<=", 80))
			}
		})

		It("leaves no adjacent pair of chunks small enough to have merged", func() {
			s, err := chunker.New(80, 0)
			Expect(err).NotTo(HaveOccurred())
			got := s.Split(corpus)
			for i := 1; i < len(got); i++ {
				combined := utf8.RuneCountInString(got[i-1]) + utf8.RuneCountInString(got[i])
				Expect(2 * combined).To(BeNumerically(">=", 80))
			}
		})

		It("prefixes each chunk with the tail of its predecessor's pre-overlap text", func() {
			base, err := chunker.New(80, 0)
			Expect(err).NotTo(HaveOccurred())
			overlapped, err := chunker.New(80, 12)
			Expect(err).NotTo(HaveOccurred())

			pre := base.Split(corpus)
			got := overlapped.Split(corpus)

			Expect(got).To(HaveLen(len(pre)))
			Expect(len(got)).To(BeNumerically(">", 1))
			Expect(got[0]).To(Equal(pre[0]))
			for i := 1; i < len(got); i++ {
				Expect(got[i]).To(Equal(lastRunes(pre[i-1], 12) + pre[i]))
			}
		})

		It("is deterministic for identical inputs", func() {
			s, err := chunker.New(60, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Split(corpus)).To(Equal(s.Split(corpus)))
		})

		It("preserves reading order", func() {
			s, err := chunker.New(80, 0)
			Expect(err).NotTo(HaveOccurred())
			got := s.Split(corpus)

			Expect(len(got)).To(BeNumerically(">", 1))
			Expect(got[0]).To(HavePrefix("Vector databases"))
			Expect(got[len(got)-1]).To(ContainSubstring("cut inside a word"))
		})
	})
})
