package llm_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/inkwellhq/satchel/pkg/llm"
)

func TestLLM(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "LLM Suite")
}

var _ = Describe("LastUserContent", func() {
	It("returns empty for an empty conversation", func() {
		Expect(llm.LastUserContent(nil)).To(BeEmpty())
	})

	It("returns empty when no user turn exists", func() {
		msgs := []llm.Message{llm.NewMessage(llm.RoleAssistant, "hello")}
		Expect(llm.LastUserContent(msgs)).To(BeEmpty())
	})

	It("returns the most recent user turn", func() {
		msgs := []llm.Message{
			llm.NewMessage(llm.RoleUser, "first question"),
			llm.NewMessage(llm.RoleAssistant, "first answer"),
			llm.NewMessage(llm.RoleUser, "second question"),
			llm.NewMessage(llm.RoleAssistant, "second answer"),
		}
		Expect(llm.LastUserContent(msgs)).To(Equal("second question"))
	})
})

var _ = Describe("Tail", func() {
	It("returns everything when under the bound", func() {
		msgs := []llm.Message{llm.NewMessage(llm.RoleUser, "hi")}
		Expect(llm.Tail(msgs, 10)).To(HaveLen(1))
	})

	It("keeps only the most recent messages", func() {
		var msgs []llm.Message
		for i := 0; i < 15; i++ {
			msgs = append(msgs, llm.NewMessage(llm.RoleUser, string(rune('a'+i))))
		}
		got := llm.Tail(msgs, 10)
		Expect(got).To(HaveLen(10))
		Expect(got[0].Content).To(Equal("f"))
		Expect(got[9].Content).To(Equal("o"))
	})
})

var _ = Describe("ChatRequest", func() {
	It("prepends the system prompt to wire messages", func() {
		req := llm.ChatRequest{
			System:   "be helpful",
			Messages: []llm.Message{llm.NewMessage(llm.RoleUser, "hi")},
		}
		wire := req.WireMessages()
		Expect(wire).To(HaveLen(2))
		Expect(wire[0].Role).To(Equal(llm.RoleSystem))
		Expect(wire[1].Role).To(Equal(llm.RoleUser))
	})

	It("applies generation defaults", func() {
		req := llm.ChatRequest{}
		Expect(req.WireTemperature()).To(Equal(llm.DefaultTemperature))
		Expect(req.WireMaxTokens()).To(Equal(llm.DefaultMaxTokens))
	})
})
