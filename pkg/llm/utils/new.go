// Package llmutils is the chat client utility package
package llmutils

import (
	"fmt"

	"github.com/inkwellhq/satchel/pkg/llm"
	"github.com/inkwellhq/satchel/pkg/llm/ollama"
	"github.com/inkwellhq/satchel/pkg/llm/openai"
)

type NewChatClientOpts struct {
	ProviderType string
	TargetURL    string
	Model        string
	APIKey       string
}

func NewChatClient(o *NewChatClientOpts) (llm.ChatClient, error) {
	switch o.ProviderType {
	case "ollama":
		return ollama.NewClient(ollama.Config{
			BaseURL: o.TargetURL,
			Model:   o.Model,
		})
	case "openai":
		return openai.NewClient(openai.Config{
			BaseURL: o.TargetURL,
			APIKey:  o.APIKey,
			Model:   o.Model,
		})
	default:
		return nil, fmt.Errorf("unsupported chat provider: %s", o.ProviderType)
	}
}
