package testutils

import (
	"context"

	"github.com/inkwellhq/satchel/pkg/llm"
)

// MockChatClient is a scripted llm.ChatClient for tests.
type MockChatClient struct {
	// Answer is returned from Chat.
	Answer string

	// Tokens are emitted from ChatStream before the terminal delta.
	Tokens []string

	// Err forces both Chat and ChatStream to fail.
	Err error

	// StreamErr injects a terminal error delta after Tokens.
	StreamErr error

	// Requests records every request received.
	Requests []llm.ChatRequest
}

func (m *MockChatClient) Chat(_ context.Context, req llm.ChatRequest) (string, error) {
	m.Requests = append(m.Requests, req)
	if m.Err != nil {
		return "", m.Err
	}
	return m.Answer, nil
}

func (m *MockChatClient) ChatStream(_ context.Context, req llm.ChatRequest) (<-chan llm.StreamDelta, error) {
	m.Requests = append(m.Requests, req)
	if m.Err != nil {
		return nil, m.Err
	}

	out := make(chan llm.StreamDelta, llm.DeltaQueueSize)
	go func() {
		defer close(out)
		for _, token := range m.Tokens {
			out <- llm.StreamDelta{Content: token}
		}
		if m.StreamErr != nil {
			out <- llm.StreamDelta{Err: m.StreamErr}
			return
		}
		out <- llm.StreamDelta{Done: true}
	}()
	return out, nil
}

func (m *MockChatClient) Close() error {
	return nil
}

var _ llm.ChatClient = (*MockChatClient)(nil)
