package llm

import (
	"context"
	"errors"
)

// Generation defaults applied when a request leaves the field zero.
const (
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 2048
)

// DeltaQueueSize is the capacity of the handoff channel between the
// blocking receive loop and the stream consumer. The producer blocks when
// the consumer falls this far behind, which bounds per-request memory.
const DeltaQueueSize = 64

// ErrProvider is returned when a chat model call fails (network, quota,
// malformed response).
var ErrProvider = errors.New("chat provider request failed")

// ChatRequest is a provider-agnostic chat completion request.
type ChatRequest struct {
	// System is the system prompt, sent ahead of Messages.
	System string

	// Messages is the conversation, oldest first.
	Messages []Message

	// Temperature and MaxTokens default to DefaultTemperature and
	// DefaultMaxTokens when zero.
	Temperature float64
	MaxTokens   int
}

// StreamDelta is one item on the stream bridge. Exactly one terminal delta
// (Done set, or Err non-nil) ends every stream, and no delta follows it.
type StreamDelta struct {
	// Content is a verbatim text fragment in model emission order.
	Content string

	// Done marks the end of a successful stream.
	Done bool

	// Err carries a mid-stream failure. A delta with Err set is terminal.
	Err error
}

// ChatClient calls a chat model. Implementations must be safe for
// concurrent use from multiple simultaneous requests.
type ChatClient interface {
	// Chat performs a blocking completion and returns the full answer text.
	Chat(ctx context.Context, req ChatRequest) (string, error)

	// ChatStream starts a completion and returns a channel of deltas.
	// A dedicated goroutine performs the blocking receive loop over the
	// provider's token stream; the channel preserves the model's emission
	// order and is closed after the terminal delta.
	//
	// Errors detected before any token is received are returned directly.
	ChatStream(ctx context.Context, req ChatRequest) (<-chan StreamDelta, error)

	// Close releases resources held by the client.
	Close() error
}

// WireMessages flattens the request into a single message list with the
// system prompt first, the shape most chat APIs expect.
func (r ChatRequest) WireMessages() []Message {
	msgs := make([]Message, 0, len(r.Messages)+1)
	if r.System != "" {
		msgs = append(msgs, Message{Role: RoleSystem, Content: r.System})
	}
	return append(msgs, r.Messages...)
}

// WireTemperature returns the effective temperature for the request.
func (r ChatRequest) WireTemperature() float64 {
	if r.Temperature == 0 {
		return DefaultTemperature
	}
	return r.Temperature
}

// WireMaxTokens returns the effective max token budget for the request.
func (r ChatRequest) WireMaxTokens() int {
	if r.MaxTokens == 0 {
		return DefaultMaxTokens
	}
	return r.MaxTokens
}
