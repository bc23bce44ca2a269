// Package openai implements pkg/llm's ChatClient for OpenAI-compatible
// chat-completions APIs. The streaming path consumes the provider's SSE
// stream on a dedicated goroutine and hands tokens to the caller over a
// bounded channel.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/inkwellhq/satchel/pkg/llm"
	"github.com/inkwellhq/satchel/pkg/sse"
)

const (
	// DefaultModel is used when no model is configured.
	DefaultModel = "gpt-4o-mini"

	// DefaultBaseURL is the default API base, including the version prefix.
	DefaultBaseURL = "https://api.openai.com/v1"

	// streamDoneMarker terminates an OpenAI-compatible SSE stream.
	streamDoneMarker = "[DONE]"
)

// Client wraps an OpenAI-compatible chat-completions endpoint.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// Config holds configuration for the OpenAI-compatible chat client.
type Config struct {
	// BaseURL is the API base including version prefix
	// (e.g., "https://api.openai.com/v1"). Defaults to DefaultBaseURL.
	BaseURL string

	// APIKey is sent as a bearer token when non-empty.
	APIKey string

	// Model is the chat model name. Defaults to DefaultModel.
	Model string
}

type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []wireMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
	Stream      bool          `json:"stream,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
}

// NewClient creates a chat client against an OpenAI-compatible API.
func NewClient(cfg Config) (*Client, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	return &Client{
		baseURL: baseURL,
		apiKey:  cfg.APIKey,
		model:   model,
		httpClient: &http.Client{
			// Generation can legitimately take minutes; per-request
			// cancellation comes from the caller's context.
			Timeout: 10 * time.Minute,
		},
	}, nil
}

// Chat performs a blocking completion and returns the full answer text.
func (c *Client) Chat(ctx context.Context, req llm.ChatRequest) (string, error) {
	resp, err := c.send(ctx, req, false)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("%w: decoding response: %v", llm.ErrProvider, err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("%w: response carried no choices", llm.ErrProvider)
	}

	return parsed.Choices[0].Message.Content, nil
}

// ChatStream starts a streaming completion. The returned channel carries
// content deltas in emission order followed by exactly one terminal delta.
func (c *Client) ChatStream(ctx context.Context, req llm.ChatRequest) (<-chan llm.StreamDelta, error) {
	resp, err := c.send(ctx, req, true)
	if err != nil {
		return nil, err
	}

	out := make(chan llm.StreamDelta, llm.DeltaQueueSize)

	// Dedicated worker performs the blocking receive loop; the response
	// body is owned by this goroutine from here on.
	go func() {
		defer close(out)
		defer resp.Body.Close()

		reader := sse.NewReader(resp.Body)
		for {
			ev, err := reader.Next()
			if err != nil {
				out <- llm.StreamDelta{Err: fmt.Errorf("%w: reading stream: %v", llm.ErrProvider, err)}
				return
			}
			if ev == nil || strings.TrimSpace(ev.Data) == streamDoneMarker {
				out <- llm.StreamDelta{Done: true}
				return
			}

			var chunk streamChunk
			if err := json.Unmarshal([]byte(ev.Data), &chunk); err != nil {
				out <- llm.StreamDelta{Err: fmt.Errorf("%w: decoding stream chunk: %v", llm.ErrProvider, err)}
				return
			}
			if len(chunk.Choices) == 0 {
				continue
			}
			if content := chunk.Choices[0].Delta.Content; content != "" {
				out <- llm.StreamDelta{Content: content}
			}
		}
	}()

	return out, nil
}

func (c *Client) send(ctx context.Context, req llm.ChatRequest, stream bool) (*http.Response, error) {
	messages := req.WireMessages()
	wire := make([]wireMessage, len(messages))
	for i, m := range messages {
		wire[i] = wireMessage{Role: m.Role, Content: m.Content}
	}

	body := chatRequest{
		Model:       c.model,
		Messages:    wire,
		Temperature: req.WireTemperature(),
		MaxTokens:   req.WireMaxTokens(),
		Stream:      stream,
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("%w: marshaling request: %v", llm.ErrProvider, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat/completions", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("%w: creating request: %v", llm.ErrProvider, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: sending request: %v", llm.ErrProvider, err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: chat endpoint returned status %d: %s",
			llm.ErrProvider, resp.StatusCode, string(respBody))
	}

	return resp, nil
}

// Close releases resources held by the client.
func (c *Client) Close() error {
	return nil
}

var _ llm.ChatClient = (*Client)(nil)
