// Package ollama implements pkg/llm's ChatClient for Ollama's chat API.
// Ollama streams NDJSON rather than SSE: one JSON object per line, the
// final object carrying "done": true.
package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/inkwellhq/satchel/pkg/llm"
)

const (
	// DefaultModel is used when no model is configured.
	DefaultModel = "llama3.2"

	// DefaultBaseURL is the default Ollama API URL.
	DefaultBaseURL = "http://localhost:11434"
)

// Client wraps Ollama's chat API.
type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// Config holds configuration for the Ollama chat client.
type Config struct {
	// BaseURL is the Ollama API URL (e.g., "http://localhost:11434").
	// Defaults to DefaultBaseURL if empty.
	BaseURL string

	// Model is the chat model to use. Defaults to DefaultModel.
	Model string
}

type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []wireMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  chatOptions   `json:"options"`
}

type chatOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict"`
}

type chatResponse struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	Done bool `json:"done"`
}

// NewClient creates a chat client against an Ollama API.
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
		model:   model,
		httpClient: &http.Client{
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

	return parsed.Message.Content, nil
}

// ChatStream starts a streaming completion. The returned channel carries
// content deltas in emission order followed by exactly one terminal delta.
func (c *Client) ChatStream(ctx context.Context, req llm.ChatRequest) (<-chan llm.StreamDelta, error) {
	resp, err := c.send(ctx, req, true)
	if err != nil {
		return nil, err
	}

	out := make(chan llm.StreamDelta, llm.DeltaQueueSize)

	go func() {
		defer close(out)
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)

		for scanner.Scan() {
			line := bytes.TrimSpace(scanner.Bytes())
			if len(line) == 0 {
				continue
			}

			var chunk chatResponse
			if err := json.Unmarshal(line, &chunk); err != nil {
				out <- llm.StreamDelta{Err: fmt.Errorf("%w: decoding stream chunk: %v", llm.ErrProvider, err)}
				return
			}
			if chunk.Message.Content != "" {
				out <- llm.StreamDelta{Content: chunk.Message.Content}
			}
			if chunk.Done {
				out <- llm.StreamDelta{Done: true}
				return
			}
		}

		if err := scanner.Err(); err != nil {
			out <- llm.StreamDelta{Err: fmt.Errorf("%w: reading stream: %v", llm.ErrProvider, err)}
			return
		}

		// Stream ended without a done marker; treat as completed.
		out <- llm.StreamDelta{Done: true}
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
		Model:    c.model,
		Messages: wire,
		Stream:   stream,
		Options: chatOptions{
			Temperature: req.WireTemperature(),
			NumPredict:  req.WireMaxTokens(),
		},
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("%w: marshaling request: %v", llm.ErrProvider, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/api/chat", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("%w: creating request: %v", llm.ErrProvider, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: sending request: %v", llm.ErrProvider, err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: ollama returned status %d: %s",
			llm.ErrProvider, resp.StatusCode, string(respBody))
	}

	return resp, nil
}

// Close releases resources held by the client.
func (c *Client) Close() error {
	return nil
}

var _ llm.ChatClient = (*Client)(nil)
