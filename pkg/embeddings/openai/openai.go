// Package openai implements pkg/embeddings' Embedder client for
// OpenAI-compatible embedding APIs. Several hosted providers expose this
// wire format, so the base URL is configurable.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/inkwellhq/satchel/pkg/embeddings"
)

const (
	// DefaultEmbeddingModel is the default model used for embeddings.
	DefaultEmbeddingModel = "text-embedding-3-small"

	// DefaultBaseURL is the default API base, including the version prefix.
	DefaultBaseURL = "https://api.openai.com/v1"
)

// Embedder wraps an OpenAI-compatible embeddings endpoint.
type Embedder struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// EmbedderConfig holds configuration for the OpenAI-compatible embedder.
type EmbedderConfig struct {
	// BaseURL is the API base including version prefix
	// (e.g., "https://api.openai.com/v1"). Defaults to DefaultBaseURL.
	BaseURL string

	// APIKey is sent as a bearer token when non-empty.
	APIKey string

	// Model is the embedding model. Defaults to DefaultEmbeddingModel.
	Model string
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// NewEmbedder creates a new embedder against an OpenAI-compatible API.
func NewEmbedder(cfg EmbedderConfig) (*Embedder, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	model := cfg.Model
	if model == "" {
		model = DefaultEmbeddingModel
	}

	return &Embedder{
		baseURL: baseURL,
		apiKey:  cfg.APIKey,
		model:   model,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}, nil
}

// Embed converts a single text into a vector embedding.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch converts texts into embeddings in input order, issuing one
// request per batch of embeddings.MaxBatchSize. Any failed batch fails the
// whole call.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))

	for _, batch := range embeddings.Batches(texts) {
		truncated := make([]string, len(batch))
		for i, t := range batch {
			truncated[i] = embeddings.Truncate(t)
		}

		vecs, err := e.embedOnce(ctx, truncated)
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}

	return out, nil
}

func (e *Embedder) embedOnce(ctx context.Context, batch []string) ([][]float32, error) {
	jsonBody, err := json.Marshal(embedRequest{Model: e.model, Input: batch})
	if err != nil {
		return nil, fmt.Errorf("%w: marshaling request: %v", embeddings.ErrProvider, err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", e.baseURL+"/embeddings", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("%w: creating request: %v", embeddings.ErrProvider, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: sending request: %v", embeddings.ErrProvider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: embeddings endpoint returned status %d: %s",
			embeddings.ErrProvider, resp.StatusCode, string(body))
	}

	var embedResp embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&embedResp); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", embeddings.ErrProvider, err)
	}

	if len(embedResp.Data) != len(batch) {
		return nil, fmt.Errorf("%w: endpoint returned %d embeddings for %d inputs",
			embeddings.ErrProvider, len(embedResp.Data), len(batch))
	}

	// The API documents response order as input order, but an index field is
	// provided; honor it.
	vecs := make([][]float32, len(batch))
	for i, item := range embedResp.Data {
		idx := item.Index
		if idx < 0 || idx >= len(vecs) {
			idx = i
		}
		vecs[idx] = item.Embedding
	}

	return vecs, nil
}

// Close releases resources held by the embedder.
func (e *Embedder) Close() error {
	return nil
}

var _ embeddings.Embedder = (*Embedder)(nil)
