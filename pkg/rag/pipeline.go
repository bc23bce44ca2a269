// Package rag orchestrates retrieval-augmented chat: embed the question,
// search the vector store, and feed retrieved context to the chat model.
package rag

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/inkwellhq/satchel/pkg/embeddings"
	"github.com/inkwellhq/satchel/pkg/llm"
	"github.com/inkwellhq/satchel/pkg/vector"
)

const (
	// ScoreFloor filters out weakly related hits after the similarity
	// search. Hits must score strictly above it to become sources.
	ScoreFloor = 0.3

	// HistoryWindow bounds how many conversation turns reach the model.
	HistoryWindow = 10

	// SourcePreviewLen bounds the preview text of a returned source,
	// in runes.
	SourcePreviewLen = 200

	// DefaultTopK is the default similarity search depth.
	DefaultTopK = 5
)

// Request is one chat turn against the knowledge base.
type Request struct {
	// Messages is the conversation so far; the last user turn is the
	// question that drives retrieval.
	Messages []llm.Message

	// DocID restricts retrieval to one document when non-empty.
	DocID string

	// DocName names the scoped document for the prompt. Informational;
	// retrieval uses DocID.
	DocName string

	// TopK overrides the search depth. Zero means DefaultTopK.
	TopK int
}

// Answer is the result of a blocking chat turn.
type Answer struct {
	Content string   `json:"answer"`
	Sources []Source `json:"sources"`
}

// Pipeline wires the embedder, vector store, and chat model together.
type Pipeline struct {
	store    vector.Store
	embedder embeddings.Embedder
	chat     llm.ChatClient
	logger   *zap.Logger
}

// NewPipeline creates a chat pipeline.
func NewPipeline(store vector.Store, embedder embeddings.Embedder, chat llm.ChatClient, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		store:    store,
		embedder: embedder,
		chat:     chat,
		logger:   logger,
	}
}

// prepared holds everything retrieval decided for one turn. Streaming
// and blocking chat share it so both answer identically.
type prepared struct {
	chatReq llm.ChatRequest
	sources []Source
}

func (p *Pipeline) prepare(ctx context.Context, req Request) (*prepared, error) {
	question := llm.LastUserContent(req.Messages)

	var hits []vector.Hit
	if question != "" {
		embedding, err := p.embedder.Embed(ctx, question)
		if err != nil {
			return nil, fmt.Errorf("embedding question: %w", err)
		}

		topK := req.TopK
		if topK <= 0 {
			topK = DefaultTopK
		}

		raw, err := p.store.Query(ctx, embedding, topK, req.DocID)
		if err != nil {
			return nil, fmt.Errorf("searching chunks: %w", err)
		}

		for _, hit := range raw {
			if hit.Score > ScoreFloor {
				hits = append(hits, hit)
			}
		}
	}

	sources := make([]Source, len(hits))
	for i, hit := range hits {
		sources[i] = Source{
			DocID:   hit.DocID,
			DocName: hit.DocName,
			Preview: previewOf(hit.Content),
			Score:   roundScore(hit.Score),
		}
	}

	p.logger.Debug("prepared chat turn",
		zap.Int("question_len", len(question)),
		zap.String("doc_id", req.DocID),
		zap.Int("sources", len(sources)),
	)

	return &prepared{
		chatReq: llm.ChatRequest{
			System:   buildSystemPrompt(buildContext(hits), req.DocName),
			Messages: llm.Tail(req.Messages, HistoryWindow),
		},
		sources: sources,
	}, nil
}

// ChatStream runs one retrieval-augmented turn and streams the answer.
// The stream always opens with a sources event, even when retrieval
// found nothing, then carries content events in model order and closes
// with exactly one done or error event.
func (p *Pipeline) ChatStream(ctx context.Context, req Request) (<-chan Event, error) {
	prep, err := p.prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	deltas, err := p.chat.ChatStream(ctx, prep.chatReq)
	if err != nil {
		return nil, fmt.Errorf("starting chat stream: %w", err)
	}

	out := make(chan Event, llm.DeltaQueueSize)
	go func() {
		defer close(out)

		out <- sourcesEvent(prep.sources)

		for delta := range deltas {
			switch {
			case delta.Err != nil:
				p.logger.Warn("chat stream failed", zap.Error(delta.Err))
				out <- errorEvent(delta.Err)
				return
			case delta.Done:
				out <- doneEvent()
				return
			default:
				out <- contentEvent(delta.Content)
			}
		}

		// Provider stream closed without a terminal delta.
		out <- doneEvent()
	}()

	return out, nil
}

// Chat runs one retrieval-augmented turn and blocks for the full answer.
// It retrieves and prompts exactly like ChatStream.
func (p *Pipeline) Chat(ctx context.Context, req Request) (*Answer, error) {
	prep, err := p.prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	content, err := p.chat.Chat(ctx, prep.chatReq)
	if err != nil {
		return nil, fmt.Errorf("chatting: %w", err)
	}

	sources := prep.sources
	if sources == nil {
		sources = []Source{}
	}

	return &Answer{Content: content, Sources: sources}, nil
}
