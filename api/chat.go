package api

import (
	"context"
	"io"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/inkwellhq/satchel/pkg/llm"
	"github.com/inkwellhq/satchel/pkg/rag"
	"github.com/inkwellhq/satchel/pkg/sse"
)

// ChatRequest is one chat turn against the knowledge base. A non-empty
// DocID restricts retrieval to that document.
type ChatRequest struct {
	Messages []llm.Message `json:"messages"`
	TopK     int           `json:"top_k"`
	DocID    string        `json:"doc_id"`
}

// parseChatRequest validates the request body and maps it to the
// pipeline's request shape.
func (s *Server) parseChatRequest(c *fiber.Ctx) (rag.Request, error) {
	var req ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return rag.Request{}, err
	}
	if len(req.Messages) == 0 {
		return rag.Request{}, fiber.NewError(fiber.StatusBadRequest, "messages must not be empty")
	}

	return rag.Request{
		Messages: req.Messages,
		DocID:    req.DocID,
		DocName:  s.resolveDocName(c.Context(), req.DocID),
		TopK:     req.TopK,
	}, nil
}

// resolveDocName looks up the name of a scoped document. Best effort:
// an unknown ID or a listing failure falls back to knowledge-base scope.
func (s *Server) resolveDocName(ctx context.Context, docID string) string {
	if docID == "" {
		return ""
	}

	docs, err := s.kb.List(ctx)
	if err != nil {
		s.logger.Warn("resolving document name failed", zap.Error(err))
		return ""
	}
	for _, doc := range docs {
		if doc.DocID == docID {
			return doc.Name
		}
	}
	return ""
}

// handleChat runs one retrieval-augmented turn and blocks for the answer.
func (s *Server) handleChat(c *fiber.Ctx) error {
	req, err := s.parseChatRequest(c)
	if err != nil {
		if fe, ok := err.(*fiber.Error); ok {
			return c.Status(fe.Code).JSON(ErrorResponse{Error: fe.Message})
		}
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}

	answer, err := s.pipeline.Chat(c.Context(), req)
	if err != nil {
		return s.fail(c, err)
	}

	return c.JSON(answer)
}

// handleChatStream runs one retrieval-augmented turn and streams the
// answer as SSE: a sources event first, then content events, then one
// done or error event.
func (s *Server) handleChatStream(c *fiber.Ctx) error {
	req, err := s.parseChatRequest(c)
	if err != nil {
		if fe, ok := err.(*fiber.Error); ok {
			return c.Status(fe.Code).JSON(ErrorResponse{Error: fe.Message})
		}
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	// Use context.Background() instead of c.Context() because fasthttp
	// recycles its RequestCtx after the handler returns, but the event
	// forwarder runs asynchronously and needs the model connection to
	// remain open.
	events, err := s.pipeline.ChatStream(context.Background(), req)
	if err != nil {
		// Retrieval failed before the stream opened. The contract is
		// still one terminal error event, not an HTTP error.
		s.logger.Error("chat stream setup failed", zap.Error(err))
		return sse.WriteJSON(c, rag.Event{Type: rag.EventError, Error: err.Error()})
	}

	// io.Pipe gives direct backpressure: pw.Write blocks until fasthttp's
	// chunked writer has flushed the frame to the socket, so every event
	// reaches the client as soon as the model emits it.
	pr, pw := io.Pipe()
	go s.forwardEvents(events, pw)

	c.Context().Response.SetBodyStream(pr, -1)

	return nil
}

// forwardEvents writes pipeline events to the pipe as SSE data frames
// until the stream closes or the client goes away.
func (s *Server) forwardEvents(events <-chan rag.Event, pw *io.PipeWriter) {
	defer pw.Close()

	for ev := range events {
		if err := sse.WriteJSON(pw, ev); err != nil {
			s.logger.Debug("client disconnected mid-stream", zap.Error(err))
			// Drain so the pipeline goroutine can finish.
			for range events {
			}
			return
		}
	}
}
