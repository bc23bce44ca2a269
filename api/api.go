package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"go.uber.org/zap"

	"github.com/inkwellhq/satchel/pkg/kb"
	"github.com/inkwellhq/satchel/pkg/rag"
)

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Server is the API server for the knowledge base system.
type Server struct {
	config   Config
	kb       *kb.Service
	pipeline *rag.Pipeline
	logger   *zap.Logger
	app      *fiber.App
}

// NewServer creates a new API server.
// The knowledge base service and chat pipeline are injected to allow
// sharing with other components (e.g., the directory watcher pool).
func NewServer(config Config, kbs *kb.Service, pipeline *rag.Pipeline, logger *zap.Logger) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		// Leave headroom for multipart framing around the file cap;
		// the upload handler enforces the exact per-file limit.
		BodyLimit: int(config.maxUploadBytes()) + (1 << 20),
	})

	app.Use(cors.New())

	s := &Server{
		config:   config,
		kb:       kbs,
		pipeline: pipeline,
		logger:   logger,
		app:      app,
	}

	app.Get("/api/health", s.handleHealth)
	app.Post("/api/documents/upload", s.handleUpload)
	app.Get("/api/documents/list", s.handleListDocuments)
	app.Delete("/api/documents/:docID", s.handleDeleteDocument)
	app.Get("/api/documents/:docID/preview", s.handlePreviewDocument)
	app.Post("/api/chat", s.handleChat)
	app.Post("/api/chat/stream", s.handleChatStream)

	return s
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server",
		zap.String("listen", s.config.ListenAddr),
	)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// handleHealth returns a simple health check response.
func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"message": "knowledge base service is running",
	})
}

// fail maps service errors to HTTP status codes.
func (s *Server) fail(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, kb.ErrValidation):
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: err.Error()})
	case errors.Is(err, kb.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: err.Error()})
	default:
		s.logger.Error("request failed",
			zap.String("path", c.Path()),
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: err.Error()})
	}
}
