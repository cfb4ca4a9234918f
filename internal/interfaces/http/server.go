// Package http provides the HTTP server adapter for the application layer.
// This is a thin adapter layer that translates HTTP requests to application
// service and workflow engine calls.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/teamnova/groupware-approval/internal/application/service"
	"github.com/teamnova/groupware-approval/internal/application/workflow"
)

// Logger interface for logging operations
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	ArchiveLimit int
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:         "0.0.0.0",
		Port:         8080,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		ArchiveLimit: 500,
	}
}

// Server is the HTTP server adapter
type Server struct {
	config          ServerConfig
	httpServer      *http.Server
	router          *gin.Engine
	documentService service.DocumentService
	presetService   service.PresetService
	exportService   service.ExportService
	engine          workflow.Engine
	logger          Logger
}

// NewServer creates a new HTTP server with the given services
func NewServer(
	config ServerConfig,
	documentService service.DocumentService,
	presetService service.PresetService,
	exportService service.ExportService,
	engine workflow.Engine,
	logger Logger,
) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	server := &Server{
		config:          config,
		router:          router,
		documentService: documentService,
		presetService:   presetService,
		exportService:   exportService,
		engine:          engine,
		logger:          logger,
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

// setupMiddleware configures middleware for the router
func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())
}

// loggingMiddleware creates a logging middleware
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		s.logger.Info("HTTP request",
			"method", method,
			"path", path,
			"status", status,
			"latency", latency.String(),
			"client_ip", c.ClientIP(),
		)
	}
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	handlers := NewHandlers(s.documentService, s.presetService, s.exportService, s.engine, s.logger)
	handlers.archiveLimit = s.config.ArchiveLimit

	// Health check
	s.router.GET("/health", handlers.HealthCheck)

	// API routes
	api := s.router.Group("/api/v1")
	{
		// Documents
		documents := api.Group("/documents")
		{
			documents.POST("", handlers.CreateDocument)
			documents.GET("", handlers.ListDocuments)
			documents.GET("/:id", handlers.GetDocument)
			documents.PATCH("/:id", handlers.UpdateDocument)
			documents.DELETE("/:id", handlers.DeleteDocument)

			documents.POST("/:id/submit", handlers.SubmitDocument)
			documents.POST("/:id/decide", handlers.DecideDocument)
			documents.POST("/:id/cancel", handlers.CancelDocument)

			documents.POST("/:id/attachments", handlers.AddAttachment)
			documents.GET("/:id/attachments/:attachmentID", handlers.DownloadAttachment)
			documents.DELETE("/:id/attachments/:attachmentID", handlers.RemoveAttachment)
		}

		// Line presets
		presets := api.Group("/line-presets")
		{
			presets.POST("", handlers.CreatePreset)
			presets.GET("", handlers.ListPresets)
			presets.GET("/:id", handlers.GetPreset)
			presets.PATCH("/:id", handlers.UpdatePreset)
			presets.DELETE("/:id", handlers.DeletePreset)
			presets.POST("/:id/apply", handlers.ApplyPreset)
		}

		// Archive
		api.GET("/archive/export", handlers.ExportArchive)
	}
}

// Start starts the HTTP server and blocks until the context is canceled
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("Starting HTTP server", "address", addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("HTTP server shutdown requested")
		return s.Stop()
	case err := <-errCh:
		s.logger.Error("HTTP server error", "error", err)
		return err
	}
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	s.logger.Info("Stopping HTTP server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
		return err
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// Router returns the underlying gin router (for testing)
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Address returns the server address
func (s *Server) Address() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}
