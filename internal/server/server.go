// Package server exposes the chat surface over HTTP: one POST endpoint
// that routes a message through the app and a health probe. It is a
// thin skin; everything interesting happens behind the ChatHandler.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"nutricoach/internal/logging"
)

// ChatHandler is the single operation the HTTP surface needs.
// *app.App satisfies it.
type ChatHandler interface {
	Chat(ctx context.Context, message string) (string, error)
}

// Server is the HTTP chat surface.
type Server struct {
	handler ChatHandler
	engine  *gin.Engine
	addr    string

	shutdownTimeout time.Duration
}

// New builds the engine and routes.
func New(handler ChatHandler, addr string) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger())

	s := &Server{
		handler:         handler,
		engine:          engine,
		addr:            addr,
		shutdownTimeout: 10 * time.Second,
	}
	engine.GET("/healthz", s.handleHealth)
	engine.POST("/chat", s.handleChat)
	return s
}

// requestLogger tags each request with a fresh ID and logs one line per
// request after it completes.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := uuid.NewString()
		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)

		start := time.Now()
		c.Next()
		logging.WithRequestID(logging.CategoryServer, requestID).Info(
			"%s %s -> %d in %s",
			c.Request.Method, c.Request.URL.Path, c.Writer.Status(),
			time.Since(start).Round(time.Millisecond))
	}
}

// requestID returns the correlation ID the middleware stored.
func requestID(c *gin.Context) string {
	id, _ := c.Get("request_id")
	s, _ := id.(string)
	return s
}

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Response string `json:"response"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "message must not be empty"})
		return
	}

	reply, err := s.handler.Chat(c.Request.Context(), req.Message)
	if err != nil {
		logging.WithRequestID(logging.CategoryServer, requestID(c)).Error("Chat handler failed: %v", err)
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}
	c.JSON(http.StatusOK, chatResponse{Response: reply})
}

// Handler exposes the routing tree for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until the context is canceled or SIGINT/SIGTERM arrives,
// then drains in-flight requests before returning.
func (s *Server) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{Addr: s.addr, Handler: s.engine}

	done := make(chan error, 1)
	go func() {
		logging.Server("Listening on %s", s.addr)
		done <- srv.ListenAndServe()
	}()

	select {
	case err := <-done:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logging.Server("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}

	if err := <-done; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
