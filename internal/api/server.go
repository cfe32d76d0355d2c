// Package api exposes launches over HTTP for a configured wallet.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"pump-launcher/internal/domain"
	"pump-launcher/internal/launch"
)

const (
	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout = 30 * time.Second

	// DefaultLaunchTimeout bounds a single launch, confirmation included.
	DefaultLaunchTimeout = 3 * time.Minute
)

// Launcher runs launches. *launch.Launcher implements it.
type Launcher interface {
	Launch(ctx context.Context, agent launch.Agent, tokenName, tokenTicker, description, imageURL string, opts *domain.LaunchOptions) (*domain.LaunchResult, error)
}

// Server serves the launch API.
type Server struct {
	logger        zerolog.Logger
	router        *gin.Engine
	addr          string
	server        *http.Server
	launcher      Launcher
	agent         launch.Agent
	applyDefaults func(*domain.LaunchOptions) *domain.LaunchOptions
	launchTimeout time.Duration
}

// Options for creating Server.
type Options struct {
	Addr     string
	Launcher Launcher
	// Agent is the wallet and connection every launch uses.
	Agent launch.Agent
	// ApplyDefaults fills unset launch options; nil keeps built-in defaults.
	ApplyDefaults func(*domain.LaunchOptions) *domain.LaunchOptions
	LaunchTimeout time.Duration
	Logger        zerolog.Logger
}

// NewServer creates a new Server.
func NewServer(opts Options) *Server {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(opts.Logger))

	s := &Server{
		logger:        opts.Logger,
		router:        router,
		addr:          opts.Addr,
		launcher:      opts.Launcher,
		agent:         opts.Agent,
		applyDefaults: opts.ApplyDefaults,
		launchTimeout: opts.LaunchTimeout,
	}
	if s.launchTimeout <= 0 {
		s.launchTimeout = DefaultLaunchTimeout
	}

	s.routes()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info().Str("addr", s.addr).Msg("starting HTTP server")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server, waiting for in-flight
// launches up to ShutdownTimeout.
func (s *Server) Shutdown() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	s.logger.Info().Msg("shutting down HTTP server")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("HTTP server shutdown: %w", err)
	}
	return nil
}

// requestLogger logs one line per request.
func requestLogger(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Debug().
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	}
}
