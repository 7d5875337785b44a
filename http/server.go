// Package http serves the risk prediction front-end.
package http

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"heartrisk/config"
	"heartrisk/ml"
)

// ModelSource resolves an artifact path to a loaded model handle.
// *ml.ModelStore implements it.
type ModelSource interface {
	Get(path string) (*ml.Model, error)
}

// Server is the inference HTTP server.
type Server struct {
	server *http.Server
	config ServerConfig
	logger *zap.Logger
}

// ServerConfig holds listener and request settings.
type ServerConfig struct {
	Port           int
	Timeout        time.Duration
	AllowedOrigins []string
	MaxBodyBytes   int64
	ModelPath      string
}

// DefaultServerConfig returns the settings used when no config file is present.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Port:           8080,
		Timeout:        30 * time.Second,
		AllowedOrigins: []string{"*"},
		MaxBodyBytes:   1 << 16,
		ModelPath:      "model.json",
	}
}

// ServerConfigFrom builds the server settings from the http config section.
func ServerConfigFrom(h config.Http, modelPath string) ServerConfig {
	return ServerConfig{
		Port:           h.Port,
		Timeout:        h.Timeout,
		AllowedOrigins: h.AllowedOrigins,
		MaxBodyBytes:   h.MaxBodyBytes,
		ModelPath:      modelPath,
	}
}

// NewServer builds a server answering from models.
func NewServer(cfg ServerConfig, models ModelSource, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Server{
		server: &http.Server{
			Addr:        fmt.Sprintf(":%d", cfg.Port),
			Handler:     NewHandler(cfg, models, logger),
			ReadTimeout: cfg.Timeout,
			IdleTimeout: 120 * time.Second,
		},
		config: cfg,
		logger: logger,
	}
}

// NewHandler returns the routed API wrapped in the middleware chain.
func NewHandler(cfg ServerConfig, models ModelSource, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	mux := http.NewServeMux()
	newHandlers(cfg, models, logger).register(mux)

	chain := Chain(
		RecoveryMiddleware(logger), // outermost, catches panics
		LoggerMiddleware(logger),
		SecurityHeadersMiddleware,
		CORSMiddleware(cfg.AllowedOrigins),
		TimeoutMiddleware(cfg.Timeout, sessionPath), // sessions are long-lived
		RequestSizeMiddleware(cfg.MaxBodyBytes),
	)
	return chain(mux)
}

// Start listens on the configured port and serves until Stop.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.server.Addr, err)
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln until Stop is called.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("starting HTTP server",
		zap.String("addr", ln.Addr().String()),
		zap.String("model", s.config.ModelPath))

	if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Stop drains in-flight requests, bounded by ctx.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.server.Addr
}
