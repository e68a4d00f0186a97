// Package gateway is the bot's HTTP surface: liveness, Prometheus metrics,
// and the Telegram webhook endpoint in webhook mode.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// Config holds the gateway configuration.
type Config struct {
	Bind            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.Bind == "" {
		c.Bind = ":8080"
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 15 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 15 * time.Second
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 10 * time.Second
	}
	return c
}

// Server is the HTTP gateway.
type Server struct {
	cfg       Config
	logger    *slog.Logger
	metrics   http.Handler
	webhook   http.Handler // nil in polling mode
	server    *http.Server
	startedAt time.Time
}

// NewServer creates the gateway. webhook may be nil; the route is then not
// mounted.
func NewServer(cfg Config, logger *slog.Logger, metrics, webhook http.Handler) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg:     cfg.withDefaults(),
		logger:  logger,
		metrics: metrics,
		webhook: webhook,
	}
}

// Router constructs the chi mux with all routes wired.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", s.handleHealth())
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}
	if s.webhook != nil {
		r.Method(http.MethodPost, "/webhook/telegram", s.webhook)
	}

	return r
}

// Start begins serving in a goroutine. Returns an error if the listener
// cannot be bound.
func (s *Server) Start() error {
	s.startedAt = time.Now()

	s.server = &http.Server{
		Addr:         s.cfg.Bind,
		Handler:      s.Router(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(context.Background(), "tcp", s.cfg.Bind)
	if err != nil {
		return fmt.Errorf("gateway: listen on %s: %w", s.cfg.Bind, err)
	}

	go func() {
		s.logger.Info("gateway listening", "addr", s.cfg.Bind)
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("gateway serve error", "error", err)
		}
	}()

	return nil
}

// Stop gracefully shuts down the server with the configured timeout.
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("gateway shutting down")
	return s.server.Shutdown(shutdownCtx)
}
