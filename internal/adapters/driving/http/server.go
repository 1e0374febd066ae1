package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lunavision/facesink/internal/core/ports/driven"
	"github.com/lunavision/facesink/internal/core/ports/driving"
)

// Pinger is the minimal health surface a backend exposes
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server is the driving HTTP adapter: health probes, uploads, run
// inspection, sweep trigger, and match notification
type Server struct {
	httpServer     *http.Server
	router         *http.ServeMux
	version        string
	logger         *slog.Logger
	maxUploadBytes int64

	// Services
	uploadService driving.UploadService
	notifyService driving.NotifyService

	// Infrastructure
	auth      driven.AuthAdapter
	taskQueue driven.TaskQueue
	db        Pinger // tabular store health check
	store     Pinger // optional, queue/lock backend health check
}

// Config holds listener settings
type Config struct {
	Host           string
	Port           int
	Version        string
	MaxUploadBytes int64
}

// DefaultConfig returns development listener settings
func DefaultConfig() Config {
	return Config{
		Host:           "0.0.0.0",
		Port:           8080,
		Version:        "dev",
		MaxUploadBytes: 32 << 20,
	}
}

// NewServer wires services and middleware into the route table
func NewServer(
	cfg Config,
	uploadService driving.UploadService,
	notifyService driving.NotifyService,
	auth driven.AuthAdapter,
	taskQueue driven.TaskQueue,
	db Pinger,
	store Pinger, // can be nil
	logger *slog.Logger,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxUploadBytes == 0 {
		cfg.MaxUploadBytes = 32 << 20
	}

	s := &Server{
		router:         http.NewServeMux(),
		version:        cfg.Version,
		logger:         logger,
		uploadService:  uploadService,
		notifyService:  notifyService,
		auth:           auth,
		taskQueue:      taskQueue,
		db:             db,
		store:          store,
		maxUploadBytes: cfg.MaxUploadBytes,
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	authMiddleware := NewAuthMiddleware(s.auth)
	logging := NewLoggingMiddleware(s.logger)
	recovery := NewRecoveryMiddleware(s.logger)

	protect := func(h http.HandlerFunc) http.Handler {
		return recovery.Handler(logging.Handler(authMiddleware.Authenticate(h)))
	}

	// Health endpoints (no auth)
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /ready", s.handleReady)
	s.router.HandleFunc("GET /version", s.handleVersion)

	// Ingestion endpoints (authenticated)
	s.router.Handle("POST /api/v1/upload", protect(s.handleUpload))
	s.router.Handle("GET /api/v1/runs/{name}", protect(s.handleRunStatus))
	s.router.Handle("POST /api/v1/sweep", protect(s.handleSweep))

	// Notification endpoint (authenticated)
	s.router.Handle("POST /api/v1/notify", protect(s.handleNotify))

	// Queue introspection (authenticated)
	s.router.Handle("GET /api/v1/queue/stats", protect(s.handleQueueStats))
}

// Start serves until SIGINT/SIGTERM, then shuts down gracefully
func (s *Server) Start() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting http server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-stop:
	}

	s.logger.Info("shutting down http server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.logger.Info("http server stopped")
	return nil
}

// Stop shuts the listener down using the given context deadline
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}
