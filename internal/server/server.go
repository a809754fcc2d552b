package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/driveflow/driveflow/internal/config"
	"github.com/driveflow/driveflow/internal/instrumentation"
)

// Server is the HTTP front of the service: the public API plus health and
// metrics endpoints on one listener.
type Server struct {
	httpServer      *http.Server
	health          *HealthChecker
	logger          *slog.Logger
	shutdownTimeout time.Duration
}

// New assembles the router and the HTTP server. provider may be nil, in
// which case no /metrics endpoint is mounted.
func New(cfg *config.Config, handlers *Handlers, provider *instrumentation.Provider, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	health := NewHealthChecker()
	var metrics *instrumentation.Metrics
	if provider != nil {
		metrics = provider.Metrics()
	}

	router := chi.NewRouter()
	router.Use(requestID)
	router.Use(requestLogger(logger))
	router.Use(httpMetrics(metrics))
	router.Use(cors)

	handlers.Routes(router)
	router.Method(http.MethodGet, "/healthz", health.LivenessHandler())
	router.Method(http.MethodGet, "/readyz", health.ReadinessHandler())
	if provider != nil {
		if mh := provider.Handler(); mh != nil {
			router.Method(http.MethodGet, "/metrics", mh)
		}
	}

	return &Server{
		httpServer: &http.Server{
			Addr:         cfg.HTTPAddr,
			Handler:      router,
			ReadTimeout:  cfg.HTTPReadTimeout,
			WriteTimeout: cfg.HTTPWriteTimeout,
			IdleTimeout:  2 * time.Minute,
		},
		health:          health,
		logger:          logger,
		shutdownTimeout: cfg.ShutdownTimeout,
	}
}

// Handler exposes the assembled router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run serves until SIGINT/SIGTERM, then drains in-flight requests within
// the configured shutdown timeout.
func (s *Server) Run() error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", slog.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	s.health.SetShuttingDown()

	ctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return err
	}
	s.logger.Info("http server stopped")
	return nil
}
