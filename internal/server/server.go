package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/sundayezeilo/tinylink/internal/config"
	"github.com/sundayezeilo/tinylink/internal/errx"
	"github.com/sundayezeilo/tinylink/internal/httpx"
	"github.com/sundayezeilo/tinylink/internal/metrics"
	"github.com/sundayezeilo/tinylink/internal/shortener"
)

const healthPingTimeout = 2 * time.Second

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server represents the HTTP server with all dependencies.
type Server struct {
	config  *config.Config
	logger  *zap.Logger
	handler *shortener.Handler
	store   Pinger
	metrics *metrics.Metrics
	started time.Time
	now     func() time.Time
	server  *http.Server
}

// Deps holds the collaborators of a Server.
type Deps struct {
	Logger  *zap.Logger
	Handler *shortener.Handler
	Store   Pinger
	Metrics *metrics.Metrics // nil disables instrumentation
}

// New creates a new Server instance.
func New(cfg *config.Config, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Server{
		config:  cfg,
		logger:  logger,
		handler: deps.Handler,
		store:   deps.Store,
		metrics: deps.Metrics,
		started: time.Now(),
		now:     time.Now,
	}
}

// Handler returns the routed handler wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	return s.applyMiddleware(s.setupRoutes())
}

// Start starts the HTTP server and blocks until ctx is done, a shutdown
// signal arrives, or the server fails.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         net.JoinHostPort(s.config.Server.Host, s.config.Server.Port),
		Handler:      s.Handler(),
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
		IdleTimeout:  s.config.Server.IdleTimeout,
	}

	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.server.Addr, err)
	}

	// Listen for errors from the server
	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("starting http server",
			zap.String("addr", ln.Addr().String()),
			zap.String("env", s.config.App.Environment),
		)
		serverErrors <- s.server.Serve(ln)
	}()

	// Listen for interrupt signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		s.logger.Info("received shutdown signal", zap.String("signal", sig.String()))

	case <-ctx.Done():
		s.logger.Info("context cancelled, shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
	defer cancel()

	if err := s.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	s.logger.Info("server stopped gracefully")
	return nil
}

// ReservedCodes returns the single-segment paths routed ahead of GET /{code}.
// A short code equal to one of them could never be resolved.
func ReservedCodes(cfg *config.Config) []string {
	reserved := []string{strings.TrimPrefix(config.HealthPath, "/")}
	if cfg.Metrics.Enabled {
		if seg := strings.TrimPrefix(cfg.Metrics.Path, "/"); seg != "" && !strings.Contains(seg, "/") {
			reserved = append(reserved, seg)
		}
	}
	return reserved
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET "+config.HealthPath, s.healthCheckHandler)
	if s.metrics != nil && s.config.Metrics.Enabled {
		mux.Handle("GET "+s.config.Metrics.Path, s.metrics.Handler())
	}

	mux.HandleFunc("POST /api/links", s.handler.CreateLink)
	mux.HandleFunc("GET /api/links", s.handler.ListLinks)
	mux.HandleFunc("GET /api/links/{code}", s.handler.GetLink)
	mux.HandleFunc("PUT /api/links/{code}", s.handler.UpdateClicks)
	mux.HandleFunc("DELETE /api/links/{code}", s.handler.DeleteLink)

	mux.HandleFunc("GET /{$}", s.handler.Dashboard)
	mux.HandleFunc("GET /code/{code}", s.handler.Stats)
	mux.HandleFunc("GET /{code}", s.handler.Redirect)

	return mux
}

// applyMiddleware wraps the handler with middleware in the correct order.
func (s *Server) applyMiddleware(handler http.Handler) http.Handler {
	chain := []httpx.Middleware{
		httpx.Recovery(s.logger), // Outermost: catch panics
		httpx.RequestID,          // Add request ID
		httpx.Logger(s.logger),   // Log requests
	}
	if s.metrics != nil {
		// Must see the same *http.Request the mux annotates with its pattern.
		chain = append(chain, s.metrics.Middleware)
	}
	chain = append(chain, httpx.CORS(s.config.Server.AllowedOrigins))

	return httpx.Chain(chain...)(handler)
}

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	OK            bool      `json:"ok"`
	Service       string    `json:"service"`
	Version       string    `json:"version"`
	UptimeSeconds float64   `json:"uptime_seconds"`
	UptimeHuman   string    `json:"uptime_human"`
	GoVersion     string    `json:"go_version"`
	Platform      string    `json:"platform"`
	Timestamp     time.Time `json:"timestamp"`
	DBStatus      string    `json:"dbStatus"`
	DBError       string    `json:"dbError,omitempty"`
}

// healthCheckHandler always answers 200; ok and dbStatus carry the store state.
func (s *Server) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	now := s.now()
	uptime := now.Sub(s.started)

	resp := HealthResponse{
		OK:            true,
		Service:       s.config.App.ServiceName,
		Version:       s.config.App.ServiceVersion,
		UptimeSeconds: uptime.Seconds(),
		UptimeHuman:   formatUptime(uptime),
		GoVersion:     runtime.Version(),
		Platform:      runtime.GOOS + "/" + runtime.GOARCH,
		Timestamp:     now.UTC(),
		DBStatus:      "up",
	}

	if s.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthPingTimeout)
		defer cancel()

		if err := s.store.Ping(ctx); err != nil {
			s.logger.Warn("health check: store unreachable",
				zap.Error(err),
				zap.String("operation", errx.OpOf(err)),
			)
			resp.OK = false
			resp.DBStatus = "down"
			resp.DBError = errx.MessageOf(err)
		}
	}

	httpx.WriteJSON(w, http.StatusOK, resp)
}

// formatUptime renders d as HH:MM:SS; hours are not capped at 24.
func formatUptime(d time.Duration) string {
	total := int64(d / time.Second)
	if total < 0 {
		total = 0
	}
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}

	s.logger.Info("shutting down server")

	if err := s.server.Shutdown(ctx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			s.logger.Warn("shutdown timeout exceeded, forcing close")
			return s.server.Close()
		}
		return err
	}

	return nil
}
