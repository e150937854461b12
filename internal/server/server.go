package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jackzampolin/sides/internal/api"
	"github.com/jackzampolin/sides/internal/config"
	"github.com/jackzampolin/sides/internal/providers"
	"github.com/jackzampolin/sides/internal/server/endpoints"
	"github.com/jackzampolin/sides/internal/svcctx"
	"github.com/jackzampolin/sides/internal/transcript"
)

// Server is the sides HTTP server.
// It owns the provider registry and the extraction pipeline, and rebuilds
// both when the config file changes.
type Server struct {
	httpServer *http.Server
	registry   *providers.Registry
	configMgr  *config.Manager
	logger     *slog.Logger

	// services is swapped on config reload; handlers read it per request.
	services atomic.Pointer[svcctx.Services]

	// endpoints registry for HTTP routes
	endpointRegistry *api.Registry

	mu      sync.RWMutex
	running bool
}

// Config holds server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1)
	Host string
	// Port is the port to listen on (default: 3000)
	Port string
	// WriteTimeout bounds a whole response, so it must cover the
	// extraction deadline (default: 11m)
	WriteTimeout time.Duration
	// MaxBodyBytes caps extract request bodies (default: 50 MiB)
	MaxBodyBytes int64
	// ConfigManager provides configuration with hot-reload support
	ConfigManager *config.Manager
	// Registry overrides the registry built from ConfigManager.
	Registry *providers.Registry
	// Pipeline overrides the pipeline built from ConfigManager.
	Pipeline *transcript.Pipeline
	// Logger is the structured logger to use
	Logger *slog.Logger
}

// New creates a new Server with the given configuration.
func New(cfg Config) (*Server, error) {
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == "" {
		cfg.Port = "3000"
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 11 * time.Minute
	}
	if cfg.MaxBodyBytes == 0 {
		cfg.MaxBodyBytes = 50 << 20
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	// Create provider registry
	registry := cfg.Registry
	if registry == nil {
		registry = providers.NewRegistry()
		registry.SetLogger(cfg.Logger)
		if cfg.ConfigManager != nil {
			registry.Reload(cfg.ConfigManager.Get().ToProviderRegistryConfig())
		}
	}

	s := &Server{
		registry:  registry,
		configMgr: cfg.ConfigManager,
		logger:    cfg.Logger,
	}

	pipeline := cfg.Pipeline
	if pipeline == nil && cfg.ConfigManager != nil {
		p, err := s.buildPipeline(cfg.ConfigManager.Get())
		if err != nil {
			return nil, fmt.Errorf("failed to create extraction pipeline: %w", err)
		}
		pipeline = p
	}
	s.setServices(pipeline)

	// Watch for config changes
	if cfg.ConfigManager != nil {
		cfg.ConfigManager.OnChange(s.reload)
	}

	// Create endpoint registry and register all endpoints
	s.endpointRegistry = api.NewRegistry()
	for _, ep := range endpoints.All(endpoints.Config{MaxBodyBytes: cfg.MaxBodyBytes}) {
		s.endpointRegistry.Register(ep)
	}

	// Set up HTTP server
	mux := http.NewServeMux()
	s.endpointRegistry.RegisterRoutes(mux, s.requireInit)

	s.httpServer = &http.Server{
		Addr:         net.JoinHostPort(cfg.Host, cfg.Port),
		Handler:      s.withServices(mux),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	return s, nil
}

func (s *Server) buildPipeline(c *config.Config) (*transcript.Pipeline, error) {
	return transcript.NewPipeline(c.ToPipelineConfig(s.registry, s.logger))
}

func (s *Server) setServices(p *transcript.Pipeline) {
	s.services.Store(&svcctx.Services{
		Registry:      s.registry,
		Pipeline:      p,
		ConfigManager: s.configMgr,
		Logger:        s.logger,
	})
}

// reload applies a changed config. Requests already in flight keep the
// pipeline they started with.
func (s *Server) reload(c *config.Config) {
	s.registry.Reload(c.ToProviderRegistryConfig())

	p, err := s.buildPipeline(c)
	if err != nil {
		s.logger.Error("keeping previous extraction pipeline", "error", err)
		return
	}
	s.setServices(p)
	s.logger.Info("extraction pipeline reloaded from config",
		"provider", p.Provider(),
		"providers", s.registry.ListLLM())
}

// Start starts the server.
// It blocks until the context is cancelled or an error occurs.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("server already running")
	}
	s.running = true
	s.mu.Unlock()

	if p := s.Pipeline(); p != nil && !s.registry.HasLLM(p.Provider()) {
		s.logger.Warn("default extraction provider not registered; check API keys",
			"provider", p.Provider(),
			"registered", s.registry.ListLLM())
	}

	// Start HTTP server in goroutine
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for context cancellation or error
	select {
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			s.setNotRunning()
			return fmt.Errorf("HTTP server error: %w", err)
		}
	}

	return s.shutdown()
}

// shutdown drains in-flight requests.
func (s *Server) shutdown() error {
	s.logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
	}

	s.setNotRunning()
	s.logger.Info("server stopped")
	return nil
}

func (s *Server) setNotRunning() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

// IsRunning returns whether the server is currently running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Addr returns the server's listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Registry returns the provider registry.
func (s *Server) Registry() *providers.Registry {
	return s.registry
}

// Pipeline returns the current extraction pipeline, or nil.
func (s *Server) Pipeline() *transcript.Pipeline {
	return s.services.Load().Pipeline
}

// Handler returns the root handler, for use without a listener.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// withServices wraps a handler to enrich the request context with services.
func (s *Server) withServices(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := svcctx.WithServices(r.Context(), s.services.Load())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireInit is middleware that ensures an extraction pipeline exists.
// Returns 503 Service Unavailable otherwise.
func (s *Server) requireInit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.Pipeline() == nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"error":"extraction pipeline not initialized"}`))
			return
		}
		next(w, r)
	}
}
