// Package server provides the HTTP server implementation.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/catalog-service/internal/config"
	"github.com/vyrodovalexey/catalog-service/internal/handler"
	"github.com/vyrodovalexey/catalog-service/internal/middleware"
	"github.com/vyrodovalexey/catalog-service/internal/store"
)

// Server represents the HTTP server.
type Server struct {
	httpServer *http.Server
	router     *mux.Router
	config     *config.Config
	logger     *zap.Logger
	feed       *handler.ChangeFeedHandler
	pinger     store.Pinger
	registry   *prometheus.Registry
}

// Option configures a Server.
type Option func(*Server)

// WithPinger makes /ready report the reachability of the storage backend.
func WithPinger(p store.Pinger) Option {
	return func(s *Server) {
		s.pinger = p
	}
}

// WithMetricsRegistry registers HTTP metrics with reg and serves it on
// /metrics. Without it the default Prometheus registry is used.
func WithMetricsRegistry(reg *prometheus.Registry) Option {
	return func(s *Server) {
		s.registry = reg
	}
}

// New creates a new Server exposing service over REST and feed as the
// item change stream.
func New(
	cfg *config.Config,
	logger *zap.Logger,
	service handler.ItemService,
	feed *handler.ChangeFeedHandler,
	opts ...Option,
) *Server {
	s := &Server{
		router: mux.NewRouter(),
		config: cfg,
		logger: logger,
		feed:   feed,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.setupMiddleware()
	s.setupRoutes(service)
	s.setupHTTPServer()

	return s
}

// setupMiddleware configures the middleware chain. mux only runs it for
// matched routes.
func (s *Server) setupMiddleware() {
	chain := []middleware.Middleware{
		middleware.Recovery(s.logger),
		middleware.RequestID(),
	}
	if s.config.MetricsEnabled {
		chain = append(chain, middleware.Metrics(middleware.NewHTTPMetrics(s.registerer())))
	}
	chain = append(chain,
		middleware.Logging(s.logger),
		middleware.CORS(s.config.CORSAllowedOrigins),
	)

	s.router.Use(mux.MiddlewareFunc(middleware.Chain(chain...)))
}

// setupRoutes configures the API routes.
func (s *Server) setupRoutes(service handler.ItemService) {
	// The change feed goes first so /items/events is not matched as /items/{id}.
	if s.feed != nil {
		s.feed.RegisterRoutes(s.router)
	}

	restHandler := handler.NewRESTHandler(service, s.pinger, s.logger)
	restHandler.RegisterRoutes(s.router)

	// Preflights need a matching route for the CORS middleware to answer them.
	// A MatcherFunc keeps other methods on unknown paths at 404 rather than 405.
	s.router.MatcherFunc(isPreflight).HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	if s.config.MetricsEnabled {
		s.router.Handle("/metrics", s.metricsHandler()).Methods(http.MethodGet)
	}
}

func isPreflight(r *http.Request, _ *mux.RouteMatch) bool {
	return r.Method == http.MethodOptions
}

func (s *Server) registerer() prometheus.Registerer {
	if s.registry != nil {
		return s.registry
	}
	return prometheus.DefaultRegisterer
}

func (s *Server) metricsHandler() http.Handler {
	if s.registry != nil {
		return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
	}
	return promhttp.Handler()
}

// setupHTTPServer configures the HTTP server.
func (s *Server) setupHTTPServer() {
	s.httpServer = &http.Server{
		Addr:              s.config.Address(),
		Handler:           s.router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1 MB
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info("starting server",
		zap.String("address", s.config.Address()),
		zap.String("store_backend", s.config.StoreBackend),
		zap.Bool("metrics_enabled", s.config.MetricsEnabled),
	)

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server listen and serve: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down server")

	// Hijacked connections are not tracked by http.Server.
	if s.feed != nil {
		s.feed.CloseAllConnections()
	}

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	s.logger.Info("server shutdown complete")
	return nil
}

// Router returns the server's router for testing purposes.
func (s *Server) Router() *mux.Router {
	return s.router
}
