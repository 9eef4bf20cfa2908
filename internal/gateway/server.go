// Package gateway exposes the extraction pipeline over HTTP. It hosts the
// batch endpoint, artifact upload and download routes, the few-shot example
// registry, and per-run event timelines, plus the usual health and metrics
// surfaces.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/haasonsaas/quarry/internal/config"
	"github.com/haasonsaas/quarry/internal/fewshot"
	"github.com/haasonsaas/quarry/internal/observability"
	"github.com/haasonsaas/quarry/internal/store"
	"github.com/haasonsaas/quarry/pkg/models"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// readHeaderTimeout bounds how long a client may take to send request
// headers. Body reads are governed by the configured read timeout.
const readHeaderTimeout = 10 * time.Second

// Batcher runs one extraction request across its documents.
type Batcher interface {
	Run(ctx context.Context, req models.ExtractionRequest) (*models.BatchResult, error)
}

// Options carries the optional collaborators of a Server. Nil fields
// disable the corresponding routes or instrumentation.
type Options struct {
	// Registry backs the few-shot example routes.
	Registry fewshot.Registry
	// Events backs the per-run timeline route.
	Events  observability.EventStore
	Logger  *observability.Logger
	Metrics *observability.Metrics
}

// Server is the HTTP front of the extraction service.
type Server struct {
	cfg      *config.Config
	store    store.Gateway
	batcher  Batcher
	registry fewshot.Registry
	events   observability.EventStore
	logger   *observability.Logger
	metrics  *observability.Metrics

	httpServer    *http.Server
	metricsServer *http.Server
}

// New builds a Server. The artifact gateway and batcher are required; the
// collaborators in opts are optional.
func New(cfg *config.Config, gw store.Gateway, batcher Batcher, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = observability.NewLogger(observability.LogConfig{})
	}
	return &Server{
		cfg:      cfg,
		store:    gw,
		batcher:  batcher,
		registry: opts.Registry,
		events:   opts.Events,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
	}
}

// Handler returns the full route table, wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	s.route(mux, "/extract", s.handleExtract)
	s.route(mux, "/url", s.handleUploadGrant)
	s.route(mux, "/upload", s.handleUpload)
	s.route(mux, "/artifacts/", s.handleArtifact)
	s.route(mux, "/few_shots", s.handleFewShots)
	s.route(mux, "/runs/", s.handleRunEvents)
	s.route(mux, "/healthz", s.handleHealthz)

	// Metrics share the main listener unless a dedicated port is set.
	if s.metrics != nil && s.cfg.Server.MetricsAddr() == "" {
		mux.Handle("/metrics", promhttp.Handler())
	}

	return mux
}

// route registers a handler under its middleware chain. The pattern doubles
// as the metrics label so route cardinality stays bounded.
func (s *Server) route(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	mux.Handle(pattern, chain(h,
		requestID(),
		observe(s.logger, s.metrics, pattern),
		recoverPanics(s.logger),
	))
}

// Start begins serving on the configured address. It returns once the
// listener is bound; serving continues in the background until Shutdown.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.cfg.Server.Addr())
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.Server.Addr(), err)
	}

	s.httpServer = &http.Server{
		Addr:              s.cfg.Server.Addr(),
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       s.cfg.Server.ReadTimeout,
		WriteTimeout:      s.cfg.Server.WriteTimeout,
	}

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error(context.Background(), "http server stopped", "error", err)
		}
	}()
	s.logger.Info(context.Background(), "http server started", "addr", listener.Addr().String())

	if addr := s.cfg.Server.MetricsAddr(); addr != "" && s.metrics != nil {
		if err := s.startMetrics(addr); err != nil {
			return err
		}
	}
	return nil
}

func (s *Server) startMetrics(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on metrics %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	s.metricsServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		if err := s.metricsServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error(context.Background(), "metrics server stopped", "error", err)
		}
	}()
	s.logger.Info(context.Background(), "metrics server started", "addr", listener.Addr().String())
	return nil
}

// Shutdown drains in-flight requests within the configured grace period.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.cfg.Server.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Server.ShutdownTimeout)
		defer cancel()
	}

	var errs []error
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown http server: %w", err))
		}
	}
	if s.metricsServer != nil {
		if err := s.metricsServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown metrics server: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if methodNotAllowed(w, r, http.MethodGet) {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
