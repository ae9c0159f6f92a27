// Package server wires every component into one HTTP service.
//
//	/recipes   HTTP adapter (traced with otelhttp)
//	/          WebSocket adapter
//	/rpc       MCP peer channel
//	/metrics   Prometheus exposition
//	/healthz   liveness
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/roach88/recipedecider/internal/broadcast"
	"github.com/roach88/recipedecider/internal/config"
	"github.com/roach88/recipedecider/internal/httpapi"
	"github.com/roach88/recipedecider/internal/metrics"
	"github.com/roach88/recipedecider/internal/peer"
	"github.com/roach88/recipedecider/internal/persist"
	"github.com/roach88/recipedecider/internal/router"
	"github.com/roach88/recipedecider/internal/store"
	"github.com/roach88/recipedecider/internal/wsapi"
)

// ShutdownTimeout bounds graceful HTTP shutdown.
const ShutdownTimeout = 10 * time.Second

// Server owns the router, the broadcaster and the persistence gateway for
// the lifetime of the process.
type Server struct {
	cfg      config.Config
	gateway  *persist.Gateway
	router   *router.Router
	hub      *broadcast.Hub
	registry *prometheus.Registry
	handler  http.Handler
}

// Option configures a Server.
type Option func(*options)

type options struct {
	gateway *persist.Gateway
	ids     router.IDGenerator
}

// WithGateway uses g instead of opening the configured backend.
func WithGateway(g *persist.Gateway) Option {
	return func(o *options) { o.gateway = g }
}

// WithIDGenerator overrides request id generation.
func WithIDGenerator(g router.IDGenerator) Option {
	return func(o *options) { o.ids = g }
}

// New opens the persistence backend, restores the store and builds the
// handler tree. Nothing is served until Serve is called.
func New(ctx context.Context, cfg config.Config, opts ...Option) (*Server, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	gw := o.gateway
	if gw == nil {
		var err error
		gw, err = persist.Open(ctx, cfg.Persist())
		if err != nil {
			return nil, fmt.Errorf("open storage: %w", err)
		}
	}

	var storeOpts []store.Option
	if cfg.Seed != 0 {
		storeOpts = append(storeOpts, store.WithSeed(cfg.Seed))
	}
	st, ok := gw.Load(ctx, storeOpts...)
	if !ok {
		st = store.New(storeOpts...)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	hub := broadcast.NewHub(
		broadcast.WithWriteTimeout(cfg.BroadcastTimeout()),
		broadcast.WithMetrics(m),
	)
	rt := router.New(st, gw, hub,
		router.WithMetrics(m),
		router.WithIDGenerator(o.ids),
	)

	s := &Server{
		cfg:      cfg,
		gateway:  gw,
		router:   rt,
		hub:      hub,
		registry: reg,
	}
	s.handler = s.routes()
	return s, nil
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/recipes", otelhttp.NewHandler(httpapi.New(s.router, nil), "recipes"))
	mux.Handle("/rpc", peer.NewServer(s.router).Handler())
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/{$}", wsapi.New(s.router, s.hub, wsapi.WithOriginPatterns(s.cfg.AllowedOrigins...)))
	return mux
}

// Handler returns the full handler tree.
func (s *Server) Handler() http.Handler { return s.handler }

// ListenAndServe listens on the configured address and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve runs the router and serves HTTP on ln until ctx is cancelled, then
// shuts everything down in order: HTTP, subscribers, router, storage.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	routerCtx, cancelRouter := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelRouter()
	routerDone := make(chan struct{})
	go func() {
		defer close(routerDone)
		_ = s.router.Run(routerCtx)
	}()

	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		// Request contexts end with ctx so long-lived WebSocket reads return.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}
	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Serve(ln) }()

	slog.Info("server listening",
		"addr", ln.Addr().String(),
		"driver", s.gateway.Driver(),
	)

	var err error
	select {
	case <-ctx.Done():
	case err = <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ShutdownTimeout)
	defer cancel()
	if serr := srv.Shutdown(shutdownCtx); serr != nil {
		slog.Warn("http shutdown", "error", serr)
	}
	s.hub.Close()
	s.router.Stop()
	<-routerDone
	if cerr := s.gateway.Close(); cerr != nil {
		slog.Warn("closing storage", "error", cerr)
	}

	slog.Info("server stopped")
	return err
}
