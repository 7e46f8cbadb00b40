// Package monitor exposes the license server's counters over HTTP: a health
// probe, a JSON stats view, an on-demand store reload and Prometheus metrics.
package monitor

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jathurchan/seatlicense/logger"
	"github.com/jathurchan/seatlicense/types"
)

const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 5 * time.Second
)

// StatsSource is the running license server as seen by the monitor.
type StatsSource interface {
	Stats() types.StatsSnapshot
	Summary() types.StoreSummary
	IsRunning() bool
}

// Reloader re-reads the license store from its backing file.
type Reloader interface {
	Reload(ctx context.Context) error
}

// Options configures optional monitor endpoints.
type Options struct {
	// Gatherer backs /metrics. The endpoint is not mounted when nil.
	Gatherer prometheus.Gatherer

	// Reloader backs POST /reload. The endpoint is not mounted when nil.
	Reloader Reloader

	Logger logger.Logger
}

// Monitor serves the HTTP endpoints.
type Monitor struct {
	src    StatsSource
	opts   Options
	logger logger.Logger
	router chi.Router
}

// New builds the router for src.
func New(src StatsSource, opts Options) *Monitor {
	log := opts.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	m := &Monitor{
		src:    src,
		opts:   opts,
		logger: log.WithComponent("monitor"),
	}
	m.router = m.routes()
	return m
}

func (m *Monitor) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Group(func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Get("/healthz", m.handleHealth)
		r.Get("/stats", m.handleStats)
		if m.opts.Reloader != nil {
			r.Post("/reload", m.handleReload)
		}
	})

	if m.opts.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(m.opts.Gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

// Handler returns the monitor's http.Handler.
func (m *Monitor) Handler() http.Handler { return m.router }

// Serve runs the HTTP server on ln until ctx is cancelled, then shuts it down.
func (m *Monitor) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           m.router,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	m.logger.Infow("Monitor listening", "address", ln.Addr().String())

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ListenAndServe binds address and calls Serve.
func (m *Monitor) ListenAndServe(ctx context.Context, address string) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", address)
	if err != nil {
		return err
	}
	return m.Serve(ctx, ln)
}

type healthResponse struct {
	Status string `json:"status"`
}

type statsResponse struct {
	types.StatsSnapshot
	UptimeSeconds float64            `json:"uptimeSeconds"`
	SuccessRate   float64            `json:"successRate"`
	Store         types.StoreSummary `json:"store"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (m *Monitor) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !m.src.IsRunning() {
		render.Status(r, http.StatusServiceUnavailable)
		render.JSON(w, r, healthResponse{Status: "stopped"})
		return
	}
	render.JSON(w, r, healthResponse{Status: "ok"})
}

func (m *Monitor) handleStats(w http.ResponseWriter, r *http.Request) {
	snap := m.src.Stats()
	render.JSON(w, r, statsResponse{
		StatsSnapshot: snap,
		UptimeSeconds: snap.Uptime.Seconds(),
		SuccessRate:   snap.SuccessRate(),
		Store:         m.src.Summary(),
	})
}

func (m *Monitor) handleReload(w http.ResponseWriter, r *http.Request) {
	if err := m.opts.Reloader.Reload(r.Context()); err != nil {
		m.logger.Errorw("Store reload failed", "error", err, "request_id", middleware.GetReqID(r.Context()))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, errorResponse{Error: err.Error()})
		return
	}
	m.logger.Infow("Store reloaded", "request_id", middleware.GetReqID(r.Context()))
	render.JSON(w, r, m.src.Summary())
}
