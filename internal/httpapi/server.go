// Package httpapi serves the dashboard over HTTP: the latest poll frame as
// JSON, the filtered detections table, and Prometheus metrics. The server
// owns the poll loop and shares the latest frame between requests.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/straywatch/straywatch/internal/core"
	"github.com/straywatch/straywatch/internal/observability"
)

// Options configures a Server. Every field is optional.
type Options struct {
	Interval time.Duration
	Metrics  *observability.Metrics
	Alerts   observability.AlertEngine
	Notifier observability.Notifier
	Logger   *slog.Logger
	// AccessLog receives Apache-style request logs when set.
	AccessLog io.Writer
}

// Server polls a View on a ticker and serves the cached frame.
type Server struct {
	view *core.View
	opts Options
	log  *slog.Logger

	pollMu sync.Mutex // serializes access to view

	mu     sync.RWMutex
	frame  core.Frame
	polled bool

	start time.Time
}

// NewServer creates a Server over view.
func NewServer(view *core.View, opts Options) *Server {
	if opts.Interval <= 0 {
		opts.Interval = 10 * time.Second
	}
	if opts.Metrics == nil {
		opts.Metrics = observability.NewMetrics()
	}
	if opts.Alerts == nil {
		opts.Alerts = observability.NewAlertEngine(observability.DefaultAlertThresholds())
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	return &Server{view: view, opts: opts, log: opts.Logger, start: time.Now()}
}

// Refresh runs one poll, caches the frame, and raises alerts for it.
func (s *Server) Refresh(ctx context.Context) core.Frame {
	s.pollMu.Lock()
	frame := s.view.Poll(ctx)
	alerts := s.opts.Alerts.Evaluate(frame)
	s.pollMu.Unlock()

	s.mu.Lock()
	s.frame = frame
	s.polled = true
	s.mu.Unlock()

	s.opts.Metrics.RecordPoll(frame)
	if frame.Stale {
		s.log.Warn("poll_stale", "err", frame.Err)
	}
	s.raise(ctx, alerts)
	return frame
}

func (s *Server) raise(ctx context.Context, alerts []observability.Alert) {
	if len(alerts) == 0 {
		return
	}
	s.opts.Metrics.AlertsRaised.Add(uint64(len(alerts)))
	for _, a := range alerts {
		s.log.Info("alert_raised", "condition", a.Condition, "severity", a.Severity, "message", a.Message)
	}
	if s.opts.Notifier == nil {
		return
	}
	if err := s.opts.Notifier.Notify(ctx, alerts); err != nil {
		s.opts.Metrics.NotifyErrors.Add(1)
		s.log.Warn("notify_failed", "alerts", len(alerts), "err", err)
	}
}

// Frame returns the cached frame and whether any poll has completed.
func (s *Server) Frame() (core.Frame, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.frame, s.polled
}

// Run polls immediately and then on every interval until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.log.Info("poller_start", "interval", s.opts.Interval)
	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()

	s.Refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			s.log.Info("poller_stop")
			return nil
		case <-ticker.C:
			s.Refresh(ctx)
		}
	}
}

// Routes returns the HTTP handler for the API.
func (s *Server) Routes() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/api/frame", s.handleFrame).Methods(http.MethodGet)
	r.HandleFunc("/api/summary", s.handleSummary).Methods(http.MethodGet)
	r.HandleFunc("/api/alert", s.handleAlert).Methods(http.MethodGet)
	r.HandleFunc("/api/observations", s.handleObservations).Methods(http.MethodGet)
	r.HandleFunc("/api/refresh", s.handleRefresh).Methods(http.MethodPost)
	r.Handle("/metrics", s.opts.Metrics.Handler()).Methods(http.MethodGet)

	var h http.Handler = r
	h = handlers.RecoveryHandler(handlers.PrintRecoveryStack(false))(h)
	if s.opts.AccessLog != nil {
		h = handlers.LoggingHandler(s.opts.AccessLog, h)
	}
	return h
}

// ListenAndServe runs the poll loop and the HTTP server until ctx is
// cancelled, then shuts the server down.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() { _ = s.Run(ctx) }()

	errc := make(chan error, 1)
	go func() {
		s.log.Info("http_listen", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving http on %s: %w", addr, err)
	case <-ctx.Done():
		shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
		defer stop()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down http server: %w", err)
		}
		return nil
	}
}
