package commands

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"git.home.luguber.info/inful/docweave/internal/compiler"
	dberrors "git.home.luguber.info/inful/docweave/internal/foundation/errors"
	"git.home.luguber.info/inful/docweave/internal/logfields"
	"git.home.luguber.info/inful/docweave/internal/metrics"
	"git.home.luguber.info/inful/docweave/internal/watch"
)

// ErrMetricsListen indicates the metrics endpoint could not be started.
var ErrMetricsListen = dberrors.NewError(dberrors.CategoryRuntime, "failed to start metrics endpoint").Build()

// WatchCmd implements the 'watch' command.
type WatchCmd struct {
	SourceFlags `embed:""`

	Listen   string        `help:"Serve Prometheus metrics on this address, e.g. :9464; overrides metrics.listen"`
	Debounce time.Duration `help:"Quiet period before a rebuild; overrides watch.debounce"`
}

func (w *WatchCmd) Run(g *Global, root *CLI) error {
	s, err := newSession(g, root, &w.SourceFlags, compiler.Options{})
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()
	if s.cfg.Git.Enabled() {
		return errWatchNeedsDirectory
	}
	if w.Debounce > 0 {
		s.cfg.Watch.Debounce = w.Debounce
	}
	listen := s.cfg.Metrics.Listen
	if w.Listen != "" {
		listen = w.Listen
	}

	ctx, cancel := context.WithCancel(g.Context)
	defer cancel()

	if listen != "" {
		if s.recorder == nil {
			s.recorder = metrics.NewPrometheusRecorder(nil)
			s.compiler.WithRecorder(s.recorder)
		}
		srv, err := serveMetrics(ctx, listen, s.recorder)
		if err != nil {
			return err
		}
		g.Logger.Info("Serving metrics", "addr", srv.Addr)
	}

	rebuild := func(ctx context.Context) {
		result, err := s.compiler.Run(ctx)
		if result != nil {
			_ = printSummary(g.Stdout, result, root.NoColor)
		}
		if err != nil && ctx.Err() == nil {
			g.Logger.Error("Rebuild failed", logfields.Error(err))
		}
		if merr := s.writeMetrics(); merr != nil {
			g.Logger.Warn("Failed to write metrics", logfields.Error(merr))
		}
	}

	rebuild(ctx)
	g.Logger.Info("Watching for changes", logfields.Origin(s.cfg.Source),
		logfields.DurationMS(durationMS(s.cfg.Watch.Debounce)))
	return watch.New(s.cfg.Source, s.cfg.Watch.Debounce, rebuild, s.cfg.Output).
		WithLogger(g.Logger).
		Run(ctx)
}

// serveMetrics serves /metrics until ctx is done.
func serveMetrics(ctx context.Context, addr string, rec *metrics.PrometheusRecorder) (*http.Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, ErrMetricsListen.WithCause(err).WithContext("addr", addr)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", rec.HTTPHandler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	srv := &http.Server{Addr: ln.Addr().String(), Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Warn("Metrics endpoint stopped", logfields.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	return srv, nil
}
