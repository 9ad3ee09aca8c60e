package main

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/daxnoob/lazyimg/internal/config"
	"github.com/daxnoob/lazyimg/internal/errors"
	"github.com/daxnoob/lazyimg/pkg/metrics"
	"github.com/daxnoob/lazyimg/pkg/rewrite"
)

const shutdownTimeout = 10 * time.Second

func (c *cli) serveCmd() *cobra.Command {
	var (
		addr      string
		root      string
		noMetrics bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a built site with loading hints added on the fly",
		Long: `Serve a built documentation directory. HTML responses get the same
loading hints as "lazyimg rewrite"; everything else is served unchanged.

Endpoints:
  /healthz                 liveness check
  /metrics                 Prometheus metrics (unless disabled)
  /_lazyimg/config.json    retry settings for the browser build

Examples:
  lazyimg serve
  lazyimg serve --root site --addr :9000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				c.cfg.Serve.Addr = addr
			}
			if root != "" {
				c.cfg.Serve.Root = root
			}
			if noMetrics {
				c.cfg.Serve.Metrics = false
			}
			return c.runServe()
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Listen address (default from config)")
	cmd.Flags().StringVarP(&root, "root", "r", "", "Site directory (default from config)")
	cmd.Flags().BoolVar(&noMetrics, "no-metrics", false, "Disable the /metrics endpoint")
	return cmd
}

func (c *cli) runServe() error {
	if fi, err := os.Stat(c.cfg.Serve.Root); err != nil || !fi.IsDir() {
		le := errors.New("L060").WithSuggestion("build the site first or pass --root")
		if err != nil {
			le.Wrap(err)
		}
		return le
	}

	srv := &http.Server{
		Addr:              c.cfg.Serve.Addr,
		Handler:           newServeHandler(c.cfg, c.logger, prometheus.NewRegistry()),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		c.logger.Info("serving", "addr", srv.Addr, "root", c.cfg.Serve.Root)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			return errors.New("L061").Wrap(err)
		}
		return nil
	case <-ctx.Done():
	}

	c.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.New("L061").Wrap(err)
	}
	return nil
}

// newServeHandler builds the router for `lazyimg serve`. Metrics are
// registered on reg.
func newServeHandler(cfg *config.Config, logger *slog.Logger, reg *prometheus.Registry) http.Handler {
	var rec metrics.Recorder = metrics.Noop{}
	if cfg.Serve.Metrics {
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		rec = metrics.NewPrometheus(metrics.WithRegistry(reg))
	}

	rw := rewrite.New(
		rewrite.WithLayout(cfg.Viewport.Height, cfg.Viewport.ImageHeight),
		rewrite.WithLogger(logger),
		rewrite.WithMetrics(rec),
	)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok\n"))
	})
	r.Get(config.ClientPath, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-cache")
		_ = json.NewEncoder(w).Encode(cfg.Client())
	})
	if cfg.Serve.Metrics {
		r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	}

	files := http.FileServer(http.Dir(cfg.Serve.Root))
	r.With(rw.Middleware).Handle("/*", files)
	return r
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()))
		})
	}
}
