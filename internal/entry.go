// Package internal wires configuration, logging and the converter components
// into the commands the binary exposes.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/vimwiki2neorg/internal/api"
	"github.com/starford/vimwiki2neorg/internal/apperr"
	"github.com/starford/vimwiki2neorg/internal/manifest"
	"github.com/starford/vimwiki2neorg/internal/mcpserver"
	"github.com/starford/vimwiki2neorg/internal/pipeline"
	"github.com/starford/vimwiki2neorg/internal/sse"
	"github.com/starford/vimwiki2neorg/internal/storage"
	"github.com/starford/vimwiki2neorg/internal/watcher"
)

// Convert mirrors the configured source tree into the destination tree once.
// Missing roots are logged and reported through Report.RootsMissing.
func Convert(ctx context.Context, opts ...Option) (*pipeline.Report, error) {
	a := newApplication(opts)
	if err := a.init(); err != nil {
		return nil, err
	}
	cfg := a.config
	if err := cfg.ValidateTrees(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	db, err := a.openManifest()
	if err != nil {
		return nil, err
	}
	defer closeManifest(db, a.logger)

	report, err := pipeline.Convert(ctx, cfg.Source.Root, cfg.Dest.Root, a.logger, a.pipelineOptions(db)...)
	if err != nil {
		return report, err
	}
	if !report.RootsMissing {
		logReport(a.logger, report)
	}
	return report, nil
}

// Watch converts the tree once and then keeps it in sync until ctx is
// cancelled or SIGINT/SIGTERM arrives.
func Watch(ctx context.Context, opts ...Option) error {
	a := newApplication(opts)
	if err := a.init(); err != nil {
		return err
	}
	c, err := a.build()
	if err != nil {
		return err
	}
	defer c.close(a.logger)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if report, err := c.pipeline.ConvertTree(ctx); err != nil {
		a.logger.Warn("initial conversion failed", slog.String("error", err.Error()))
	} else {
		logReport(a.logger, report)
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return watcher.Watch(gCtx, watcher.FromPipeline(c.pipeline), a.config.Source.Root, a.config.Watch.Debounce, a.logger)
	})
	g.Go(func() error {
		waitForShutdown(gCtx, a.logger)
		cancel()
		return nil
	})
	return g.Wait()
}

// Serve starts the HTTP API, the SSE stream and the watcher.
func Serve(ctx context.Context, opts ...Option) error {
	a := newApplication(opts)
	if err := a.init(); err != nil {
		return err
	}
	cfg := a.config
	logger := a.logger

	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	c, err := a.build(pipeline.WithEventCallback(broker.PublishFileEvent))
	if err != nil {
		return err
	}
	defer c.close(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("source", cfg.Source.Root),
		slog.String("dest", cfg.Dest.Root),
		slog.String("manifest", cfg.Manifest.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	publishRun := func(r *pipeline.Report) {
		broker.Publish(sse.Event{Type: sse.TypeRunCompleted, Data: r})
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if report, err := c.pipeline.ConvertTree(ctx); err != nil {
		logger.Warn("initial conversion failed", slog.String("error", err.Error()))
	} else {
		logReport(logger, report)
		publishRun(report)
	}

	svc := api.NewService(c.pipeline, c.store, publishRun)
	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           newRouter(svc, c.db, cfg, broker),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return watcher.Watch(gCtx, watcher.FromPipeline(c.pipeline), cfg.Source.Root, cfg.Watch.Debounce, logger)
	})

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		waitForShutdown(gCtx, logger)
		logger.Info("Shutting down server...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		cancel()
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// ServeMCP serves the MCP tools on stdin/stdout. Logs go to stderr because
// stdout carries the protocol.
func ServeMCP(ctx context.Context, opts ...Option) error {
	a := newApplication(append([]Option{WithLogOutput(os.Stderr)}, opts...))
	if err := a.init(); err != nil {
		return err
	}
	c, err := a.build()
	if err != nil {
		return err
	}
	defer c.close(a.logger)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a.logger.Info("MCP server starting", slog.String("source", a.config.Source.Root))
	return mcpserver.New(c.pipeline, c.src, c.store).ServeStdio(ctx)
}

// Backlinks returns the source files whose wikilinks point at target, as
// recorded by the manifest.
func Backlinks(target string, opts ...Option) ([]string, error) {
	a := newApplication(opts)
	if err := a.init(); err != nil {
		return nil, err
	}
	db, err := a.openManifest()
	if err != nil {
		return nil, err
	}
	if db == nil {
		return nil, apperr.ErrNoManifest
	}
	defer closeManifest(db, a.logger)
	return db.Backlinks(target)
}

func (a *application) init() error {
	if a.config == nil {
		return fmt.Errorf("config is required")
	}
	if a.logger == nil {
		a.logger = slog.New(slog.NewJSONHandler(a.logOut, &slog.HandlerOptions{
			Level: a.config.App.LogLevel,
		}))
	}
	slog.SetDefault(a.logger)
	return nil
}

// openManifest opens the configured manifest, or returns nil when the path is
// empty.
func (a *application) openManifest() (*manifest.DB, error) {
	path := a.config.Manifest.Path
	if path == "" {
		return nil, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create manifest dir: %w", err)
	}
	db, err := manifest.Open(path)
	if err != nil {
		return nil, fmt.Errorf("init manifest: %w", err)
	}
	return db, nil
}

func closeManifest(db *manifest.DB, logger *slog.Logger) {
	if db == nil {
		return
	}
	if err := db.Close(); err != nil {
		logger.Warn("manifest close failed", slog.String("error", err.Error()))
	}
}

// storeOf keeps a nil *DB from becoming a non-nil manifest.Store.
func storeOf(db *manifest.DB) manifest.Store {
	if db == nil {
		return nil
	}
	return db
}

func (a *application) pipelineOptions(db *manifest.DB, extra ...pipeline.Option) []pipeline.Option {
	cfg := a.config.Convert
	opts := []pipeline.Option{
		pipeline.WithLogger(a.logger),
		pipeline.WithWorkers(cfg.Workers),
		pipeline.WithContinueOnError(cfg.ContinueOnError),
		pipeline.WithIncremental(cfg.Incremental),
	}
	if db != nil {
		opts = append(opts, pipeline.WithManifest(db))
	}
	return append(opts, extra...)
}

// components are the long-lived pieces shared by watch, serve and mcp.
type components struct {
	pipeline *pipeline.Pipeline
	src      storage.Provider
	db       *manifest.DB
	store    manifest.Store
}

func (c *components) close(logger *slog.Logger) {
	closeManifest(c.db, logger)
}

// build checks both roots and assembles the pipeline. Unlike Convert, a
// missing root is an error here since there is nothing to serve or watch.
func (a *application) build(extra ...pipeline.Option) (*components, error) {
	cfg := a.config
	if err := cfg.ValidateTrees(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := pipeline.CheckRoots(cfg.Source.Root, cfg.Dest.Root); err != nil {
		return nil, err
	}
	src, err := storage.NewFS(cfg.Source.Root)
	if err != nil {
		return nil, fmt.Errorf("init source storage: %w", err)
	}
	dst, err := storage.NewFS(cfg.Dest.Root)
	if err != nil {
		return nil, fmt.Errorf("init dest storage: %w", err)
	}
	db, err := a.openManifest()
	if err != nil {
		return nil, err
	}
	return &components{
		pipeline: pipeline.New(src, dst, a.pipelineOptions(db, extra...)...),
		src:      src,
		db:       db,
		store:    storeOf(db),
	}, nil
}

// newRouter builds the top-level chi router: health checks unauthenticated,
// everything else under /api.
func newRouter(svc *api.Service, db *manifest.DB, cfg *Config, broker *sse.Broker) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		writeStatus(w, http.StatusOK, "ok")
	})
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			if err := db.Ping(r.Context()); err != nil {
				writeStatus(w, http.StatusServiceUnavailable, "manifest unavailable")
				return
			}
		}
		if err := pipeline.CheckRoots(cfg.Source.Root, cfg.Dest.Root); err != nil {
			writeStatus(w, http.StatusServiceUnavailable, "roots unavailable")
			return
		}
		writeStatus(w, http.StatusOK, "ok")
	})

	var events http.Handler
	if broker != nil {
		events = broker
	}
	r.Mount("/api", api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, events))
	return r
}

func writeStatus(w http.ResponseWriter, code int, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = fmt.Fprintf(w, `{"status":%q}`, status)
}

// waitForShutdown blocks until SIGINT/SIGTERM or ctx is done.
func waitForShutdown(ctx context.Context, logger *slog.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case sig := <-quit:
		logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
	case <-ctx.Done():
		logger.Info("Context cancelled, initiating shutdown")
	}
}

func logReport(logger *slog.Logger, r *pipeline.Report) {
	logger.Info("conversion finished",
		slog.String("run_id", r.RunID),
		slog.Int("converted", r.Converted),
		slog.Int("skipped", r.Skipped),
		slog.Int("failed", len(r.Failed)),
		slog.Duration("duration", r.Duration))
}
