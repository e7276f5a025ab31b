// Package internal wires the omni services together for the long-running
// commands: the HTTP server with its file watcher, and the MCP server.
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

	"github.com/starford/omni/internal/api"
	"github.com/starford/omni/internal/build"
	"github.com/starford/omni/internal/index"
	"github.com/starford/omni/internal/mcpserver"
	"github.com/starford/omni/internal/service"
	"github.com/starford/omni/internal/sse"
	"github.com/starford/omni/internal/storage"
)

var (
	errRootRequired   = errors.New("project root is required")
	errConfigRequired = errors.New("config is required")
)

// services is what both servers share: the store, the builder and the
// synced index behind a service.
type services struct {
	store   *storage.FS
	builder *build.Builder
	db      *index.DB
	svc     *service.Service
}

func (app *application) open() (*services, error) {
	cfg, logger := app.config, app.logger

	store, err := storage.NewFS(app.root)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	builder, err := build.New(app.root, cfg, build.WithStore(store), build.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("init builder: %w", err)
	}

	dbPath := cfg.Serve.DB
	if !filepath.IsAbs(dbPath) {
		dbPath = filepath.Join(app.root, filepath.FromSlash(dbPath))
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create index dir: %w", err)
	}
	db, err := index.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}

	// Run initial sync.
	if _, err := index.Sync(db, store, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	return &services{
		store:   store,
		builder: builder,
		db:      db,
		svc:     service.New(cfg, store, db, builder, logger),
	}, nil
}

// Run starts the HTTP server and the file watcher with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg, logger := app.config, app.logger

	logger.Info("configuration loaded",
		slog.String("root", app.root),
		slog.String("http_address", cfg.Serve.Address()),
		slog.String("index", cfg.Serve.DB),
		slog.String("auth_mode", cfg.Serve.Auth.Mode))

	rt, err := app.open()
	if err != nil {
		return err
	}
	defer rt.db.Close()

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	apiRouter := api.NewRouter(rt.svc, cfg.Serve.Auth.AuthEnabled(), cfg.Serve.Auth.Token, broker)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api; the SSE endpoint lives at /api/events.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.Serve.Address(),
		Handler: r,
	}

	g, gCtx := errgroup.WithContext(ctx)

	// Start file watcher with SSE callback.
	g.Go(func() error {
		onSource := func(ctx context.Context, path string) error {
			_, err := rt.builder.BuildPath(ctx, path, true)
			return err
		}
		return index.Watch(gCtx, rt.db, rt.store, app.root, logger, onSource, broker.PublishChange)
	})

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("starting http server", slog.String("address", cfg.Serve.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("context cancelled, initiating shutdown")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown error", slog.String("error", err.Error()))
		}

		// stops the watcher
		return context.Canceled
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("server stopped")
	return nil
}

// RunMCP serves the MCP tools over stdin/stdout until the client disconnects.
func RunMCP(_ context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}

	rt, err := app.open()
	if err != nil {
		return err
	}
	defer rt.db.Close()

	app.logger.Info("mcp: serving on stdio", slog.String("root", app.root))
	return mcpserver.New(rt.svc, app.version).ServeStdio()
}
