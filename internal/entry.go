// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/cardbind/internal/api"
	"github.com/starford/cardbind/internal/cardservice"
	"github.com/starford/cardbind/internal/index"
	"github.com/starford/cardbind/internal/mcpserver"
	"github.com/starford/cardbind/internal/page"
	"github.com/starford/cardbind/internal/sse"
	"github.com/starford/cardbind/internal/storage"
)

// stack is the storage, index and card service shared by every command.
type stack struct {
	cfg    *Config
	logger *slog.Logger
	store  *storage.FS
	db     *index.DB
}

func setup(ctx context.Context, opts ...Option) (*stack, error) {
	app := &application{logOutput: os.Stdout}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(app.logOutput, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("bundles_path", cfg.Bundles.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("locale", cfg.Device.Locale),
		slog.String("log_level", cfg.App.LogLevel.String()))

	if err := os.MkdirAll(cfg.Bundles.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create bundles dir: %w", err)
	}

	store, err := storage.NewFS(cfg.Bundles.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}

	if _, err := index.Sync(ctx, db, store, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	return &stack{cfg: cfg, logger: logger, store: store, db: db}, nil
}

func (s *stack) service(opts ...cardservice.Option) *cardservice.Service {
	opts = append([]cardservice.Option{
		cardservice.WithLogger(s.logger),
		cardservice.WithDefaults(s.cfg.Device.Defaults()),
	}, opts...)
	return cardservice.New(s.store, s.db, opts...)
}

// Run starts the HTTP server and bundle watcher with the given options.
func Run(ctx context.Context, opts ...Option) error {
	st, err := setup(ctx, opts...)
	if err != nil {
		return err
	}
	defer st.db.Close()

	cfg, logger := st.cfg, st.logger

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	svc := st.service(cardservice.WithPublisher(broker))
	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

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
		if err := st.db.Ping(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Reload live sessions and notify SSE clients on bundle changes.
	g.Go(func() error {
		if err := index.Watch(gCtx, st.db, st.store, cfg.Bundles.Path, index.DefaultDebounce, logger, svc.HandleBundleChange); err != nil {
			logger.Error("watcher stopped", slog.String("error", err.Error()))
		}
		return nil
	})

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
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
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the group context so the watcher stops with the server.
var errShutdown = errors.New("shutdown")

// RunMCP serves the card tools over MCP stdio until stdin closes.
func RunMCP(ctx context.Context, opts ...Option) error {
	st, err := setup(ctx, append([]Option{WithLogOutput(os.Stderr)}, opts...)...)
	if err != nil {
		return err
	}
	defer st.db.Close()

	st.logger.Info("MCP server starting on stdio")
	return mcpserver.New(st.service()).ServeStdio()
}

// Render renders a bundle once and returns its command stream.
func Render(ctx context.Context, req cardservice.OpenRequest, opts ...Option) ([]page.Command, error) {
	st, err := setup(ctx, append([]Option{WithLogOutput(os.Stderr)}, opts...)...)
	if err != nil {
		return nil, err
	}
	defer st.db.Close()

	return st.service().Render(ctx, req)
}
