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

	"github.com/starford/promptdb/internal/api"
	"github.com/starford/promptdb/internal/ingest"
	"github.com/starford/promptdb/internal/ledger"
	"github.com/starford/promptdb/internal/mcpserver"
	"github.com/starford/promptdb/internal/proof"
	"github.com/starford/promptdb/internal/spool"
	"github.com/starford/promptdb/internal/sse"
	"github.com/starford/promptdb/internal/storage"
	"github.com/starford/promptdb/internal/store"
)

// runtime holds the components shared by every transport.
type runtime struct {
	config *Config
	logger *slog.Logger
	store  *store.Store
	ledger *ledger.DB
	svc    *ingest.Service
}

func (rt *runtime) close() {
	if st := rt.store.Close(); !st.OK() {
		rt.logger.Error("store close failed", slog.String("error", rt.store.LastError()))
	}
	if rt.ledger != nil {
		if err := rt.ledger.Close(); err != nil {
			rt.logger.Error("ledger close failed", slog.String("error", err.Error()))
		}
	}
}

// setup validates the options, installs the JSON logger and opens the store
// and, when enabled, the ledger.
func setup(opts []Option, events ingest.Publisher) (*runtime, error) {
	app := newApplication(opts)
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	cfg := app.config

	logger := slog.New(slog.NewJSONHandler(app.logOutput, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("proof_decoder", cfg.Proof.Decoder),
		slog.Bool("ledger_enabled", cfg.Ledger.Enabled),
		slog.String("ledger_path", cfg.Ledger.Path),
		slog.Bool("spool_enabled", cfg.Spool.Enabled),
		slog.String("spool_path", cfg.Spool.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	dec, err := proof.DecoderFor(cfg.Proof.Decoder)
	if err != nil {
		return nil, err
	}

	rt := &runtime{config: cfg, logger: logger}
	storeOpts := []store.Option{
		store.WithDecoder(dec),
		store.WithRegistryOptions(cfg.Registry.Options()...),
		store.WithLogger(logger),
	}

	// A nil *ledger.DB must not reach the service as a non-nil interface.
	var led ledger.Ledger
	if cfg.Ledger.Enabled {
		db, err := ledger.Open(cfg.Ledger.Path)
		if err != nil {
			return nil, fmt.Errorf("init ledger: %w", err)
		}
		rt.ledger = db
		led = db
		storeOpts = append(storeOpts, store.WithRecorder(db))
	}

	rt.store = store.Open(storeOpts...)
	rt.svc = ingest.NewService(rt.store, led, events, logger)
	logger.Info("Store opened", slog.String("instance", rt.store.Instance()))
	return rt, nil
}

// Run starts the HTTP server and, when enabled, the spool watcher.
func Run(ctx context.Context, opts ...Option) error {
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	rt, err := setup(opts, broker)
	if err != nil {
		return err
	}
	defer rt.close()

	cfg := rt.config
	logger := rt.logger

	apiRouter := api.NewRouter(rt.svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

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
		if !rt.store.Initialized() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"closed"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	if cfg.Spool.Enabled {
		if err := os.MkdirAll(cfg.Spool.Path, 0o755); err != nil {
			return fmt.Errorf("create spool dir: %w", err)
		}
		files, err := storage.NewFS(cfg.Spool.Path)
		if err != nil {
			return fmt.Errorf("init spool storage: %w", err)
		}
		proc := spool.NewProcessor(files, rt.svc, logger, nil)
		g.Go(func() error {
			return proc.Watch(gCtx, files.Root())
		})
	}

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
		if st := rt.store.Save(); !st.OK() {
			logger.Error("store save failed", slog.String("error", rt.store.LastError()))
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

// errShutdown cancels the group once the HTTP server has stopped so the
// spool watcher exits too.
var errShutdown = errors.New("shutdown")

// RunMCP serves the MCP tools over stdio until the client disconnects.
// Logs go to the configured output, which must not be stdout.
func RunMCP(_ context.Context, opts ...Option) error {
	rt, err := setup(append([]Option{WithLogOutput(os.Stderr)}, opts...), nil)
	if err != nil {
		return err
	}
	defer rt.close()

	rt.logger.Info("MCP server starting on stdio")
	return mcpserver.New(rt.svc, rt.logger).ServeStdio()
}
