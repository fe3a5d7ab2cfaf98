// Storefront sync service - keeps carts and wishlists consistent across a
// visitor's views and identity changes, in front of the shop API.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront-sync/internal/broadcast"
	"storefront-sync/internal/config"
	"storefront-sync/internal/handler"
	"storefront-sync/internal/localstore"
	"storefront-sync/internal/middleware"
	"storefront-sync/internal/session"
	"storefront-sync/internal/storeapi"
)

// sweepInterval is how often idle sessions are evicted.
const sweepInterval = time.Minute

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logger := initLogger(cfg)

	logger.Info("configuration loaded",
		slog.String("store_id", cfg.StoreID),
		slog.String("environment", cfg.Environment),
		slog.String("store_api", cfg.Store.APIURL),
		slog.String("merge_policy", string(cfg.MergePolicy)),
	)

	remote, err := storeapi.New(storeapi.Config{
		BaseURL:        cfg.Store.APIURL,
		RequestTimeout: time.Duration(cfg.Store.RequestTimeout),
		FingerprintTLS: cfg.Store.FingerprintTLS,
	})
	if err != nil {
		return fmt.Errorf("creating store client: %w", err)
	}

	local, closeLocal, err := openLocalStore(ctx, cfg.LocalStorePath)
	if err != nil {
		return fmt.Errorf("opening local store: %w", err)
	}
	defer closeLocal()

	bus := broadcast.New()
	defer bus.Close()

	sessions := session.NewRegistry(session.Options{
		Remote:       remote,
		Local:        local,
		Bus:          bus,
		MergePolicy:  cfg.MergePolicy,
		HydrateLimit: cfg.HydrateConcurrency,
		TTL:          cfg.SessionTTL,
		Logger:       logger,
	})
	go sessions.Run(ctx, sweepInterval)

	h := handler.New(sessions, bus, logger)

	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	// Apply middleware chain: recovery → logging → session → handler
	// Recovery must be outermost to catch panics from logging middleware
	httpHandler := middleware.Chain(
		middleware.Recovery(logger),
		middleware.Logging(logger),
		session.Middleware(sessions, logger),
	)(mux)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      httpHandler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	serverErr := make(chan error, 1)

	go func() {
		logger.Info("server starting",
			slog.String("port", cfg.Port),
			slog.String("addr", server.Addr),
		)
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-shutdown:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		// Event streams end when the bus closes their subscriptions.
		stop()
		bus.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			server.Close()
			return fmt.Errorf("shutdown error: %w", err)
		}
	}

	logger.Info("server stopped")
	return nil
}

// openLocalStore opens the guest cart store. An empty path keeps guest
// carts in memory only.
func openLocalStore(ctx context.Context, path string) (localstore.Store, func(), error) {
	if path == "" {
		return localstore.NewMemory(), func() {}, nil
	}
	db, err := localstore.OpenSQLite(ctx, path)
	if err != nil {
		return nil, nil, err
	}
	return db, func() { db.Close() }, nil
}

// initLogger creates a structured logger configured for the environment.
// Production uses JSON format for GCP Cloud Logging compatibility.
// Development uses text format for readability.
func initLogger(cfg *config.Config) *slog.Logger {
	level := cfg.Level()
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	if cfg.Environment == "production" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
