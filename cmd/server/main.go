package main

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

	"golang.org/x/sync/errgroup"

	"vcanchor/internal/platform/config"
	"vcanchor/internal/platform/logger"
)

// main loads configuration, builds the application and keeps the server
// lifecycle small. Business logic lives in the internal service packages.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	log.Info("initializing vcanchor",
		"addr", cfg.Server.Addr,
		"environment", cfg.Environment,
		"chain_driver", cfg.Chain.Driver,
	)

	app, err := build(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer app.close()

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           app.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting http server", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return ignoreCanceled(app.leaseSweeper.Start(gctx))
	})
	g.Go(func() error {
		return ignoreCanceled(app.cleanup.Start(gctx))
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown: %w", err)
		}
		return nil
	})
	return g.Wait()
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
