package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/upb/gitstats/backend/app"
	"github.com/upb/gitstats/backend/config"
	"github.com/upb/gitstats/backend/internal/observability"
	"github.com/upb/gitstats/backend/routes"
	"go.uber.org/zap"
)

func main() {
	logger, err := initLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger); err != nil {
		logger.Fatal("server exited with error", zap.Error(err))
	}
}

// initLogger builds the process logger from LOG_LEVEL and LOG_FORMAT
func initLogger() (*zap.Logger, error) {
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		level = "info"
	}
	format := os.Getenv("LOG_FORMAT")
	if format == "" {
		format = observability.FormatJSON
	}
	return observability.NewLogger(level, format)
}

func run(ctx context.Context, logger *zap.Logger) error {
	cfg, err := config.New(ctx)
	if err != nil {
		return err
	}

	deps, err := app.NewDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      routes.SetupRoutes(deps),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("gitstats api listening",
			zap.String("addr", srv.Addr),
			zap.String("environment", cfg.Environment),
			zap.Strings("cors_origins", cfg.CORS.AllowedOrigins))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		_ = deps.Close(context.Background())
		return err
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
	if err := deps.Close(shutdownCtx); err != nil {
		return err
	}

	logger.Info("server stopped")
	return nil
}
