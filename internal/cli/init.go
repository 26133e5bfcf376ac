// Package cli provides common initialization utilities shared by
// cmd/pinledger, cmd/pinledger-worker and cmd/pinledger-cli.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"pinledger/internal/config"
	applog "pinledger/internal/log"
)

// SetupLogger builds the default logger from LOG_LEVEL and LOG_FORMAT.
// Unknown levels fall back to info; config validation reports them.
func SetupLogger() *slog.Logger {
	return SetupLoggerTo(os.Stdout)
}

// SetupLoggerTo is SetupLogger writing to w.
func SetupLoggerTo(w io.Writer) *slog.Logger {
	level, _ := applog.ParseLevel(os.Getenv("LOG_LEVEL"))
	logger := applog.New(applog.Config{
		Level:  level,
		Format: os.Getenv("LOG_FORMAT"),
		Output: w,
	})
	applog.SetDefault(logger)
	return logger.Logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *slog.Logger) *config.Config {
	cfg, err := LoadConfig()
	if err != nil {
		logger.Error("Configuration validation failed",
			applog.FieldComponent, applog.ComponentApp,
			applog.FieldOperation, applog.OpValidate,
			applog.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// LoadConfig is LoadAndValidateConfig without the exit, for commands that
// report errors themselves.
func LoadConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that will be cancelled on shutdown signals,
// and a channel that is closed once cleanup has run.
func GracefulShutdown(logger *slog.Logger, timeout time.Duration, cleanup func(context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		var reason string
		select {
		case sig := <-sigChan:
			reason = sig.String()
		case <-ctx.Done():
			reason = "context cancelled"
		}
		logger.Info("Shutdown signal received",
			applog.FieldComponent, applog.ComponentApp,
			applog.FieldOperation, applog.OpShutdown,
			"signal", reason)

		cancel()
		runCleanup(logger, timeout, cleanup)
		close(done)
	}()

	return ctx, done
}

// runCleanup gives cleanup at most timeout to finish.
func runCleanup(logger *slog.Logger, timeout time.Duration, cleanup func(context.Context)) {
	if cleanup == nil {
		return
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
	defer shutdownCancel()

	finished := make(chan struct{})
	go func() {
		cleanup(shutdownCtx)
		close(finished)
	}()

	select {
	case <-finished:
		logger.Info("Shutdown complete", applog.FieldComponent, applog.ComponentApp)
	case <-shutdownCtx.Done():
		logger.Warn("Shutdown timeout reached",
			applog.FieldComponent, applog.ComponentApp,
			"timeout", timeout.String())
	}
}

// WaitForShutdown blocks until the context is cancelled and cleanup is done.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}

// Fatal logs err and exits. Used by the binaries for startup failures.
func Fatal(logger *slog.Logger, msg string, err error) {
	logger.Error(msg, applog.FieldComponent, applog.ComponentApp, applog.FieldError, err)
	fmt.Fprintln(os.Stderr, msg+":", err)
	os.Exit(1)
}
