package main

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"pinledger/internal/amqp"
	"pinledger/internal/backend"
	"pinledger/internal/cli"
	"pinledger/internal/config"
	applog "pinledger/internal/log"
	"pinledger/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()
	logger.Info("Starting pinledger-worker", applog.FieldComponent, applog.ComponentWorker)

	cfg := cli.LoadAndValidateConfig(logger)
	if err := run(logger, cfg); err != nil {
		cli.Fatal(logger, "Worker failed", err)
	}
	logger.Info("Worker stopped", applog.FieldComponent, applog.ComponentWorker)
}

func run(logger *slog.Logger, cfg *config.Config) error {
	if !cfg.AMQPEnabled() {
		return errors.New("AMQP_URL is not set")
	}
	// The worker and the server only share state through SQLite.
	if cfg.DataBackend != string(backend.SQLiteBackend) {
		return errors.New("DATA_BACKEND must be sqlite")
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed",
				applog.FieldComponent, applog.ComponentBackend,
				applog.FieldError, err)
		}
	}()

	amqpClient, err := amqp.DialWithRetry(ctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		return fmt.Errorf("connect to AMQP: %w", err)
	}
	defer amqpClient.Close()

	ledger, err := cli.NewLedger(ctx, logger, cfg, cli.LedgerDeps{
		Store:  res.Store,
		Offers: res.Dataset.Offers,
	})
	if err != nil {
		return err
	}
	defer ledger.Close()

	w := worker.NewRewardWorker(ledger, cfg.OfferRefreshInterval)
	if err := w.StartupCheck(ctx); err != nil {
		// Matching still works once the next refresh succeeds.
		logger.Error("Startup offer load failed",
			applog.FieldComponent, applog.ComponentWorker,
			applog.FieldError, err)
	}

	// Run returns nil once ctx is cancelled by a shutdown signal.
	if err := w.Run(ctx, amqpClient); err != nil {
		return fmt.Errorf("message consumption: %w", err)
	}
	<-done
	return nil
}
