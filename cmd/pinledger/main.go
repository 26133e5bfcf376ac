package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"pinledger/internal/amqp"
	"pinledger/internal/backend"
	"pinledger/internal/cli"
	apphttp "pinledger/internal/http"
	applog "pinledger/internal/log"
	"pinledger/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()
	cfg := cli.LoadAndValidateConfig(logger)

	startCtx, startCancel := context.WithTimeout(context.Background(), time.Minute)
	defer startCancel()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		cli.Fatal(logger, "Invalid backend configuration", err)
	}
	res, err := backend.NewFactory(logger).CreateBackend(startCtx, backendCfg)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize backend", err)
	}

	// Without AMQP, rewards are matched inline by the server.
	var (
		publisher  services.Publisher
		amqpClient *amqp.Client
	)
	if cfg.AMQPEnabled() {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, matching rewards inline",
				applog.FieldComponent, applog.ComponentAMQP,
				applog.FieldError, err)
		} else {
			publisher = amqpClient
		}
	}

	ledger, err := cli.NewLedger(startCtx, logger, cfg, cli.LedgerDeps{
		Store:     res.Store,
		Offers:    res.Dataset.Offers,
		Publisher: publisher,
	})
	if err != nil {
		cli.Fatal(logger, "Failed to initialize ledger", err)
	}

	srv := apphttp.NewServer(":"+cfg.Port, ledger, apphttp.Options{
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		BlockSuspicious:    cfg.BlockSuspicious,
		TrustedProxies:     cfg.TrustedProxies,
	})
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error",
				applog.FieldComponent, applog.ComponentHTTP,
				applog.FieldError, err)
		}
		ledger.Close()
		if amqpClient != nil {
			_ = amqpClient.Close()
		}
		if res.Cleanup != nil {
			if err := res.Cleanup(); err != nil {
				logger.Error("Backend cleanup failed",
					applog.FieldComponent, applog.ComponentBackend,
					applog.FieldError, err)
			}
		}
	})
	ledger.Start(ctx)

	logger.Info("Starting pinledger server",
		applog.FieldComponent, applog.ComponentApp,
		applog.FieldOperation, applog.OpStartup,
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"seeded", res.Seeded)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			cli.Fatal(logger, "Server error", err)
		}
	}()

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully", applog.FieldComponent, applog.ComponentApp)
}
