// Package worker runs the out-of-process half of reward matching: it consumes
// transaction-created messages and raises cashback notifications against the
// shared database.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"pinledger/internal/amqp"
	"pinledger/internal/core"
	applog "pinledger/internal/log"
)

// DefaultRefreshInterval is how often the offer catalogue is reloaded.
const DefaultRefreshInterval = 30 * time.Minute

type (
	// Matcher is the ledger side the worker drives.
	Matcher interface {
		HandleTransactionCreated(ctx context.Context, msg *amqp.TransactionCreatedMessage) error
		RefreshOffers(ctx context.Context) ([]core.Offer, error)
	}

	// Consumer delivers transaction-created messages until ctx ends.
	Consumer interface {
		ConsumeTransactionCreated(ctx context.Context, handler func(context.Context, *amqp.TransactionCreatedMessage) error) error
	}

	RewardWorker struct {
		matcher         Matcher
		refreshInterval time.Duration
	}
)

func NewRewardWorker(m Matcher, refreshInterval time.Duration) *RewardWorker {
	if refreshInterval <= 0 {
		refreshInterval = DefaultRefreshInterval
	}
	return &RewardWorker{matcher: m, refreshInterval: refreshInterval}
}

// HandleMessage matches the transaction named by msg against the offers.
func (w *RewardWorker) HandleMessage(ctx context.Context, msg *amqp.TransactionCreatedMessage) error {
	start := time.Now()
	slog.InfoContext(ctx, "Processing transaction message",
		applog.FieldComponent, applog.ComponentWorker,
		applog.FieldTransactionID, msg.TransactionID,
		applog.FieldMerchant, msg.MerchantName,
		"source", msg.Source)

	if err := w.matcher.HandleTransactionCreated(ctx, msg); err != nil {
		return fmt.Errorf("match transaction %s: %w", msg.TransactionID, err)
	}

	slog.DebugContext(ctx, "Transaction message processed",
		applog.FieldComponent, applog.ComponentWorker,
		applog.FieldTransactionID, msg.TransactionID,
		applog.FieldDuration, time.Since(start))
	return nil
}

// StartupCheck loads the offer catalogue before the first message is handled.
func (w *RewardWorker) StartupCheck(ctx context.Context) error {
	offers, err := w.matcher.RefreshOffers(ctx)
	if err != nil {
		return fmt.Errorf("load offers on startup: %w", err)
	}
	slog.InfoContext(ctx, "Offer catalogue ready",
		applog.FieldComponent, applog.ComponentWorker,
		"count", len(offers))
	return nil
}

// Run consumes messages and refreshes offers periodically until ctx ends or
// the consumer fails.
func (w *RewardWorker) Run(ctx context.Context, c Consumer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errc := make(chan error, 1)
	go func() {
		errc <- c.ConsumeTransactionCreated(ctx, w.HandleMessage)
	}()

	ticker := time.NewTicker(w.refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case err := <-errc:
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		case <-ticker.C:
			if _, err := w.matcher.RefreshOffers(ctx); err != nil {
				slog.ErrorContext(ctx, "Periodic offer refresh failed",
					applog.FieldComponent, applog.ComponentWorker,
					applog.FieldError, err)
			}
		case <-ctx.Done():
			// Let the consumer observe cancellation and return.
			<-errc
			return nil
		}
	}
}
