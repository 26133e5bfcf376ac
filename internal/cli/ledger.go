package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"pinledger/internal/ai"
	"pinledger/internal/ai/gemini"
	"pinledger/internal/ai/openai"
	"pinledger/internal/config"
	"pinledger/internal/core"
	"pinledger/internal/geocode"
	applog "pinledger/internal/log"
	"pinledger/internal/rewards"
	"pinledger/internal/seed"
	"pinledger/internal/services"
	"pinledger/internal/store"
)

// NewAdvisor builds the AI advisor for cfg.AIProvider. "none" yields an
// advisor that answers with the not-configured fallbacks.
func NewAdvisor(ctx context.Context, cfg *config.Config) (*ai.Advisor, error) {
	var (
		model ai.Model
		err   error
	)
	switch cfg.AIProvider {
	case "gemini":
		model, err = gemini.New(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	case "openai":
		model, err = openai.New(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel)
	case "", "none":
		return ai.NewAdvisor(nil), nil
	default:
		return nil, fmt.Errorf("unknown AI provider %q", cfg.AIProvider)
	}
	if err != nil {
		return nil, fmt.Errorf("init %s: %w", cfg.AIProvider, err)
	}
	return ai.NewAdvisor(model), nil
}

// NewRewards returns the rewards provider for cfg.KardMode. offers seed the
// mock catalogue and serve as the HTTP client's fallback.
func NewRewards(cfg *config.Config, offers []core.Offer) rewards.Service {
	if cfg.KardMode == "http" {
		return rewards.NewClient(cfg.KardAPIURL, cfg.KardAPIToken, offers)
	}
	return rewards.NewMock(offers)
}

// LedgerDeps are the optional collaborators of NewLedger.
type LedgerDeps struct {
	Store     store.Store
	Offers    []core.Offer
	Publisher services.Publisher
}

// NewLedger assembles the ledger service from cfg. Geocoding is disabled when
// GEOCODER_URL is empty.
func NewLedger(ctx context.Context, logger *slog.Logger, cfg *config.Config, deps LedgerDeps) (*services.LedgerService, error) {
	advisor, err := NewAdvisor(ctx, cfg)
	if err != nil {
		return nil, err
	}

	opts := services.Options{
		HomeCountry: cfg.HomeCountry,
		CurrentUser: seed.CurrentUser,
		Publisher:   deps.Publisher,
		Advisor:     advisor,
		Location:    time.Local,
	}
	// Leave Geocoder a nil interface, not a typed nil, when disabled.
	if cfg.GeocoderURL != "" {
		opts.Geocoder = geocode.NewClient(cfg.GeocoderURL, cfg.GeocoderUserAgent)
	}

	logger.Info("Ledger configured",
		applog.FieldComponent, applog.ComponentApp,
		"ai", advisor.Provider(),
		"rewards", cfg.KardMode,
		"geocoder", cfg.GeocoderURL != "",
		"amqp", deps.Publisher != nil)

	return services.NewLedgerService(deps.Store, NewRewards(cfg, deps.Offers), opts), nil
}
