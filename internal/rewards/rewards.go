// Package rewards talks to the card-linked offers provider: it lists
// cashback offers, checks transactions against them and enrolls cards.
package rewards

import (
	"context"
	"log/slog"
	"slices"
	"strings"

	"pinledger/internal/core"
	applog "pinledger/internal/log"
)

type (
	MatchResult struct {
		Matched      bool        `json:"matched"`
		Offer        *core.Offer `json:"offer,omitempty"`
		RewardAmount core.Money  `json:"rewardAmount"`
	}

	// Service is the rewards provider. Implementations absorb their own
	// failures: a failed fetch returns fallback offers, a failed match
	// returns no match and a failed enrollment returns false.
	Service interface {
		FetchOffers(ctx context.Context, userID string) []core.Offer
		MatchTransaction(ctx context.Context, tx core.Transaction) MatchResult
		EnrollCard(ctx context.Context, cardID string) bool
	}

	// Mock serves a fixed offer catalogue.
	Mock struct {
		offers []core.Offer
	}
)

var (
	_ Service = (*Mock)(nil)
	_ Service = (*Client)(nil)
)

func NewMock(offers []core.Offer) *Mock {
	return &Mock{offers: slices.Clone(offers)}
}

func (m *Mock) FetchOffers(ctx context.Context, userID string) []core.Offer {
	slog.DebugContext(ctx, "Offers loaded from mock catalogue",
		applog.FieldComponent, applog.ComponentRewards,
		"user_id", userID,
		"count", len(m.offers))
	return slices.Clone(m.offers)
}

// MatchTransaction returns the first offer whose merchant name contains, or
// is contained in, the transaction's merchant name, ignoring case.
func (m *Mock) MatchTransaction(_ context.Context, tx core.Transaction) MatchResult {
	return Match(m.offers, tx)
}

func (m *Mock) EnrollCard(ctx context.Context, cardID string) bool {
	slog.InfoContext(ctx, "Card enrolled with mock provider",
		applog.FieldComponent, applog.ComponentRewards,
		"card_id", cardID)
	return true
}

// Match scans offers in order for a merchant name overlap with tx. Short
// names can produce false positives ("Cafe" matches "Cafe Nero"); this is
// accepted.
func Match(offers []core.Offer, tx core.Transaction) MatchResult {
	name := strings.ToLower(strings.TrimSpace(tx.MerchantName))
	if name == "" {
		return MatchResult{}
	}
	for _, o := range offers {
		offerName := strings.ToLower(strings.TrimSpace(o.MerchantName))
		if offerName == "" {
			continue
		}
		if strings.Contains(name, offerName) || strings.Contains(offerName, name) {
			offer := o
			return MatchResult{
				Matched:      true,
				Offer:        &offer,
				RewardAmount: tx.Amount.MulRate(o.CashbackRate),
			}
		}
	}
	return MatchResult{}
}
