package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"pinledger/internal/core"
	"pinledger/internal/filtering"
	applog "pinledger/internal/log"
)

// Notification targets: what the client opens after a notification is tapped.
const (
	TargetReport      = "report"
	TargetOffer       = "offer"
	TargetTransaction = "transaction"
	TargetNone        = "none"
)

var (
	ErrInvalidCard = errors.New("card needs a bank, a name and four digits")
)

type (
	Inbox struct {
		Items  []core.NotificationItem `json:"items"`
		Unread int                     `json:"unread"`
	}

	NotificationTarget struct {
		Kind        string            `json:"kind"`
		Offer       *core.Offer       `json:"offer,omitempty"`
		Transaction *core.Transaction `json:"transaction,omitempty"`
		// View is the feed the client should switch to so the target is
		// visible on the map.
		View filtering.ViewMode `json:"view,omitempty"`
	}

	CardResult struct {
		Card     core.Card `json:"card"`
		Enrolled bool      `json:"enrolled"`
	}
)

func (s *LedgerService) Notifications(ctx context.Context) (Inbox, error) {
	items, err := s.store.Notifications(ctx)
	if err != nil {
		return Inbox{}, err
	}
	if items == nil {
		items = []core.NotificationItem{}
	}
	return Inbox{Items: items, Unread: core.UnreadCount(items)}, nil
}

// MarkRead marks id read. Reading a budget alert while still over the
// threshold raises it again.
func (s *LedgerService) MarkRead(ctx context.Context, id string) error {
	if err := s.store.MarkRead(ctx, id); err != nil {
		return err
	}
	s.checkBudget(ctx)
	return nil
}

func (s *LedgerService) MarkAllRead(ctx context.Context) error {
	if err := s.store.MarkAllRead(ctx); err != nil {
		return err
	}
	s.checkBudget(ctx)
	return nil
}

// OpenNotification marks id read and resolves what it points at. Budget
// alerts open the report; transactions from other users switch the view to
// friends.
func (s *LedgerService) OpenNotification(ctx context.Context, id string) (NotificationTarget, error) {
	items, err := s.store.Notifications(ctx)
	if err != nil {
		return NotificationTarget{}, err
	}
	var item *core.NotificationItem
	for i := range items {
		if items[i].ID == id {
			item = &items[i]
			break
		}
	}
	if item == nil {
		return NotificationTarget{}, fmt.Errorf("notification %s: %w", id, core.ErrNotFound)
	}
	if err := s.MarkRead(ctx, id); err != nil {
		return NotificationTarget{}, err
	}

	if item.Type == core.NotifySystemAlert {
		return NotificationTarget{Kind: TargetReport}, nil
	}
	if item.Related == nil {
		return NotificationTarget{Kind: TargetNone}, nil
	}
	switch item.Related.Kind {
	case core.RelatedOffer:
		if o, ok := s.Offer(item.Related.ID); ok {
			return NotificationTarget{Kind: TargetOffer, Offer: &o}, nil
		}
	case core.RelatedTransaction:
		tx, err := s.store.Get(ctx, item.Related.ID)
		if err == nil {
			view := filtering.ViewPersonal
			if !tx.User.IsCurrentUser {
				view = filtering.ViewFriends
			}
			return NotificationTarget{Kind: TargetTransaction, Transaction: &tx, View: view}, nil
		}
		if !errors.Is(err, core.ErrNotFound) {
			return NotificationTarget{}, err
		}
	}
	return NotificationTarget{Kind: TargetNone}, nil
}

func (s *LedgerService) Memos(ctx context.Context) ([]core.MemoItem, error) {
	items, err := s.store.Memos(ctx)
	if items == nil && err == nil {
		items = []core.MemoItem{}
	}
	return items, err
}

// AddMemo appends a memo. Blank text is ignored and returns nil.
func (s *LedgerService) AddMemo(ctx context.Context, text string) (*core.MemoItem, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	m := core.MemoItem{ID: "m_" + uuid.NewString(), Text: text}
	if err := s.store.AddMemo(ctx, m); err != nil {
		return nil, fmt.Errorf("add memo: %w", err)
	}
	return &m, nil
}

func (s *LedgerService) ToggleMemo(ctx context.Context, id string) (core.MemoItem, error) {
	return s.store.ToggleMemo(ctx, id)
}

func (s *LedgerService) DeleteMemo(ctx context.Context, id string) error {
	return s.store.DeleteMemo(ctx, id)
}

func (s *LedgerService) ClearMemos(ctx context.Context) error {
	return s.store.ClearMemos(ctx)
}

func (s *LedgerService) Cards(ctx context.Context) ([]core.Card, error) {
	cards, err := s.store.Cards(ctx)
	if cards == nil && err == nil {
		cards = []core.Card{}
	}
	return cards, err
}

// AddCard links a card and enrolls it with the rewards provider. A failed
// enrollment still keeps the card.
func (s *LedgerService) AddCard(ctx context.Context, c core.Card) (CardResult, error) {
	c.BankName = strings.TrimSpace(c.BankName)
	c.CardName = strings.TrimSpace(c.CardName)
	if c.BankName == "" || c.CardName == "" || !isLast4(c.Last4) {
		return CardResult{}, ErrInvalidCard
	}
	if c.ID == "" {
		c.ID = "card_" + uuid.NewString()
	}
	if c.Type == "" {
		c.Type = core.CardCredit
	}
	if err := s.store.AddCard(ctx, c); err != nil {
		return CardResult{}, fmt.Errorf("add card: %w", err)
	}
	enrolled := s.rewards.EnrollCard(ctx, c.ID)
	slog.InfoContext(ctx, "Card linked",
		applog.FieldComponent, applog.ComponentLedger,
		"card_id", c.ID,
		"enrolled", enrolled)
	return CardResult{Card: c, Enrolled: enrolled}, nil
}

func isLast4(s string) bool {
	if len(s) != 4 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func (s *LedgerService) Budget(ctx context.Context) (core.BudgetConfig, error) {
	return s.store.Budget(ctx)
}

// SetBudget stores cfg and re-runs the budget check. The returned alert is
// non-nil when the new budget is already reached.
func (s *LedgerService) SetBudget(ctx context.Context, cfg core.BudgetConfig) (*core.NotificationItem, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.SetBudget(ctx, cfg); err != nil {
		return nil, fmt.Errorf("save budget: %w", err)
	}
	s.insights.Purge()
	return s.checkBudget(ctx), nil
}

func (s *LedgerService) Persona(ctx context.Context) (core.Persona, error) {
	return s.store.Persona(ctx)
}

func (s *LedgerService) SetPersona(ctx context.Context, p core.Persona) error {
	if err := p.Validate(); err != nil {
		return err
	}
	return s.store.SetPersona(ctx, p)
}
