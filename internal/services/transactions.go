package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"pinledger/internal/amqp"
	"pinledger/internal/core"
	applog "pinledger/internal/log"
	"pinledger/internal/rewards"
	"pinledger/internal/social"
	"pinledger/internal/store"
)

const (
	DefaultCategory = "Shopping"
	DefaultCurrency = "USD"
	UnknownMerchant = "Unknown"

	TitleCashbackEarned = "Cashback Earned!"
)

var ErrEmptyCategory = errors.New("empty category")

// ReceiptLocation is where receipt scans are pinned when the photo carries
// no position (Times Square).
var ReceiptLocation = core.Location{Lat: 40.7580, Lng: -73.9855}

type (
	ManualEntry struct {
		MerchantName string         `json:"merchantName"`
		Amount       core.Money     `json:"amount"`
		Category     string         `json:"category"`
		Date         *time.Time     `json:"date,omitempty"`
		Location     *core.Location `json:"location,omitempty"`
		Memo         string         `json:"memo,omitempty"`
	}

	MemoryUpdate struct {
		Memo       string          `json:"memo"`
		PhotoURL   string          `json:"photoUrl"`
		Visibility core.Visibility `json:"visibility"`
	}

	// Outcome reports what happened to a newly recorded transaction.
	Outcome struct {
		Transaction core.Transaction     `json:"transaction"`
		Match       *rewards.MatchResult `json:"match,omitempty"`
		// Queued is true when matching was handed to the worker.
		Queued bool `json:"queued"`
		// Alert is the budget notification this transaction raised, if any.
		Alert *core.NotificationItem `json:"alert,omitempty"`
		// OpenNotifications asks the client to show the inbox.
		OpenNotifications bool `json:"openNotifications"`
	}
)

// AddManual records a hand-entered transaction. A blank merchant or a
// non-positive amount is ignored: the result is nil with no error.
func (s *LedgerService) AddManual(ctx context.Context, e ManualEntry) (*Outcome, error) {
	merchant := strings.TrimSpace(e.MerchantName)
	if merchant == "" || e.Amount.Cents <= 0 {
		slog.DebugContext(ctx, "Ignoring incomplete manual entry",
			applog.FieldComponent, applog.ComponentLedger,
			applog.FieldMerchant, merchant,
			applog.FieldAmountCents, e.Amount.Cents)
		return nil, nil
	}
	date := s.localNow()
	if e.Date != nil && !e.Date.IsZero() {
		date = *e.Date
	}
	category := strings.TrimSpace(e.Category)
	if category == "" {
		category = DefaultCategory
	}
	tx := core.Transaction{
		ID:           "manual_" + uuid.NewString(),
		Amount:       e.Amount,
		Currency:     DefaultCurrency,
		MerchantName: merchant,
		Date:         date,
		Category:     category,
		Location:     e.Location,
		Status:       core.StatusCompleted,
		Memo:         e.Memo,
		Visibility:   core.VisibilityPrivate,
		User:         s.user,
	}
	out, err := s.process(ctx, tx, amqp.SourceManual)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// AddFromReceipt records a scanned receipt. The receipt date keeps the
// current wall-clock time of day; an unparseable date falls back to now.
func (s *LedgerService) AddFromReceipt(ctx context.Context, r core.ReceiptData, category string) (*Outcome, error) {
	r.Normalize()
	if r.TotalAmount.Cents <= 0 {
		return nil, nil
	}
	now := s.localNow()
	date := now
	if d, err := time.ParseInLocation(core.DateLayout, strings.TrimSpace(r.Date), s.loc); err == nil {
		date = time.Date(d.Year(), d.Month(), d.Day(), now.Hour(), now.Minute(), now.Second(), 0, s.loc)
	}
	merchant := r.MerchantName
	if merchant == "" {
		merchant = UnknownMerchant
	}
	if strings.TrimSpace(category) == "" {
		category = DefaultCategory
	}
	loc := ReceiptLocation
	receipt := r
	tx := core.Transaction{
		ID:           "scan_" + uuid.NewString(),
		Amount:       r.TotalAmount,
		Currency:     r.Currency,
		CountryCode:  "US",
		MerchantName: merchant,
		Date:         date,
		Category:     category,
		Location:     &loc,
		Status:       core.StatusCompleted,
		Memo:         r.Breakdown(),
		Visibility:   core.VisibilityPrivate,
		User:         s.user,
		Receipt:      &receipt,
	}
	out, err := s.process(ctx, tx, amqp.SourceReceipt)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// SimulateWebhook records a card-network transaction for the current user.
// Missing fields get the same defaults as manual entries; a transaction
// that still fails validation is rejected.
func (s *LedgerService) SimulateWebhook(ctx context.Context, tx core.Transaction) (*Outcome, error) {
	if tx.ID == "" {
		tx.ID = "tx_" + uuid.NewString()
	}
	if tx.Currency == "" {
		tx.Currency = DefaultCurrency
	}
	if tx.Date.IsZero() {
		tx.Date = s.localNow()
	}
	if tx.Category == "" {
		tx.Category = DefaultCategory
	}
	if tx.Status == "" {
		tx.Status = core.StatusCompleted
	}
	if tx.Visibility == "" {
		tx.Visibility = core.VisibilityPrivate
	}
	tx.User = s.user
	if err := tx.Validate(); err != nil {
		return nil, fmt.Errorf("webhook transaction: %w", err)
	}
	out, err := s.process(ctx, tx, amqp.SourceWebhook)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// process saves tx first, then hands it to reward matching and re-runs the
// budget check. Matching and budget failures never fail the request.
func (s *LedgerService) process(ctx context.Context, tx core.Transaction, source string) (Outcome, error) {
	if err := s.store.Prepend(ctx, tx); err != nil {
		return Outcome{}, fmt.Errorf("save transaction: %w", err)
	}
	slog.InfoContext(ctx, "Transaction created",
		applog.FieldComponent, applog.ComponentLedger,
		applog.FieldOperation, applog.OpCreate,
		applog.FieldTransactionID, tx.ID,
		applog.FieldMerchant, tx.MerchantName,
		applog.FieldAmountCents, tx.Amount.Cents,
		"source", source)

	out := Outcome{Transaction: tx}
	if s.publish(ctx, tx, source) {
		out.Queued = true
	} else {
		res, err := s.MatchAndNotify(ctx, tx)
		if err != nil {
			slog.ErrorContext(ctx, "Reward notification failed",
				applog.FieldComponent, applog.ComponentLedger,
				applog.FieldTransactionID, tx.ID,
				applog.FieldError, err)
		}
		if res.Matched {
			out.Match = &res
			out.OpenNotifications = true
		}
	}
	if alert := s.checkBudget(ctx); alert != nil {
		out.Alert = alert
		out.OpenNotifications = true
	}
	return out, nil
}

func (s *LedgerService) publish(ctx context.Context, tx core.Transaction, source string) bool {
	if s.publisher == nil {
		return false
	}
	msg := amqp.NewTransactionCreatedMessage(tx.ID, tx.MerchantName, tx.Amount.Cents, source)
	if err := s.publisher.PublishTransactionCreated(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to publish transaction, matching inline",
			applog.FieldComponent, applog.ComponentLedger,
			applog.FieldTransactionID, tx.ID,
			applog.FieldError, err)
		return false
	}
	return true
}

// MatchAndNotify checks tx against the offers and, on a match, adds a
// "Cashback Earned!" notification linked to the transaction.
func (s *LedgerService) MatchAndNotify(ctx context.Context, tx core.Transaction) (rewards.MatchResult, error) {
	res := s.rewards.MatchTransaction(ctx, tx)
	if !res.Matched || res.Offer == nil {
		return rewards.MatchResult{}, nil
	}
	n := core.NotificationItem{
		ID:      "notif_" + uuid.NewString(),
		Type:    core.NotifyOfferNearby,
		Title:   TitleCashbackEarned,
		Message: fmt.Sprintf("You earned $%s at %s!", res.RewardAmount.Fixed(), res.Offer.MerchantName),
		TimeAgo: "Just now",
		Related: &core.Related{Kind: core.RelatedTransaction, ID: tx.ID},
	}
	if err := s.store.PrependNotification(ctx, n); err != nil {
		return res, fmt.Errorf("save reward notification: %w", err)
	}
	slog.InfoContext(ctx, "Cashback matched",
		applog.FieldComponent, applog.ComponentLedger,
		applog.FieldOperation, applog.OpMatch,
		applog.FieldTransactionID, tx.ID,
		applog.FieldOfferID, res.Offer.ID,
		"reward_cents", res.RewardAmount.Cents)
	return res, nil
}

// HandleTransactionCreated is the worker-side half of process: it loads the
// transaction named by msg and matches it. Messages for transactions that no
// longer exist are dropped.
func (s *LedgerService) HandleTransactionCreated(ctx context.Context, msg *amqp.TransactionCreatedMessage) error {
	tx, err := s.store.Get(ctx, msg.TransactionID)
	if errors.Is(err, core.ErrNotFound) {
		slog.WarnContext(ctx, "Transaction gone before matching",
			applog.FieldComponent, applog.ComponentWorker,
			applog.FieldTransactionID, msg.TransactionID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load transaction: %w", err)
	}
	_, err = s.MatchAndNotify(ctx, tx)
	return err
}

// SaveMemory replaces the memo, photo and visibility of one of the user's
// own transactions.
func (s *LedgerService) SaveMemory(ctx context.Context, id string, m MemoryUpdate) (core.Transaction, error) {
	if m.Visibility == "" {
		m.Visibility = core.VisibilityPrivate
	}
	if err := m.Visibility.Validate(); err != nil {
		return core.Transaction{}, err
	}
	tx, err := s.own(ctx, id)
	if err != nil {
		return core.Transaction{}, err
	}
	tx.Memo = m.Memo
	tx.PhotoURL = m.PhotoURL
	tx.Visibility = m.Visibility
	if err := s.store.Update(ctx, tx); err != nil {
		return core.Transaction{}, fmt.Errorf("save memory: %w", err)
	}
	return tx, nil
}

func (s *LedgerService) UpdateCategory(ctx context.Context, id, category string) (core.Transaction, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		return core.Transaction{}, ErrEmptyCategory
	}
	tx, err := s.own(ctx, id)
	if err != nil {
		return core.Transaction{}, err
	}
	tx.Category = category
	if err := s.store.Update(ctx, tx); err != nil {
		return core.Transaction{}, fmt.Errorf("update category: %w", err)
	}
	return tx, nil
}

// Delete removes one of the user's transactions. confirmed must be true.
func (s *LedgerService) Delete(ctx context.Context, id string, confirmed bool) error {
	if !confirmed {
		return core.ErrConfirmationRequired
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Transaction deleted",
		applog.FieldComponent, applog.ComponentLedger,
		applog.FieldOperation, applog.OpDelete,
		applog.FieldTransactionID, id)
	s.checkBudget(ctx)
	return nil
}

// AddComment appends a comment by the current user to a non-private
// transaction, which may belong to a friend.
func (s *LedgerService) AddComment(ctx context.Context, id, text string) (core.Comment, error) {
	tx, err := s.store.Get(ctx, id)
	if err != nil {
		return core.Comment{}, err
	}
	c, err := social.NewComment(tx, s.user, text, s.localNow())
	if err != nil {
		return core.Comment{}, err
	}
	tx.Comments = append(tx.Comments, c)
	if err := s.store.Update(ctx, tx); err != nil {
		return core.Comment{}, fmt.Errorf("save comment: %w", err)
	}
	return c, nil
}

// Reviews lists public reviews of the same merchant as transaction id.
func (s *LedgerService) Reviews(ctx context.Context, id string) ([]social.Review, error) {
	tx, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	src, err := s.Sources(ctx)
	if err != nil {
		return nil, err
	}
	pool := social.ReviewPool(src.Mine, src.Friends, src.Global)
	return social.Reviews(pool, tx.MerchantName, tx.ID, s.likes), nil
}

// ToggleLike flips the current user's like on a review and returns the new state.
func (s *LedgerService) ToggleLike(id string) bool {
	return s.likes.Toggle(id)
}

// Visits lists the user's other visits to the merchant of transaction id.
func (s *LedgerService) Visits(ctx context.Context, id string) (social.VisitHistory, error) {
	tx, err := s.store.Get(ctx, id)
	if err != nil {
		return social.VisitHistory{}, err
	}
	mine, err := s.store.List(ctx, store.FeedMine)
	if err != nil {
		return social.VisitHistory{}, err
	}
	return social.Visits(mine, tx.MerchantName, tx.ID, s.localNow()), nil
}

func (s *LedgerService) own(ctx context.Context, id string) (core.Transaction, error) {
	tx, err := s.store.Get(ctx, id)
	if err != nil {
		return core.Transaction{}, err
	}
	if !tx.User.IsCurrentUser || tx.User.ID != s.user.ID {
		return core.Transaction{}, core.ErrNotOwner
	}
	return tx, nil
}

// checkBudget re-evaluates the budget against the user's transactions and
// stores any new alert. Failures are logged only.
func (s *LedgerService) checkBudget(ctx context.Context) *core.NotificationItem {
	s.budgetMu.Lock()
	defer s.budgetMu.Unlock()

	fail := func(err error) *core.NotificationItem {
		slog.ErrorContext(ctx, "Budget check failed",
			applog.FieldComponent, applog.ComponentLedger,
			applog.FieldError, err)
		return nil
	}
	cfg, err := s.store.Budget(ctx)
	if err != nil {
		return fail(err)
	}
	if cfg.Amount.Cents <= 0 {
		return nil
	}
	mine, err := s.store.List(ctx, store.FeedMine)
	if err != nil {
		return fail(err)
	}
	existing, err := s.store.Notifications(ctx)
	if err != nil {
		return fail(err)
	}
	ev := s.monitor.Evaluate(mine, cfg, existing, s.localNow())
	if ev.Alert == nil {
		return nil
	}
	if err := s.store.PrependNotification(ctx, *ev.Alert); err != nil {
		return fail(err)
	}
	slog.InfoContext(ctx, "Budget alert raised",
		applog.FieldComponent, applog.ComponentLedger,
		"title", ev.Alert.Title,
		"ratio", ev.Ratio)
	return ev.Alert
}
