package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"pinledger/internal/core"
	applog "pinledger/internal/log"
	"pinledger/internal/seed"
	"pinledger/internal/store"

	_ "modernc.org/sqlite"
)

const (
	settingBudget  = "budget"
	settingPersona = "persona"
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// SeedIfEmpty loads d when the database holds no transactions yet. It returns
// true when seeding happened.
func (r *SQLiteRepository) SeedIfEmpty(ctx context.Context, d seed.Dataset) (bool, error) {
	n, err := r.queries.CountTransactions(ctx)
	if err != nil {
		return false, fmt.Errorf("count transactions: %w", err)
	}
	if n > 0 {
		return false, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin seed: %w", err)
	}
	defer tx.Rollback()
	q := r.queries.WithTx(tx)

	feeds := []struct {
		feed store.Feed
		txs  []core.Transaction
	}{
		{store.FeedMine, d.Mine},
		{store.FeedFriends, d.Friends},
		{store.FeedGlobal, d.Global},
	}
	for _, f := range feeds {
		for i, t := range f.txs {
			row, err := toTransactionRow(t, f.feed, int64(i))
			if err != nil {
				return false, err
			}
			if err := q.InsertTransaction(ctx, row); err != nil {
				return false, fmt.Errorf("seed transaction %s: %w", t.ID, err)
			}
		}
	}
	for i, n := range d.Notifications {
		if err := q.InsertNotification(ctx, toNotificationRow(n, int64(i))); err != nil {
			return false, fmt.Errorf("seed notification %s: %w", n.ID, err)
		}
	}
	for i, m := range d.Memos {
		if err := q.InsertMemo(ctx, MemoRow{ID: m.ID, Position: int64(i + 1), Text: m.Text, Completed: m.Completed}); err != nil {
			return false, fmt.Errorf("seed memo %s: %w", m.ID, err)
		}
	}
	for i, c := range d.Cards {
		if err := q.InsertCard(ctx, toCardRow(c, int64(i+1))); err != nil {
			return false, fmt.Errorf("seed card %s: %w", c.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit seed: %w", err)
	}

	slog.InfoContext(ctx, "Seeded SQLite database",
		applog.FieldComponent, applog.ComponentStorage,
		applog.FieldOperation, applog.OpSeed,
		"mine", len(d.Mine), "friends", len(d.Friends), "global", len(d.Global))
	return true, nil
}

// List implements store.TransactionStore
func (r *SQLiteRepository) List(ctx context.Context, feed store.Feed) ([]core.Transaction, error) {
	rows, err := r.queries.ListTransactionsByFeed(ctx, string(feed))
	if err != nil {
		return nil, fmt.Errorf("list %s transactions: %w", feed, err)
	}
	out := make([]core.Transaction, 0, len(rows))
	for _, row := range rows {
		t, err := fromTransactionRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// Get implements store.TransactionStore
func (r *SQLiteRepository) Get(ctx context.Context, id string) (core.Transaction, error) {
	row, err := r.queries.GetTransaction(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %s: %w", id, err)
	}
	return fromTransactionRow(row)
}

// Prepend implements store.TransactionStore
func (r *SQLiteRepository) Prepend(ctx context.Context, t core.Transaction) error {
	if err := t.Validate(); err != nil {
		return err
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin prepend: %w", err)
	}
	defer tx.Rollback()
	q := r.queries.WithTx(tx)

	head, err := q.MinTransactionPosition(ctx, string(store.FeedMine))
	if err != nil {
		return fmt.Errorf("head position: %w", err)
	}
	row, err := toTransactionRow(t, store.FeedMine, head-1)
	if err != nil {
		return err
	}
	if err := q.InsertTransaction(ctx, row); err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit prepend: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		applog.FieldComponent, applog.ComponentStorage,
		applog.FieldOperation, applog.OpCreate,
		applog.FieldTransactionID, t.ID,
		applog.FieldMerchant, t.MerchantName,
		applog.FieldAmountCents, t.Amount.Cents)
	return nil
}

// Update implements store.TransactionStore
func (r *SQLiteRepository) Update(ctx context.Context, t core.Transaction) error {
	row, err := toTransactionRow(t, "", 0)
	if err != nil {
		return err
	}
	n, err := r.queries.UpdateTransaction(ctx, row)
	if err != nil {
		return fmt.Errorf("update transaction %s: %w", t.ID, err)
	}
	if n == 0 {
		return fmt.Errorf("transaction %s: %w", t.ID, core.ErrNotFound)
	}
	return nil
}

// Delete implements store.TransactionStore. Only the user's own feed can be
// deleted from.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	n, err := r.queries.DeleteTransaction(ctx, id, string(store.FeedMine))
	if err != nil {
		return fmt.Errorf("delete transaction %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}
	slog.InfoContext(ctx, "Transaction deleted from SQLite",
		applog.FieldComponent, applog.ComponentStorage,
		applog.FieldOperation, applog.OpDelete,
		applog.FieldTransactionID, id)
	return nil
}

// Notifications implements store.NotificationStore
func (r *SQLiteRepository) Notifications(ctx context.Context) ([]core.NotificationItem, error) {
	rows, err := r.queries.ListNotifications(ctx)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	out := make([]core.NotificationItem, 0, len(rows))
	for _, row := range rows {
		n := core.NotificationItem{
			ID:      row.ID,
			Type:    core.NotificationType(row.Type),
			Title:   row.Title,
			Message: row.Message,
			TimeAgo: row.TimeAgo,
			IsRead:  row.IsRead,
		}
		if row.RelatedKind.Valid {
			n.Related = &core.Related{Kind: core.RelatedKind(row.RelatedKind.String), ID: row.RelatedID.String}
		}
		out = append(out, n)
	}
	return out, nil
}

// PrependNotification implements store.NotificationStore
func (r *SQLiteRepository) PrependNotification(ctx context.Context, n core.NotificationItem) error {
	if err := n.Validate(); err != nil {
		return err
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin notification: %w", err)
	}
	defer tx.Rollback()
	q := r.queries.WithTx(tx)

	head, err := q.MinNotificationPosition(ctx)
	if err != nil {
		return fmt.Errorf("head position: %w", err)
	}
	if err := q.InsertNotification(ctx, toNotificationRow(n, head-1)); err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return tx.Commit()
}

// MarkRead implements store.NotificationStore
func (r *SQLiteRepository) MarkRead(ctx context.Context, id string) error {
	n, err := r.queries.MarkNotificationRead(ctx, id)
	if err != nil {
		return fmt.Errorf("mark notification %s read: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("notification %s: %w", id, core.ErrNotFound)
	}
	return nil
}

// MarkAllRead implements store.NotificationStore
func (r *SQLiteRepository) MarkAllRead(ctx context.Context) error {
	if err := r.queries.MarkAllNotificationsRead(ctx); err != nil {
		return fmt.Errorf("mark all notifications read: %w", err)
	}
	return nil
}

// Memos implements store.MemoStore
func (r *SQLiteRepository) Memos(ctx context.Context) ([]core.MemoItem, error) {
	rows, err := r.queries.ListMemos(ctx)
	if err != nil {
		return nil, fmt.Errorf("list memos: %w", err)
	}
	out := make([]core.MemoItem, len(rows))
	for i, row := range rows {
		out[i] = core.MemoItem{ID: row.ID, Text: row.Text, Completed: row.Completed}
	}
	return out, nil
}

// AddMemo implements store.MemoStore
func (r *SQLiteRepository) AddMemo(ctx context.Context, m core.MemoItem) error {
	tail, err := r.queries.MaxMemoPosition(ctx)
	if err != nil {
		return fmt.Errorf("memo position: %w", err)
	}
	if err := r.queries.InsertMemo(ctx, MemoRow{ID: m.ID, Position: tail + 1, Text: m.Text, Completed: m.Completed}); err != nil {
		return fmt.Errorf("insert memo: %w", err)
	}
	return nil
}

// ToggleMemo implements store.MemoStore
func (r *SQLiteRepository) ToggleMemo(ctx context.Context, id string) (core.MemoItem, error) {
	row, err := r.queries.ToggleMemo(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.MemoItem{}, fmt.Errorf("memo %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.MemoItem{}, fmt.Errorf("toggle memo %s: %w", id, err)
	}
	return core.MemoItem{ID: row.ID, Text: row.Text, Completed: row.Completed}, nil
}

// DeleteMemo implements store.MemoStore
func (r *SQLiteRepository) DeleteMemo(ctx context.Context, id string) error {
	n, err := r.queries.DeleteMemo(ctx, id)
	if err != nil {
		return fmt.Errorf("delete memo %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("memo %s: %w", id, core.ErrNotFound)
	}
	return nil
}

// ClearMemos implements store.MemoStore
func (r *SQLiteRepository) ClearMemos(ctx context.Context) error {
	if err := r.queries.DeleteAllMemos(ctx); err != nil {
		return fmt.Errorf("clear memos: %w", err)
	}
	return nil
}

// Cards implements store.CardStore
func (r *SQLiteRepository) Cards(ctx context.Context) ([]core.Card, error) {
	rows, err := r.queries.ListCards(ctx)
	if err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	out := make([]core.Card, len(rows))
	for i, row := range rows {
		out[i] = core.Card{
			ID:       row.ID,
			BankName: row.BankName,
			CardName: row.CardName,
			Last4:    row.Last4,
			Color:    row.Color,
			Type:     core.CardType(row.Type),
		}
	}
	return out, nil
}

// AddCard implements store.CardStore
func (r *SQLiteRepository) AddCard(ctx context.Context, c core.Card) error {
	tail, err := r.queries.MaxCardPosition(ctx)
	if err != nil {
		return fmt.Errorf("card position: %w", err)
	}
	if err := r.queries.InsertCard(ctx, toCardRow(c, tail+1)); err != nil {
		return fmt.Errorf("insert card: %w", err)
	}
	return nil
}

// Budget implements store.SettingsStore
func (r *SQLiteRepository) Budget(ctx context.Context) (core.BudgetConfig, error) {
	b := core.BudgetConfig{Period: core.PeriodMonthly}
	v, err := r.queries.GetSetting(ctx, settingBudget)
	if errors.Is(err, sql.ErrNoRows) {
		return b, nil
	}
	if err != nil {
		return b, fmt.Errorf("get budget: %w", err)
	}
	if err := json.Unmarshal([]byte(v), &b); err != nil {
		return b, fmt.Errorf("decode budget: %w", err)
	}
	return b, nil
}

// SetBudget implements store.SettingsStore
func (r *SQLiteRepository) SetBudget(ctx context.Context, b core.BudgetConfig) error {
	if err := b.Validate(); err != nil {
		return err
	}
	raw, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("encode budget: %w", err)
	}
	if err := r.queries.UpsertSetting(ctx, settingBudget, string(raw)); err != nil {
		return fmt.Errorf("save budget: %w", err)
	}
	return nil
}

// Persona implements store.SettingsStore
func (r *SQLiteRepository) Persona(ctx context.Context) (core.Persona, error) {
	v, err := r.queries.GetSetting(ctx, settingPersona)
	if errors.Is(err, sql.ErrNoRows) {
		return core.PersonaStandard, nil
	}
	if err != nil {
		return core.PersonaStandard, fmt.Errorf("get persona: %w", err)
	}
	return core.Persona(v), nil
}

// SetPersona implements store.SettingsStore
func (r *SQLiteRepository) SetPersona(ctx context.Context, p core.Persona) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if err := r.queries.UpsertSetting(ctx, settingPersona, string(p)); err != nil {
		return fmt.Errorf("save persona: %w", err)
	}
	return nil
}

func toTransactionRow(t core.Transaction, feed store.Feed, pos int64) (TransactionRow, error) {
	payload, err := json.Marshal(t)
	if err != nil {
		return TransactionRow{}, fmt.Errorf("encode transaction %s: %w", t.ID, err)
	}
	return TransactionRow{
		ID:           t.ID,
		Feed:         string(feed),
		Position:     pos,
		MerchantName: t.MerchantName,
		Category:     t.Category,
		AmountCents:  t.Amount.Cents,
		OccurredAt:   t.Date.UTC().Format(time.RFC3339Nano),
		Visibility:   string(t.Visibility),
		Payload:      string(payload),
	}, nil
}

func fromTransactionRow(row TransactionRow) (core.Transaction, error) {
	var t core.Transaction
	if err := json.Unmarshal([]byte(row.Payload), &t); err != nil {
		return core.Transaction{}, fmt.Errorf("decode transaction %s: %w", row.ID, err)
	}
	return t, nil
}

func toNotificationRow(n core.NotificationItem, pos int64) NotificationRow {
	row := NotificationRow{
		ID:       n.ID,
		Position: pos,
		Type:     string(n.Type),
		Title:    n.Title,
		Message:  n.Message,
		TimeAgo:  n.TimeAgo,
		IsRead:   n.IsRead,
	}
	if n.Related != nil {
		row.RelatedKind = sql.NullString{String: string(n.Related.Kind), Valid: true}
		row.RelatedID = sql.NullString{String: n.Related.ID, Valid: true}
	}
	return row
}

func toCardRow(c core.Card, pos int64) CardRow {
	return CardRow{
		ID:       c.ID,
		Position: pos,
		BankName: c.BankName,
		CardName: c.CardName,
		Last4:    c.Last4,
		Color:    c.Color,
		Type:     string(c.Type),
	}
}

var _ store.Store = (*SQLiteRepository)(nil)
