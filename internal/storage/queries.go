package storage

import (
	"context"
	"database/sql"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// Row types

type TransactionRow struct {
	ID           string
	Feed         string
	Position     int64
	MerchantName string
	Category     string
	AmountCents  int64
	OccurredAt   string
	Visibility   string
	Payload      string
}

type NotificationRow struct {
	ID          string
	Position    int64
	Type        string
	Title       string
	Message     string
	TimeAgo     string
	IsRead      bool
	RelatedKind sql.NullString
	RelatedID   sql.NullString
}

type MemoRow struct {
	ID        string
	Position  int64
	Text      string
	Completed bool
}

type CardRow struct {
	ID       string
	Position int64
	BankName string
	CardName string
	Last4    string
	Color    string
	Type     string
}

// Transactions

const countTransactions = `SELECT COUNT(*) FROM transactions`

func (q *Queries) CountTransactions(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countTransactions).Scan(&n)
	return n, err
}

const minTransactionPosition = `SELECT COALESCE(MIN(position), 0) FROM transactions WHERE feed = ?`

func (q *Queries) MinTransactionPosition(ctx context.Context, feed string) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, minTransactionPosition, feed).Scan(&n)
	return n, err
}

const insertTransaction = `INSERT INTO transactions
    (id, feed, position, merchant_name, category, amount_cents, occurred_at, visibility, payload)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) InsertTransaction(ctx context.Context, r TransactionRow) error {
	_, err := q.db.ExecContext(ctx, insertTransaction,
		r.ID, r.Feed, r.Position, r.MerchantName, r.Category, r.AmountCents, r.OccurredAt, r.Visibility, r.Payload)
	return err
}

const updateTransaction = `UPDATE transactions
SET merchant_name = ?, category = ?, amount_cents = ?, occurred_at = ?, visibility = ?, payload = ?
WHERE id = ?`

func (q *Queries) UpdateTransaction(ctx context.Context, r TransactionRow) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateTransaction,
		r.MerchantName, r.Category, r.AmountCents, r.OccurredAt, r.Visibility, r.Payload, r.ID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteTransaction = `DELETE FROM transactions WHERE id = ? AND feed = ?`

func (q *Queries) DeleteTransaction(ctx context.Context, id, feed string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteTransaction, id, feed)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const getTransaction = `SELECT id, feed, position, merchant_name, category, amount_cents, occurred_at, visibility, payload
FROM transactions WHERE id = ?`

func (q *Queries) GetTransaction(ctx context.Context, id string) (TransactionRow, error) {
	var r TransactionRow
	err := q.db.QueryRowContext(ctx, getTransaction, id).Scan(
		&r.ID, &r.Feed, &r.Position, &r.MerchantName, &r.Category, &r.AmountCents, &r.OccurredAt, &r.Visibility, &r.Payload)
	return r, err
}

const listTransactionsByFeed = `SELECT id, feed, position, merchant_name, category, amount_cents, occurred_at, visibility, payload
FROM transactions WHERE feed = ? ORDER BY position ASC`

func (q *Queries) ListTransactionsByFeed(ctx context.Context, feed string) ([]TransactionRow, error) {
	rows, err := q.db.QueryContext(ctx, listTransactionsByFeed, feed)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []TransactionRow
	for rows.Next() {
		var r TransactionRow
		if err := rows.Scan(&r.ID, &r.Feed, &r.Position, &r.MerchantName, &r.Category, &r.AmountCents, &r.OccurredAt, &r.Visibility, &r.Payload); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

// Notifications

const minNotificationPosition = `SELECT COALESCE(MIN(position), 0) FROM notifications`

func (q *Queries) MinNotificationPosition(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, minNotificationPosition).Scan(&n)
	return n, err
}

const insertNotification = `INSERT INTO notifications
    (id, position, type, title, message, time_ago, is_read, related_kind, related_id)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) InsertNotification(ctx context.Context, r NotificationRow) error {
	_, err := q.db.ExecContext(ctx, insertNotification,
		r.ID, r.Position, r.Type, r.Title, r.Message, r.TimeAgo, r.IsRead, r.RelatedKind, r.RelatedID)
	return err
}

const listNotifications = `SELECT id, position, type, title, message, time_ago, is_read, related_kind, related_id
FROM notifications ORDER BY position ASC`

func (q *Queries) ListNotifications(ctx context.Context) ([]NotificationRow, error) {
	rows, err := q.db.QueryContext(ctx, listNotifications)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []NotificationRow
	for rows.Next() {
		var r NotificationRow
		if err := rows.Scan(&r.ID, &r.Position, &r.Type, &r.Title, &r.Message, &r.TimeAgo, &r.IsRead, &r.RelatedKind, &r.RelatedID); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

const markNotificationRead = `UPDATE notifications SET is_read = 1 WHERE id = ?`

func (q *Queries) MarkNotificationRead(ctx context.Context, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx, markNotificationRead, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const markAllNotificationsRead = `UPDATE notifications SET is_read = 1`

func (q *Queries) MarkAllNotificationsRead(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, markAllNotificationsRead)
	return err
}

// Memos

const maxMemoPosition = `SELECT COALESCE(MAX(position), 0) FROM memos`

func (q *Queries) MaxMemoPosition(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, maxMemoPosition).Scan(&n)
	return n, err
}

const insertMemo = `INSERT INTO memos (id, position, text, completed) VALUES (?, ?, ?, ?)`

func (q *Queries) InsertMemo(ctx context.Context, r MemoRow) error {
	_, err := q.db.ExecContext(ctx, insertMemo, r.ID, r.Position, r.Text, r.Completed)
	return err
}

const listMemos = `SELECT id, position, text, completed FROM memos ORDER BY position ASC`

func (q *Queries) ListMemos(ctx context.Context) ([]MemoRow, error) {
	rows, err := q.db.QueryContext(ctx, listMemos)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []MemoRow
	for rows.Next() {
		var r MemoRow
		if err := rows.Scan(&r.ID, &r.Position, &r.Text, &r.Completed); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

const toggleMemo = `UPDATE memos SET completed = NOT completed WHERE id = ?
RETURNING id, position, text, completed`

func (q *Queries) ToggleMemo(ctx context.Context, id string) (MemoRow, error) {
	var r MemoRow
	err := q.db.QueryRowContext(ctx, toggleMemo, id).Scan(&r.ID, &r.Position, &r.Text, &r.Completed)
	return r, err
}

const deleteMemo = `DELETE FROM memos WHERE id = ?`

func (q *Queries) DeleteMemo(ctx context.Context, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteMemo, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteAllMemos = `DELETE FROM memos`

func (q *Queries) DeleteAllMemos(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, deleteAllMemos)
	return err
}

// Cards

const maxCardPosition = `SELECT COALESCE(MAX(position), 0) FROM cards`

func (q *Queries) MaxCardPosition(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, maxCardPosition).Scan(&n)
	return n, err
}

const insertCard = `INSERT INTO cards (id, position, bank_name, card_name, last4, color, type)
VALUES (?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) InsertCard(ctx context.Context, r CardRow) error {
	_, err := q.db.ExecContext(ctx, insertCard, r.ID, r.Position, r.BankName, r.CardName, r.Last4, r.Color, r.Type)
	return err
}

const listCards = `SELECT id, position, bank_name, card_name, last4, color, type FROM cards ORDER BY position ASC`

func (q *Queries) ListCards(ctx context.Context) ([]CardRow, error) {
	rows, err := q.db.QueryContext(ctx, listCards)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []CardRow
	for rows.Next() {
		var r CardRow
		if err := rows.Scan(&r.ID, &r.Position, &r.BankName, &r.CardName, &r.Last4, &r.Color, &r.Type); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

// Settings

const getSetting = `SELECT value FROM settings WHERE key = ?`

func (q *Queries) GetSetting(ctx context.Context, key string) (string, error) {
	var v string
	err := q.db.QueryRowContext(ctx, getSetting, key).Scan(&v)
	return v, err
}

const upsertSetting = `INSERT INTO settings (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value`

func (q *Queries) UpsertSetting(ctx context.Context, key, value string) error {
	_, err := q.db.ExecContext(ctx, upsertSetting, key, value)
	return err
}
