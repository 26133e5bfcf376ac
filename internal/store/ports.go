package store

import (
	"context"

	"pinledger/internal/core"
)

// Feed names one of the three transaction sets.
type Feed string

const (
	FeedMine    Feed = "mine"
	FeedFriends Feed = "friends"
	FeedGlobal  Feed = "global"
)

// Ports for persistence backends. Every method returns copies; callers may
// mutate results freely.
type (
	TransactionStore interface {
		// List returns a feed in stored order, newest insertions first.
		List(ctx context.Context, feed Feed) ([]core.Transaction, error)
		// Get looks a transaction up across all feeds.
		Get(ctx context.Context, id string) (core.Transaction, error)
		// Prepend inserts t at the head of the user's own feed.
		Prepend(ctx context.Context, t core.Transaction) error
		// Update replaces the stored transaction with the same ID.
		Update(ctx context.Context, t core.Transaction) error
		Delete(ctx context.Context, id string) error
	}

	NotificationStore interface {
		Notifications(ctx context.Context) ([]core.NotificationItem, error)
		PrependNotification(ctx context.Context, n core.NotificationItem) error
		MarkRead(ctx context.Context, id string) error
		MarkAllRead(ctx context.Context) error
	}

	MemoStore interface {
		Memos(ctx context.Context) ([]core.MemoItem, error)
		AddMemo(ctx context.Context, m core.MemoItem) error
		ToggleMemo(ctx context.Context, id string) (core.MemoItem, error)
		DeleteMemo(ctx context.Context, id string) error
		ClearMemos(ctx context.Context) error
	}

	CardStore interface {
		Cards(ctx context.Context) ([]core.Card, error)
		AddCard(ctx context.Context, c core.Card) error
	}

	SettingsStore interface {
		Budget(ctx context.Context) (core.BudgetConfig, error)
		SetBudget(ctx context.Context, b core.BudgetConfig) error
		Persona(ctx context.Context) (core.Persona, error)
		SetPersona(ctx context.Context, p core.Persona) error
	}

	// Store is the full persistence surface a backend provides.
	Store interface {
		TransactionStore
		NotificationStore
		MemoStore
		CardStore
		SettingsStore
	}
)
