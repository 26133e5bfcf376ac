// Package storetest holds behaviour checks shared by every store backend.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"pinledger/internal/core"
	"pinledger/internal/store"
)

func sampleTx(id string) core.Transaction {
	return core.Transaction{
		ID:           id,
		MerchantName: "Blue Bottle",
		Amount:       core.Money{Cents: 650},
		Currency:     "USD",
		Date:         time.Date(2025, 5, 4, 9, 30, 0, 0, time.UTC),
		Category:     "Cafe",
		Location:     &core.Location{Lat: 40.7233, Lng: -74.003, Address: "1 Soho St"},
		Status:       core.StatusCompleted,
		Visibility:   core.VisibilityPrivate,
		User:         core.UserInfo{ID: "u1", Name: "Alex", IsCurrentUser: true},
	}
}

// Run exercises s, which must start empty.
func Run(t *testing.T, s store.Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("transactions", func(t *testing.T) {
		if err := s.Prepend(ctx, sampleTx("a")); err != nil {
			t.Fatalf("prepend a: %v", err)
		}
		if err := s.Prepend(ctx, sampleTx("b")); err != nil {
			t.Fatalf("prepend b: %v", err)
		}
		mine, err := s.List(ctx, store.FeedMine)
		if err != nil || len(mine) != 2 || mine[0].ID != "b" {
			t.Fatalf("list mine = %v, %v", mine, err)
		}

		got, err := s.Get(ctx, "a")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		got.Memo = "Flat white was great"
		got.PhotoURL = "data:image/png;base64,AAAA"
		got.Visibility = core.VisibilityFriends
		got.Comments = append(got.Comments, core.Comment{ID: "c1", Text: "nice", Timestamp: got.Date})
		if err := s.Update(ctx, got); err != nil {
			t.Fatalf("update: %v", err)
		}
		again, _ := s.Get(ctx, "a")
		if again.Memo != got.Memo || again.PhotoURL != got.PhotoURL || again.Visibility != got.Visibility || len(again.Comments) != 1 {
			t.Fatalf("round trip mismatch: %+v", again)
		}
		if again.Location == nil || again.Location.Address != "1 Soho St" {
			t.Fatalf("location lost: %+v", again.Location)
		}

		again.Location.Lat = 0
		fresh, _ := s.Get(ctx, "a")
		if fresh.Location.Lat == 0 {
			t.Fatalf("store returned shared location pointer")
		}

		if err := s.Delete(ctx, "a"); err != nil {
			t.Fatalf("delete: %v", err)
		}
		if _, err := s.Get(ctx, "a"); !errors.Is(err, core.ErrNotFound) {
			t.Fatalf("get after delete: %v", err)
		}
		if err := s.Delete(ctx, "a"); !errors.Is(err, core.ErrNotFound) {
			t.Fatalf("second delete: %v", err)
		}
		if err := s.Update(ctx, sampleTx("missing")); !errors.Is(err, core.ErrNotFound) {
			t.Fatalf("update missing: %v", err)
		}
	})

	t.Run("notifications", func(t *testing.T) {
		n := core.NotificationItem{ID: "n1", Type: core.NotifySystemAlert, Title: "Budget Exceeded", TimeAgo: "Just now"}
		if err := s.PrependNotification(ctx, n); err != nil {
			t.Fatalf("prepend: %v", err)
		}
		n2 := core.NotificationItem{ID: "n2", Type: core.NotifyOfferNearby, Title: "Cashback Earned!",
			Related: &core.Related{Kind: core.RelatedTransaction, ID: "b"}}
		if err := s.PrependNotification(ctx, n2); err != nil {
			t.Fatalf("prepend: %v", err)
		}
		if err := s.PrependNotification(ctx, core.NotificationItem{ID: "bad", Type: "promo"}); err == nil {
			t.Fatalf("expected validation error")
		}
		list, _ := s.Notifications(ctx)
		if len(list) != 2 || list[0].ID != "n2" || list[0].Related == nil || list[0].Related.ID != "b" {
			t.Fatalf("notifications = %+v", list)
		}
		if err := s.MarkRead(ctx, "n1"); err != nil {
			t.Fatalf("mark read: %v", err)
		}
		list, _ = s.Notifications(ctx)
		if core.UnreadCount(list) != 1 {
			t.Fatalf("unread = %d", core.UnreadCount(list))
		}
		if err := s.MarkRead(ctx, "zzz"); !errors.Is(err, core.ErrNotFound) {
			t.Fatalf("mark missing: %v", err)
		}
		_ = s.MarkAllRead(ctx)
		list, _ = s.Notifications(ctx)
		if core.UnreadCount(list) != 0 {
			t.Fatalf("mark all read left unread items")
		}
	})

	t.Run("memos", func(t *testing.T) {
		_ = s.AddMemo(ctx, core.MemoItem{ID: "m1", Text: "Buy Milk"})
		_ = s.AddMemo(ctx, core.MemoItem{ID: "m2", Text: "Eggs"})
		m, err := s.ToggleMemo(ctx, "m1")
		if err != nil || !m.Completed {
			t.Fatalf("toggle = %+v, %v", m, err)
		}
		if err := s.DeleteMemo(ctx, "m2"); err != nil {
			t.Fatalf("delete memo: %v", err)
		}
		memos, _ := s.Memos(ctx)
		if len(memos) != 1 || memos[0].ID != "m1" || !memos[0].Completed {
			t.Fatalf("memos = %+v", memos)
		}
		_ = s.ClearMemos(ctx)
		if memos, _ := s.Memos(ctx); len(memos) != 0 {
			t.Fatalf("clear left %d memos", len(memos))
		}
	})

	t.Run("cards and settings", func(t *testing.T) {
		c := core.Card{ID: "card_9", BankName: "Chase", CardName: "Freedom", Last4: "1111", Type: core.CardDebit}
		if err := s.AddCard(ctx, c); err != nil {
			t.Fatalf("add card: %v", err)
		}
		cards, _ := s.Cards(ctx)
		if len(cards) != 1 || cards[0] != c {
			t.Fatalf("cards = %+v", cards)
		}

		b, _ := s.Budget(ctx)
		if b.Amount.Cents != 0 || b.Period != core.PeriodMonthly {
			t.Fatalf("default budget = %+v", b)
		}
		want := core.BudgetConfig{Amount: core.Money{Cents: 150000}, Period: core.PeriodCustom, CustomStart: "2025-05-01", CustomEnd: "2025-05-31"}
		if err := s.SetBudget(ctx, want); err != nil {
			t.Fatalf("set budget: %v", err)
		}
		if got, _ := s.Budget(ctx); got != want {
			t.Fatalf("budget = %+v", got)
		}
		if err := s.SetBudget(ctx, core.BudgetConfig{Period: "daily"}); err == nil {
			t.Fatalf("expected invalid period error")
		}

		if p, _ := s.Persona(ctx); p != core.PersonaStandard {
			t.Fatalf("default persona = %s", p)
		}
		if err := s.SetPersona(ctx, core.PersonaScrooge); err != nil {
			t.Fatalf("set persona: %v", err)
		}
		if p, _ := s.Persona(ctx); p != core.PersonaScrooge {
			t.Fatalf("persona = %s", p)
		}
		if err := s.SetPersona(ctx, "pirate"); !errors.Is(err, core.ErrInvalidPersona) {
			t.Fatalf("expected ErrInvalidPersona, got %v", err)
		}
	})
}
