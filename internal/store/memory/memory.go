// Package memory is the default store backend. State lives in process memory
// and resets on restart.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"pinledger/internal/core"
	"pinledger/internal/seed"
	"pinledger/internal/store"
)

type Store struct {
	mu            sync.RWMutex
	feeds         map[store.Feed][]core.Transaction
	notifications []core.NotificationItem
	memos         []core.MemoItem
	cards         []core.Card
	budget        core.BudgetConfig
	persona       core.Persona
}

// New returns an empty store with a disabled monthly budget.
func New() *Store {
	return &Store{
		feeds:   map[store.Feed][]core.Transaction{},
		budget:  core.BudgetConfig{Period: core.PeriodMonthly},
		persona: core.PersonaStandard,
	}
}

// NewFromDataset returns a store preloaded with d.
func NewFromDataset(d seed.Dataset) *Store {
	s := New()
	s.feeds[store.FeedMine] = slices.Clone(d.Mine)
	s.feeds[store.FeedFriends] = slices.Clone(d.Friends)
	s.feeds[store.FeedGlobal] = slices.Clone(d.Global)
	s.notifications = slices.Clone(d.Notifications)
	s.memos = slices.Clone(d.Memos)
	s.cards = slices.Clone(d.Cards)
	return s
}

func (s *Store) List(_ context.Context, feed store.Feed) ([]core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneTxs(s.feeds[feed]), nil
}

func (s *Store) Get(_ context.Context, id string) (core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, f := range []store.Feed{store.FeedMine, store.FeedFriends, store.FeedGlobal} {
		if i := indexOf(s.feeds[f], id); i >= 0 {
			return cloneTx(s.feeds[f][i]), nil
		}
	}
	return core.Transaction{}, fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
}

func (s *Store) Prepend(_ context.Context, t core.Transaction) error {
	if err := t.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.feeds[store.FeedMine] = slices.Insert(s.feeds[store.FeedMine], 0, cloneTx(t))
	return nil
}

func (s *Store) Update(_ context.Context, t core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for f, txs := range s.feeds {
		if i := indexOf(txs, t.ID); i >= 0 {
			s.feeds[f][i] = cloneTx(t)
			return nil
		}
	}
	return fmt.Errorf("transaction %s: %w", t.ID, core.ErrNotFound)
}

func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	mine := s.feeds[store.FeedMine]
	i := indexOf(mine, id)
	if i < 0 {
		return fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}
	s.feeds[store.FeedMine] = slices.Delete(mine, i, i+1)
	return nil
}

func (s *Store) Notifications(_ context.Context) ([]core.NotificationItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := slices.Clone(s.notifications)
	for i := range out {
		if out[i].Related != nil {
			r := *out[i].Related
			out[i].Related = &r
		}
	}
	return out, nil
}

func (s *Store) PrependNotification(_ context.Context, n core.NotificationItem) error {
	if err := n.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications = slices.Insert(s.notifications, 0, n)
	return nil
}

func (s *Store) MarkRead(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.notifications {
		if s.notifications[i].ID == id {
			s.notifications[i].IsRead = true
			return nil
		}
	}
	return fmt.Errorf("notification %s: %w", id, core.ErrNotFound)
}

func (s *Store) MarkAllRead(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.notifications {
		s.notifications[i].IsRead = true
	}
	return nil
}

func (s *Store) Memos(_ context.Context) ([]core.MemoItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.memos), nil
}

func (s *Store) AddMemo(_ context.Context, m core.MemoItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.memos = append(s.memos, m)
	return nil
}

func (s *Store) ToggleMemo(_ context.Context, id string) (core.MemoItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.memos {
		if s.memos[i].ID == id {
			s.memos[i].Completed = !s.memos[i].Completed
			return s.memos[i], nil
		}
	}
	return core.MemoItem{}, fmt.Errorf("memo %s: %w", id, core.ErrNotFound)
}

func (s *Store) DeleteMemo(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := slices.IndexFunc(s.memos, func(m core.MemoItem) bool { return m.ID == id })
	if i < 0 {
		return fmt.Errorf("memo %s: %w", id, core.ErrNotFound)
	}
	s.memos = slices.Delete(s.memos, i, i+1)
	return nil
}

func (s *Store) ClearMemos(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.memos = nil
	return nil
}

func (s *Store) Cards(_ context.Context) ([]core.Card, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.cards), nil
}

func (s *Store) AddCard(_ context.Context, c core.Card) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cards = append(s.cards, c)
	return nil
}

func (s *Store) Budget(_ context.Context) (core.BudgetConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.budget, nil
}

func (s *Store) SetBudget(_ context.Context, b core.BudgetConfig) error {
	if err := b.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.budget = b
	return nil
}

func (s *Store) Persona(_ context.Context) (core.Persona, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.persona, nil
}

func (s *Store) SetPersona(_ context.Context, p core.Persona) error {
	if err := p.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.persona = p
	return nil
}

func indexOf(txs []core.Transaction, id string) int {
	return slices.IndexFunc(txs, func(t core.Transaction) bool { return t.ID == id })
}

func cloneTxs(in []core.Transaction) []core.Transaction {
	out := make([]core.Transaction, len(in))
	for i, t := range in {
		out[i] = cloneTx(t)
	}
	return out
}

// cloneTx copies the pointer and slice fields so callers cannot reach into
// stored state.
func cloneTx(t core.Transaction) core.Transaction {
	if t.Location != nil {
		l := *t.Location
		t.Location = &l
	}
	if t.OriginalAmount != nil {
		m := *t.OriginalAmount
		t.OriginalAmount = &m
	}
	if t.Receipt != nil {
		r := *t.Receipt
		r.Items = slices.Clone(r.Items)
		t.Receipt = &r
	}
	t.Comments = slices.Clone(t.Comments)
	return t
}

var _ store.Store = (*Store)(nil)
