// Package social aggregates other people's check-ins at a merchant into
// reviews, builds the user's own visit history, and handles friends-board
// comments.
package social

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"pinledger/internal/core"
)

const ThisMonth = "This Month"

type (
	// Review is a transaction shown as a review, with the like state of the
	// current session folded in.
	Review struct {
		core.Transaction
		Liked        bool `json:"liked"`
		HelpfulCount int  `json:"helpfulCount"`
	}

	Visit struct {
		core.Transaction
		Label string `json:"recencyLabel,omitempty"`
	}

	VisitHistory struct {
		Visits []Visit    `json:"visits"`
		Total  core.Money `json:"totalSpent"`
	}
)

// ReviewPool is the set of transactions other people may see: the user's
// public ones plus the public and friends-visible entries of the friends and
// global feeds.
func ReviewPool(mine, friends, global []core.Transaction) []core.Transaction {
	pool := make([]core.Transaction, 0, len(friends)+len(global)+len(mine))
	for _, t := range mine {
		if t.Visibility == core.VisibilityPublic {
			pool = append(pool, t)
		}
	}
	for _, feed := range [][]core.Transaction{friends, global} {
		for _, t := range feed {
			if t.Visibility == core.VisibilityPublic || t.Visibility == core.VisibilityFriends {
				pool = append(pool, t)
			}
		}
	}
	return pool
}

// Reviews returns pool entries at merchant (case-insensitive exact match),
// excluding currentID and entries with neither memo nor photo.
func Reviews(pool []core.Transaction, merchant, currentID string, likes *Likes) []Review {
	var out []Review
	for _, t := range pool {
		if !strings.EqualFold(t.MerchantName, merchant) || t.ID == currentID || !t.HasReviewContent() {
			continue
		}
		r := Review{Transaction: t, HelpfulCount: t.LikeCount}
		if likes != nil && likes.Liked(t.ID) {
			r.Liked = true
			r.HelpfulCount++
		}
		out = append(out, r)
	}
	return out
}

// Visits lists the user's other transactions at merchant, newest first.
func Visits(mine []core.Transaction, merchant, currentID string, now time.Time) VisitHistory {
	var h VisitHistory
	for _, t := range mine {
		if !strings.EqualFold(t.MerchantName, merchant) || t.ID == currentID {
			continue
		}
		v := Visit{Transaction: t}
		if d := t.Date.In(now.Location()); d.Year() == now.Year() && d.Month() == now.Month() {
			v.Label = ThisMonth
		}
		h.Visits = append(h.Visits, v)
		h.Total = h.Total.Add(t.Amount)
	}
	slices.SortStableFunc(h.Visits, func(a, b Visit) int {
		return b.Date.Compare(a.Date)
	})
	return h
}

// NewComment builds a comment by author on t. Private transactions have no
// friends board.
func NewComment(t core.Transaction, author core.UserInfo, text string, now time.Time) (core.Comment, error) {
	if t.Visibility == core.VisibilityPrivate {
		return core.Comment{}, fmt.Errorf("comment on %s: %w", t.ID, core.ErrPrivateTransaction)
	}
	if strings.TrimSpace(text) == "" {
		return core.Comment{}, core.ErrEmptyText
	}
	return core.Comment{
		ID:        "nc_" + uuid.NewString(),
		User:      author,
		Text:      text,
		Timestamp: now,
	}, nil
}

// Likes is the session-local "helpful" set. It is never persisted.
type Likes struct {
	mu    sync.RWMutex
	liked map[string]struct{}
}

func NewLikes() *Likes {
	return &Likes{liked: make(map[string]struct{})}
}

// Toggle flips the like on id and returns the new state.
func (l *Likes) Toggle(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.liked[id]; ok {
		delete(l.liked, id)
		return false
	}
	l.liked[id] = struct{}{}
	return true
}

func (l *Likes) Liked(id string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.liked[id]
	return ok
}
