// Package seed generates the demo dataset: NYC stores, cashback offers, the
// user's own and global transactions, plus a handful of fixed records.
package seed

import (
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
	"time"

	"pinledger/internal/core"
)

const (
	storeCount    = 300
	favoriteLimit = 15
	offerCount    = 80
	globalCount   = 2000
	mineCount     = 150
	jitter        = 0.006
	historyDays   = 90
)

var CurrentUser = core.UserInfo{
	ID:            "u1",
	Name:          "Alex Johnson",
	AvatarURL:     "https://api.dicebear.com/7.x/avataaars/svg?seed=Alex",
	IsCurrentUser: true,
}

var friendAlice = core.UserInfo{
	ID:        "u2",
	Name:      "Alice Kim",
	AvatarURL: "https://api.dicebear.com/7.x/avataaars/svg?seed=Alice",
}

type district struct {
	name     string
	lat, lng float64
	weight   float64
}

var districts = []district{
	{"Soho", 40.7233, -74.0030, 0.4},
	{"Union Square", 40.7359, -73.9911, 0.3},
	{"West Village", 40.7359, -74.0036, 0.3},
}

type merchant struct{ name, category string }

var merchants = []merchant{
	{"Starbucks", "Cafe"},
	{"Blue Bottle", "Cafe"},
	{"Dunkin", "Cafe"},
	{"La Colombe", "Cafe"},
	{"McDonalds", "Dining"},
	{"Shake Shack", "Dining"},
	{"Chipotle", "Dining"},
	{"Sweetgreen", "Dining"},
	{"Joe's Pizza", "Dining"},
	{"Prince St Pizza", "Dining"},
	{"Whole Foods", "Shopping"},
	{"Trader Joes", "Shopping"},
	{"Sephora", "Shopping"},
	{"CVS Pharmacy", "Shopping"},
	{"Nike", "Shopping"},
	{"Adidas", "Shopping"},
	{"Uniqlo", "Shopping"},
	{"Kith", "Shopping"},
	{"Supreme", "Shopping"},
	{"Uber", "Transport"},
	{"AMC Theatres", "Entertainment"},
	{"Amazon", "Online"},
	{"Netflix", "Subscription"},
	{"Spotify", "Subscription"},
	{"Apple Services", "Online"},
	{"DoorDash", "Dining"},
}

var favorites = []string{"Starbucks", "Whole Foods", "Sweetgreen", "Shake Shack", "Kith"}

var memos = []string{
	"Great service!", "Too crowded.", "Love this place.", "Quick lunch.",
	"Expensive but worth it.", "My favorite spot.", "Just okay.",
	"Best in town!", "Coffee was cold.", "Friendly staff.",
	"Weekend vibes.", "Date night.", "Grocery run.", "Needed this.",
}

var categoryImages = map[string][]string{
	"Dining": {
		"https://images.unsplash.com/photo-1517248135467-4c7edcad34c4?w=600&q=80",
		"https://images.unsplash.com/photo-1555396273-367ea4eb4db5?w=600&q=80",
		"https://images.unsplash.com/photo-1504674900247-0877df9cc836?w=600&q=80",
	},
	"Cafe": {
		"https://images.unsplash.com/photo-1509042239860-f550ce710b93?w=600&q=80",
		"https://images.unsplash.com/photo-1554118811-1e0d58224f24?w=600&q=80",
	},
	"Shopping": {
		"https://images.unsplash.com/photo-1483985988355-763728e1935b?w=600&q=80",
		"https://images.unsplash.com/photo-1441986300917-64674bd600d8?w=600&q=80",
	},
	"Transport": {
		"https://images.unsplash.com/photo-1449965408869-eaa3f722e40d?w=600&q=80",
	},
	"Entertainment": {
		"https://images.unsplash.com/photo-1517604931442-710e8ed05feb?w=600&q=80",
	},
	"Online": {
		"https://images.unsplash.com/photo-1563013544-824ae1b704d3?w=600&q=80",
	},
}

const defaultImage = "https://images.unsplash.com/photo-1556742049-0cfed4f7a07d?w=600&q=80"

var rates = []float64{0.05, 0.08, 0.10, 0.15, 0.20}

// Dataset is everything a fresh store starts with.
type Dataset struct {
	Mine          []core.Transaction
	Friends       []core.Transaction
	Global        []core.Transaction
	Offers        []core.Offer
	Cards         []core.Card
	Notifications []core.NotificationItem
	Memos         []core.MemoItem
}

type store struct {
	merchant
	loc core.Location
}

type generator struct {
	rng *rand.Rand
	now time.Time
}

// Generate builds a dataset. The same seed and now always produce the same
// data; seed 0 picks a random seed.
func Generate(seed int64, now time.Time) Dataset {
	if seed == 0 {
		seed = rand.Int64()
	}
	g := &generator{rng: rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15)), now: now}

	stores := g.stores(storeCount)
	var favs []store
	for _, s := range stores {
		if slices.Contains(favorites, s.name) {
			favs = append(favs, s)
			if len(favs) == favoriteLimit {
				break
			}
		}
	}

	d := Dataset{
		Offers:  append(g.offers(offerCount, append(slices.Clone(favs), stores...)), OnlineOffers(now)...),
		Global:  g.transactions(globalCount, true, stores, favs),
		Mine:    g.transactions(mineCount, false, stores, favs),
		Friends: []core.Transaction{friendPizza(now)},
		Cards: []core.Card{
			{ID: "card_1", BankName: "Chase", CardName: "Sapphire Preferred", Last4: "4242", Color: "bg-blue-800", Type: core.CardCredit},
			{ID: "card_2", BankName: "Amex", CardName: "Gold Card", Last4: "1005", Color: "bg-yellow-500 text-black", Type: core.CardCredit},
		},
		Memos: []core.MemoItem{
			{ID: "m1", Text: "Buy Milk", Completed: false},
			{ID: "m2", Text: "Eggs", Completed: true},
		},
	}

	related := "tx_gen_m_0"
	if len(d.Mine) > 0 {
		related = d.Mine[0].ID
	}
	d.Notifications = []core.NotificationItem{
		{
			ID:      "n1",
			Type:    core.NotifySocialComment,
			Title:   "New Comment",
			Message: "Alice Kim commented on your Blue Bottle visit.",
			TimeAgo: "2m ago",
			Related: &core.Related{Kind: core.RelatedTransaction, ID: related},
		},
		{
			ID:      "n2",
			Type:    core.NotifyOfferNearby,
			Title:   "Reward Nearby",
			Message: "Nike (8% Cashback) is 5 mins away!",
			TimeAgo: "1h ago",
			Related: &core.Related{Kind: core.RelatedOffer, ID: "off_gen_0"},
		},
	}
	return d
}

func (g *generator) stores(n int) []store {
	var physical []merchant
	for _, m := range merchants {
		if m.category != "Online" && m.category != "Subscription" {
			physical = append(physical, m)
		}
	}
	out := make([]store, 0, n)
	for range n {
		dist := districts[0]
		r, cum := g.rng.Float64(), 0.0
		for _, d := range districts {
			cum += d.weight
			if r <= cum {
				dist = d
				break
			}
		}
		out = append(out, store{
			merchant: physical[g.rng.IntN(len(physical))],
			loc: core.Location{
				Lat:     dist.lat + (g.rng.Float64()-0.5)*jitter,
				Lng:     dist.lng + (g.rng.Float64()-0.5)*jitter,
				Address: fmt.Sprintf("%d %s St", g.rng.IntN(200)+1, dist.name),
			},
		})
	}
	return out
}

// offers cycles over targets, favorites first, so every favorite spot gets
// an offer. A second offer for the same merchant at the same spot is skipped.
func (g *generator) offers(n int, targets []store) []core.Offer {
	var out []core.Offer
	for i := range n {
		s := targets[i%len(targets)]
		rate := rates[g.rng.IntN(len(rates))]
		from := g.now.AddDate(0, 0, -g.rng.IntN(5))
		until := g.now.AddDate(0, 0, g.rng.IntN(10)+1)

		dup := slices.ContainsFunc(out, func(o core.Offer) bool {
			return o.MerchantName == s.name && math.Abs(o.Location.Lat-s.loc.Lat) < 0.0001
		})
		if dup {
			continue
		}
		loc := s.loc
		out = append(out, core.Offer{
			ID:           fmt.Sprintf("off_gen_%d", i),
			MerchantName: s.name,
			CashbackRate: rate,
			Description:  fmt.Sprintf("%.0f%% Cashback at %s", rate*100, s.name),
			Location:     &loc,
			Category:     s.category,
			ValidFrom:    &from,
			ValidUntil:   &until,
		})
	}
	return out
}

// OnlineOffers are the fixed location-less promotions, valid for 30 days
// from now.
func OnlineOffers(now time.Time) []core.Offer {
	until := now.Add(30 * 24 * time.Hour)
	mk := func(i int, name string, rate float64, desc, cat string) core.Offer {
		from, to := now, until
		return core.Offer{
			ID:           fmt.Sprintf("off_online_%d", i),
			MerchantName: name,
			CashbackRate: rate,
			Description:  desc,
			Category:     cat,
			ValidFrom:    &from,
			ValidUntil:   &to,
		}
	}
	return []core.Offer{
		mk(1, "Amazon", 0.05, "5% Cashback on Electronics", "Online"),
		mk(2, "Netflix", 0.10, "10% Cashback on Subscription", "Subscription"),
		mk(3, "DoorDash", 0.08, "8% Cashback on Orders over $20", "Dining"),
		mk(4, "Spotify", 0.15, "15% Cashback on Premium", "Subscription"),
		mk(5, "Apple Services", 0.05, "5% Cashback on App Store", "Online"),
		mk(6, "Uber", 0.05, "5% Cashback on Rides", "Transport"),
	}
}

func (g *generator) transactions(n int, global bool, stores, favs []store) []core.Transaction {
	var online []merchant
	for _, m := range merchants {
		switch m.category {
		case "Online", "Subscription", "Shopping":
			online = append(online, m)
		default:
			if m.name == "DoorDash" {
				online = append(online, m)
			}
		}
	}

	prefix := "m"
	if global {
		prefix = "g"
	}
	out := make([]core.Transaction, 0, n)
	for i := range n {
		isOnline := g.rng.Float64() < 0.3
		var m merchant
		var loc *core.Location
		if isOnline {
			m = online[g.rng.IntN(len(online))]
		} else {
			s := stores[g.rng.IntN(len(stores))]
			if !global && len(favs) > 0 && g.rng.Float64() < 0.8 {
				s = favs[g.rng.IntN(len(favs))]
			}
			m = s.merchant
			l := s.loc
			loc = &l
		}

		date := g.now.AddDate(0, 0, -g.rng.IntN(historyDays))
		date = time.Date(date.Year(), date.Month(), date.Day(), g.rng.IntN(24), g.rng.IntN(60), 0, 0, date.Location())
		amount := core.Money{Cents: 500 + g.rng.Int64N(10000)}

		t := core.Transaction{
			ID:           fmt.Sprintf("tx_gen_%s_%d", prefix, i),
			Amount:       amount,
			Currency:     "USD",
			MerchantName: m.name,
			Date:         date,
			Category:     m.category,
			Status:       core.StatusCompleted,
			CountryCode:  "US",
			Location:     loc,
			User:         CurrentUser,
			Visibility:   core.VisibilityPrivate,
		}
		if g.rng.Float64() > 0.8 {
			t.Memo = memos[g.rng.IntN(len(memos))]
		}
		hasPhoto := g.rng.Float64() > 0.9 && !isOnline
		if global {
			hasPhoto = g.rng.Float64() > 0.4
			t.Visibility = core.VisibilityPublic
			t.LikeCount = g.rng.IntN(50)
			t.User = core.UserInfo{
				ID:        fmt.Sprintf("stranger_%d", g.rng.IntN(1000)),
				Name:      fmt.Sprintf("User %d", g.rng.IntN(1000)),
				AvatarURL: fmt.Sprintf("https://api.dicebear.com/7.x/avataaars/svg?seed=%d", g.rng.Int64()),
			}
		} else if g.rng.Float64() > 0.5 {
			t.Visibility = core.VisibilityFriends
		}
		if hasPhoto {
			t.PhotoURL = g.image(m.category)
		}
		out = append(out, t)
	}
	return out
}

func (g *generator) image(category string) string {
	imgs, ok := categoryImages[category]
	if !ok {
		return defaultImage
	}
	return imgs[g.rng.IntN(len(imgs))]
}

func friendPizza(now time.Time) core.Transaction {
	return core.Transaction{
		ID:           "ftx_1",
		MerchantName: "Joe's Pizza",
		Amount:       core.Money{Cents: 450},
		Currency:     "USD",
		Date:         now,
		Category:     "Dining",
		Status:       core.StatusCompleted,
		CountryCode:  "US",
		Location:     &core.Location{Lat: 40.7305, Lng: -74.0021, Address: "7 Carmine St, NYC"},
		Memo:         "Classic NYC slice!",
		PhotoURL:     "https://images.unsplash.com/photo-1590947132387-155cc02f3212?w=600&q=80",
		Visibility:   core.VisibilityFriends,
		User:         friendAlice,
		LikeCount:    5,
	}
}
