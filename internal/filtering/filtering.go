// Package filtering derives the visible transaction and offer sets from the
// view mode, period, category and search criteria.
//
// Every function here is pure: the caller supplies the evaluation instant and
// the full data sets, and gets back fresh slices.
package filtering

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"pinledger/internal/core"
)

const (
	ViewPersonal ViewMode = "personal"
	ViewFriends  ViewMode = "friends"
	ViewGlobal   ViewMode = "global"
)

const (
	PeriodToday   Period = "today"
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
	PeriodAll     Period = "all"
)

// DefaultHomeCountry is the country code treated as domestic when none is configured.
const DefaultHomeCountry = "KR"

type (
	ViewMode string
	Period   string

	// Sources holds the three transaction sets a view mode can combine.
	Sources struct {
		Mine    []core.Transaction
		Friends []core.Transaction
		Global  []core.Transaction
	}

	Criteria struct {
		View     ViewMode
		Period   Period
		Category string
		Search   string
	}

	// Engine applies Criteria. HomeCountry drives the "Overseas" category.
	Engine struct {
		HomeCountry string
	}
)

// ParseViewMode accepts the empty string as personal.
func ParseViewMode(s string) (ViewMode, error) {
	switch v := ViewMode(strings.ToLower(strings.TrimSpace(s))); v {
	case "":
		return ViewPersonal, nil
	case ViewPersonal, ViewFriends, ViewGlobal:
		return v, nil
	default:
		return "", fmt.Errorf("unknown view mode %q", s)
	}
}

// ParsePeriod accepts the empty string as all.
func ParsePeriod(s string) (Period, error) {
	switch p := Period(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PeriodAll, nil
	case PeriodToday, PeriodWeekly, PeriodMonthly, PeriodAll:
		return p, nil
	default:
		return "", fmt.Errorf("unknown period %q", s)
	}
}

func New(homeCountry string) *Engine {
	if homeCountry == "" {
		homeCountry = DefaultHomeCountry
	}
	return &Engine{HomeCountry: strings.ToUpper(homeCountry)}
}

// Compose concatenates the sets selected by mode. Entries present in more
// than one set appear more than once.
func Compose(mode ViewMode, src Sources) []core.Transaction {
	n := len(src.Mine)
	switch mode {
	case ViewFriends:
		n += len(src.Friends)
	case ViewGlobal:
		n += len(src.Friends) + len(src.Global)
	}
	out := make([]core.Transaction, 0, n)
	out = append(out, src.Mine...)
	switch mode {
	case ViewFriends:
		out = append(out, src.Friends...)
	case ViewGlobal:
		out = append(out, src.Friends...)
		out = append(out, src.Global...)
	}
	return out
}

// PeriodStart returns the inclusive lower bound for p. ok is false for
// PeriodAll.
func PeriodStart(p Period, now time.Time) (start time.Time, ok bool) {
	switch p {
	case PeriodToday:
		return core.StartOfDay(now), true
	case PeriodWeekly:
		return now.AddDate(0, 0, -7), true
	case PeriodMonthly:
		return now.AddDate(0, -1, 0), true
	default:
		return time.Time{}, false
	}
}

// Transactions composes the view, applies period, category and search
// filters, and sorts newest first. Ties keep their composed order.
func (e *Engine) Transactions(src Sources, c Criteria, now time.Time) []core.Transaction {
	return e.Apply(Compose(c.View, src), c, now)
}

// Apply filters an already composed list.
func (e *Engine) Apply(txs []core.Transaction, c Criteria, now time.Time) []core.Transaction {
	start, bounded := PeriodStart(c.Period, now)
	term := normalizeTerm(c.Search)

	out := make([]core.Transaction, 0, len(txs))
	for _, t := range txs {
		if bounded && t.Date.Before(start) {
			continue
		}
		if !e.MatchesCategory(t, c.Category) {
			continue
		}
		if term != "" && !matchesSearch(t, term) {
			continue
		}
		out = append(out, t)
	}
	SortNewestFirst(out)
	return out
}

// MatchesCategory reports whether t passes the category filter.
func (e *Engine) MatchesCategory(t core.Transaction, category string) bool {
	switch category {
	case "", core.CategoryAll:
		return true
	case core.CategoryOverseas:
		return t.CountryCode != "" && !strings.EqualFold(t.CountryCode, e.HomeCountry)
	case core.CategoryOnline:
		return t.IsOnline()
	default:
		return t.Category == category
	}
}

// Offers keeps offers active at now that match the category and search term.
func (e *Engine) Offers(offers []core.Offer, c Criteria, now time.Time) []core.Offer {
	term := normalizeTerm(c.Search)
	out := make([]core.Offer, 0, len(offers))
	for _, o := range offers {
		if !o.ActiveAt(now) {
			continue
		}
		if term != "" && !strings.Contains(strings.ToLower(o.MerchantName), term) {
			continue
		}
		if !offerMatchesCategory(o, c.Category) {
			continue
		}
		out = append(out, o)
	}
	return out
}

func offerMatchesCategory(o core.Offer, category string) bool {
	switch category {
	case "", core.CategoryAll:
		return true
	case core.CategoryOnline:
		return o.Category == core.CategoryOnline || o.Location == nil
	default:
		return o.Category == category
	}
}

// OfferForPlace finds the first offer whose merchant name contains, or is
// contained in, the place name (case-insensitive).
func OfferForPlace(offers []core.Offer, placeName string) (core.Offer, bool) {
	name := strings.ToLower(strings.TrimSpace(placeName))
	if name == "" {
		return core.Offer{}, false
	}
	for _, o := range offers {
		m := strings.ToLower(o.MerchantName)
		if m == "" {
			continue
		}
		if strings.Contains(m, name) || strings.Contains(name, m) {
			return o, true
		}
	}
	return core.Offer{}, false
}

// SortNewestFirst sorts in place by date descending, keeping input order on ties.
func SortNewestFirst(txs []core.Transaction) {
	slices.SortStableFunc(txs, func(a, b core.Transaction) int {
		return b.Date.Compare(a.Date)
	})
}

func normalizeTerm(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func matchesSearch(t core.Transaction, term string) bool {
	return strings.Contains(strings.ToLower(t.MerchantName), term) ||
		strings.Contains(strings.ToLower(t.Category), term)
}
